// Package capability implements the per-runtime permission gate
// side-effecting intrinsics consult before touching the filesystem,
// network, environment, or a subprocess, plus the resource limits the VM
// enforces against CPU time, call depth, and heap size.
package capability

import (
	"path/filepath"
	"strings"
)

// Grant is a field's access level: deny everything, allow a specific
// list, or allow everything.
type Grant int

const (
	None Grant = iota
	Allowed
	All
)

// List holds an allow-list grant's members alongside its kind, so a
// field can be serialized/inspected without losing the None/All cases.
type List struct {
	Grant Grant
	Items []string
}

func Deny() List           { return List{Grant: None} }
func AllowAll() List       { return List{Grant: All} }
func AllowOnly(items ...string) List { return List{Grant: Allowed, Items: items} }

// Limits bounds a runtime's resource consumption (spec.md §5): memory in
// bytes, CPU measured in opcode-budget milliseconds, and call-stack depth.
type Limits struct {
	MemoryBytes int64
	CPUTimeMS   int64
	StackDepth  int
}

// Set is the capability record a runtime carries for its lifetime. Each
// field is independently a None/Allowed/All grant, per spec.md §4.8.
type Set struct {
	ReadPaths         List
	WritePaths        List
	NetHosts          List
	EnvNames          List
	SubprocessAllowed bool
	DynamicCodeAllowed bool
	HiresTimeAllowed  bool
	Limits            Limits
}

// Denied returns a Set with every grant at None and zero limits — the
// conservative default a host falls back to when it hasn't configured
// anything, matching config.Default()'s capability-denying posture.
func Denied() Set {
	return Set{
		ReadPaths:  Deny(),
		WritePaths: Deny(),
		NetHosts:   Deny(),
		EnvNames:   Deny(),
	}
}

// DeniedError is what check returns on rejection; internal/vm wraps it
// into a thrown PermissionDenied error carrying this message.
type DeniedError struct {
	Capability string
	Argument   string
}

func (e *DeniedError) Error() string {
	return "permission denied: " + e.Capability + " " + e.Argument
}

func (l List) allows(item string, match func(pattern, item string) bool) bool {
	switch l.Grant {
	case All:
		return true
	case Allowed:
		for _, p := range l.Items {
			if match(p, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func pathMatch(pattern, item string) bool {
	pattern = filepath.Clean(pattern)
	item = filepath.Clean(item)
	if pattern == item {
		return true
	}
	rel, err := filepath.Rel(pattern, item)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func exactMatch(pattern, item string) bool { return pattern == item }

func hostMatch(pattern, item string) bool {
	if pattern == item {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(item, pattern[1:])
	}
	return false
}

// CheckRead authorizes a filesystem read of path.
func (s Set) CheckRead(path string) error {
	if !s.ReadPaths.allows(path, pathMatch) {
		return &DeniedError{Capability: "read_paths", Argument: path}
	}
	return nil
}

// CheckWrite authorizes a filesystem write of path.
func (s Set) CheckWrite(path string) error {
	if !s.WritePaths.allows(path, pathMatch) {
		return &DeniedError{Capability: "write_paths", Argument: path}
	}
	return nil
}

// CheckNet authorizes an outbound connection to host.
func (s Set) CheckNet(host string) error {
	if !s.NetHosts.allows(host, hostMatch) {
		return &DeniedError{Capability: "net_hosts", Argument: host}
	}
	return nil
}

// CheckEnv authorizes reading the environment variable name.
func (s Set) CheckEnv(name string) error {
	if !s.EnvNames.allows(name, exactMatch) {
		return &DeniedError{Capability: "env_names", Argument: name}
	}
	return nil
}

// CheckSubprocess authorizes spawning a child process.
func (s Set) CheckSubprocess() error {
	if !s.SubprocessAllowed {
		return &DeniedError{Capability: "subprocess_allowed"}
	}
	return nil
}

// CheckDynamicCode authorizes eval/Function-constructor style compilation
// at runtime.
func (s Set) CheckDynamicCode() error {
	if !s.DynamicCodeAllowed {
		return &DeniedError{Capability: "dynamic_code_allowed"}
	}
	return nil
}

// CheckHiresTime authorizes a high-resolution clock read (one precise
// enough to enable timing side channels).
func (s Set) CheckHiresTime() error {
	if !s.HiresTimeAllowed {
		return &DeniedError{Capability: "hires_time_allowed"}
	}
	return nil
}
