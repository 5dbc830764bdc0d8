package lexer

import "fmt"

// Error is a lexical failure, carrying the offending position per spec.md
// §4.1.
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}
