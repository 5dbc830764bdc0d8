package parser

import (
	"fmt"

	"jsvm/internal/token"
)

// Error is a syntax failure; it carries the offending token's span per
// spec.md §4.2 ("every syntax error carries the token span and a short
// message").
type Error struct {
	Tok token.Token
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s (got %s %q)", e.Tok.Line, e.Tok.Col, e.Msg, e.Tok.Kind, e.Tok.Lexeme)
}
