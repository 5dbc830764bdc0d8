package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jsvm/internal/token"
)

func allTokens(src string) []token.Token {
	l := New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestLexerPunctuators(t *testing.T) {
	toks := allTokens("?. ?? ... => ** += ===")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []token.Kind{
		token.QuestionDot, token.QuestionQuestion, token.DotDotDot,
		token.Arrow, token.StarStar, token.PlusEq, token.StrictEq, token.EOF,
	}, kinds)
}

func TestLexerNumericLiterals(t *testing.T) {
	for _, src := range []string{"0x1F", "0o17", "0b101", "3.14", "1_000", "1e10", "1n"} {
		l := New(src)
		tok := l.Next()
		require.Equal(t, token.Number, tok.Kind, "src=%s", src)
		require.Empty(t, l.Errors(), "src=%s", src)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	l := New(`"a\nb\u{1F600}"`)
	tok := l.Next()
	require.Equal(t, token.String, tok.Kind)
	require.Contains(t, tok.Lexeme, "\n")
}

func TestLexerUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	l.Next()
	require.NotEmpty(t, l.Errors())
}

func TestLexerRegexVsDivision(t *testing.T) {
	toks := allTokens("a / b")
	require.Equal(t, token.Slash, toks[1].Kind)

	toks = allTokens("(/abc/)")
	require.Equal(t, token.Regex, toks[1].Kind)
}

func TestLexerASINewlineTracking(t *testing.T) {
	toks := allTokens("a\nb")
	require.False(t, toks[0].NewlineBefore)
	require.True(t, toks[1].NewlineBefore)
}

func TestLexerTemplateLiteral(t *testing.T) {
	toks := allTokens("`a${b}c`")
	require.Equal(t, token.TemplateHead, toks[0].Kind)
	require.Equal(t, "a", toks[0].Lexeme)
	require.Equal(t, token.Ident, toks[1].Kind)
	require.Equal(t, token.TemplateTail, toks[2].Kind)
	require.Equal(t, "c", toks[2].Lexeme)
}

func TestLexerKeywords(t *testing.T) {
	toks := allTokens("let const function async await")
	require.Equal(t, token.KwLet, toks[0].Kind)
	require.Equal(t, token.KwConst, toks[1].Kind)
	require.Equal(t, token.KwFunction, toks[2].Kind)
	require.Equal(t, token.KwAsync, toks[3].Kind)
	require.Equal(t, token.KwAwait, toks[4].Kind)
}
