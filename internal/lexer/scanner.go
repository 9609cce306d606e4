package lexer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

type TokenType string

const (
	// Keywords
	TokenDef    TokenType = "DEF"
	TokenExtern TokenType = "EXTERN"

	// Literals
	TokenIdent  TokenType = "IDENT"
	TokenNumber TokenType = "NUMBER"

	// Any other single character: operators, parentheses, comma, semicolon
	TokenPunct TokenType = "PUNCT"

	TokenEOF TokenType = "EOF"
)

type Token struct {
	Type   TokenType
	Lexeme string
	Value  float64
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s'", t.Type, t.Lexeme)
}

// Punct returns the character a TokenPunct token carries.
func (t Token) Punct() byte {
	if t.Type != TokenPunct || len(t.Lexeme) == 0 {
		return 0
	}
	return t.Lexeme[0]
}

// Scanner pulls characters from a stream and produces one token at a time.
// The parser always sees exactly the current token and advances explicitly.
type Scanner struct {
	r    *bufio.Reader
	cur  Token
	last rune
	eof  bool
	line int
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		r:    bufio.NewReader(r),
		last: ' ',
		line: 1,
	}
}

// Advance scans the next token and makes it current.
func (s *Scanner) Advance() Token {
	s.cur = s.scan()
	return s.cur
}

// Current returns the most recently scanned token without consuming input.
func (s *Scanner) Current() Token {
	return s.cur
}

// CurrentText is valid only when the current token is an identifier or keyword.
func (s *Scanner) CurrentText() string {
	return s.cur.Lexeme
}

// CurrentValue is valid only when the current token is a number.
func (s *Scanner) CurrentValue() float64 {
	return s.cur.Value
}

func (s *Scanner) scan() Token {
	for !s.eof && unicode.IsSpace(s.last) {
		s.advance()
	}
	if s.eof {
		// Terminal state: every call from here on yields EOF.
		return Token{Type: TokenEOF, Line: s.line}
	}

	if unicode.IsLetter(s.last) {
		return s.identifier()
	}
	if unicode.IsDigit(s.last) || s.last == '.' {
		return s.number()
	}
	if s.last == '#' {
		// Line comment: discard through end of line, then rescan.
		for !s.eof && s.last != '\n' {
			s.advance()
		}
		return s.scan()
	}

	// Anything else is a single-character token; the parser decides legality.
	c := s.last
	line := s.line
	s.advance()
	return Token{Type: TokenPunct, Lexeme: string(c), Line: line}
}

// identifier: [a-zA-Z][a-zA-Z0-9]*
func (s *Scanner) identifier() Token {
	line := s.line
	var sb strings.Builder
	for !s.eof && (unicode.IsLetter(s.last) || unicode.IsDigit(s.last)) {
		sb.WriteRune(s.last)
		s.advance()
	}
	text := sb.String()
	switch text {
	case "def":
		return Token{Type: TokenDef, Lexeme: text, Line: line}
	case "extern":
		return Token{Type: TokenExtern, Lexeme: text, Line: line}
	default:
		return Token{Type: TokenIdent, Lexeme: text, Line: line}
	}
}

// number: [0-9.]+ consumed greedily. Lexically lax: "1.2.3" is one token;
// its value is the longest prefix that parses as a float.
func (s *Scanner) number() Token {
	line := s.line
	var sb strings.Builder
	for !s.eof && (unicode.IsDigit(s.last) || s.last == '.') {
		sb.WriteRune(s.last)
		s.advance()
	}
	text := sb.String()
	return Token{Type: TokenNumber, Lexeme: text, Value: numberValue(text), Line: line}
}

// numberValue parses the longest valid float prefix of text, ignoring
// trailing garbage such as a second decimal point. A bare "." yields 0.
func numberValue(text string) float64 {
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v
	}
	for i := len(text) - 1; i > 0; i-- {
		if v, err := strconv.ParseFloat(text[:i], 64); err == nil {
			return v
		}
	}
	return 0
}

func (s *Scanner) advance() {
	r, _, err := s.r.ReadRune()
	if err != nil {
		s.eof = true
		s.last = 0
		return
	}
	if r == '\n' {
		s.line++
	}
	s.last = r
}
