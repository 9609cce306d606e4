package lexer

import (
	"strings"
	"testing"
)

func scannerFor(input string) *Scanner {
	return NewScanner(strings.NewReader(input))
}

func TestTokenClassification(t *testing.T) {
	tests := []struct {
		name  string
		input string
		types []TokenType
	}{
		{"keywords", "def extern", []TokenType{TokenDef, TokenExtern}},
		{"identifiers", "foo bar2 define externs", []TokenType{TokenIdent, TokenIdent, TokenIdent, TokenIdent}},
		{"numbers", "1 2.5 .5", []TokenType{TokenNumber, TokenNumber, TokenNumber}},
		{"punctuation", "( ) + , ;", []TokenType{TokenPunct, TokenPunct, TokenPunct, TokenPunct, TokenPunct}},
		{"definition", "def f(x) x+1", []TokenType{
			TokenDef, TokenIdent, TokenPunct, TokenIdent, TokenPunct,
			TokenIdent, TokenPunct, TokenNumber,
		}},
		{"comment skipped", "1 # trailing comment\n2", []TokenType{TokenNumber, TokenNumber}},
		{"comment to eof", "1 # no newline", []TokenType{TokenNumber}},
		{"empty input", "", nil},
		{"only whitespace", "  \t\n  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scannerFor(tt.input)
			for i, want := range tt.types {
				tok := s.Advance()
				if tok.Type != want {
					t.Fatalf("token %d: got %v, want %v", i, tok.Type, want)
				}
			}
			if tok := s.Advance(); tok.Type != TokenEOF {
				t.Fatalf("expected EOF after %d tokens, got %v", len(tt.types), tok)
			}
		})
	}
}

func TestNumberValues(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0", 0},
		{"42", 42},
		{"2.5", 2.5},
		{".5", 0.5},
		{"1.", 1},
		// Lexically lax literals: longest valid float prefix wins.
		{"1.2.3", 1.2},
		{"1..2", 1},
		{".", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := scannerFor(tt.input)
			tok := s.Advance()
			if tok.Type != TokenNumber {
				t.Fatalf("got %v, want a number token", tok)
			}
			if tok.Value != tt.want {
				t.Errorf("value of %q: got %v, want %v", tt.input, tok.Value, tt.want)
			}
		})
	}
}

func TestIdentifierText(t *testing.T) {
	s := scannerFor("fib next9")
	s.Advance()
	if got := s.CurrentText(); got != "fib" {
		t.Errorf("CurrentText: got %q, want %q", got, "fib")
	}
	s.Advance()
	if got := s.CurrentText(); got != "next9" {
		t.Errorf("CurrentText: got %q, want %q", got, "next9")
	}
}

func TestSingleLookahead(t *testing.T) {
	// Fetching token N+1 must fully replace token N: the scanner exposes
	// exactly one current token.
	s := scannerFor("alpha 7 beta")

	s.Advance()
	if s.Current().Type != TokenIdent || s.CurrentText() != "alpha" {
		t.Fatalf("current: got %v", s.Current())
	}

	s.Advance()
	if s.Current().Type != TokenNumber || s.CurrentValue() != 7 {
		t.Fatalf("current after advance: got %v", s.Current())
	}
	if s.CurrentText() == "alpha" {
		t.Error("previous token text still observable after advance")
	}

	s.Advance()
	if s.CurrentText() != "beta" {
		t.Fatalf("current: got %v", s.Current())
	}
}

func TestEOFIdempotent(t *testing.T) {
	s := scannerFor("x")
	if tok := s.Advance(); tok.Type != TokenIdent {
		t.Fatalf("got %v, want identifier", tok)
	}
	for i := 0; i < 5; i++ {
		if tok := s.Advance(); tok.Type != TokenEOF {
			t.Fatalf("advance %d past end: got %v, want EOF", i, tok)
		}
	}
}

func TestPunctValue(t *testing.T) {
	s := scannerFor("+*<(")
	for _, want := range []byte{'+', '*', '<', '('} {
		tok := s.Advance()
		if tok.Punct() != want {
			t.Errorf("got %q, want %q", tok.Punct(), want)
		}
	}
}

func TestLineTracking(t *testing.T) {
	s := scannerFor("one\ntwo\n\nthree")
	wants := []struct {
		text string
		line int
	}{
		{"one", 1},
		{"two", 2},
		{"three", 4},
	}
	for _, w := range wants {
		tok := s.Advance()
		if tok.Lexeme != w.text || tok.Line != w.line {
			t.Errorf("got %q on line %d, want %q on line %d", tok.Lexeme, tok.Line, w.text, w.line)
		}
	}
}
