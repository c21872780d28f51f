package scanner

import (
	"strings"

	"github.com/xirelogy/go-lox/internal/token"
)

// Scanner converts source text into a stream of tokens, produced one at a time.
type Scanner struct {
	input   string
	pos     int  // current position in bytes
	readPos int  // next read position
	ch      byte // current char
	line    int
}

// New creates a scanner for the provided source text.
func New(input string) *Scanner {
	s := &Scanner{
		input: input,
		line:  1,
	}
	s.readChar()
	return s
}

// NextToken returns the next token from the input. Once the input is
// exhausted it keeps returning EOF tokens.
func (s *Scanner) NextToken() token.Token {
	for {
		s.skipWhitespace()

		if s.ch == 0 {
			return s.makeToken(token.EOF, "")
		}

		if s.ch == '/' && s.peekChar() == '/' {
			s.skipLineComment()
			continue
		}

		switch s.ch {
		case '(':
			return s.single(token.LParen)
		case ')':
			return s.single(token.RParen)
		case '{':
			return s.single(token.LBrace)
		case '}':
			return s.single(token.RBrace)
		case ',':
			return s.single(token.Comma)
		case '.':
			return s.single(token.Dot)
		case ';':
			return s.single(token.Semicolon)
		case '+':
			return s.single(token.Plus)
		case '-':
			return s.single(token.Minus)
		case '*':
			return s.single(token.Star)
		case '/':
			return s.single(token.Slash)
		case '!':
			return s.maybeEqual(token.Bang, token.BangEqual)
		case '=':
			return s.maybeEqual(token.Equal, token.EqualEqual)
		case '<':
			return s.maybeEqual(token.Less, token.LessEqual)
		case '>':
			return s.maybeEqual(token.Greater, token.GreaterEqual)
		case '"':
			return s.readString()
		default:
			if isLetter(s.ch) {
				return s.readIdentifier()
			}
			if isDigit(s.ch) {
				return s.readNumber()
			}
			tok := s.makeToken(token.Illegal, "unexpected character "+string(s.ch))
			s.readChar()
			return tok
		}
	}
}

func (s *Scanner) makeToken(kind token.Kind, lexeme string) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: lexeme,
		Line:   s.line,
	}
}

func (s *Scanner) single(kind token.Kind) token.Token {
	tok := s.makeToken(kind, string(s.ch))
	s.readChar()
	return tok
}

func (s *Scanner) maybeEqual(plain, withEqual token.Kind) token.Token {
	if s.peekChar() == '=' {
		ch := s.ch
		s.readChar()
		tok := s.makeToken(withEqual, string(ch)+string(s.ch))
		s.readChar()
		return tok
	}
	return s.single(plain)
}

func (s *Scanner) skipWhitespace() {
	for s.ch == ' ' || s.ch == '\t' || s.ch == '\r' || s.ch == '\n' {
		s.readChar()
	}
}

func (s *Scanner) skipLineComment() {
	for s.ch != 0 && s.ch != '\n' {
		s.readChar()
	}
}

func (s *Scanner) readIdentifier() token.Token {
	start := s.makeToken(token.Identifier, "")
	var sb strings.Builder
	for isLetter(s.ch) || isDigit(s.ch) {
		sb.WriteByte(s.ch)
		s.readChar()
	}
	lexeme := sb.String()
	start.Kind = token.LookupIdent(lexeme)
	start.Lexeme = lexeme
	return start
}

func (s *Scanner) readNumber() token.Token {
	start := s.makeToken(token.Number, "")
	var sb strings.Builder
	for isDigit(s.ch) {
		sb.WriteByte(s.ch)
		s.readChar()
	}
	if s.ch == '.' && isDigit(s.peekChar()) {
		sb.WriteByte(s.ch)
		s.readChar()
		for isDigit(s.ch) {
			sb.WriteByte(s.ch)
			s.readChar()
		}
	}
	start.Lexeme = sb.String()
	return start
}

func (s *Scanner) readString() token.Token {
	start := s.makeToken(token.String, "")
	var sb strings.Builder

	for {
		s.readChar()
		if s.ch == 0 {
			illegal := s.makeToken(token.Illegal, "unterminated string")
			illegal.Line = start.Line
			return illegal
		}
		if s.ch == '"' {
			s.readChar()
			break
		}
		sb.WriteByte(s.ch)
	}

	start.Lexeme = sb.String()
	return start
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (s *Scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

func (s *Scanner) readChar() {
	if s.readPos >= len(s.input) {
		s.pos = s.readPos
		s.ch = 0
		return
	}

	s.ch = s.input[s.readPos]
	s.pos = s.readPos
	s.readPos++

	if s.ch == '\n' {
		s.line++
	}
}
