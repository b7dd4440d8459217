package gedcom

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
const (
	tEOF     lexer.TokenType = lexer.EOF
	tLevel   lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	tPointer                               // @I1@ before the tag
	tTag                                   // INDI, NAME, _CUSTOM
	tValue                                 // everything after the tag delimiter
	tEOL                                   // \n, \r\n or \r
	tInvalid                               // unlexable remainder of a line
)

// lineDefinition implements lexer.Definition for GEDCOM lines.
type lineDefinition struct {
	symbols map[string]lexer.TokenType
}

func newLineLexer() *lineDefinition {
	return &lineDefinition{
		symbols: map[string]lexer.TokenType{
			"EOF":     tEOF,
			"Level":   tLevel,
			"Pointer": tPointer,
			"Tag":     tTag,
			"Value":   tValue,
			"EOL":     tEOL,
			"Invalid": tInvalid,
		},
	}
}

// Symbols returns the mapping of symbol names to token types.
func (d *lineDefinition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *lineDefinition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return d.LexString(filename, string(data))
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *lineDefinition) LexString(filename string, input string) (lexer.Lexer, error) {
	return newLexerState(filename, input), nil
}

// lineState is where the lexer is within the current line.
type lineState int

const (
	atLineStart lineState = iota
	afterLevel
	afterPointer
	afterTag
	atLineEnd
)

// lexerState holds the state for lexing. The lexer never fails: input it
// cannot tokenize becomes a tInvalid token and the parser decides what to do.
type lexerState struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
	state    lineState
}

func newLexerState(filename, input string) *lexerState {
	l := &lexerState{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
	}

	// Byte order mark.
	if strings.HasPrefix(input, "\uFEFF") {
		l.offset = len("\uFEFF")
	}

	return l
}

// Next returns the next token.
func (l *lexerState) Next() (lexer.Token, error) {
	for {
		if l.eof() {
			return lexer.EOFToken(l.pos()), nil
		}

		if isEOL(l.peek()) {
			start := l.pos()
			if l.advance() == '\r' && l.peek() == '\n' {
				l.advance()
			}

			l.state = atLineStart

			return l.token(tEOL, start), nil
		}

		switch l.state {
		case atLineStart:
			l.skipBlanks()

			if l.eof() || isEOL(l.peek()) {
				continue
			}

			start := l.pos()
			if !isDigit(l.peek()) {
				return l.invalid(start), nil
			}

			for !l.eof() && isDigit(l.peek()) {
				l.advance()
			}

			l.state = afterLevel

			return l.token(tLevel, start), nil

		case afterLevel, afterPointer:
			start := l.pos()
			if l.skipBlanks() == 0 {
				return l.invalid(start), nil
			}

			if l.eof() || isEOL(l.peek()) {
				continue
			}

			start = l.pos()
			if l.peek() == '@' && l.state == afterLevel {
				return l.scanPointer(start), nil
			}

			if !isTagChar(l.peek()) {
				return l.invalid(start), nil
			}

			for !l.eof() && isTagChar(l.peek()) {
				l.advance()
			}

			l.state = afterTag

			return l.token(tTag, start), nil

		case afterTag:
			start := l.pos()
			if l.peek() != ' ' {
				return l.invalid(start), nil
			}

			l.advance() // delimiter

			start = l.pos()
			for !l.eof() && !isEOL(l.peek()) {
				l.advance()
			}

			l.state = atLineEnd

			return l.token(tValue, start), nil

		case atLineEnd:
			return l.invalid(l.pos()), nil
		}
	}
}

func (l *lexerState) scanPointer(start lexer.Position) lexer.Token {
	l.advance() // opening @

	for !l.eof() && !isEOL(l.peek()) {
		if l.advance() == '@' {
			l.state = afterPointer

			return l.token(tPointer, start)
		}
	}

	// Unterminated pointer: the whole remainder is invalid.
	l.state = atLineEnd

	return l.token(tInvalid, start)
}

// invalid consumes the rest of the line as a single tInvalid token.
func (l *lexerState) invalid(start lexer.Position) lexer.Token {
	for !l.eof() && !isEOL(l.peek()) {
		l.advance()
	}

	l.state = atLineEnd

	return l.token(tInvalid, start)
}

// skipBlanks consumes spaces and tabs and returns how many it consumed.
func (l *lexerState) skipBlanks() int {
	n := 0
	for !l.eof() && (l.peek() == ' ' || l.peek() == '\t') {
		l.advance()
		n++
	}

	return n
}

func (l *lexerState) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *lexerState) eof() bool {
	return l.offset >= len(l.input)
}

func (l *lexerState) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])

	return r
}

func (l *lexerState) advance() rune {
	if l.eof() {
		return 0
	}

	r, size := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += size

	if r == '\n' || (r == '\r' && l.peek() != '\n') {
		l.line++
		l.col = 1
	} else if r != '\r' {
		l.col++
	}

	return r
}

func (l *lexerState) token(typ lexer.TokenType, start lexer.Position) lexer.Token {
	return lexer.Token{
		Type:  typ,
		Value: l.input[start.Offset:l.offset],
		Pos:   start,
	}
}

// Character helpers.

func isEOL(r rune) bool {
	return r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isTagChar(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || isDigit(r)
}
