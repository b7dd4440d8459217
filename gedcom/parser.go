// Package gedcom reads and writes the GEDCOM line-oriented genealogy format.
//
// A GEDCOM file is a sequence of lines of the form
//
//	LEVEL [POINTER] TAG [VALUE]
//
// where a line at level N+1 belongs to the closest preceding line at level N.
// Parse builds that hierarchy into a Record tree and Writer flattens it back.
package gedcom

import (
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"
	"go.uber.org/zap"
)

// Option configures Parse.
type Option func(*parser)

// WithLogger sets the logger that receives malformed-line warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(p *parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFilename sets the filename reported in positions.
func WithFilename(name string) Option {
	return func(p *parser) {
		p.filename = name
	}
}

// Parse parses GEDCOM text into a Document. Malformed lines never fail the
// parse: they are skipped and reported in Document.Warnings.
func Parse(data []byte, opts ...Option) (*Document, error) {
	p := &parser{
		logger: zap.NewNop(),
		input:  string(data),
		doc:    &Document{index: make(map[string]*Record)},
	}

	for _, opt := range opts {
		opt(p)
	}

	lex, err := newLineLexer().LexString(p.filename, p.input)
	if err != nil {
		return nil, err
	}

	if err := p.run(lex); err != nil {
		return nil, err
	}

	p.logger.Debug("parsed GEDCOM",
		zap.String("file", p.filename),
		zap.Int("records", len(p.doc.Records)),
		zap.Int("warnings", len(p.doc.Warnings)))

	return p.doc, nil
}

// ParseReader reads r fully and parses it.
func ParseReader(r io.Reader, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Parse(data, opts...)
}

type parser struct {
	logger   *zap.Logger
	filename string
	input    string
	doc      *Document

	// stack[n] is the most recent record at level n.
	stack []*Record
}

// line is the tokens of one physical line.
type line struct {
	tokens []lexer.Token
	end    int
}

func (p *parser) run(lex lexer.Lexer) error {
	var cur line

	for {
		tok, err := lex.Next()
		if err != nil {
			return err
		}

		switch tok.Type {
		case tEOF:
			cur.end = tok.Pos.Offset
			p.line(cur)

			return nil
		case tEOL:
			cur.end = tok.Pos.Offset
			p.line(cur)
			cur = line{}
		default:
			cur.tokens = append(cur.tokens, tok)
		}
	}
}

func (p *parser) line(l line) {
	if len(l.tokens) == 0 {
		return
	}

	rec := &Record{Pos: l.tokens[0].Pos, Level: -1}

	var haveTag bool

	for _, tok := range l.tokens {
		switch tok.Type {
		case tLevel:
			n, err := strconv.Atoi(tok.Value)
			if err != nil {
				p.skip(l, -1, "level out of range")
				return
			}

			rec.Level = n
		case tPointer:
			rec.Pointer = tok.Value
		case tTag:
			rec.Tag = tok.Value
			haveTag = true
		case tValue:
			rec.Value = tok.Value
		case tInvalid:
			p.skip(l, rec.Level, "unexpected input "+strconv.Quote(tok.Value))
			return
		}
	}

	if !haveTag {
		p.skip(l, rec.Level, "missing tag")
		return
	}

	if rec.Level > len(p.stack) {
		p.skip(l, rec.Level, "level "+strconv.Itoa(rec.Level)+" has no parent")
		return
	}

	if rec.Tag == TagCont || rec.Tag == TagConc {
		p.fold(l, rec)
		return
	}

	if rec.Level == 0 {
		if rec.Pointer != "" {
			if _, dup := p.doc.index[rec.Pointer]; dup {
				p.skip(l, 0, "duplicate pointer "+rec.Pointer)
				return
			}

			p.doc.index[rec.Pointer] = rec
		}

		p.doc.Records = append(p.doc.Records, rec)
		p.stack = append(p.stack[:0], rec)

		return
	}

	if rec.Pointer != "" {
		p.skip(l, rec.Level, "pointer on level "+strconv.Itoa(rec.Level))
		return
	}

	parent := p.stack[rec.Level-1]
	parent.Children = append(parent.Children, rec)
	p.stack = append(p.stack[:rec.Level], rec)
}

// fold joins a CONT or CONC line into the value of its parent.
func (p *parser) fold(l line, rec *Record) {
	if rec.Level == 0 {
		p.skip(l, 0, rec.Tag+" at level 0")
		return
	}

	parent := p.stack[rec.Level-1]
	if rec.Tag == TagCont {
		parent.Value += "\n" + rec.Value
	} else {
		parent.Value += rec.Value
	}

	p.stack = p.stack[:rec.Level]
}

// skip records l as malformed. When the line's level is known, deeper open
// records are closed so the skipped line's children do not attach to an
// earlier sibling.
func (p *parser) skip(l line, level int, reason string) {
	if level >= 0 && level < len(p.stack) {
		p.stack = p.stack[:level]
	}

	start := l.tokens[0].Pos
	w := &LineError{
		Pos:    start,
		Text:   p.input[start.Offset:l.end],
		Reason: reason,
	}

	p.doc.Warnings = append(p.doc.Warnings, w)
	p.logger.Warn("skipping malformed GEDCOM line",
		zap.String("file", start.Filename),
		zap.Int("line", start.Line),
		zap.String("reason", reason),
		zap.String("text", w.Text))
}
