// Package telegram turns serial text lines into readings.
//
// A telegram line is one or more PREFIX:INTEGER segments, optionally
// comma-joined. Which prefixes exist and whether fields arrive on one
// line or across several is described by a Schema.
package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

var ErrMalformed = errors.New("malformed telegram")

// Result classifies the outcome of Parse.
type Result int

const (
	Incomplete Result = iota
	Complete
	Malformed
)

func (r Result) String() string {
	switch r {
	case Complete:
		return "complete"
	case Malformed:
		return "malformed"
	default:
		return "incomplete"
	}
}

// Parser is not safe for concurrent use; the ingestion loop owns it.
type Parser struct {
	schema   Schema
	required []types.Field
	now      func() time.Time

	pending map[types.Field]int
}

func NewParser(schema Schema) *Parser {
	return &Parser{
		schema:   schema,
		required: schema.Required(),
		now:      time.Now,
		pending:  make(map[types.Field]int),
	}
}

// WithClock replaces the clock used to stamp emitted readings.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

func (p *Parser) Schema() Schema { return p.schema }

// Pending reports how many distinct fields are accumulated.
func (p *Parser) Pending() int { return len(p.pending) }

// Reset drops any partially accumulated telegram.
func (p *Parser) Reset() {
	clear(p.pending)
}

type segment struct {
	field types.Field
	value int
}

// Parse consumes one line. A malformed line leaves accumulated state untouched.
func (p *Parser) Parse(line string) (types.Reading, Result, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.Reading{}, Incomplete, nil
	}

	segs, err := p.split(line)
	if err != nil {
		return types.Reading{}, Malformed, err
	}

	if p.schema.Mode == Batched {
		got := make(map[types.Field]int, len(segs))
		for _, s := range segs {
			got[s.field] = s.value
		}
		if !p.covers(got) {
			return types.Reading{}, Incomplete, nil
		}
		return p.emit(got), Complete, nil
	}

	for _, s := range segs {
		p.pending[s.field] = s.value
	}
	if !p.covers(p.pending) {
		return types.Reading{}, Incomplete, nil
	}
	r := p.emit(p.pending)
	p.Reset()
	return r, Complete, nil
}

func (p *Parser) split(line string) ([]segment, error) {
	parts := strings.Split(line, ",")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		prefix, raw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: segment %q has no ':'", ErrMalformed, part)
		}
		field, ok := p.schema.Fields[strings.TrimSpace(prefix)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown prefix %q", ErrMalformed, prefix)
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s value %q is not an integer", ErrMalformed, prefix, raw)
		}
		segs = append(segs, segment{field: field, value: v})
	}
	return segs, nil
}

func (p *Parser) covers(got map[types.Field]int) bool {
	for _, f := range p.required {
		if _, ok := got[f]; !ok {
			return false
		}
	}
	return true
}

func (p *Parser) emit(got map[types.Field]int) types.Reading {
	r := types.Reading{Timestamp: p.now().UTC().Truncate(time.Second)}
	for _, f := range p.required {
		r.Set(f, got[f])
	}
	return r
}
