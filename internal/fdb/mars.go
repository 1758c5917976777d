package fdb

import (
	"strings"
	"unicode"
)

// Grammar holds the delimiters of the textual request language:
//
//	request := clause { ClauseSep clause }
//	clause  := axis Assign value { ValueSep value }
//
// Whitespace around tokens is ignored. Escape makes the next character
// literal, so values may contain delimiters ("a=x\/y" binds "x/y").
type Grammar struct {
	ClauseSep rune
	ValueSep  rune
	Assign    rune
	Escape    rune
}

// DefaultGrammar is "a=1/2,b=3" with backslash escapes.
var DefaultGrammar = Grammar{ClauseSep: ',', ValueSep: '/', Assign: '=', Escape: '\\'}

// Validate checks that the delimiters are distinct, printable and not
// whitespace.
func (g Grammar) Validate() error {
	runes := []rune{g.ClauseSep, g.ValueSep, g.Assign, g.Escape}
	seen := make(map[rune]bool, len(runes))
	for _, r := range runes {
		if r == 0 || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return errorf(InvalidArgument, "grammar", "invalid delimiter %q", r)
		}
		if seen[r] {
			return errorf(InvalidArgument, "grammar", "delimiter %q used twice", r)
		}
		seen[r] = true
	}
	return nil
}

// MarsRequest is the intermediate form of a textual request: a verb and the
// parsed clauses, not yet validated against any KeySet. Bind it into a
// Request with NewToolRequest.
type MarsRequest struct {
	verb   string
	axes   []string
	values map[string][]string
}

// NewMarsRequest returns an empty skeleton for verb (e.g. "retrieve").
func NewMarsRequest(verb string) *MarsRequest {
	return &MarsRequest{verb: verb, values: make(map[string][]string)}
}

// ParseMarsRequest parses text with DefaultGrammar.
func ParseMarsRequest(text string) (*MarsRequest, error) {
	return DefaultGrammar.Parse(text)
}

// Verb returns the verb the skeleton was created with. Parsed requests have
// an empty verb.
func (m *MarsRequest) Verb() string { return m.verb }

// SetValues binds axis to values, replacing an earlier binding in place.
func (m *MarsRequest) SetValues(axis string, values ...string) error {
	axis = normaliseAxis(axis)
	if axis == "" {
		return errorf(InvalidArgument, "mars value", "empty axis name")
	}
	if len(values) == 0 {
		return errorf(InvalidArgument, "mars value", "no values for axis %q", axis)
	}
	for _, v := range values {
		if v == "" {
			return errorf(InvalidArgument, "mars value", "empty value for axis %q", axis)
		}
	}
	m.set(axis, values)
	return nil
}

func (m *MarsRequest) set(axis string, values []string) {
	if m.values == nil {
		m.values = make(map[string][]string)
	}
	if _, ok := m.values[axis]; !ok {
		m.axes = append(m.axes, axis)
	}
	m.values[axis] = append([]string(nil), values...)
}

// Axes returns the bound axes in first-appearance order.
func (m *MarsRequest) Axes() []string { return append([]string(nil), m.axes...) }

// Values returns the values bound to axis.
func (m *MarsRequest) Values(axis string) []string {
	return append([]string(nil), m.values[normaliseAxis(axis)]...)
}

// Clean drops every clause, keeping the verb.
func (m *MarsRequest) Clean() {
	m.axes = nil
	m.values = make(map[string][]string)
}

// String renders the clauses in DefaultGrammar, escaping as needed.
func (m *MarsRequest) String() string {
	return DefaultGrammar.format(m.axes, m.values)
}

// NewToolRequest binds a parsed skeleton into a Request. When keys is
// non-nil every axis must be in it, otherwise AxisNotAllowed is returned.
// The resulting request keeps keys as its restriction.
func NewToolRequest(m *MarsRequest, keys *KeySet) (*Request, error) {
	req := AllRequest(keys)
	for _, a := range m.axes {
		if keys != nil && !keys.Contains(a) {
			return nil, errorf(AxisNotAllowed, "tool request", "axis %q is not in %v", a, keys.Names())
		}
		if err := req.Add(a, m.values[a]...); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// ToolRequestFromString parses text and binds it against keys.
func ToolRequestFromString(text string, keys *KeySet) (*Request, error) {
	m, err := ParseMarsRequest(text)
	if err != nil {
		return nil, err
	}
	return NewToolRequest(m, keys)
}

// AllRequest returns an empty request restricted to keys; it matches every
// stored field.
func AllRequest(keys *KeySet) *Request {
	r := NewRequest()
	r.restrict = keys
	return r
}

// ParseRequest parses text straight into an unrestricted Request.
func ParseRequest(text string) (*Request, error) {
	return ToolRequestFromString(text, nil)
}

// Parse parses text into a MarsRequest.
func (g Grammar) Parse(text string) (*MarsRequest, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errorf(MalformedRequest, "parse", "empty request")
	}

	p := &parser{g: g, out: NewMarsRequest("")}
	escaped := false
	for i, r := range text {
		if escaped {
			p.cur.writeLiteral(r)
			escaped = false
			continue
		}
		var err error
		switch {
		case r == g.Escape:
			escaped = true
		case r == g.ClauseSep:
			err = p.endClause(i)
		case r == g.Assign:
			err = p.assign(i)
		case r == g.ValueSep:
			err = p.valueSep(i)
		case unicode.IsSpace(r):
			p.cur.writeSpace(r)
		default:
			p.cur.writeLiteral(r)
		}
		if err != nil {
			return nil, err
		}
	}
	if escaped {
		return nil, errorf(MalformedRequest, "parse", "dangling escape at end of input")
	}
	if err := p.endClause(len(text)); err != nil {
		return nil, err
	}
	return p.out, nil
}

type parser struct {
	g         Grammar
	out       *MarsRequest
	cur       token
	axis      string
	sawAssign bool
	values    []string
	clause    int
}

func (p *parser) assign(pos int) error {
	if p.sawAssign {
		return errorf(MalformedRequest, "parse", "unexpected %q at offset %d", p.g.Assign, pos)
	}
	p.axis = p.cur.finish()
	p.sawAssign = true
	return nil
}

func (p *parser) valueSep(pos int) error {
	if !p.sawAssign {
		return errorf(MalformedRequest, "parse", "value separator before %q at offset %d", p.g.Assign, pos)
	}
	p.values = append(p.values, p.cur.finish())
	return nil
}

func (p *parser) endClause(pos int) error {
	p.clause++
	if !p.sawAssign {
		if p.cur.empty() {
			return errorf(MalformedRequest, "parse", "empty clause %d at offset %d", p.clause, pos)
		}
		return errorf(MalformedRequest, "parse", "clause %d %q is missing %q", p.clause, p.cur.finish(), p.g.Assign)
	}
	p.values = append(p.values, p.cur.finish())

	axis := normaliseAxis(p.axis)
	if !validAxis(axis) {
		return errorf(MalformedRequest, "parse", "invalid axis name %q in clause %d", p.axis, p.clause)
	}
	if len(p.values) == 1 && p.values[0] == "" {
		return errorf(MalformedRequest, "parse", "axis %q has no values", axis)
	}
	for _, v := range p.values {
		if v == "" {
			return errorf(MalformedRequest, "parse", "empty value for axis %q", axis)
		}
	}
	// Duplicate clauses: last one wins.
	p.out.set(axis, p.values)

	p.axis = ""
	p.sawAssign = false
	p.values = nil
	return nil
}

// token accumulates one axis name or value. Unescaped whitespace is dropped
// at the edges and kept between other characters.
type token struct {
	b       strings.Builder
	pending strings.Builder
	started bool
}

func (t *token) writeLiteral(r rune) {
	if t.pending.Len() > 0 {
		t.b.WriteString(t.pending.String())
		t.pending.Reset()
	}
	t.b.WriteRune(r)
	t.started = true
}

func (t *token) writeSpace(r rune) {
	if t.started {
		t.pending.WriteRune(r)
	}
}

func (t *token) empty() bool { return !t.started }

func (t *token) finish() string {
	s := t.b.String()
	t.b.Reset()
	t.pending.Reset()
	t.started = false
	return s
}

func validAxis(axis string) bool {
	if axis == "" {
		return false
	}
	for i, r := range axis {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func (g Grammar) format(axes []string, values map[string][]string) string {
	var b strings.Builder
	for i, a := range axes {
		if i > 0 {
			b.WriteRune(g.ClauseSep)
		}
		b.WriteString(a)
		b.WriteRune(g.Assign)
		for j, v := range values[a] {
			if j > 0 {
				b.WriteRune(g.ValueSep)
			}
			b.WriteString(g.escape(v))
		}
	}
	return b.String()
}

func (g Grammar) escape(v string) string {
	runes := []rune(v)
	var b strings.Builder
	for i, r := range runes {
		edge := i == 0 || i == len(runes)-1
		switch {
		case r == g.ClauseSep, r == g.ValueSep, r == g.Assign, r == g.Escape:
			b.WriteRune(g.Escape)
		case edge && unicode.IsSpace(r):
			b.WriteRune(g.Escape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

