package glsl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// auxQualifiers may sit between a layout qualifier and the storage keyword.
var auxQualifiers = map[string]bool{
	"flat": true, "smooth": true, "noperspective": true, "centroid": true, "sample": true,
	"patch": true, "invariant": true, "precise": true,
	"highp": true, "mediump": true, "lowp": true,
	"readonly": true, "writeonly": true, "coherent": true, "volatile": true, "restrict": true,
}

var closers = map[string]string{"{": "}", "(": ")", "[": "]"}

// Parse reflects the interface of a shader for the given stage.
func Parse(stage Stage, src string) (*Reflection, error) {
	if stage < 0 || stage >= StagesN {
		return nil, fmt.Errorf("glsl: invalid stage %d", stage)
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		toks:  toks,
		names: map[string]Pos{},
		refl: &Reflection{
			Stage:    stage,
			Inputs:   map[string]Variable{},
			Outputs:  map[string]Variable{},
			Samplers: map[string]Sampler{},
		},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.refl, nil
}

// ParseFile derives the stage from path and parses src. Errors carry the path.
func ParseFile(path, src string) (*Reflection, error) {
	stage, err := StageFromPath(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(stage, src)
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Path = path
	}
	return r, err
}

type parser struct {
	toks  []token
	i     int
	refl  *Reflection
	names map[string]Pos // uniform names: samplers and block members
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(text string) (token, error) {
	t := p.next()
	if !t.is(tokPunct, text) {
		return t, p.errorf(t, "expected %q, got %s", text, t.describe())
	}
	return t, nil
}

func (p *parser) ident(what string) (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, p.errorf(t, "expected %s, got %s", what, t.describe())
	}
	return t, nil
}

func (p *parser) integer(what string) (int, error) {
	t := p.next()
	if t.kind != tokNumber {
		return 0, p.errorf(t, "expected integer %s, got %s", what, t.describe())
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf(t, "malformed integer %s %q", what, t.text)
	}
	return n, nil
}

func (p *parser) parse() error {
	if err := p.version(); err != nil {
		return err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil
		case t.kind == tokDirective:
			if directiveName(t.text) == "version" {
				return p.errorf(t, "duplicate #version directive")
			}
			p.next()
		case t.is(tokIdent, "layout"):
			if err := p.declaration(); err != nil {
				return err
			}
		case t.is(tokPunct, "{"), t.is(tokPunct, "("):
			if err := p.skipGroup(); err != nil {
				return err
			}
		case t.is(tokPunct, "}"), t.is(tokPunct, ")"):
			return p.errorf(t, "unbalanced %q", t.text)
		default:
			p.next()
		}
	}
}

func directiveName(text string) string {
	f := strings.Fields(strings.TrimPrefix(text, "#"))
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func (p *parser) version() error {
	t := p.next()
	if t.kind != tokDirective || directiveName(t.text) != "version" {
		return p.errorf(t, "shader must start with a #version directive, got %s", t.describe())
	}
	f := strings.Fields(strings.TrimPrefix(t.text, "#"))[1:]
	if len(f) == 0 || len(f) > 2 {
		return p.errorf(t, "malformed #version directive %q", t.text)
	}
	if _, err := strconv.Atoi(f[0]); err != nil {
		return p.errorf(t, "malformed #version number %q", f[0])
	}
	p.refl.Version = f[0]
	if len(f) == 2 {
		p.refl.Profile = f[1]
	}
	p.refl.VersionSpan = Span{Start: t.start, End: t.end, Decl: DeclOther}
	return nil
}

// skipGroup consumes a bracketed group, nested groups included.
func (p *parser) skipGroup() error {
	stack := []token{p.next()}
	for len(stack) > 0 {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			open := stack[len(stack)-1]
			return p.errorf(open, "unbalanced %q: missing %q", open.text, closers[open.text])
		case t.kind == tokPunct && closers[t.text] != "":
			stack = append(stack, t)
		case t.is(tokPunct, "}"), t.is(tokPunct, ")"), t.is(tokPunct, "]"):
			want := closers[stack[len(stack)-1].text]
			if t.text != want {
				return p.errorf(t, "unbalanced %q: expected %q", t.text, want)
			}
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

// skipStatement consumes tokens up to and including the next top-level ';'.
func (p *parser) skipStatement() error {
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return p.errorf(t, "unexpected end of input, expected ';'")
		case t.is(tokPunct, ";"):
			p.next()
			return nil
		case t.is(tokPunct, "{"), t.is(tokPunct, "("), t.is(tokPunct, "["):
			if err := p.skipGroup(); err != nil {
				return err
			}
		case t.is(tokPunct, "}"), t.is(tokPunct, ")"), t.is(tokPunct, "]"):
			return p.errorf(t, "unbalanced %q", t.text)
		default:
			p.next()
		}
	}
}

func (p *parser) declaration() error {
	lt := p.next()
	quals, closeTok, err := p.qualifiers()
	if err != nil {
		return err
	}
	span := Span{Start: lt.start, End: closeTok.end, Decl: DeclOther, Qualifiers: quals}
	for p.peek().kind == tokIdent && auxQualifiers[p.peek().text] {
		p.next()
	}

	st := p.next()
	switch {
	case st.is(tokIdent, "in"), st.is(tokIdent, "out"):
		span.Decl, err = p.inOut(st.text == "in", quals)
	case st.is(tokIdent, "uniform"):
		span.Decl, err = p.uniform(quals)
	case st.kind == tokIdent:
		// buffer, shared and the like: not part of the reflected interface
		err = p.skipStatement()
	default:
		err = p.errorf(st, "expected storage qualifier after layout, got %s", st.describe())
	}
	if err != nil {
		return err
	}
	p.refl.Spans = append(p.refl.Spans, span)
	return nil
}

func (p *parser) qualifiers() ([]Qualifier, token, error) {
	open, err := p.expect("(")
	if err != nil {
		return nil, open, err
	}
	var qs []Qualifier
	for {
		name := p.next()
		if name.kind != tokIdent {
			if name.kind == tokEOF {
				return nil, name, p.errorf(open, "unbalanced %q in layout qualifier", "(")
			}
			return nil, name, p.errorf(name, "malformed layout qualifier: expected name, got %s", name.describe())
		}
		q := Qualifier{Name: name.text}
		if p.peek().is(tokPunct, "=") {
			p.next()
			v := p.next()
			n, convErr := strconv.Atoi(v.text)
			if v.kind != tokNumber || convErr != nil {
				return nil, v, p.errorf(v, "malformed layout qualifier %q: expected integer value, got %s", q.Name, v.describe())
			}
			q.Value, q.HasValue = n, true
		}
		for _, prev := range qs {
			if prev.Name == q.Name {
				return nil, name, p.errorf(name, "duplicate layout qualifier %q", q.Name)
			}
		}
		qs = append(qs, q)

		t := p.next()
		switch {
		case t.is(tokPunct, ")"):
			return qs, t, nil
		case t.is(tokPunct, ","):
		case t.kind == tokEOF:
			return nil, t, p.errorf(open, "unbalanced %q in layout qualifier", "(")
		default:
			return nil, t, p.errorf(t, "malformed layout qualifier: unexpected %s", t.describe())
		}
	}
}

func qualifier(qs []Qualifier, name string) (int, bool) {
	for _, q := range qs {
		if q.Name == name && q.HasValue {
			return q.Value, true
		}
	}
	return 0, false
}

func (p *parser) inOut(in bool, quals []Qualifier) (DeclKind, error) {
	// layout(triangles) in;
	if p.peek().is(tokPunct, ";") {
		p.next()
		return DeclOther, nil
	}
	storage, kind, vars := "output", DeclOutput, p.refl.Outputs
	if in {
		storage, kind, vars = "input", DeclInput, p.refl.Inputs
	}

	typ, err := p.ident(storage + " type")
	if err != nil {
		return kind, err
	}
	if p.peek().is(tokPunct, "{") {
		return kind, p.errorf(typ, "interface blocks are not supported (%s block %q)", storage, typ.text)
	}
	name, err := p.ident(storage + " name")
	if err != nil {
		return kind, err
	}
	v := Variable{Name: name.text, Type: typ.text}
	if p.peek().is(tokPunct, "[") {
		p.next()
		v.ArrayLen = -1
		if !p.peek().is(tokPunct, "]") {
			if v.ArrayLen, err = p.integer("array length"); err != nil {
				return kind, err
			}
		}
		if _, err := p.expect("]"); err != nil {
			return kind, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return kind, err
	}

	loc, ok := qualifier(quals, "location")
	if !ok {
		return kind, p.errorf(name, "%s %q has no location qualifier", storage, name.text)
	}
	v.Location = loc
	if in && p.refl.Stage == Vertex {
		if _, ok := AttributeByName(name.text); !ok {
			return kind, p.errorf(name, "unknown vertex attribute %q (want one of %s)", name.text, strings.Join(attrNames[:], ", "))
		}
	}
	if _, dup := vars[v.Name]; dup {
		return kind, p.errorf(name, "duplicate %s %q", storage, v.Name)
	}
	for _, other := range vars {
		if other.Location == loc {
			return kind, p.errorf(name, "%s %q reuses location %d of %q", storage, v.Name, loc, other.Name)
		}
	}
	vars[v.Name] = v
	return kind, nil
}

func (p *parser) declareUniform(t token) error {
	if at, dup := p.names[t.text]; dup {
		return p.errorf(t, "duplicate uniform %q (first declared at %s)", t.text, at)
	}
	p.names[t.text] = t.pos
	return nil
}

func (p *parser) uniform(quals []Qualifier) (DeclKind, error) {
	typ, err := p.ident("uniform type")
	if err != nil {
		return DeclOther, err
	}
	set, _ := qualifier(quals, "set")
	binding, _ := qualifier(quals, "binding")
	if p.peek().is(tokPunct, "{") {
		return DeclBlock, p.block(typ, set, binding)
	}

	name, err := p.ident("uniform name")
	if err != nil {
		return DeclSampler, err
	}
	if _, err := p.expect(";"); err != nil {
		return DeclSampler, err
	}
	if !strings.Contains(typ.text, "sampler") {
		return DeclSampler, p.errorf(name, "uniform %q of type %s must be declared inside the uniform block", name.text, typ.text)
	}
	if err := p.declareUniform(name); err != nil {
		return DeclSampler, err
	}
	p.refl.Samplers[name.text] = Sampler{Name: name.text, Type: typ.text, Set: set, Binding: binding}
	return DeclSampler, nil
}

func (p *parser) block(name token, set, binding int) error {
	if p.refl.Block != nil {
		return p.errorf(name, "second uniform block %q: a shader declares at most one (have %q)", name.text, p.refl.Block.Name)
	}
	open := p.next()
	b := &UniformBlock{Name: name.text, Set: set, Binding: binding}
	for !p.peek().is(tokPunct, "}") {
		if p.peek().kind == tokEOF {
			return p.errorf(open, "unbalanced %q in uniform block %q", "{", name.text)
		}
		for p.peek().kind == tokIdent && auxQualifiers[p.peek().text] {
			p.next()
		}
		typ, err := p.ident("member type")
		if err != nil {
			return err
		}
		if !IsStd140Type(typ.text) {
			return p.errorf(typ, "unsupported uniform block member type %q", typ.text)
		}
		for {
			mname, err := p.ident("member name")
			if err != nil {
				return err
			}
			m := Member{Name: mname.text, Type: typ.text}
			if p.peek().is(tokPunct, "[") {
				p.next()
				if m.ArrayLen, err = p.integer("array length"); err != nil {
					return err
				}
				if m.ArrayLen <= 0 {
					return p.errorf(mname, "member %q has non-positive array length %d", m.Name, m.ArrayLen)
				}
				if _, err := p.expect("]"); err != nil {
					return err
				}
			}
			if err := p.declareUniform(mname); err != nil {
				return err
			}
			b.Members = append(b.Members, m)

			t := p.next()
			if t.is(tokPunct, ";") {
				break
			}
			if !t.is(tokPunct, ",") {
				return p.errorf(t, "expected ';' after member %q, got %s", m.Name, t.describe())
			}
		}
	}
	p.next()
	if p.peek().kind == tokIdent {
		b.Instance = p.next().text
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}

	offsets, size := Std140(b.Members)
	for i := range b.Members {
		b.Members[i].Offset = offsets[i]
	}
	b.Size = size
	p.refl.Block = b
	return nil
}
