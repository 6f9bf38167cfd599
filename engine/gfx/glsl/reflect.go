// Package glsl extracts the interface of a GLSL shader (vertex attributes,
// varyings, samplers and the uniform block) from its source text.
//
// The accepted grammar is the subset the engine's shaders are written in: a
// leading #version directive followed by layout-qualified declarations.
// Declarations without a layout qualifier (functions, constants, plain
// globals) are skipped.
package glsl

import (
	"fmt"
	"strings"
)

// Variable is a stage input or output.
type Variable struct {
	Name     string
	Type     string
	Location int
	// ArrayLen is 0 for scalars and -1 for unsized arrays (per-vertex inputs of
	// geometry and tessellation stages).
	ArrayLen int
}

// Sampler is an opaque sampler uniform.
type Sampler struct {
	Name    string
	Type    string
	Set     int
	Binding int
}

// Member is one uniform block member. Offset is its std140 byte offset.
type Member struct {
	Name     string
	Type     string
	ArrayLen int
	Offset   int
}

// UniformBlock is the single uniform block a shader may declare.
type UniformBlock struct {
	Name     string
	Instance string
	Set      int
	Binding  int
	Members  []Member // declaration order
	Size     int      // std140 size of the whole block
}

// Member looks up a member by name.
func (b *UniformBlock) Member(name string) (Member, bool) {
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// DeclKind classifies the declaration a layout qualifier belongs to.
type DeclKind uint8

const (
	DeclInput DeclKind = iota
	DeclOutput
	DeclSampler
	DeclBlock
	DeclOther // interface-level layouts and storage the engine does not reflect
)

// Qualifier is one entry of a layout(...) list.
type Qualifier struct {
	Name     string
	Value    int
	HasValue bool
}

func (q Qualifier) String() string {
	if !q.HasValue {
		return q.Name
	}
	return fmt.Sprintf("%s=%d", q.Name, q.Value)
}

// Span is the byte range of one layout(...) qualifier in the source.
type Span struct {
	Start, End int
	Decl       DeclKind
	Qualifiers []Qualifier
}

// Has reports whether the span carries the named qualifier.
func (s Span) Has(name string) bool {
	for _, q := range s.Qualifiers {
		if q.Name == name {
			return true
		}
	}
	return false
}

// Reflection is the parsed interface of one shader.
type Reflection struct {
	Stage   Stage
	Version string // "450"
	Profile string // "core", "es" or empty

	Inputs   map[string]Variable
	Outputs  map[string]Variable
	Samplers map[string]Sampler
	Block    *UniformBlock // nil when the shader declares none

	// VersionSpan covers the #version directive, Spans every layout qualifier,
	// both in source order.
	VersionSpan Span
	Spans       []Span
}

// ParseError reports malformed shader text.
type ParseError struct {
	Path string
	Pos  Pos
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("glsl: %s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("glsl: %s:%s: %s", e.Path, e.Pos, e.Msg)
}

// FormatLayout renders a qualifier list as layout(...) text. An empty list
// renders as the empty string.
func FormatLayout(qs []Qualifier) string {
	if len(qs) == 0 {
		return ""
	}
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = q.String()
	}
	return "layout(" + strings.Join(parts, ", ") + ")"
}

// Edit replaces src[Start:End] with Text.
type Edit struct {
	Start, End int
	Text       string
}

// Rewrite applies non-overlapping edits, given in source order, to src.
func Rewrite(src string, edits []Edit) string {
	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, e := range edits {
		if e.Start < last || e.End > len(src) || e.Start > e.End {
			continue
		}
		b.WriteString(src[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.WriteString(src[last:])
	return b.String()
}
