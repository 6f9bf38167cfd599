package glbackend

import (
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// glslVersion is the dialect every shader is compiled as.
const glslVersion = "#version 410 core"

// Source rewrites s for a 4.1 core context. The #version directive becomes
// glslVersion and set/binding qualifiers go, since 4.1 knows neither; units
// and block bindings are assigned through the API instead. The uniform block
// gets std140 so GL lays it out the way gfx.UniformBuffer packs it.
func Source(s *gfx.Shader) string {
	refl := s.Reflection
	edits := []glsl.Edit{{Start: refl.VersionSpan.Start, End: refl.VersionSpan.End, Text: glslVersion}}
	for _, sp := range refl.Spans {
		var kept []glsl.Qualifier
		changed := false
		for _, q := range sp.Qualifiers {
			if q.Name == "set" || q.Name == "binding" {
				changed = true
				continue
			}
			kept = append(kept, q)
		}
		if sp.Decl == glsl.DeclBlock && !sp.Has("std140") {
			kept = append(kept, glsl.Qualifier{Name: "std140"})
			changed = true
		}
		if !changed {
			continue
		}
		edits = append(edits, glsl.Edit{Start: sp.Start, End: sp.End, Text: glsl.FormatLayout(kept)})
	}
	return glsl.Rewrite(s.Source, edits)
}
