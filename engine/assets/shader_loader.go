package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
)

// LoadShader reads dir/name as GLSL and reflects it. A compiled module at
// dir/name.spv is attached when present; only the pipeline-object backend
// needs it.
func LoadShader(dir, name string) (*gfx.Shader, error) {
	path := filepath.Join(dir, name)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load shader %q: %w", name, err)
	}
	s, err := gfx.NewShader(path, string(src))
	if err != nil {
		return nil, err
	}
	spv, err := os.ReadFile(path + ".spv")
	switch {
	case err == nil:
		if len(spv)%4 != 0 {
			return nil, fmt.Errorf("load shader %q: spir-v size %d is not a multiple of 4", name+".spv", len(spv))
		}
		s.WithSPIRV(spv)
	case errors.Is(err, fs.ErrNotExist):
		core.Logger().Debug("no compiled module", "shader", path)
	default:
		return nil, fmt.Errorf("load shader %q: %w", name+".spv", err)
	}
	return s, nil
}
