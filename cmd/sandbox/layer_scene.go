package main

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/assets"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/render"
	"github.com/hubastard/grove3d/engine/mesh"
	"github.com/hubastard/grove3d/engine/profiler"
	"github.com/hubastard/grove3d/engine/scene"
	"github.com/hubastard/grove3d/engine/text"
)

// SceneLayer builds the demo scene and drives the renderer every frame: a
// shadowed floor, a flat cube, a vertex-colored cube, a textured cube, a
// mirror reflecting the two colored cubes, an environment-mapped sphere and
// a text sign.
type SceneLayer struct {
	r     *render.Renderer
	cam   *scene.Camera
	ctrl  *scene.OrbitController
	scene *scene.Scene
	queue *render.Queue
	spin  []*scene.Node
	t     float32
	ready bool
}

func (l *SceneLayer) OnAttach(e *core.Engine) {
	log := core.Logger()
	r, ok := e.Renderer.(*render.Renderer)
	if !ok {
		log.Error("scene layer needs the effect renderer", "renderer", fmt.Sprintf("%T", e.Renderer))
		e.Window.RequestClose()
		return
	}
	l.r = r

	// Camera sized to framebuffer
	w, h := e.Window.FramebufferSize()
	l.cam = scene.NewCamera(w, h)
	l.cam.LookAt(mgl32.Vec3{0, 4, 9}, mgl32.Vec3{0, 0.5, 0})
	l.ctrl = scene.NewOrbitController(l.cam)
	l.queue = render.NewQueue()

	if err := l.build(e.Config); err != nil {
		log.Error("scene setup failed", "err", err)
		e.Window.RequestClose()
		return
	}
	l.ready = true
}

func (l *SceneLayer) build(cfg core.Config) error {
	dir := filepath.Join(cfg.AssetDir, "shaders")
	load := func(names ...string) (render.ShaderSet, error) {
		var shaders []*gfx.Shader
		for _, n := range names {
			s, err := assets.LoadShader(dir, n)
			if err != nil {
				return render.ShaderSet{}, err
			}
			shaders = append(shaders, s)
		}
		return render.Shaders(shaders...), nil
	}
	flat, err := load("flat.vert", "flat.frag")
	if err != nil {
		return err
	}
	vcolor, err := load("vertex_color.vert", "vertex_color.frag")
	if err != nil {
		return err
	}
	textured, err := load("texture.vert", "texture.frag")
	if err != nil {
		return err
	}
	lit, err := load("lit.vert", "lit.frag")
	if err != nil {
		return err
	}
	shadow, err := load("shadow.vert", "shadow.frag")
	if err != nil {
		return err
	}
	mirror, err := load("mirror.vert", "mirror.frag")
	if err != nil {
		return err
	}
	reflect, err := load("reflect.vert", "reflect.frag")
	if err != nil {
		return err
	}
	env, err := load("env.vert", "env.frag")
	if err != nil {
		return err
	}
	label, err := load("text.vert", "text.frag")
	if err != nil {
		return err
	}

	cubeGeom, err := mesh.Cube(1)
	if err != nil {
		return err
	}
	colorGeom, err := mesh.ColorCube(1, [6]colors.Color{colors.Red, colors.Cyan, colors.Green, colors.Magenta, colors.Blue, colors.Yellow})
	if err != nil {
		return err
	}
	floorGeom, err := mesh.Plane(14, 14, 8)
	if err != nil {
		return err
	}
	mirrorGeom, err := mesh.Plane(5, 3, 1)
	if err != nil {
		return err
	}
	sphereGeom, err := mesh.Sphere(0.8, 24, 48)
	if err != nil {
		return err
	}

	font, err := text.Default(64)
	if err != nil {
		return err
	}
	signGeom, err := font.Mesh("grove3d", 0.6)
	if err != nil {
		return err
	}

	texDir := filepath.Join(cfg.AssetDir, "textures")
	crate, err := assets.LoadTexture(texDir, "crate.png", assets.DefaultTextureOptions())
	if err != nil {
		core.Logger().Warn("using generated checker texture", "err", err)
		if crate, err = checkerTexture(64, 8); err != nil {
			return err
		}
	}
	sky, err := assets.LoadCubeTexture(filepath.Join(texDir, "sky"), [6]string{"px.png", "nx.png", "py.png", "ny.png", "pz.png", "nz.png"})
	if err != nil {
		core.Logger().Warn("using generated sky cube map", "err", err)
		if sky, err = skyCube(64); err != nil {
			return err
		}
	}

	flatCube := scene.NewNode("flat-cube", cubeGeom).SetPosition(-2, 0.5, 0)
	flatCube.SetEffect(render.NewColorEffect(flatCube, flat, colors.Color{0.9, 0.45, 0.1, 1}))

	colorCube := scene.NewNode("color-cube", colorGeom).SetPosition(0, 0.5, 0.5)
	colorCube.SetEffect(render.NewVertexColorEffect(colorCube, vcolor))

	texCube := scene.NewNode("textured-cube", cubeGeom).SetPosition(2, 0.5, 0)
	texCube.SetEffect(render.NewTextureEffect(texCube, textured, crate))

	ball := scene.NewNode("env-sphere", sphereGeom).SetPosition(3.5, 1, 2.5)
	ball.SetEffect(render.NewEnvironmentMapEffect(ball, env, sky))

	floor := scene.NewNode("floor", floorGeom)
	casters := []render.Node{flatCube, colorCube, texCube, ball}
	floor.SetEffect(render.NewLitShadowEffect(floor, lit, shadow, casters, colors.Color{0.7, 0.72, 0.75, 1}, cfg.ShadowMapSize))

	// mirror stands upright behind the cubes, facing the camera
	glass := scene.NewNode("mirror", mirrorGeom).SetPosition(0, 1.6, -3)
	glass.Rotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})
	glass.SetEffect(render.NewMirrorEffect(glass, mirror, reflect, []render.Node{flatCube, colorCube}, cfg.OffscreenSize))

	// blended, so it goes after the opaque nodes
	sign := scene.NewNode("sign", signGeom).SetPosition(0, 3.5, -3)
	sign.SetEffect(render.NewTextEffect(sign, label, font.Texture, colors.Color{1, 0.85, 0.3, 1}))

	l.scene = scene.New()
	l.scene.AddLight(scene.NewLightNode("sun", render.NewDirectionalLight(mgl32.Vec3{4, 8, 5}, mgl32.Vec3{})))
	l.scene.Add(floor, flatCube, colorCube, texCube, ball, glass, sign)
	l.spin = []*scene.Node{flatCube, colorCube, texCube}
	return nil
}

func (l *SceneLayer) OnDetach(e *core.Engine) {}

func (l *SceneLayer) OnUpdate(e *core.Engine, dt float64) {
	if !l.ready {
		return
	}
	l.ctrl.Update(e, float32(dt))
	l.t += float32(dt)
	for i, n := range l.spin {
		n.Rotate(float32(dt)*(0.4+0.3*float32(i)), mgl32.Vec3{0, 1, 0})
	}

	if e.Input.IsKeyDown(core.KeyEscape) {
		e.Window.RequestClose()
	}
}

func (l *SceneLayer) OnRender(e *core.Engine, alpha float64) {
	if !l.ready {
		return
	}
	defer profiler.Start("SceneLayer.OnRender").End()
	log := core.Logger()

	l.scene.Fill(l.queue)
	// effects that fail to build are logged by the renderer and left out
	if err := l.r.ComputeGraphicsResources(l.queue); err != nil {
		log.Warn("scene has effects that did not build", "err", err)
	}
	if err := l.r.UpdateFrame(l.cam, l.t); err != nil {
		log.Error("update frame", "err", err)
	}
	if err := l.r.RenderFrame(l.queue); err != nil {
		log.Error("render frame", "err", err)
	}
}

func (l *SceneLayer) OnEvent(e *core.Engine, ev core.Event) bool {
	if v, ok := ev.(core.EventResize); ok && l.cam != nil {
		l.cam.SetViewportPixels(v.W, v.H)
	}
	return false
}

// PassCounts reports how many passes of each type the last frame rendered.
func (l *SceneLayer) PassCounts() map[render.PassType]int {
	counts := map[render.PassType]int{}
	if l.r == nil {
		return counts
	}
	for _, pt := range render.PassTypes {
		counts[pt] = len(l.r.Passes(pt))
	}
	return counts
}
