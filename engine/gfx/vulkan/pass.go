package vkbackend

import (
	"errors"
	"fmt"
	"slices"

	vk "github.com/goki/vulkan"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

// binding is one descriptor a pass's shaders declare.
type binding struct {
	set, index int
	stages     vk.ShaderStageFlagBits
	name       string
	uniform    *uniformObject
	texture    *textureObject
}

func (d *binding) descriptorType() vk.DescriptorType {
	if d.uniform != nil {
		return vk.DescriptorTypeUniformBuffer
	}
	return vk.DescriptorTypeCombinedImageSampler
}

// pass is the baked pipeline of one render.Pass together with its
// descriptor sets and, for offscreen passes, render passes and framebuffer.
type pass struct {
	b *Backend
	p *render.Pass

	bindings []*binding
	setLays  []vk.DescriptorSetLayout
	pool     vk.DescriptorPool
	sets     []vk.DescriptorSet
	layout   vk.PipelineLayout
	pipeline vk.Pipeline

	// offscreen only; the load pass is compatible with the clear pass the
	// pipeline and framebuffer were created against
	targets   []*gfx.RenderTarget
	images    []*image
	clearPass vk.RenderPass
	loadPass  vk.RenderPass
	fb        vk.Framebuffer

	vertex    *buffer
	index     *buffer
	indexType vk.IndexType
	samplers  int
}

func (b *Backend) NewPass(r *render.Renderer, p *render.Pass) (render.PassHandle, error) {
	h := &pass{b: b, p: p}
	steps := []func(*render.Renderer) error{h.bindGeometry, h.collectTargets, h.buildRenderPasses, h.collectBindings, h.buildDescriptors, h.buildPipeline}
	for _, step := range steps {
		if err := step(r); err != nil {
			h.Destroy()
			return nil, err
		}
	}
	return h, nil
}

func (h *pass) bindGeometry(r *render.Renderer) error {
	var g *gfx.Geometry
	if h.p.Node != nil {
		g = h.p.Node.Geometry()
	}
	if g == nil || g.Vertices == nil {
		return fmt.Errorf("vulkan: %v pass has no vertex data", h.p.Type)
	}
	vbo, err := r.BindVertexBuffer(g.Vertices)
	if err != nil {
		return err
	}
	h.vertex = vbo.(*bufferObject).buf
	if g.Indices != nil {
		ibo, err := r.BindIndexBuffer(g.Indices)
		if err != nil {
			return err
		}
		h.index = ibo.(*bufferObject).buf
		h.indexType = indexType(g.Indices.IndexSize)
	}
	return nil
}

// collectTargets resolves the image behind every target. Sampled targets
// render into the image of their texture.
func (h *pass) collectTargets(r *render.Renderer) error {
	for _, rt := range h.p.Targets() {
		shadow, err := r.BindRenderTarget(rt)
		if err != nil {
			return err
		}
		im := shadow.(*targetObject).image
		if rt.Sampled() {
			tex, err := r.BindTexture(rt.Texture)
			if err != nil {
				return err
			}
			im = tex.(*textureObject).image
		}
		h.targets = append(h.targets, rt)
		h.images = append(h.images, im)
	}
	return nil
}

func attachmentLayout(rt *gfx.RenderTarget) vk.ImageLayout {
	if rt.Type == gfx.TargetColor {
		return vk.ImageLayoutColorAttachmentOptimal
	}
	return vk.ImageLayoutDepthStencilAttachmentOptimal
}

func (h *pass) buildRenderPasses(*render.Renderer) error {
	if len(h.targets) == 0 {
		return nil
	}
	var err error
	if h.clearPass, err = h.createRenderPass(vk.AttachmentLoadOpClear); err != nil {
		return fmt.Errorf("vulkan: %v render pass: %w", h.p.Type, err)
	}
	if h.loadPass, err = h.createRenderPass(vk.AttachmentLoadOpLoad); err != nil {
		return fmt.Errorf("vulkan: %v render pass: %w", h.p.Type, err)
	}
	views := make([]vk.ImageView, len(h.images))
	for i, im := range h.images {
		views[i] = im.view
	}
	w, ht := h.targets[0].Width(), h.targets[0].Height()
	h.fb, err = newFramebuffer(h.b.device, h.clearPass, views, w, ht)
	return err
}

// createRenderPass keeps every attachment in its attachment layout. Moving
// in and out of it is done with explicit barriers around the pass.
func (h *pass) createRenderPass(load vk.AttachmentLoadOp) (vk.RenderPass, error) {
	var (
		attachments []vk.AttachmentDescription
		colorRefs   []vk.AttachmentReference
		depthRef    *vk.AttachmentReference
	)
	for i, rt := range h.targets {
		layout := attachmentLayout(rt)
		stencilLoad, stencilStore := vk.AttachmentLoadOpDontCare, vk.AttachmentStoreOpDontCare
		if rt.Texture.Format.HasStencil() {
			stencilLoad, stencilStore = load, vk.AttachmentStoreOpStore
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         h.images[i].format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         load,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  stencilLoad,
			StencilStoreOp: stencilStore,
			InitialLayout:  layout,
			FinalLayout:    layout,
		})
		ref := vk.AttachmentReference{Attachment: uint32(i), Layout: layout}
		if rt.Type == gfx.TargetColor {
			colorRefs = append(colorRefs, ref)
		} else {
			depthRef = &ref
		}
	}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(colorRefs)),
			PColorAttachments:       colorRefs,
			PDepthStencilAttachment: depthRef,
		}},
	}
	var rp vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(h.b.device, &info, nil, &rp))
	return rp, err
}

// collectBindings gathers the uniform block and samplers of every stage. A
// set/binding pair declared by several stages must name the same resource.
func (h *pass) collectBindings(r *render.Renderer) error {
	add := func(d *binding) error {
		for _, prev := range h.bindings {
			if prev.set != d.set || prev.index != d.index {
				continue
			}
			if prev.uniform != d.uniform || prev.texture != d.texture {
				return fmt.Errorf("vulkan: set %d binding %d declared as both %q and %q", d.set, d.index, prev.name, d.name)
			}
			prev.stages |= d.stages
			return nil
		}
		h.bindings = append(h.bindings, d)
		return nil
	}
	for stage := glsl.Stage(0); stage < glsl.StagesN; stage++ {
		s := h.p.Shader(stage)
		if s == nil {
			continue
		}
		flag := shaderStage(stage)
		if ub := h.p.UniformBuffer(stage); ub != nil {
			shadow, err := r.BindUniformBuffer(ub)
			if err != nil {
				return err
			}
			d := &binding{set: ub.DescriptorSet, index: ub.Binding, stages: flag, name: ub.Block, uniform: shadow.(*uniformObject)}
			if err := add(d); err != nil {
				return err
			}
		}
		texs := h.p.Textures(stage)
		names := make([]string, 0, len(texs))
		for name := range texs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			smp := s.Reflection.Samplers[name]
			shadow, err := r.BindTexture(texs[name])
			if err != nil {
				return err
			}
			d := &binding{set: smp.Set, index: smp.Binding, stages: flag, name: name, texture: shadow.(*textureObject)}
			if err := add(d); err != nil {
				return err
			}
			h.samplers++
		}
	}
	return nil
}

func (h *pass) buildDescriptors(*render.Renderer) error {
	dev := h.b.device
	nsets := 0
	counts := map[vk.DescriptorType]uint32{}
	for _, d := range h.bindings {
		nsets = max(nsets, d.set+1)
		counts[d.descriptorType()]++
	}
	for set := 0; set < nsets; set++ {
		var binds []vk.DescriptorSetLayoutBinding
		for _, d := range h.bindings {
			if d.set != set {
				continue
			}
			binds = append(binds, vk.DescriptorSetLayoutBinding{
				Binding:         uint32(d.index),
				DescriptorType:  d.descriptorType(),
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(d.stages),
			})
		}
		var lay vk.DescriptorSetLayout
		err := vk.Error(vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(binds)),
			PBindings:    binds,
		}, nil, &lay))
		if err != nil {
			return fmt.Errorf("vulkan: descriptor set layout %d: %w", set, err)
		}
		h.setLays = append(h.setLays, lay)
	}

	err := vk.Error(vk.CreatePipelineLayout(dev, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(h.setLays)),
		PSetLayouts:    h.setLays,
	}, nil, &h.layout))
	if err != nil {
		return fmt.Errorf("vulkan: pipeline layout: %w", err)
	}
	if nsets == 0 {
		return nil
	}

	var sizes []vk.DescriptorPoolSize
	for typ, n := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: typ, DescriptorCount: n})
	}
	err = vk.Error(vk.CreateDescriptorPool(dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(nsets),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &h.pool))
	if err != nil {
		return fmt.Errorf("vulkan: descriptor pool: %w", err)
	}
	for _, lay := range h.setLays {
		var set vk.DescriptorSet
		err := vk.Error(vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     h.pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{lay},
		}, &set))
		if err != nil {
			return fmt.Errorf("vulkan: descriptor set: %w", err)
		}
		h.sets = append(h.sets, set)
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(h.bindings))
	for _, d := range h.bindings {
		w := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          h.sets[d.set],
			DstBinding:      uint32(d.index),
			DescriptorCount: 1,
			DescriptorType:  d.descriptorType(),
		}
		if d.uniform != nil {
			w.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: d.uniform.device.buf,
				Range:  vk.DeviceSize(d.uniform.device.size),
			}}
		} else {
			w.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     d.texture.sampler,
				ImageView:   d.texture.image.view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		}
		writes = append(writes, w)
	}
	vk.UpdateDescriptorSets(dev, uint32(len(writes)), writes, 0, nil)
	return nil
}

func (h *pass) buildPipeline(r *render.Renderer) error {
	var stages []vk.PipelineShaderStageCreateInfo
	for stage := glsl.Stage(0); stage < glsl.StagesN; stage++ {
		s := h.p.Shader(stage)
		if s == nil {
			continue
		}
		shadow, err := r.BindShader(s)
		if err != nil {
			return err
		}
		obj := shadow.(*shaderObject)
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  obj.stage,
			Module: obj.module,
			PName:  safeString("main"),
		})
	}

	st := h.p.State
	vertexInput := h.vertexInput()
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology(st.Topology),
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	cull := vk.CullModeFlagBits(vk.CullModeNone)
	if st.Cull.Enabled {
		cull = cullMode(st.Cull.Mode)
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(cull),
		FrontFace:               frontFace(st.Cull.Front),
		DepthBiasEnable:         vkBool(st.Dynamic.DepthBias),
		DepthBiasConstantFactor: st.Dynamic.DepthBiasConstant,
		DepthBiasSlopeFactor:    st.Dynamic.DepthBiasSlope,
		// wide lines are an optional feature the device is created without
		LineWidth: 1,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}
	ds := st.DepthStencil
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vkBool(ds.DepthTest),
		DepthWriteEnable:  vkBool(ds.DepthWrite),
		DepthCompareOp:    compareOp(ds.DepthCompare),
		StencilTestEnable: vkBool(ds.StencilTest),
		Front:             stencilFace(ds.Front, ds),
		Back:              stencilFace(ds.Back, ds),
		MaxDepthBounds:    1,
	}
	blend := h.colorBlend(st.Blend)
	dynamics := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	if st.Dynamic.DepthBias {
		dynamics = append(dynamics, vk.DynamicStateDepthBias)
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamics)),
		PDynamicStates:    dynamics,
	}

	rp := h.clearPass
	if len(h.targets) == 0 {
		rp = h.b.sc.pass
	}
	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		Layout:              h.layout,
		RenderPass:          rp,
	}
	if st.Topology == gfx.TopologyPatches {
		info.PTessellationState = &vk.PipelineTessellationStateCreateInfo{
			SType:              vk.StructureTypePipelineTessellationStateCreateInfo,
			PatchControlPoints: 3,
		}
	}
	pipelines := make([]vk.Pipeline, 1)
	err := vk.Error(vk.CreateGraphicsPipelines(h.b.device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines))
	if err != nil {
		return fmt.Errorf("vulkan: %v pipeline of %s: %w", h.p.Type, h.p.Shader(glsl.Vertex).Path, err)
	}
	h.pipeline = pipelines[0]
	return nil
}

// vertexInput points every vertex shader input at its attribute in the
// geometry's interleaved format.
func (h *pass) vertexInput() vk.PipelineVertexInputStateCreateInfo {
	f := h.p.Node.Geometry().Vertices.Format
	vs := h.p.Shader(glsl.Vertex)
	var attrs []vk.VertexInputAttributeDescription
	for name, in := range vs.Reflection.Inputs {
		attr, ok := glsl.AttributeByName(name)
		if !ok {
			continue
		}
		off, ok := f.Offset(attr)
		if !ok {
			h.b.log.Warn("vertex input missing from geometry", "input", name, "shader", vs.Path)
			continue
		}
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: uint32(in.Location),
			Binding:  0,
			Format:   vertexFormat(f.Components(attr)),
			Offset:   uint32(off),
		})
	}
	slices.SortFunc(attrs, func(a, b vk.VertexInputAttributeDescription) int { return int(a.Location) - int(b.Location) })
	return vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    uint32(f.Stride()),
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}
}

// colorBlend gives every color attachment the pass's blend equation. The
// window pass has exactly one.
func (h *pass) colorBlend(bs gfx.BlendState) vk.PipelineColorBlendStateCreateInfo {
	n := 1
	if len(h.targets) > 0 {
		n = 0
		for _, rt := range h.targets {
			if rt.Type == gfx.TargetColor {
				n++
			}
		}
	}
	att := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vkBool(bs.Enabled),
		SrcColorBlendFactor: blendFactor(bs.SrcColor),
		DstColorBlendFactor: blendFactor(bs.DstColor),
		ColorBlendOp:        blendOp(bs.ColorOp),
		SrcAlphaBlendFactor: blendFactor(bs.SrcAlpha),
		DstAlphaBlendFactor: blendFactor(bs.DstAlpha),
		AlphaBlendOp:        blendOp(bs.AlphaOp),
		ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	atts := make([]vk.PipelineColorBlendAttachmentState, n)
	for i := range atts {
		atts[i] = att
	}
	return vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(n),
		PAttachments:    atts,
	}
}

func stencilFace(f gfx.StencilFace, ds gfx.DepthStencilState) vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      stencilOp(f.Fail),
		PassOp:      stencilOp(f.Pass),
		DepthFailOp: stencilOp(f.DepthFail),
		CompareOp:   compareOp(f.Compare),
		CompareMask: ds.ReadMask,
		WriteMask:   ds.WriteMask,
		Reference:   ds.Reference,
	}
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// Bind records the pass into the current frame. Offscreen passes open their
// own render pass, clearing or loading their targets; Standard passes draw
// into the window render pass the bucket opened.
func (h *pass) Bind(_ int, units *render.TextureUnits) error {
	f := h.b.frame
	if f == nil || !f.recording {
		return errors.New("vulkan: pass bound outside of a frame")
	}
	cmd := f.cmd
	if len(h.targets) > 0 {
		h.b.endOpenPass()
		for i, im := range h.images {
			im.toLayout(cmd, attachmentLayout(h.targets[i]))
		}
		w, ht := h.p.Size()
		info := vk.RenderPassBeginInfo{
			SType:       vk.StructureTypeRenderPassBeginInfo,
			RenderPass:  h.loadPass,
			Framebuffer: h.fb,
			RenderArea:  vk.Rect2D{Extent: vk.Extent2D{Width: uint32(w), Height: uint32(ht)}},
		}
		if h.p.Clears() {
			info.RenderPass = h.clearPass
			info.PClearValues = h.clearValues()
			info.ClearValueCount = uint32(len(info.PClearValues))
		}
		vk.CmdBeginRenderPass(cmd, &info, vk.SubpassContentsInline)
		f.open = h
		setViewport(cmd, w, ht)
	} else {
		if !f.window {
			return fmt.Errorf("vulkan: %v pass bound outside the window render pass", h.p.Type)
		}
		ext := h.b.sc.extent
		setViewport(cmd, int(ext.Width), int(ext.Height))
	}

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, h.pipeline)
	if dyn := h.p.State.Dynamic; dyn.DepthBias {
		vk.CmdSetDepthBias(cmd, dyn.DepthBiasConstant, 0, dyn.DepthBiasSlope)
	}
	if len(h.sets) > 0 {
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, h.layout, 0, uint32(len(h.sets)), h.sets, 0, nil)
	}
	for i := 0; i < h.samplers; i++ {
		if _, err := units.Alloc(); err != nil {
			return err
		}
	}
	vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{h.vertex.buf}, []vk.DeviceSize{0})
	if h.index != nil {
		vk.CmdBindIndexBuffer(cmd, h.index.buf, 0, h.indexType)
	}
	return nil
}

func (h *pass) clearValues() []vk.ClearValue {
	vals := make([]vk.ClearValue, len(h.targets))
	for i, rt := range h.targets {
		if rt.Type == gfx.TargetColor {
			c := h.p.ClearColor
			vals[i] = vk.NewClearValue(c[:])
		} else {
			vals[i] = vk.NewClearDepthStencil(1, 0)
		}
	}
	return vals
}

// afterRender moves sampled targets to the shader read layout once the
// render pass has ended.
func (h *pass) afterRender(cmd vk.CommandBuffer) {
	for i, im := range h.images {
		if h.targets[i].Sampled() {
			im.toLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
		}
	}
}

func (h *pass) Draw(first, count int) {
	if count <= 0 {
		return
	}
	cmd := h.b.frame.cmd
	if h.index != nil {
		vk.CmdDrawIndexed(cmd, uint32(count), 1, uint32(first), 0, 0)
		return
	}
	vk.CmdDraw(cmd, uint32(count), 1, uint32(first), 0)
}

func (h *pass) Destroy() {
	dev := h.b.device
	h.b.idle()
	if h.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, h.pipeline, nil)
		h.pipeline = vk.NullPipeline
	}
	if h.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, h.layout, nil)
		h.layout = vk.NullPipelineLayout
	}
	if h.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, h.pool, nil)
		h.pool = vk.NullDescriptorPool
	}
	for _, lay := range h.setLays {
		vk.DestroyDescriptorSetLayout(dev, lay, nil)
	}
	h.setLays, h.sets = nil, nil
	if h.fb != vk.NullFramebuffer {
		vk.DestroyFramebuffer(dev, h.fb, nil)
		h.fb = vk.NullFramebuffer
	}
	for _, rp := range []*vk.RenderPass{&h.clearPass, &h.loadPass} {
		if *rp != vk.NullRenderPass {
			vk.DestroyRenderPass(dev, *rp, nil)
			*rp = vk.NullRenderPass
		}
	}
}
