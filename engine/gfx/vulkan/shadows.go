package vkbackend

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

// ErrNoSPIRV is returned for shaders loaded without a compiled module.
var ErrNoSPIRV = errors.New("vulkan: shader has no SPIR-V module")

type shaderObject struct {
	b      *Backend
	module vk.ShaderModule
	stage  vk.ShaderStageFlagBits
}

func (s *shaderObject) Destroy() { vk.DestroyShaderModule(s.b.device, s.module, nil) }

func (b *Backend) NewShader(s *gfx.Shader) (render.Shadow, error) {
	if len(s.SPIRV) == 0 || len(s.SPIRV)%4 != 0 {
		b.log.Error("shader module missing", "shader", s.Path)
		return nil, fmt.Errorf("%w: %s", ErrNoSPIRV, s.Path)
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(s.SPIRV)),
		PCode:    sliceUint32(s.SPIRV),
	}
	obj := &shaderObject{b: b, stage: shaderStage(s.Stage())}
	if err := vk.Error(vk.CreateShaderModule(b.device, &info, nil, &obj.module)); err != nil {
		return nil, fmt.Errorf("vulkan: %s: %w", s.Path, err)
	}
	b.log.Debug("shader module created", "shader", s.Path)
	return obj, nil
}

type textureObject struct {
	b       *Backend
	image   *image
	sampler vk.Sampler
}

func (t *textureObject) Destroy() {
	t.b.idle()
	if t.sampler != vk.NullSampler {
		vk.DestroySampler(t.b.device, t.sampler, nil)
	}
	t.b.destroyImage(t.image)
}

// NewTexture creates the image, view and sampler of t. Pixels go through a
// staging buffer; mips are generated by blitting down from level 0.
func (b *Backend) NewTexture(t *gfx.Texture) (render.Shadow, error) {
	format := texFormat(t.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("vulkan: unsupported %v %v texture", t.Type, t.Format)
	}
	ii := imageInfo{
		typ:      imageType(t.Type),
		viewType: viewType(t.Type),
		format:   format,
		aspect:   aspect(t.Format),
		usage:    vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit,
		w:        t.Width,
		h:        t.Height,
		d:        t.Depth,
		mips:     t.MipLevels(),
		layers:   t.Layers,
	}
	if t.Type == gfx.TextureCube {
		ii.flags = vk.ImageCreateCubeCompatibleBit
	}
	if t.Usage.Has(gfx.UsageColorAttachment) {
		ii.usage |= vk.ImageUsageColorAttachmentBit
	}
	if t.Usage.Has(gfx.UsageDepthAttachment) {
		ii.usage |= vk.ImageUsageDepthStencilAttachmentBit
	}
	im, err := b.newImage(ii)
	if err != nil {
		return nil, fmt.Errorf("vulkan: %v texture: %w", t.Type, err)
	}
	tex := &textureObject{b: b, image: im}

	if err := b.upload(t, im); err != nil {
		tex.Destroy()
		return nil, err
	}
	info := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filter(t.MagFilter),
		MinFilter:    filter(t.MinFilter),
		MipmapMode:   mipmapMode(t.Mipmap),
		AddressModeU: addressMode(t.Wrap[0]),
		AddressModeV: addressMode(t.Wrap[1]),
		AddressModeW: addressMode(t.Wrap[2]),
		MaxLod:       float32(im.mips),
		BorderColor:  vk.BorderColorFloatOpaqueBlack,
	}
	if err := vk.Error(vk.CreateSampler(b.device, &info, nil, &tex.sampler)); err != nil {
		tex.Destroy()
		return nil, fmt.Errorf("vulkan: sampler: %w", err)
	}
	return tex, nil
}

// upload copies t's levels into im and leaves it in the shader read layout.
// Storage-only textures are just transitioned.
func (b *Backend) upload(t *gfx.Texture, im *image) error {
	if t.Pixels == nil {
		if t.Usage.Has(gfx.UsageColorAttachment) || t.Usage.Has(gfx.UsageDepthAttachment) {
			// render passes transition attachments themselves
			return nil
		}
		return b.oneShot(func(cmd vk.CommandBuffer) {
			im.toLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
		})
	}
	staging, err := b.newStaging(t.Pixels)
	if err != nil {
		return fmt.Errorf("vulkan: texture staging: %w", err)
	}
	defer b.destroyBuffer(staging)

	regions := make([]vk.BufferImageCopy, 0, len(t.Levels))
	for _, l := range t.Levels {
		regions = append(regions, vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(l.Offset),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(im.aspect),
				MipLevel:       uint32(l.Mip),
				BaseArrayLayer: uint32(l.Layer),
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: uint32(l.Width), Height: uint32(l.Height), Depth: uint32(l.Depth)},
		})
	}
	blit := t.GenerateMips && im.mips > 1 && !t.Format.IsDepth()
	return b.oneShot(func(cmd vk.CommandBuffer) {
		im.toLayout(cmd, vk.ImageLayoutTransferDstOptimal)
		vk.CmdCopyBufferToImage(cmd, staging.buf, im.img, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
		if blit {
			generateMips(cmd, im, t.Depth)
		}
		im.toLayout(cmd, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

// generateMips blits each level from the one above it. On return every level
// is in the transfer source layout.
func generateMips(cmd vk.CommandBuffer, im *image, depth int) {
	w, h, d := int32(im.width), int32(im.height), int32(depth)
	for mip := 1; mip < im.mips; mip++ {
		transition(cmd, im, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, mip-1, 1)
		nw, nh, nd := max(w/2, 1), max(h/2, 1), max(d/2, 1)
		region := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(im.aspect),
				MipLevel:   uint32(mip - 1),
				LayerCount: uint32(im.layers),
			},
			SrcOffsets: [2]vk.Offset3D{{}, {X: w, Y: h, Z: d}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(im.aspect),
				MipLevel:   uint32(mip),
				LayerCount: uint32(im.layers),
			},
			DstOffsets: [2]vk.Offset3D{{}, {X: nw, Y: nh, Z: nd}},
		}
		vk.CmdBlitImage(cmd, im.img, vk.ImageLayoutTransferSrcOptimal, im.img, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{region}, vk.FilterLinear)
		w, h, d = nw, nh, nd
	}
	transition(cmd, im, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, im.mips-1, 1)
	im.layout = vk.ImageLayoutTransferSrcOptimal
}

// bufferObject is a device local vertex or index buffer.
type bufferObject struct {
	b   *Backend
	buf *buffer
}

func (o *bufferObject) Destroy() {
	o.b.idle()
	o.b.destroyBuffer(o.buf)
}

func (b *Backend) NewVertexBuffer(vb *gfx.VertexBuffer) (render.Shadow, error) {
	return b.newDeviceBuffer(vb.Data, vk.BufferUsageVertexBufferBit, vk.AccessVertexAttributeReadBit)
}

func (b *Backend) NewIndexBuffer(ib *gfx.IndexBuffer) (render.Shadow, error) {
	return b.newDeviceBuffer(ib.Data, vk.BufferUsageIndexBufferBit, vk.AccessIndexReadBit)
}

// newDeviceBuffer fills a device local buffer through a staging copy recorded
// at the start of the next frame.
func (b *Backend) newDeviceBuffer(data []byte, usage vk.BufferUsageFlagBits, access vk.AccessFlagBits) (render.Shadow, error) {
	if len(data) == 0 {
		return nil, errors.New("vulkan: empty buffer")
	}
	dst, err := b.newBuffer(len(data), usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, fmt.Errorf("vulkan: %w", err)
	}
	staging, err := b.newStaging(data)
	if err != nil {
		b.destroyBuffer(dst)
		return nil, fmt.Errorf("vulkan: staging: %w", err)
	}
	b.queueCopy(bufferCopy{
		src:       staging,
		dst:       dst,
		size:      len(data),
		dstAccess: access,
		dstStage:  vk.PipelineStageVertexInputBit,
		release:   true,
	})
	return &bufferObject{b: b, buf: dst}, nil
}

// uniformObject keeps a mapped host copy of the block and the device buffer
// shaders read. Every upload records one copy into the next frame.
type uniformObject struct {
	b      *Backend
	host   *buffer
	device *buffer
}

func (u *uniformObject) Destroy() {
	u.b.idle()
	u.b.destroyBuffer(u.host)
	u.b.destroyBuffer(u.device)
}

func (b *Backend) NewUniformBuffer(ub *gfx.UniformBuffer) (render.UniformBufferShadow, error) {
	host, err := b.newBuffer(ub.Size(), vk.BufferUsageTransferSrcBit, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, fmt.Errorf("vulkan: uniform staging %q: %w", ub.Block, err)
	}
	dev, err := b.newBuffer(ub.Size(), vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		b.destroyBuffer(host)
		return nil, fmt.Errorf("vulkan: uniform buffer %q: %w", ub.Block, err)
	}
	return &uniformObject{b: b, host: host, device: dev}, nil
}

func (u *uniformObject) Upload(ub *gfx.UniformBuffer) error {
	if len(ub.Bytes()) != u.host.size {
		return fmt.Errorf("vulkan: uniform block %q is %d bytes, buffer holds %d", ub.Block, len(ub.Bytes()), u.host.size)
	}
	if err := u.b.waitFrame(); err != nil {
		return err
	}
	copy(u.host.mapped, ub.Bytes())
	for _, c := range u.b.frame.pending {
		if c.dst == u.device {
			return nil
		}
	}
	u.b.queueCopy(bufferCopy{
		src:       u.host,
		dst:       u.device,
		size:      u.host.size,
		dstAccess: vk.AccessUniformReadBit,
		dstStage:  vk.PipelineStageAllGraphicsBit,
	})
	return nil
}

// targetObject owns the attachment image of a target nothing samples.
// Sampled targets render into their texture's image instead.
type targetObject struct {
	b     *Backend
	image *image
}

func (t *targetObject) Destroy() {
	t.b.idle()
	t.b.destroyImage(t.image)
}

func (b *Backend) NewRenderTarget(rt *gfx.RenderTarget) (render.Shadow, error) {
	if rt.Sampled() {
		return &targetObject{b: b}, nil
	}
	usage := vk.ImageUsageColorAttachmentBit
	if rt.Type != gfx.TargetColor {
		usage = vk.ImageUsageDepthStencilAttachmentBit
	}
	im, err := b.newImage(imageInfo{
		typ:      vk.ImageType2d,
		viewType: vk.ImageViewType2d,
		format:   texFormat(rt.Texture.Format),
		aspect:   aspect(rt.Texture.Format),
		usage:    usage,
		w:        rt.Width(),
		h:        rt.Height(),
		d:        1,
		mips:     1,
		layers:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("vulkan: %v render target: %w", rt.Type, err)
	}
	return &targetObject{b: b, image: im}, nil
}

func sliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
