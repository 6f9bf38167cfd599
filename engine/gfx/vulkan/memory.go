package vkbackend

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// buffer is a VkBuffer with its own allocation. Host visible buffers stay
// mapped for their whole life.
type buffer struct {
	buf    vk.Buffer
	mem    vk.DeviceMemory
	size   int
	mapped []byte
}

func (b *Backend) newBuffer(size int, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	out := &buffer{size: size}
	if err := vk.Error(vk.CreateBuffer(b.device, &info, nil, &out.buf)); err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.device, out.buf, &reqs)
	reqs.Deref()
	mem, err := b.allocate(reqs, props)
	if err != nil {
		b.destroyBuffer(out)
		return nil, err
	}
	out.mem = mem
	vk.BindBufferMemory(b.device, out.buf, out.mem, 0)

	if props&vk.MemoryPropertyHostVisibleBit != 0 {
		var data unsafe.Pointer
		if err := vk.Error(vk.MapMemory(b.device, out.mem, 0, vk.DeviceSize(size), 0, &data)); err != nil {
			b.destroyBuffer(out)
			return nil, fmt.Errorf("map buffer: %w", err)
		}
		out.mapped = unsafe.Slice((*byte)(data), size)
	}
	return out, nil
}

// newStaging returns a host visible transfer source holding a copy of data.
func (b *Backend) newStaging(data []byte) (*buffer, error) {
	s, err := b.newBuffer(len(data), vk.BufferUsageTransferSrcBit, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	copy(s.mapped, data)
	return s, nil
}

func (b *Backend) allocate(reqs vk.MemoryRequirements, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	typ, err := b.findMemoryType(reqs.MemoryTypeBits, props)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typ,
	}
	var mem vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(b.device, &info, nil, &mem)); err != nil {
		return vk.NullDeviceMemory, fmt.Errorf("allocate %d bytes: %w", reqs.Size, err)
	}
	return mem, nil
}

func (b *Backend) destroyBuffer(buf *buffer) {
	if buf == nil {
		return
	}
	if buf.mapped != nil {
		vk.UnmapMemory(b.device, buf.mem)
		buf.mapped = nil
	}
	if buf.buf != vk.NullBuffer {
		vk.DestroyBuffer(b.device, buf.buf, nil)
		buf.buf = vk.NullBuffer
	}
	if buf.mem != vk.NullDeviceMemory {
		vk.FreeMemory(b.device, buf.mem, nil)
		buf.mem = vk.NullDeviceMemory
	}
}

// image is a VkImage, its memory and a view over every level and layer. The
// layout is tracked at record time so transitions know where they start.
type image struct {
	img    vk.Image
	mem    vk.DeviceMemory
	view   vk.ImageView
	format vk.Format
	aspect vk.ImageAspectFlagBits
	width  int
	height int
	mips   int
	layers int
	layout vk.ImageLayout
}

type imageInfo struct {
	typ      vk.ImageType
	viewType vk.ImageViewType
	format   vk.Format
	aspect   vk.ImageAspectFlagBits
	usage    vk.ImageUsageFlagBits
	flags    vk.ImageCreateFlagBits
	w, h, d  int
	mips     int
	layers   int
}

func (b *Backend) newImage(ii imageInfo) (*image, error) {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		Flags:         vk.ImageCreateFlags(ii.flags),
		ImageType:     ii.typ,
		Format:        ii.format,
		Extent:        vk.Extent3D{Width: uint32(ii.w), Height: uint32(ii.h), Depth: uint32(ii.d)},
		MipLevels:     uint32(ii.mips),
		ArrayLayers:   uint32(ii.layers),
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(ii.usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	im := &image{
		format: ii.format,
		aspect: ii.aspect,
		width:  ii.w,
		height: ii.h,
		mips:   ii.mips,
		layers: ii.layers,
		layout: vk.ImageLayoutUndefined,
	}
	if err := vk.Error(vk.CreateImage(b.device, &info, nil, &im.img)); err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(b.device, im.img, &reqs)
	reqs.Deref()
	mem, err := b.allocate(reqs, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		b.destroyImage(im)
		return nil, err
	}
	im.mem = mem
	vk.BindImageMemory(b.device, im.img, im.mem, 0)

	view := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    im.img,
		ViewType: ii.viewType,
		Format:   ii.format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: im.fullRange(),
	}
	// sampled depth-stencil images are read through their depth aspect
	if ii.usage&vk.ImageUsageSampledBit != 0 && ii.aspect&vk.ImageAspectDepthBit != 0 {
		view.SubresourceRange.AspectMask = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if err := vk.Error(vk.CreateImageView(b.device, &view, nil, &im.view)); err != nil {
		b.destroyImage(im)
		return nil, fmt.Errorf("create image view: %w", err)
	}
	return im, nil
}

func (im *image) fullRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(im.aspect),
		LevelCount: uint32(im.mips),
		LayerCount: uint32(im.layers),
	}
}

func (b *Backend) destroyImage(im *image) {
	if im == nil {
		return
	}
	if im.view != vk.NullImageView {
		vk.DestroyImageView(b.device, im.view, nil)
		im.view = vk.NullImageView
	}
	if im.img != vk.NullImage {
		vk.DestroyImage(b.device, im.img, nil)
		im.img = vk.NullImage
	}
	if im.mem != vk.NullDeviceMemory {
		vk.FreeMemory(b.device, im.mem, nil)
		im.mem = vk.NullDeviceMemory
	}
}

// layoutAccess is the access and stage a layout is used with.
func layoutAccess(l vk.ImageLayout) (vk.AccessFlagBits, vk.PipelineStageFlagBits) {
	switch l {
	case vk.ImageLayoutUndefined:
		return 0, vk.PipelineStageTopOfPipeBit
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessTransferWriteBit, vk.PipelineStageTransferBit
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessTransferReadBit, vk.PipelineStageTransferBit
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit, vk.PipelineStageColorAttachmentOutputBit
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit,
			vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessShaderReadBit, vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit
	}
	return vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit, vk.PipelineStageAllCommandsBit
}

// transition records a barrier moving levels [mip, mip+count) of im to
// layout. count 0 means every level.
func transition(cmd vk.CommandBuffer, im *image, from, to vk.ImageLayout, mip, count int) {
	if count == 0 {
		count = im.mips - mip
	}
	srcAccess, srcStage := layoutAccess(from)
	dstAccess, dstStage := layoutAccess(to)
	rng := im.fullRange()
	rng.BaseMipLevel = uint32(mip)
	rng.LevelCount = uint32(count)
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(srcStage),
		vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(srcAccess),
			DstAccessMask:       vk.AccessFlags(dstAccess),
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               im.img,
			SubresourceRange:    rng,
		}})
}

// toLayout moves the whole image from its tracked layout.
func (im *image) toLayout(cmd vk.CommandBuffer, to vk.ImageLayout) {
	if im.layout == to {
		return
	}
	transition(cmd, im, im.layout, to, 0, 0)
	im.layout = to
}

// oneShot records fn into a fresh command buffer, submits it and waits for
// the queue. Used for uploads made outside of a frame.
func (b *Backend) oneShot(fn func(cmd vk.CommandBuffer)) error {
	cmds := make([]vk.CommandBuffer, 1)
	alloc := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	if err := vk.Error(vk.AllocateCommandBuffers(b.device, &alloc, cmds)); err != nil {
		return fmt.Errorf("allocate command buffer: %w", err)
	}
	defer vk.FreeCommandBuffers(b.device, b.pool, 1, cmds)

	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmds[0], &begin)); err != nil {
		return fmt.Errorf("begin command buffer: %w", err)
	}
	fn(cmds[0])
	if err := vk.Error(vk.EndCommandBuffer(cmds[0])); err != nil {
		return fmt.Errorf("end command buffer: %w", err)
	}
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cmds,
	}}
	if err := vk.Error(vk.QueueSubmit(b.queue, 1, submit, vk.NullFence)); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return vk.Error(vk.QueueWaitIdle(b.queue))
}
