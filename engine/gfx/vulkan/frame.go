package vkbackend

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/hubastard/grove3d/engine/colors"
)

// bufferCopy is a staging copy recorded at the start of the next frame.
type bufferCopy struct {
	src, dst  *buffer
	size      int
	dstAccess vk.AccessFlagBits
	dstStage  vk.PipelineStageFlagBits
	// release frees src once the copy has executed
	release bool
}

// frame is the single frame in flight: one command buffer guarded by a fence
// and the semaphores ordering it against the presentation engine.
type frame struct {
	cmd      vk.CommandBuffer
	fence    vk.Fence
	acquired vk.Semaphore
	rendered vk.Semaphore

	image     uint32
	inFlight  bool
	recording bool
	submitted bool // EndFrame ran since the last Present

	pending []bufferCopy
	retired []*buffer // staging released after the fence signals

	open   *pass // offscreen pass whose render pass is open
	window bool  // the window render pass is open
}

func (b *Backend) createFrame() error {
	f := &frame{}
	b.frame = f
	cmds := make([]vk.CommandBuffer, 1)
	alloc := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	if err := vk.Error(vk.AllocateCommandBuffers(b.device, &alloc, cmds)); err != nil {
		return err
	}
	f.cmd = cmds[0]

	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	if err := vk.Error(vk.CreateFence(b.device, &fenceInfo, nil, &f.fence)); err != nil {
		return err
	}
	semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := vk.Error(vk.CreateSemaphore(b.device, &semInfo, nil, &f.acquired)); err != nil {
		return err
	}
	return vk.Error(vk.CreateSemaphore(b.device, &semInfo, nil, &f.rendered))
}

func (b *Backend) destroyFrame() {
	f := b.frame
	b.frame = nil
	for _, c := range f.pending {
		if c.release {
			b.destroyBuffer(c.src)
		}
	}
	for _, s := range f.retired {
		b.destroyBuffer(s)
	}
	if f.rendered != vk.NullSemaphore {
		vk.DestroySemaphore(b.device, f.rendered, nil)
	}
	if f.acquired != vk.NullSemaphore {
		vk.DestroySemaphore(b.device, f.acquired, nil)
	}
	if f.fence != vk.NullFence {
		vk.DestroyFence(b.device, f.fence, nil)
	}
	if f.cmd != nil {
		vk.FreeCommandBuffers(b.device, b.pool, 1, []vk.CommandBuffer{f.cmd})
	}
}

// waitFrame blocks until the submitted frame has executed. Host writes into
// staging memory go through it.
func (b *Backend) waitFrame() error {
	f := b.frame
	if f == nil || !f.inFlight {
		return nil
	}
	if err := vk.Error(vk.WaitForFences(b.device, 1, []vk.Fence{f.fence}, vk.True, vk.MaxUint64)); err != nil {
		return fmt.Errorf("vulkan: wait for frame: %w", err)
	}
	f.inFlight = false
	for _, s := range f.retired {
		b.destroyBuffer(s)
	}
	f.retired = f.retired[:0]
	return nil
}

// queueCopy schedules a staging copy for the next BeginFrame.
func (b *Backend) queueCopy(c bufferCopy) {
	b.frame.pending = append(b.frame.pending, c)
}

// BeginFrame acquires the next swap chain image and starts recording. Staging
// copies queued since the last frame are recorded before any render pass.
func (b *Backend) BeginFrame() (int, error) {
	if !b.ready {
		return 0, errors.New("vulkan: backend not initialized")
	}
	if err := b.waitFrame(); err != nil {
		return 0, err
	}
	if b.resized {
		if err := b.recreateSwapchain(); err != nil {
			return 0, err
		}
	}
	f := b.frame
	res := vk.AcquireNextImage(b.device, b.sc.handle, vk.MaxUint64, f.acquired, vk.NullFence, &f.image)
	if res == vk.ErrorOutOfDate {
		if err := b.recreateSwapchain(); err != nil {
			return 0, err
		}
		res = vk.AcquireNextImage(b.device, b.sc.handle, vk.MaxUint64, f.acquired, vk.NullFence, &f.image)
	}
	if res != vk.Success && res != vk.Suboptimal {
		return 0, fmt.Errorf("vulkan: acquire image: %w", vk.Error(res))
	}
	vk.ResetFences(b.device, 1, []vk.Fence{f.fence})
	vk.ResetCommandBuffer(f.cmd, 0)

	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(f.cmd, &begin)); err != nil {
		return 0, fmt.Errorf("vulkan: begin command buffer: %w", err)
	}
	f.recording = true
	b.recordCopies()
	return int(f.image), nil
}

func (b *Backend) recordCopies() {
	f := b.frame
	if len(f.pending) == 0 {
		return
	}
	barriers := make([]vk.BufferMemoryBarrier, 0, len(f.pending))
	var dstStages vk.PipelineStageFlagBits
	for _, c := range f.pending {
		vk.CmdCopyBuffer(f.cmd, c.src.buf, c.dst.buf, 1, []vk.BufferCopy{{Size: vk.DeviceSize(c.size)}})
		barriers = append(barriers, vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:       vk.AccessFlags(c.dstAccess),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              c.dst.buf,
			Size:                vk.DeviceSize(vk.WholeSize),
		})
		dstStages |= c.dstStage
		if c.release {
			f.retired = append(f.retired, c.src)
		}
	}
	vk.CmdPipelineBarrier(f.cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(dstStages),
		0, 0, nil, uint32(len(barriers)), barriers, 0, nil)
	f.pending = f.pending[:0]
}

func (b *Backend) beginWindowPass(clear colors.Color) error {
	f := b.frame
	if !f.recording {
		return errors.New("vulkan: render pass outside of a frame")
	}
	b.endOpenPass()
	ext := b.sc.extent
	info := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      b.sc.pass,
		Framebuffer:     b.sc.fbs[f.image],
		RenderArea:      vk.Rect2D{Extent: ext},
		ClearValueCount: 2,
		PClearValues: []vk.ClearValue{
			vk.NewClearValue(clear[:]),
			vk.NewClearDepthStencil(1, 0),
		},
	}
	vk.CmdBeginRenderPass(f.cmd, &info, vk.SubpassContentsInline)
	f.window = true
	setViewport(f.cmd, int(ext.Width), int(ext.Height))
	return nil
}

// endOpenPass closes whichever render pass is recording. Sampled targets of
// an offscreen pass move to the shader read layout.
func (b *Backend) endOpenPass() {
	f := b.frame
	if f == nil {
		return
	}
	if f.window {
		vk.CmdEndRenderPass(f.cmd)
		f.window = false
	}
	if f.open != nil {
		vk.CmdEndRenderPass(f.cmd)
		f.open.afterRender(f.cmd)
		f.open = nil
	}
}

// EndFrame closes recording and submits. The submission waits for the
// acquired image and signals the semaphore Present waits on.
func (b *Backend) EndFrame() error {
	f := b.frame
	if !f.recording {
		return errors.New("vulkan: EndFrame without BeginFrame")
	}
	b.endOpenPass()
	f.recording = false
	if err := vk.Error(vk.EndCommandBuffer(f.cmd)); err != nil {
		return fmt.Errorf("vulkan: end command buffer: %w", err)
	}
	submit := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{f.acquired},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{f.rendered},
	}}
	if err := vk.Error(vk.QueueSubmit(b.queue, 1, submit, f.fence)); err != nil {
		return fmt.Errorf("vulkan: submit: %w", err)
	}
	f.inFlight = true
	f.submitted = true
	return nil
}

// Present queues the rendered image. An out of date swap chain is rebuilt by
// the next BeginFrame. Frames that were skipped present nothing.
func (b *Backend) Present() error {
	f := b.frame
	if f == nil {
		return errors.New("vulkan: backend not initialized")
	}
	if !f.submitted {
		return nil
	}
	f.submitted = false
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.rendered},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{b.sc.handle},
		PImageIndices:      []uint32{f.image},
	}
	switch res := vk.QueuePresent(b.queue, &info); res {
	case vk.Success:
	case vk.Suboptimal, vk.ErrorOutOfDate:
		b.resized = true
	default:
		return fmt.Errorf("vulkan: present: %w", vk.Error(res))
	}
	return nil
}

func setViewport(cmd vk.CommandBuffer, w, h int) {
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{{Width: float32(w), Height: float32(h), MaxDepth: 1}})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{{Extent: vk.Extent2D{Width: uint32(w), Height: uint32(h)}}})
}
