package vkbackend

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
)

const windowDepthFormat = vk.FormatD32Sfloat

// swapchain is the window's presentable images plus the depth buffer and
// render pass every Standard pass draws with.
type swapchain struct {
	handle  vk.Swapchain
	format  vk.Format
	extent  vk.Extent2D
	images  []vk.Image
	views   []vk.ImageView
	fbs     []vk.Framebuffer
	depth   *image
	pass    vk.RenderPass
	backend *Backend
}

func (b *Backend) createSwapchain() error {
	sc := &swapchain{backend: b}
	if err := sc.build(vk.NullSwapchain); err != nil {
		sc.destroy(b.device)
		return err
	}
	b.sc = sc
	return nil
}

// recreate rebuilds the swap chain for the current window size. The render
// pass survives since the surface format does not change.
func (b *Backend) recreateSwapchain() error {
	vk.DeviceWaitIdle(b.device)
	old := b.sc
	old.releaseImages(b.device)
	err := old.build(old.handle)
	b.resized = false
	if err != nil {
		return fmt.Errorf("vulkan: recreate swapchain: %w", err)
	}
	b.log.Debug("swapchain recreated", "width", old.extent.Width, "height", old.extent.Height)
	return nil
}

func (sc *swapchain) build(old vk.Swapchain) error {
	b := sc.backend
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(b.gpu, b.surface, &caps)); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		extent.Width = uint32(clamp(b.width, int(caps.MinImageExtent.Width), int(caps.MaxImageExtent.Width)))
		extent.Height = uint32(clamp(b.height, int(caps.MinImageExtent.Height), int(caps.MaxImageExtent.Height)))
	}
	if extent.Width == 0 || extent.Height == 0 {
		return errors.New("window has no area")
	}
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}

	surfFormat, err := sc.chooseFormat()
	if err != nil {
		return err
	}
	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          b.surface,
		MinImageCount:    count,
		ImageFormat:      surfFormat.Format,
		ImageColorSpace:  surfFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.presentMode(),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	var handle vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(b.device, &info, nil, &handle)); err != nil {
		return err
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(b.device, old, nil)
	}
	sc.handle, sc.format, sc.extent = handle, surfFormat.Format, extent

	var n uint32
	if err := vk.Error(vk.GetSwapchainImages(b.device, handle, &n, nil)); err != nil {
		return err
	}
	sc.images = make([]vk.Image, n)
	if err := vk.Error(vk.GetSwapchainImages(b.device, handle, &n, sc.images)); err != nil {
		return err
	}
	for _, img := range sc.images {
		view, err := sc.colorView(img)
		if err != nil {
			return err
		}
		sc.views = append(sc.views, view)
	}

	sc.depth, err = b.newImage(imageInfo{
		typ:      vk.ImageType2d,
		viewType: vk.ImageViewType2d,
		format:   windowDepthFormat,
		aspect:   vk.ImageAspectDepthBit,
		usage:    vk.ImageUsageDepthStencilAttachmentBit,
		w:        int(extent.Width),
		h:        int(extent.Height),
		d:        1,
		mips:     1,
		layers:   1,
	})
	if err != nil {
		return fmt.Errorf("depth buffer: %w", err)
	}
	if sc.pass == vk.NullRenderPass {
		if sc.pass, err = sc.createRenderPass(); err != nil {
			return err
		}
	}
	for _, view := range sc.views {
		fb, err := newFramebuffer(b.device, sc.pass, []vk.ImageView{view, sc.depth.view}, int(extent.Width), int(extent.Height))
		if err != nil {
			return err
		}
		sc.fbs = append(sc.fbs, fb)
	}
	return nil
}

// chooseFormat prefers 8-bit BGRA, the format every desktop driver offers.
func (sc *swapchain) chooseFormat() (vk.SurfaceFormat, error) {
	b := sc.backend
	var n uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(b.gpu, b.surface, &n, nil)); err != nil {
		return vk.SurfaceFormat{}, err
	}
	if n == 0 {
		return vk.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	formats := make([]vk.SurfaceFormat, n)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(b.gpu, b.surface, &n, formats)); err != nil {
		return vk.SurfaceFormat{}, err
	}
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Unorm {
			return formats[i], nil
		}
	}
	if formats[0].Format == vk.FormatUndefined {
		formats[0].Format = vk.FormatB8g8r8a8Unorm
	}
	return formats[0], nil
}

// presentMode is FIFO with vsync. Without it mailbox is taken when offered.
func (sc *swapchain) presentMode() vk.PresentMode {
	b := sc.backend
	if b.vsync {
		return vk.PresentModeFifo
	}
	var n uint32
	vk.GetPhysicalDeviceSurfacePresentModes(b.gpu, b.surface, &n, nil)
	modes := make([]vk.PresentMode, n)
	vk.GetPhysicalDeviceSurfacePresentModes(b.gpu, b.surface, &n, modes)
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func (sc *swapchain) colorView(img vk.Image) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   sc.format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(sc.backend.device, &info, nil, &view))
	return view, err
}

// createRenderPass clears color and depth and leaves the color image ready
// for presentation.
func (sc *swapchain) createRenderPass() (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         sc.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}, {
		Format:         windowDepthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    1,
			PColorAttachments:       []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}},
			PDepthStencilAttachment: &depthRef,
		}},
		DependencyCount: 1,
		PDependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		}},
	}
	var pass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(sc.backend.device, &info, nil, &pass))
	return pass, err
}

func newFramebuffer(dev vk.Device, pass vk.RenderPass, views []vk.ImageView, w, h int) (vk.Framebuffer, error) {
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(w),
		Height:          uint32(h),
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(dev, &info, nil, &fb)); err != nil {
		return vk.NullFramebuffer, fmt.Errorf("create framebuffer: %w", err)
	}
	return fb, nil
}

// releaseImages destroys everything sized after the window but keeps the
// swap chain handle, which the rebuilt chain retires.
func (sc *swapchain) releaseImages(dev vk.Device) {
	for _, fb := range sc.fbs {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
	for _, v := range sc.views {
		vk.DestroyImageView(dev, v, nil)
	}
	sc.fbs, sc.views, sc.images = nil, nil, nil
	if sc.depth != nil {
		sc.backend.destroyImage(sc.depth)
		sc.depth = nil
	}
}

func (sc *swapchain) destroy(dev vk.Device) {
	sc.releaseImages(dev)
	if sc.pass != vk.NullRenderPass {
		vk.DestroyRenderPass(dev, sc.pass, nil)
		sc.pass = vk.NullRenderPass
	}
	if sc.handle != vk.NullSwapchain {
		vk.DestroySwapchain(dev, sc.handle, nil)
		sc.handle = vk.NullSwapchain
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
