// Package vkbackend realizes the renderer on Vulkan through goki/vulkan.
// Pipelines are immutable and baked when a pass is materialized, so nothing
// is re-applied at draw time beyond binding the pipeline and its resources.
package vkbackend

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// Window is what the backend needs from the platform.
type Window interface {
	FramebufferSize() (int, int)
	// VulkanProcAddr is the loader entry point, vkGetInstanceProcAddr.
	VulkanProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	// CreateSurface creates a VkSurfaceKHR for instance and returns its handle.
	CreateSurface(instance any) (uintptr, error)
}

// Backend implements render.Backend.
type Backend struct {
	win   Window
	debug bool
	vsync bool
	log   *slog.Logger

	instance vk.Instance
	dbg      vk.DebugReportCallback
	surface  vk.Surface
	gpu      vk.PhysicalDevice
	device   vk.Device
	queue    vk.Queue
	family   uint32
	pool     vk.CommandPool
	memProps vk.PhysicalDeviceMemoryProperties
	maxUnits int

	sc    *swapchain
	frame *frame

	width, height int
	resized       bool
	ready         bool
}

var _ render.Backend = (*Backend)(nil)

func New(win Window, cfg core.Config) *Backend {
	return &Backend{win: win, debug: cfg.Debug, vsync: cfg.VSync, log: core.Logger().With("backend", "vulkan")}
}

func (b *Backend) Name() string                { return "vulkan" }
func (b *Backend) NDC() render.NDC             { return render.NDCNative }
func (b *Backend) MaxTextureUnits() int        { return b.maxUnits }
func (b *Backend) FramebufferSize() (int, int) { return b.width, b.height }

func (b *Backend) Init() error {
	vk.SetGetInstanceProcAddr(b.win.VulkanProcAddr())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("vulkan: loader: %w", err)
	}
	b.width, b.height = b.win.FramebufferSize()
	steps := []struct {
		name string
		fn   func() error
	}{
		{"instance", b.createInstance},
		{"surface", b.createSurface},
		{"physical device", b.selectGPU},
		{"device", b.createDevice},
		{"command pool", b.createCommandPool},
		{"swapchain", b.createSwapchain},
		{"frame", b.createFrame},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			b.Shutdown()
			return fmt.Errorf("vulkan: %s: %w", s.name, err)
		}
		b.log.Debug("created", "object", s.name)
	}
	b.ready = true
	return nil
}

func (b *Backend) createInstance() error {
	exts := b.win.RequiredInstanceExtensions()
	var layers []string
	if b.debug {
		if hasLayer(validationLayer) {
			layers = append(layers, validationLayer)
			exts = append(exts, vk.ExtDebugReportExtensionName)
		} else {
			b.log.Warn("validation layer not installed", "layer", validationLayer)
		}
	}
	info := vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString("grove3d"),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        safeString("grove3d"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: safeStrings(exts),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}
	if err := vk.Error(vk.CreateInstance(&info, nil, &b.instance)); err != nil {
		return err
	}
	if err := vk.InitInstance(b.instance); err != nil {
		return err
	}
	if len(layers) == 0 {
		return nil
	}
	dbgInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: b.report,
	}
	return vk.Error(vk.CreateDebugReportCallback(b.instance, &dbgInfo, nil, &b.dbg))
}

func hasLayer(name string) bool {
	var n uint32
	if vk.EnumerateInstanceLayerProperties(&n, nil) != vk.Success || n == 0 {
		return false
	}
	props := make([]vk.LayerProperties, n)
	vk.EnumerateInstanceLayerProperties(&n, props)
	for _, p := range props {
		p.Deref()
		if vk.ToString(p.LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (b *Backend) report(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _, _ uint64, code int32, prefix, msg string, _ unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		b.log.Error("validation", "layer", prefix, "code", code, "msg", msg)
	default:
		b.log.Warn("validation", "layer", prefix, "code", code, "msg", msg)
	}
	return vk.False
}

func (b *Backend) createSurface() error {
	ptr, err := b.win.CreateSurface(b.instance)
	if err != nil {
		return err
	}
	b.surface = vk.SurfaceFromPointer(ptr)
	return nil
}

// selectGPU takes the first device with a queue family that both draws and
// presents to the surface. Discrete GPUs are preferred.
func (b *Backend) selectGPU() error {
	var n uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(b.instance, &n, nil)); err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no Vulkan capable GPU found")
	}
	gpus := make([]vk.PhysicalDevice, n)
	if err := vk.Error(vk.EnumeratePhysicalDevices(b.instance, &n, gpus)); err != nil {
		return err
	}

	found := false
	for _, gpu := range gpus {
		family, ok := b.graphicsPresentFamily(gpu)
		if !ok {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		if found && props.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
			continue
		}
		b.gpu, b.family, found = gpu, family, true
		props.Limits.Deref()
		b.maxUnits = int(props.Limits.MaxPerStageDescriptorSamplers)
		b.log.Info("gpu selected", "name", vk.ToString(props.DeviceName[:]), "texture_units", b.maxUnits)
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			break
		}
	}
	if !found {
		return errors.New("no GPU can draw to the window surface")
	}
	vk.GetPhysicalDeviceMemoryProperties(b.gpu, &b.memProps)
	b.memProps.Deref()
	return nil
}

func (b *Backend) graphicsPresentFamily(gpu vk.PhysicalDevice) (uint32, bool) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &n, nil)
	families := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &n, families)
	for i, qf := range families {
		qf.Deref()
		if qf.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var present vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), b.surface, &present)
		if present == vk.True {
			return uint32(i), true
		}
	}
	return 0, false
}

func (b *Backend) createDevice() error {
	exts := []string{vk.KhrSwapchainExtensionName}
	// tessellation and geometry stages only where the device has them
	var have vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(b.gpu, &have)
	have.Deref()
	info := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: b.family,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: safeStrings(exts),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			TessellationShader: have.TessellationShader,
			GeometryShader:     have.GeometryShader,
		}},
	}
	if err := vk.Error(vk.CreateDevice(b.gpu, &info, nil, &b.device)); err != nil {
		return err
	}
	vk.GetDeviceQueue(b.device, b.family, 0, &b.queue)
	return nil
}

func (b *Backend) createCommandPool() error {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: b.family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	return vk.Error(vk.CreateCommandPool(b.device, &info, nil, &b.pool))
}

// findMemoryType returns the first memory type allowed by typeFilter that has
// every property in props.
func (b *Backend) findMemoryType(typeFilter uint32, props vk.MemoryPropertyFlagBits) (uint32, error) {
	want := vk.MemoryPropertyFlags(props)
	for i := uint32(0); i < b.memProps.MemoryTypeCount; i++ {
		b.memProps.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && b.memProps.MemoryTypes[i].PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type with properties 0x%x", props)
}

// BeginRenderPass opens the window render pass for the Standard bucket.
// Offscreen and shadow passes begin their own render passes when bound.
func (b *Backend) BeginRenderPass(pt render.PassType, clear colors.Color) error {
	if pt != render.PassStandard {
		return nil
	}
	return b.beginWindowPass(clear)
}

func (b *Backend) EndRenderPass(render.PassType) error {
	b.endOpenPass()
	return nil
}

// Resize only records the new size; the swap chain is rebuilt by the next
// BeginFrame.
func (b *Backend) Resize(w, h int) {
	b.width, b.height = w, h
	b.resized = true
}

// idle waits for the frame in flight before a shadow releases device memory
// the frame may still read.
func (b *Backend) idle() {
	if err := b.waitFrame(); err != nil {
		b.log.Error("release while frame in flight", "err", err)
	}
}

// Shutdown releases every device object. It is safe on a partially
// initialized backend.
func (b *Backend) Shutdown() {
	if b.device != nil {
		vk.DeviceWaitIdle(b.device)
	}
	if b.frame != nil {
		b.destroyFrame()
	}
	if b.sc != nil {
		b.sc.destroy(b.device)
		b.sc = nil
	}
	if b.pool != vk.NullCommandPool {
		vk.DestroyCommandPool(b.device, b.pool, nil)
		b.pool = vk.NullCommandPool
	}
	if b.device != nil {
		vk.DestroyDevice(b.device, nil)
		b.device = nil
	}
	if b.surface != vk.NullSurface {
		vk.DestroySurface(b.instance, b.surface, nil)
		b.surface = vk.NullSurface
	}
	if b.dbg != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(b.instance, b.dbg, nil)
		b.dbg = vk.NullDebugReportCallback
	}
	if b.instance != nil {
		vk.DestroyInstance(b.instance, nil)
		b.instance = nil
	}
	b.ready = false
	b.log.Debug("backend shut down")
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
