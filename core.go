// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

// Implementation limits shared by the backends.
const (
	// MaxBindingLayouts is the number of binding layout slots a
	// pipeline can declare and a state struct can bind.
	MaxBindingLayouts = 5
	// MaxPushConstantSize is the byte limit for SetPushConstants.
	MaxPushConstantSize = 128
	// MaxVolatileConstantBuffers is the number of volatile constant
	// buffers a pipeline's combined layouts can declare.
	MaxVolatileConstantBuffers = 32
	// MaxRenderTargets is the number of color attachments in a
	// framebuffer.
	MaxRenderTargets = 8
	// MaxVertexAttributes is the number of vertex buffer bindings.
	MaxVertexAttributes = 16
)

// Destroyer is the interface that wraps the Destroy method.
// Objects that hold native driver handles must be destroyed
// explicitly; the GC does not manage them.
type Destroyer interface {
	Destroy()
}

// Resource is the common interface of every object created from a
// Device. Resource identity is pointer identity: two Resource values
// are the same resource exactly when they are the same object.
type Resource interface {
	Destroyer
}

// Texture is a GPU texture resource.
type Texture interface {
	Resource

	// Desc returns the descriptor the texture was created with.
	// The returned pointer is owned by the texture and immutable.
	Desc() *TextureDesc
}

// Buffer is a GPU buffer resource.
type Buffer interface {
	Resource

	// Desc returns the descriptor the buffer was created with.
	Desc() *BufferDesc
}

// AccelStruct is a ray-tracing acceleration structure. Its backing
// storage is a buffer that participates in state tracking like any
// other buffer.
type AccelStruct interface {
	Resource

	// DataBuffer returns the buffer holding the structure data.
	DataBuffer() Buffer
}

// ResourceType classifies a binding: what kind of view of a resource
// the shader sees through it.
type ResourceType int

// Binding resource types.
const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeTextureSRV
	ResourceTypeTextureUAV
	ResourceTypeTypedBufferSRV
	ResourceTypeTypedBufferUAV
	ResourceTypeStructuredBufferSRV
	ResourceTypeStructuredBufferUAV
	ResourceTypeRawBufferSRV
	ResourceTypeRawBufferUAV
	ResourceTypeConstantBuffer
	ResourceTypeVolatileConstantBuffer
	ResourceTypeSampler
	ResourceTypePushConstants
	ResourceTypeAccelStruct
)

// BindingLayoutItem declares one slot of a binding layout.
// For ResourceTypePushConstants, Size is the push-constant block size
// in bytes; otherwise Size is the descriptor array length and defaults
// to one element.
type BindingLayoutItem struct {
	Slot uint32
	Type ResourceType
	Size uint32
}

// ArraySize returns the declared descriptor array length.
func (i BindingLayoutItem) ArraySize() uint32 {
	if i.Type == ResourceTypePushConstants {
		return 1
	}
	return max(i.Size, 1)
}

// BindingLayoutDesc declares the shape of binding sets for one layout
// slot of a pipeline. RegisterSpace namespaces the slots so that
// multiple layouts can coexist on one pipeline.
type BindingLayoutDesc struct {
	RegisterSpace uint32
	Bindings      []BindingLayoutItem
}

// BindingLayout is the device object created from a BindingLayoutDesc.
type BindingLayout interface {
	Resource

	// Desc returns the layout descriptor, or nil for bindless
	// layouts, which are not validated against binding sets.
	Desc() *BindingLayoutDesc
}

// BindingSetItem binds a concrete resource to a layout slot.
// Subresources applies to texture bindings, Range to buffer bindings,
// ArrayElement to array slots.
type BindingSetItem struct {
	Resource     Resource
	Slot         uint32
	ArrayElement uint32
	Type         ResourceType
	Subresources TextureSubresourceSet
	Range        BufferRange
}

// BindingSetDesc lists the resources bound by a binding set.
type BindingSetDesc struct {
	Bindings []BindingSetItem
}

// BindingSet is a device object binding resources per its layout.
type BindingSet interface {
	Resource

	// Desc returns the set descriptor, or nil for bindless sets.
	Desc() *BindingSetDesc

	// Layout returns the layout the set was created against.
	Layout() BindingLayout
}

// FramebufferAttachment selects a texture subresource range used as a
// render target. Format overrides the texture format when nonzero
// (typeless textures).
type FramebufferAttachment struct {
	Texture      Texture
	Subresources TextureSubresourceSet
	Format       Format
	IsReadOnly   bool
}

// Valid reports whether the attachment references a texture.
func (a FramebufferAttachment) Valid() bool { return a.Texture != nil }

// FramebufferDesc lists the attachments of a framebuffer.
type FramebufferDesc struct {
	ColorAttachments []FramebufferAttachment
	DepthAttachment  FramebufferAttachment
}

// Framebuffer is a device object grouping render targets.
type Framebuffer interface {
	Resource

	// Desc returns the framebuffer descriptor.
	Desc() *FramebufferDesc
}

// GraphicsPipelineDesc declares a graphics pipeline. Shader and
// fixed-function state are passed through to the native backend and
// are not modeled here; the binding layouts are what the interface
// itself consumes (binding validation and push-constant sizing).
type GraphicsPipelineDesc struct {
	BindingLayouts []BindingLayout
	DebugName      string
}

// GraphicsPipeline is a compiled graphics pipeline.
type GraphicsPipeline interface {
	Resource

	// Desc returns the pipeline descriptor.
	Desc() *GraphicsPipelineDesc
}

// ComputePipelineDesc declares a compute pipeline.
type ComputePipelineDesc struct {
	BindingLayouts []BindingLayout
	DebugName      string
}

// ComputePipeline is a compiled compute pipeline.
type ComputePipeline interface {
	Resource

	// Desc returns the pipeline descriptor.
	Desc() *ComputePipelineDesc
}

// Viewport is an axis-aligned viewport rectangle with depth bounds.
type Viewport struct {
	MinX, MaxX float32
	MinY, MaxY float32
	MinZ, MaxZ float32
}

// Rect is an integer scissor rectangle.
type Rect struct {
	MinX, MaxX int
	MinY, MaxY int
}

// ViewportState carries the viewports and scissors of a graphics state.
type ViewportState struct {
	Viewports    []Viewport
	ScissorRects []Rect
}

// VertexBufferBinding binds a buffer to a vertex input slot.
type VertexBufferBinding struct {
	Buffer Buffer
	Slot   uint32
	Offset uint64
}

// IndexBufferBinding binds the index buffer.
type IndexBufferBinding struct {
	Buffer Buffer
	Format Format
	Offset uint32
}

// GraphicsState is the full state required by draw calls.
type GraphicsState struct {
	Pipeline    GraphicsPipeline
	Framebuffer Framebuffer
	Bindings    []BindingSet
	Viewport    ViewportState

	VertexBuffers  []VertexBufferBinding
	IndexBuffer    IndexBufferBinding
	IndirectParams Buffer
}

// ComputeState is the full state required by dispatch calls.
type ComputeState struct {
	Pipeline       ComputePipeline
	Bindings       []BindingSet
	IndirectParams Buffer
}

// DrawArguments parameterizes Draw and DrawIndexed.
type DrawArguments struct {
	VertexCount         uint32
	InstanceCount       uint32
	StartIndexLocation  uint32
	StartVertexLocation uint32
	StartInstanceLocation uint32
}

// Color is an RGBA clear color.
type Color struct {
	R, G, B, A float32
}

// CommandListParameters configures command list creation.
type CommandListParameters struct {
	QueueType CommandQueue
}

// CommandList records GPU work. A command list must be driven by one
// goroutine at a time; distinct command lists may record concurrently.
//
// Recording calls are valid only between Open and Close. The
// validation layer turns violations into reported errors and skipped
// calls; backends themselves assume correct usage.
type CommandList interface {
	Resource

	// Open prepares the command list for recording. Valid when the
	// list is in its initial state or has been closed and executed.
	Open()

	// Close ends recording. Resources created with KeepInitialState
	// are transitioned back to their initial states first, and any
	// pending barriers are committed.
	Close()

	// ClearState resets cached binding state and discards the
	// pending, uncommitted barrier batch. It does not revert
	// tracked-state updates that were already applied.
	ClearState()

	// WriteBuffer uploads data to a buffer through the backend's
	// upload heap.
	WriteBuffer(b Buffer, data []byte, destOffset uint64)

	// CopyBuffer copies a byte range between buffers.
	CopyBuffer(dest Buffer, destOffset uint64, src Buffer, srcOffset uint64, size uint64)

	// CopyTexture copies between texture slices.
	CopyTexture(dest Texture, destSlice TextureSlice, src Texture, srcSlice TextureSlice)

	// ClearTextureFloat clears float and normalized textures.
	ClearTextureFloat(t Texture, subresources TextureSubresourceSet, clearColor Color)

	// ClearDepthStencilTexture clears depth and/or stencil aspects.
	ClearDepthStencilTexture(t Texture, subresources TextureSubresourceSet, clearDepth bool, depth float32, clearStencil bool, stencil uint8)

	// SetPushConstants updates the push-constant block declared by
	// the current pipeline. len(data) must match the declared size.
	SetPushConstants(data []byte)

	// SetGraphicsState binds a graphics pipeline, framebuffer and
	// resources. With automatic barriers enabled, required resource
	// states are inferred and pending barriers committed.
	SetGraphicsState(state GraphicsState)

	// Draw issues a non-indexed draw with the current graphics state.
	Draw(args DrawArguments)

	// DrawIndexed issues an indexed draw.
	DrawIndexed(args DrawArguments)

	// DrawIndirect issues draws whose arguments are sourced from the
	// current state's IndirectParams buffer.
	DrawIndirect(offsetBytes uint64, drawCount uint32)

	// SetComputeState binds a compute pipeline and resources.
	SetComputeState(state ComputeState)

	// Dispatch issues compute thread groups.
	Dispatch(groupsX, groupsY, groupsZ uint32)

	// DispatchIndirect issues a dispatch with arguments sourced from
	// the current state's IndirectParams buffer.
	DispatchIndirect(offsetBytes uint64)

	// BeginMarker and EndMarker delimit a named region for debuggers.
	BeginMarker(name string)
	EndMarker()

	// SetEnableAutomaticBarriers toggles whether usage-implying
	// operations infer required resource states. When disabled, the
	// caller must issue SetTextureState/SetBufferState explicitly.
	SetEnableAutomaticBarriers(enable bool)

	// SetResourceStatesForBindingSet requires the states implied by
	// every binding in the set.
	SetResourceStatesForBindingSet(bindingSet BindingSet)

	// SetEnableUavBarriersForTexture toggles the UAV-hazard barriers
	// placed between successive unordered-access uses of the texture.
	// Disabling them asserts external synchronization.
	SetEnableUavBarriersForTexture(t Texture, enable bool)

	// SetEnableUavBarriersForBuffer is the buffer counterpart.
	SetEnableUavBarriersForBuffer(b Buffer, enable bool)

	// BeginTrackingTextureState seeds the tracked state of a texture
	// range without emitting a barrier.
	BeginTrackingTextureState(t Texture, subresources TextureSubresourceSet, state ResourceStates)

	// BeginTrackingBufferState seeds the tracked state of a buffer.
	BeginTrackingBufferState(b Buffer, state ResourceStates)

	// SetTextureState requires a state for a texture range, placing
	// a pending barrier if the tracked state differs.
	SetTextureState(t Texture, subresources TextureSubresourceSet, state ResourceStates)

	// SetBufferState is the buffer counterpart of SetTextureState.
	SetBufferState(b Buffer, state ResourceStates)

	// SetAccelStructState requires a state for the structure's
	// backing buffer.
	SetAccelStructState(as AccelStruct, state ResourceStates)

	// SetPermanentTextureState performs one final transition of the
	// whole texture and removes it from tracking for the rest of its
	// lifetime.
	SetPermanentTextureState(t Texture, state ResourceStates)

	// SetPermanentBufferState is the buffer counterpart.
	SetPermanentBufferState(b Buffer, state ResourceStates)

	// CommitBarriers flushes the pending barrier batch to the native
	// command buffer. A no-op when the batch is empty. Any open
	// render scope is ended first; barriers are illegal inside one.
	CommitBarriers()

	// GetTextureSubresourceState returns the tracked state of one
	// subresource, or ResourceStateUnknown if it was never tracked.
	GetTextureSubresourceState(t Texture, arraySlice ArraySlice, mipLevel MipLevel) ResourceStates

	// GetBufferState returns the tracked state of a buffer.
	GetBufferState(b Buffer) ResourceStates

	// Device returns the device that created the command list.
	Device() Device

	// Desc returns the creation parameters.
	Desc() CommandListParameters
}

// Device creates resources and executes command lists. All Create*
// methods are safe for concurrent use; ExecuteCommandLists serializes
// submission per device.
type Device interface {
	Destroyer

	// GraphicsAPI identifies the native backend.
	GraphicsAPI() GraphicsAPI

	// MessageCallback returns the callback receiving diagnostics.
	MessageCallback() MessageCallback

	CreateTexture(desc TextureDesc) (Texture, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	CreateBindingLayout(desc BindingLayoutDesc) (BindingLayout, error)
	CreateBindingSet(desc BindingSetDesc, layout BindingLayout) (BindingSet, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (GraphicsPipeline, error)
	CreateComputePipeline(desc ComputePipelineDesc) (ComputePipeline, error)
	CreateCommandList(params CommandListParameters) (CommandList, error)

	// ExecuteCommandLists submits closed command lists for in-order
	// execution on their queue.
	ExecuteCommandLists(lists []CommandList) error

	// WaitForIdle blocks until all submitted work completes.
	WaitForIdle() error
}
