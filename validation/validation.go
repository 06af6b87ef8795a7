// Copyright 2024 The nvrhi Authors. All rights reserved.

package validation

import (
	"fmt"

	"github.com/lawfuyang/nvrhi"
)

// WrapDevice layers usage validation over a backend device. Violations
// are reported through the wrapped device's message callback; creation
// failures additionally return an error. The wrapper adds no
// synchronization of its own beyond what the backend provides.
func WrapDevice(device nvrhi.Device) nvrhi.Device {
	return &deviceWrapper{inner: device, messages: device.MessageCallback()}
}

type deviceWrapper struct {
	inner    nvrhi.Device
	messages nvrhi.MessageCallback
}

func (d *deviceWrapper) Destroy()                            { d.inner.Destroy() }
func (d *deviceWrapper) GraphicsAPI() nvrhi.GraphicsAPI      { return d.inner.GraphicsAPI() }
func (d *deviceWrapper) MessageCallback() nvrhi.MessageCallback { return d.messages }

func (d *deviceWrapper) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	d.messages.Report(nvrhi.SeverityError, msg)
	return fmt.Errorf("%s: %w", msg, nvrhi.ErrInvalidArgument)
}

func (d *deviceWrapper) CreateTexture(desc nvrhi.TextureDesc) (nvrhi.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 || desc.Depth == 0 {
		return nil, d.errorf("CreateTexture: texture %q has a zero dimension", desc.DebugName)
	}
	if desc.MipLevels == 0 || desc.ArraySize == 0 {
		return nil, d.errorf("CreateTexture: texture %q has zero mip levels or array slices", desc.DebugName)
	}
	if desc.KeepInitialState && desc.InitialState == nvrhi.ResourceStateUnknown {
		return nil, d.errorf("CreateTexture: texture %q uses KeepInitialState with no initial state", desc.DebugName)
	}
	return d.inner.CreateTexture(desc)
}

func (d *deviceWrapper) CreateBuffer(desc nvrhi.BufferDesc) (nvrhi.Buffer, error) {
	if desc.ByteSize == 0 {
		return nil, d.errorf("CreateBuffer: buffer %q has zero size", desc.DebugName)
	}
	if desc.IsVolatile && desc.CanHaveUAVs {
		return nil, d.errorf("CreateBuffer: volatile buffer %q cannot have UAVs", desc.DebugName)
	}
	if desc.KeepInitialState && desc.InitialState == nvrhi.ResourceStateUnknown {
		return nil, d.errorf("CreateBuffer: buffer %q uses KeepInitialState with no initial state", desc.DebugName)
	}
	return d.inner.CreateBuffer(desc)
}

func (d *deviceWrapper) CreateFramebuffer(desc nvrhi.FramebufferDesc) (nvrhi.Framebuffer, error) {
	if len(desc.ColorAttachments) > nvrhi.MaxRenderTargets {
		return nil, d.errorf("CreateFramebuffer: %d color attachments exceeds the limit of %d",
			len(desc.ColorAttachments), nvrhi.MaxRenderTargets)
	}
	any := desc.DepthAttachment.Valid()
	for i, a := range desc.ColorAttachments {
		if !a.Valid() {
			return nil, d.errorf("CreateFramebuffer: color attachment %d has no texture", i)
		}
		if !a.Texture.Desc().IsRenderTarget {
			return nil, d.errorf("CreateFramebuffer: texture %q was not created with IsRenderTarget",
				a.Texture.Desc().DebugName)
		}
		any = true
	}
	if !any {
		return nil, d.errorf("CreateFramebuffer: framebuffer has no attachments")
	}
	return d.inner.CreateFramebuffer(desc)
}

func (d *deviceWrapper) CreateBindingLayout(desc nvrhi.BindingLayoutDesc) (nvrhi.BindingLayout, error) {
	summary := newBindingSummary()
	if loc, dup := summary.addLayout(&desc); dup {
		return nil, d.errorf("CreateBindingLayout: duplicate binding at %s", loc)
	}
	if summary.numPushConst > 1 {
		return nil, d.errorf("CreateBindingLayout: more than one push-constant block declared")
	}
	if summary.pushConstSize > nvrhi.MaxPushConstantSize {
		return nil, d.errorf("CreateBindingLayout: push-constant block of %d bytes exceeds the limit of %d",
			summary.pushConstSize, nvrhi.MaxPushConstantSize)
	}
	return d.inner.CreateBindingLayout(desc)
}

func (d *deviceWrapper) CreateBindingSet(desc nvrhi.BindingSetDesc, layout nvrhi.BindingLayout) (nvrhi.BindingSet, error) {
	layoutDesc := layout.Desc()
	if layoutDesc == nil {
		return d.inner.CreateBindingSet(desc, layout)
	}
	declared := make(map[bindingLocation]nvrhi.ResourceType, len(layoutDesc.Bindings))
	for _, item := range layoutDesc.Bindings {
		if item.Type == nvrhi.ResourceTypePushConstants {
			continue
		}
		for element := uint32(0); element < item.ArraySize(); element++ {
			declared[bindingLocation{
				space:    layoutDesc.RegisterSpace,
				slot:     item.Slot,
				element:  element,
				category: categoryOf(item.Type),
			}] = item.Type
		}
	}
	for i, b := range desc.Bindings {
		loc := bindingLocation{
			space:    layoutDesc.RegisterSpace,
			slot:     b.Slot,
			element:  b.ArrayElement,
			category: categoryOf(b.Type),
		}
		declaredType, ok := declared[loc]
		if !ok {
			return nil, d.errorf("CreateBindingSet: binding %d targets %s, which the layout does not declare", i, loc)
		}
		if declaredType != b.Type {
			return nil, d.errorf("CreateBindingSet: binding %d has type mismatch at %s", i, loc)
		}
	}
	return d.inner.CreateBindingSet(desc, layout)
}

func (d *deviceWrapper) CreateGraphicsPipeline(desc nvrhi.GraphicsPipelineDesc) (nvrhi.GraphicsPipeline, error) {
	if err := d.validatePipelineLayouts("CreateGraphicsPipeline", desc.DebugName, desc.BindingLayouts); err != nil {
		return nil, err
	}
	return d.inner.CreateGraphicsPipeline(desc)
}

func (d *deviceWrapper) CreateComputePipeline(desc nvrhi.ComputePipelineDesc) (nvrhi.ComputePipeline, error) {
	if err := d.validatePipelineLayouts("CreateComputePipeline", desc.DebugName, desc.BindingLayouts); err != nil {
		return nil, err
	}
	return d.inner.CreateComputePipeline(desc)
}

func (d *deviceWrapper) validatePipelineLayouts(op, name string, layouts []nvrhi.BindingLayout) error {
	if len(layouts) > nvrhi.MaxBindingLayouts {
		return d.errorf("%s: pipeline %q declares %d binding layouts, the limit is %d",
			op, name, len(layouts), nvrhi.MaxBindingLayouts)
	}
	summary, loc, dup := summarizePipelineBindings(layouts)
	if dup {
		return d.errorf("%s: pipeline %q has overlapping bindings at %s", op, name, loc)
	}
	if summary.numPushConst > 1 {
		return d.errorf("%s: pipeline %q declares more than one push-constant block", op, name)
	}
	if summary.numVolatileCBs > nvrhi.MaxVolatileConstantBuffers {
		return d.errorf("%s: pipeline %q declares %d volatile constant buffers, the limit is %d",
			op, name, summary.numVolatileCBs, nvrhi.MaxVolatileConstantBuffers)
	}
	return nil
}

func (d *deviceWrapper) CreateCommandList(params nvrhi.CommandListParameters) (nvrhi.CommandList, error) {
	inner, err := d.inner.CreateCommandList(params)
	if err != nil {
		return nil, err
	}
	return &commandListWrapper{inner: inner, device: d, messages: d.messages}, nil
}

func (d *deviceWrapper) ExecuteCommandLists(lists []nvrhi.CommandList) error {
	unwrapped := make([]nvrhi.CommandList, len(lists))
	for i, cl := range lists {
		w, ok := cl.(*commandListWrapper)
		if !ok {
			return d.errorf("ExecuteCommandLists: command list %d was not created by this device", i)
		}
		if w.state != commandListClosed {
			return d.errorf("ExecuteCommandLists: command list %d is not closed", i)
		}
		unwrapped[i] = w.inner
	}
	return d.inner.ExecuteCommandLists(unwrapped)
}

func (d *deviceWrapper) WaitForIdle() error { return d.inner.WaitForIdle() }

// commandListState tracks where a command list is in its
// open/close/execute cycle.
type commandListState int

const (
	commandListInitial commandListState = iota
	commandListOpen
	commandListClosed
)

type commandListWrapper struct {
	inner    nvrhi.CommandList
	device   *deviceWrapper
	messages nvrhi.MessageCallback

	state commandListState

	graphicsStateSet bool
	computeStateSet  bool
	pushConstantsSet bool
	// push-constant size declared by the current pipeline's layouts, or
	// 0 when none is declared
	pushConstantSize uint32
}

func (c *commandListWrapper) Destroy() { c.inner.Destroy() }

func (c *commandListWrapper) errorf(format string, args ...any) {
	c.messages.Report(nvrhi.SeverityError, fmt.Sprintf(format, args...))
}

// requireOpen reports a violation and tells the caller to skip the
// native call when the list is not recording.
func (c *commandListWrapper) requireOpen(op string) bool {
	switch c.state {
	case commandListOpen:
		return true
	case commandListInitial:
		c.errorf("%s: the command list has not been opened", op)
	case commandListClosed:
		c.errorf("%s: the command list has been closed", op)
	}
	return false
}

// requireQueue checks that the list's queue supports the operation.
func (c *commandListWrapper) requireQueue(op string, minimum nvrhi.CommandQueue) bool {
	if q := c.inner.Desc().QueueType; q > minimum {
		c.errorf("%s is not supported on a %s command list", op, q)
		return false
	}
	return true
}

func (c *commandListWrapper) Open() {
	if c.state == commandListOpen {
		c.errorf("Open: the command list is already open")
		return
	}
	c.state = commandListOpen
	c.graphicsStateSet = false
	c.computeStateSet = false
	c.pushConstantsSet = false
	c.pushConstantSize = 0
	c.inner.Open()
}

func (c *commandListWrapper) Close() {
	if !c.requireOpen("Close") {
		return
	}
	c.state = commandListClosed
	c.inner.Close()
}

func (c *commandListWrapper) ClearState() {
	if !c.requireOpen("ClearState") {
		return
	}
	c.graphicsStateSet = false
	c.computeStateSet = false
	c.pushConstantsSet = false
	c.pushConstantSize = 0
	c.inner.ClearState()
}

func (c *commandListWrapper) WriteBuffer(b nvrhi.Buffer, data []byte, destOffset uint64) {
	if !c.requireOpen("WriteBuffer") {
		return
	}
	if len(data) == 0 {
		c.errorf("WriteBuffer: no data provided")
		return
	}
	if destOffset+uint64(len(data)) > b.Desc().ByteSize {
		c.errorf("WriteBuffer: write of %d bytes at offset %d overflows buffer %q (%d bytes)",
			len(data), destOffset, b.Desc().DebugName, b.Desc().ByteSize)
		return
	}
	c.inner.WriteBuffer(b, data, destOffset)
}

func (c *commandListWrapper) CopyBuffer(dest nvrhi.Buffer, destOffset uint64, src nvrhi.Buffer, srcOffset uint64, size uint64) {
	if !c.requireOpen("CopyBuffer") {
		return
	}
	if destOffset+size > dest.Desc().ByteSize || srcOffset+size > src.Desc().ByteSize {
		c.errorf("CopyBuffer: copy of %d bytes overflows a buffer", size)
		return
	}
	c.inner.CopyBuffer(dest, destOffset, src, srcOffset, size)
}

func (c *commandListWrapper) CopyTexture(dest nvrhi.Texture, destSlice nvrhi.TextureSlice, src nvrhi.Texture, srcSlice nvrhi.TextureSlice) {
	if !c.requireOpen("CopyTexture") {
		return
	}
	c.inner.CopyTexture(dest, destSlice, src, srcSlice)
}

func (c *commandListWrapper) ClearTextureFloat(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearColor nvrhi.Color) {
	if !c.requireOpen("ClearTextureFloat") {
		return
	}
	if info := nvrhi.GetFormatInfo(t.Desc().Format); info.HasDepth || info.HasStencil {
		c.errorf("ClearTextureFloat: texture %q has a depth-stencil format, use ClearDepthStencilTexture",
			t.Desc().DebugName)
		return
	}
	c.inner.ClearTextureFloat(t, subresources, clearColor)
}

func (c *commandListWrapper) ClearDepthStencilTexture(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearDepth bool, depth float32, clearStencil bool, stencil uint8) {
	if !c.requireOpen("ClearDepthStencilTexture") {
		return
	}
	info := nvrhi.GetFormatInfo(t.Desc().Format)
	if !info.HasDepth && !info.HasStencil {
		c.errorf("ClearDepthStencilTexture: texture %q does not have a depth-stencil format",
			t.Desc().DebugName)
		return
	}
	c.inner.ClearDepthStencilTexture(t, subresources, clearDepth, depth, clearStencil, stencil)
}

func (c *commandListWrapper) SetPushConstants(data []byte) {
	if !c.requireOpen("SetPushConstants") {
		return
	}
	if !c.graphicsStateSet && !c.computeStateSet {
		c.errorf("SetPushConstants: no pipeline is bound")
		return
	}
	if c.pushConstantSize == 0 {
		c.errorf("SetPushConstants: the current pipeline declares no push constants")
		return
	}
	if uint32(len(data)) != c.pushConstantSize {
		c.errorf("SetPushConstants: %d bytes provided, the pipeline declares %d",
			len(data), c.pushConstantSize)
		return
	}
	c.pushConstantsSet = true
	c.inner.SetPushConstants(data)
}

// declaredPushConstantSize scans a pipeline's layouts for a
// push-constant block.
func declaredPushConstantSize(layouts []nvrhi.BindingLayout) uint32 {
	for _, layout := range layouts {
		if layout == nil {
			continue
		}
		desc := layout.Desc()
		if desc == nil {
			continue
		}
		for _, item := range desc.Bindings {
			if item.Type == nvrhi.ResourceTypePushConstants {
				return item.Size
			}
		}
	}
	return 0
}

// validateBindingSets checks count and layout identity between a
// pipeline's layouts and a state's binding sets.
func (c *commandListWrapper) validateBindingSets(op string, layouts []nvrhi.BindingLayout, sets []nvrhi.BindingSet) bool {
	if len(sets) != len(layouts) {
		c.errorf("%s: %d binding sets provided, the pipeline declares %d layouts", op, len(sets), len(layouts))
		return false
	}
	for i, set := range sets {
		if set == nil {
			c.errorf("%s: binding set %d is nil", op, i)
			return false
		}
		if set.Layout() != layouts[i] {
			c.errorf("%s: binding set %d was created against a different layout", op, i)
			return false
		}
	}
	return true
}

func (c *commandListWrapper) SetGraphicsState(state nvrhi.GraphicsState) {
	if !c.requireOpen("SetGraphicsState") || !c.requireQueue("SetGraphicsState", nvrhi.QueueGraphics) {
		return
	}
	if state.Pipeline == nil {
		c.errorf("SetGraphicsState: no pipeline provided")
		return
	}
	if state.Framebuffer == nil {
		c.errorf("SetGraphicsState: no framebuffer provided")
		return
	}
	layouts := state.Pipeline.Desc().BindingLayouts
	if !c.validateBindingSets("SetGraphicsState", layouts, state.Bindings) {
		return
	}
	c.graphicsStateSet = true
	c.computeStateSet = false
	c.pushConstantsSet = false
	c.pushConstantSize = declaredPushConstantSize(layouts)
	c.inner.SetGraphicsState(state)
}

func (c *commandListWrapper) requireDrawState(op string) bool {
	if !c.requireOpen(op) {
		return false
	}
	if !c.graphicsStateSet {
		c.errorf("%s: SetGraphicsState has not been called", op)
		return false
	}
	if c.pushConstantSize != 0 && !c.pushConstantsSet {
		c.errorf("%s: the pipeline declares push constants but SetPushConstants has not been called", op)
		return false
	}
	return true
}

func (c *commandListWrapper) Draw(args nvrhi.DrawArguments) {
	if !c.requireDrawState("Draw") {
		return
	}
	c.inner.Draw(args)
}

func (c *commandListWrapper) DrawIndexed(args nvrhi.DrawArguments) {
	if !c.requireDrawState("DrawIndexed") {
		return
	}
	c.inner.DrawIndexed(args)
}

func (c *commandListWrapper) DrawIndirect(offsetBytes uint64, drawCount uint32) {
	if !c.requireDrawState("DrawIndirect") {
		return
	}
	c.inner.DrawIndirect(offsetBytes, drawCount)
}

func (c *commandListWrapper) SetComputeState(state nvrhi.ComputeState) {
	if !c.requireOpen("SetComputeState") || !c.requireQueue("SetComputeState", nvrhi.QueueCompute) {
		return
	}
	if state.Pipeline == nil {
		c.errorf("SetComputeState: no pipeline provided")
		return
	}
	layouts := state.Pipeline.Desc().BindingLayouts
	if !c.validateBindingSets("SetComputeState", layouts, state.Bindings) {
		return
	}
	c.computeStateSet = true
	c.graphicsStateSet = false
	c.pushConstantsSet = false
	c.pushConstantSize = declaredPushConstantSize(layouts)
	c.inner.SetComputeState(state)
}

func (c *commandListWrapper) requireDispatchState(op string) bool {
	if !c.requireOpen(op) {
		return false
	}
	if !c.computeStateSet {
		c.errorf("%s: SetComputeState has not been called", op)
		return false
	}
	if c.pushConstantSize != 0 && !c.pushConstantsSet {
		c.errorf("%s: the pipeline declares push constants but SetPushConstants has not been called", op)
		return false
	}
	return true
}

func (c *commandListWrapper) Dispatch(groupsX, groupsY, groupsZ uint32) {
	if !c.requireDispatchState("Dispatch") {
		return
	}
	c.inner.Dispatch(groupsX, groupsY, groupsZ)
}

func (c *commandListWrapper) DispatchIndirect(offsetBytes uint64) {
	if !c.requireDispatchState("DispatchIndirect") {
		return
	}
	c.inner.DispatchIndirect(offsetBytes)
}

func (c *commandListWrapper) BeginMarker(name string) {
	if !c.requireOpen("BeginMarker") {
		return
	}
	c.inner.BeginMarker(name)
}

func (c *commandListWrapper) EndMarker() {
	if !c.requireOpen("EndMarker") {
		return
	}
	c.inner.EndMarker()
}

func (c *commandListWrapper) SetEnableAutomaticBarriers(enable bool) {
	c.inner.SetEnableAutomaticBarriers(enable)
}

func (c *commandListWrapper) SetResourceStatesForBindingSet(bindingSet nvrhi.BindingSet) {
	if !c.requireOpen("SetResourceStatesForBindingSet") {
		return
	}
	c.inner.SetResourceStatesForBindingSet(bindingSet)
}

func (c *commandListWrapper) SetEnableUavBarriersForTexture(t nvrhi.Texture, enable bool) {
	c.inner.SetEnableUavBarriersForTexture(t, enable)
}

func (c *commandListWrapper) SetEnableUavBarriersForBuffer(b nvrhi.Buffer, enable bool) {
	c.inner.SetEnableUavBarriersForBuffer(b, enable)
}

func (c *commandListWrapper) BeginTrackingTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	if !c.requireOpen("BeginTrackingTextureState") {
		return
	}
	c.inner.BeginTrackingTextureState(t, subresources, state)
}

func (c *commandListWrapper) BeginTrackingBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if !c.requireOpen("BeginTrackingBufferState") {
		return
	}
	c.inner.BeginTrackingBufferState(b, state)
}

func (c *commandListWrapper) SetTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	if !c.requireOpen("SetTextureState") {
		return
	}
	c.inner.SetTextureState(t, subresources, state)
}

func (c *commandListWrapper) SetBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if !c.requireOpen("SetBufferState") {
		return
	}
	c.inner.SetBufferState(b, state)
}

func (c *commandListWrapper) SetAccelStructState(as nvrhi.AccelStruct, state nvrhi.ResourceStates) {
	if !c.requireOpen("SetAccelStructState") {
		return
	}
	c.inner.SetAccelStructState(as, state)
}

func (c *commandListWrapper) SetPermanentTextureState(t nvrhi.Texture, state nvrhi.ResourceStates) {
	if !c.requireOpen("SetPermanentTextureState") {
		return
	}
	c.inner.SetPermanentTextureState(t, state)
}

func (c *commandListWrapper) SetPermanentBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if !c.requireOpen("SetPermanentBufferState") {
		return
	}
	c.inner.SetPermanentBufferState(b, state)
}

func (c *commandListWrapper) CommitBarriers() {
	if !c.requireOpen("CommitBarriers") {
		return
	}
	c.inner.CommitBarriers()
}

func (c *commandListWrapper) GetTextureSubresourceState(t nvrhi.Texture, arraySlice nvrhi.ArraySlice, mipLevel nvrhi.MipLevel) nvrhi.ResourceStates {
	return c.inner.GetTextureSubresourceState(t, arraySlice, mipLevel)
}

func (c *commandListWrapper) GetBufferState(b nvrhi.Buffer) nvrhi.ResourceStates {
	return c.inner.GetBufferState(b)
}

func (c *commandListWrapper) Device() nvrhi.Device { return c.device }

func (c *commandListWrapper) Desc() nvrhi.CommandListParameters { return c.inner.Desc() }
