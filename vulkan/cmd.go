// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"fmt"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

// updateBufferLimit is the size cap of vkCmdUpdateBuffer.
const updateBufferLimit = 65536

// commandList implements nvrhi.CommandList on a Vulkan command buffer.
// Barriers are tracked by a tracking.StateTracker and committed as one
// vkCmdPipelineBarrier per batch; a batch is never committed while a
// render pass instance is open.
type commandList struct {
	device *Device
	params nvrhi.CommandListParameters

	pool vk.CommandPool
	cb   vk.CommandBuffer

	tracker                 *tracking.StateTracker
	enableAutomaticBarriers bool

	renderPassOpen bool
	currentFB      *framebuffer
	graphicsLayout vk.PipelineLayout
	computeLayout  vk.PipelineLayout
	graphics       nvrhi.GraphicsState
	compute        nvrhi.ComputeState
	markerDepth    int
}

func (d *Device) CreateCommandList(params nvrhi.CommandListParameters) (nvrhi.CommandList, error) {
	_, family := d.queue(params.QueueType)
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}
	dev := d.desc.Device
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(dev, &poolInfo, nil, &pool); res != vk.Success {
		return nil, fmt.Errorf("vulkan: vkCreateCommandPool failed (%d): %w", res, nvrhi.ErrFatal)
	}

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(dev, &allocInfo, cbs); res != vk.Success {
		vk.DestroyCommandPool(dev, pool, nil)
		return nil, fmt.Errorf("vulkan: vkAllocateCommandBuffers failed (%d): %w", res, nvrhi.ErrFatal)
	}

	return &commandList{
		device:                  d,
		params:                  params,
		pool:                    pool,
		cb:                      cbs[0],
		tracker:                 tracking.NewStateTracker(d.messages),
		enableAutomaticBarriers: true,
	}, nil
}

func (c *commandList) Destroy() {
	vk.DestroyCommandPool(c.device.desc.Device, c.pool, nil)
}

func (c *commandList) Device() nvrhi.Device              { return c.device }
func (c *commandList) Desc() nvrhi.CommandListParameters { return c.params }

func (c *commandList) Open() {
	vk.ResetCommandBuffer(c.cb, 0)
	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	vk.BeginCommandBuffer(c.cb, &begin)
	c.tracker.BeginRecording()
	c.clearCachedState()
}

func (c *commandList) Close() {
	c.endRenderPass()
	c.tracker.KeepInitialStates()
	c.commitBarriersInternal()
	vk.EndCommandBuffer(c.cb)
	c.clearCachedState()
}

func (c *commandList) clearCachedState() {
	c.currentFB = nil
	c.graphicsLayout = vk.NullPipelineLayout
	c.computeLayout = vk.NullPipelineLayout
	c.graphics = nvrhi.GraphicsState{}
	c.compute = nvrhi.ComputeState{}
}

func (c *commandList) ClearState() {
	c.endRenderPass()
	c.tracker.ClearBarriers()
	c.clearCachedState()
}

// asTexture narrows a public texture to the backend type, reporting
// foreign objects.
func (c *commandList) asTexture(t nvrhi.Texture) *texture {
	tex, ok := t.(*texture)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "vulkan: texture was not created by this device")
		return nil
	}
	return tex
}

func (c *commandList) asBuffer(b nvrhi.Buffer) *buffer {
	buf, ok := b.(*buffer)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "vulkan: buffer was not created by this device")
		return nil
	}
	return buf
}

// requireTextureState is the automatic-barrier entry point for
// usage-implying operations.
func (c *commandList) requireTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	if tex := c.asTexture(t); tex != nil && c.enableAutomaticBarriers {
		c.tracker.RequireTextureState(tex, subresources, state)
	}
}

func (c *commandList) requireBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if buf := c.asBuffer(b); buf != nil && c.enableAutomaticBarriers {
		c.tracker.RequireBufferState(buf, state)
	}
}

func (c *commandList) endRenderPass() {
	if c.renderPassOpen {
		vk.CmdEndRenderPass(c.cb)
		c.renderPassOpen = false
	}
}

func (c *commandList) beginRenderPass(fb *framebuffer) {
	begin := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  fb.renderPass,
		Framebuffer: fb.fb,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: fb.width, Height: fb.height},
		},
	}
	vk.CmdBeginRenderPass(c.cb, &begin, vk.SubpassContentsInline)
	c.renderPassOpen = true
	c.currentFB = fb
}

func (c *commandList) CommitBarriers() {
	if !c.tracker.AnyBarriers() {
		return
	}
	c.endRenderPass()
	c.commitBarriersInternal()
}

// commitBarriersInternal flushes the pending batch as a single
// vkCmdPipelineBarrier call with accumulated stage masks.
func (c *commandList) commitBarriersInternal() {
	if !c.tracker.AnyBarriers() {
		return
	}

	srcStages := vk.PipelineStageFlags(0)
	dstStages := vk.PipelineStageFlags(0)
	var imageBarriers []vk.ImageMemoryBarrier
	var bufferBarriers []vk.BufferMemoryBarrier

	for _, b := range c.tracker.TextureBarriers() {
		tex := b.Texture.(*texture)
		before := convertResourceState(b.StateBefore)
		after := convertResourceState(b.StateAfter)
		srcStages |= before.stageFlags
		dstStages |= after.stageFlags

		sub := vk.ImageSubresourceRange{
			AspectMask: aspectMaskForFormat(tex.desc.Format),
		}
		if b.EntireTexture {
			sub.LevelCount = tex.desc.MipLevels
			sub.LayerCount = tex.desc.ArraySize
		} else {
			sub.BaseMipLevel = b.MipLevel
			sub.LevelCount = 1
			sub.BaseArrayLayer = b.ArraySlice
			sub.LayerCount = 1
		}

		oldLayout := before.layout
		if b.UavOnly {
			oldLayout = after.layout
		}
		imageBarriers = append(imageBarriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       before.accessMask,
			DstAccessMask:       after.accessMask,
			OldLayout:           oldLayout,
			NewLayout:           after.layout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               tex.image,
			SubresourceRange:    sub,
		})
	}

	for _, b := range c.tracker.BufferBarriers() {
		buf := b.Buffer.(*buffer)
		before := convertResourceState(b.StateBefore)
		after := convertResourceState(b.StateAfter)
		srcStages |= before.stageFlags
		dstStages |= after.stageFlags

		bufferBarriers = append(bufferBarriers, vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       before.accessMask,
			DstAccessMask:       after.accessMask,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              buf.buf,
			Size:                vk.DeviceSize(buf.desc.ByteSize),
		})
	}

	vk.CmdPipelineBarrier(c.cb, srcStages, dstStages, 0,
		0, nil,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers)

	c.tracker.ClearBarriers()
}

func (c *commandList) WriteBuffer(b nvrhi.Buffer, data []byte, destOffset uint64) {
	buf := c.asBuffer(b)
	if buf == nil || len(data) == 0 {
		return
	}
	if len(data) > updateBufferLimit || destOffset%4 != 0 || len(data)%4 != 0 {
		c.device.messages.Report(nvrhi.SeverityError, fmt.Sprintf(
			"vulkan: WriteBuffer of %d bytes at offset %d does not fit vkCmdUpdateBuffer constraints",
			len(data), destOffset))
		return
	}
	c.requireBufferState(b, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()
	vk.CmdUpdateBuffer(c.cb, buf.buf, vk.DeviceSize(destOffset), vk.DeviceSize(len(data)), (*uint32)(unsafe.Pointer(&data[0])))
}

func (c *commandList) CopyBuffer(dest nvrhi.Buffer, destOffset uint64, src nvrhi.Buffer, srcOffset uint64, size uint64) {
	destBuf, srcBuf := c.asBuffer(dest), c.asBuffer(src)
	if destBuf == nil || srcBuf == nil {
		return
	}
	c.requireBufferState(src, nvrhi.ResourceStateCopySource)
	c.requireBufferState(dest, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()
	vk.CmdCopyBuffer(c.cb, srcBuf.buf, destBuf.buf, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(destOffset),
		Size:      vk.DeviceSize(size),
	}})
}

func (c *commandList) CopyTexture(dest nvrhi.Texture, destSlice nvrhi.TextureSlice, src nvrhi.Texture, srcSlice nvrhi.TextureSlice) {
	destTex, srcTex := c.asTexture(dest), c.asTexture(src)
	if destTex == nil || srcTex == nil {
		return
	}
	resolvedDest := destSlice.Resolve(&destTex.desc)
	resolvedSrc := srcSlice.Resolve(&srcTex.desc)

	c.requireTextureState(src, nvrhi.TextureSubresourceSet{
		BaseMipLevel: resolvedSrc.MipLevel, NumMipLevels: 1,
		BaseArraySlice: resolvedSrc.ArraySlice, NumArraySlices: 1,
	}, nvrhi.ResourceStateCopySource)
	c.requireTextureState(dest, nvrhi.TextureSubresourceSet{
		BaseMipLevel: resolvedDest.MipLevel, NumMipLevels: 1,
		BaseArraySlice: resolvedDest.ArraySlice, NumArraySlices: 1,
	}, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()

	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspectMaskForFormat(srcTex.desc.Format),
			MipLevel:       resolvedSrc.MipLevel,
			BaseArrayLayer: resolvedSrc.ArraySlice,
			LayerCount:     1,
		},
		SrcOffset: vk.Offset3D{X: int32(resolvedSrc.X), Y: int32(resolvedSrc.Y), Z: int32(resolvedSrc.Z)},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspectMaskForFormat(destTex.desc.Format),
			MipLevel:       resolvedDest.MipLevel,
			BaseArrayLayer: resolvedDest.ArraySlice,
			LayerCount:     1,
		},
		DstOffset: vk.Offset3D{X: int32(resolvedDest.X), Y: int32(resolvedDest.Y), Z: int32(resolvedDest.Z)},
		Extent: vk.Extent3D{
			Width:  resolvedSrc.Width,
			Height: resolvedSrc.Height,
			Depth:  resolvedSrc.Depth,
		},
	}
	vk.CmdCopyImage(c.cb,
		srcTex.image, vk.ImageLayoutTransferSrcOptimal,
		destTex.image, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{region})
}

func (c *commandList) ClearTextureFloat(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearColor nvrhi.Color) {
	tex := c.asTexture(t)
	if tex == nil {
		return
	}
	sub := subresources.Resolve(&tex.desc, false)
	c.requireTextureState(t, sub, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()

	var value vk.ClearColorValue
	for i, f := range [4]float32{clearColor.R, clearColor.G, clearColor.B, clearColor.A} {
		bits := math.Float32bits(f)
		value[i*4+0] = byte(bits)
		value[i*4+1] = byte(bits >> 8)
		value[i*4+2] = byte(bits >> 16)
		value[i*4+3] = byte(bits >> 24)
	}
	vk.CmdClearColorImage(c.cb, tex.image, vk.ImageLayoutTransferDstOptimal, &value, 1,
		[]vk.ImageSubresourceRange{{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   sub.BaseMipLevel,
			LevelCount:     sub.NumMipLevels,
			BaseArrayLayer: sub.BaseArraySlice,
			LayerCount:     sub.NumArraySlices,
		}})
}

func (c *commandList) ClearDepthStencilTexture(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearDepth bool, depth float32, clearStencil bool, stencil uint8) {
	tex := c.asTexture(t)
	if tex == nil || (!clearDepth && !clearStencil) {
		return
	}
	sub := subresources.Resolve(&tex.desc, false)
	c.requireTextureState(t, sub, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()

	var aspect vk.ImageAspectFlags
	if clearDepth {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if clearStencil {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	value := vk.ClearDepthStencilValue{Depth: depth, Stencil: uint32(stencil)}
	vk.CmdClearDepthStencilImage(c.cb, tex.image, vk.ImageLayoutTransferDstOptimal, &value, 1,
		[]vk.ImageSubresourceRange{{
			AspectMask:     aspect,
			BaseMipLevel:   sub.BaseMipLevel,
			LevelCount:     sub.NumMipLevels,
			BaseArrayLayer: sub.BaseArraySlice,
			LayerCount:     sub.NumArraySlices,
		}})
}

func (c *commandList) SetPushConstants(data []byte) {
	layout := c.graphicsLayout
	if layout == vk.NullPipelineLayout {
		layout = c.computeLayout
	}
	if layout == vk.NullPipelineLayout || len(data) == 0 {
		return
	}
	vk.CmdPushConstants(c.cb, layout, vk.ShaderStageFlags(vk.ShaderStageAll), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (c *commandList) SetGraphicsState(state nvrhi.GraphicsState) {
	pipeline, ok := state.Pipeline.(*graphicsPipeline)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "vulkan: foreign graphics pipeline")
		return
	}
	fb, ok := state.Framebuffer.(*framebuffer)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "vulkan: foreign framebuffer")
		return
	}

	if c.enableAutomaticBarriers {
		nvrhi.SetResourceStatesForFramebuffer(c, state.Framebuffer)
		for _, set := range state.Bindings {
			c.SetResourceStatesForBindingSet(set)
		}
		for _, vb := range state.VertexBuffers {
			if vb.Buffer != nil {
				c.requireBufferState(vb.Buffer, nvrhi.ResourceStateVertexBuffer)
			}
		}
		if state.IndexBuffer.Buffer != nil {
			c.requireBufferState(state.IndexBuffer.Buffer, nvrhi.ResourceStateIndexBuffer)
		}
		if state.IndirectParams != nil {
			c.requireBufferState(state.IndirectParams, nvrhi.ResourceStateIndirectArgument)
		}
	}

	// Barriers cannot be recorded inside a render pass instance.
	if c.currentFB != fb || c.tracker.AnyBarriers() {
		c.endRenderPass()
	}
	c.commitBarriersInternal()
	if !c.renderPassOpen {
		c.beginRenderPass(fb)
	}

	for i, set := range state.Bindings {
		vkSet, ok := set.(*bindingSet)
		if !ok {
			continue
		}
		offsets := volatileOffsets(set)
		vk.CmdBindDescriptorSets(c.cb, vk.PipelineBindPointGraphics, pipeline.layout,
			uint32(i), 1, []vk.DescriptorSet{vkSet.set}, uint32(len(offsets)), offsets)
	}

	if len(state.Viewport.Viewports) > 0 {
		viewports := make([]vk.Viewport, len(state.Viewport.Viewports))
		for i, v := range state.Viewport.Viewports {
			viewports[i] = vk.Viewport{
				X:        v.MinX,
				Y:        v.MinY,
				Width:    v.MaxX - v.MinX,
				Height:   v.MaxY - v.MinY,
				MinDepth: v.MinZ,
				MaxDepth: v.MaxZ,
			}
		}
		vk.CmdSetViewport(c.cb, 0, uint32(len(viewports)), viewports)
	}
	if len(state.Viewport.ScissorRects) > 0 {
		scissors := make([]vk.Rect2D, len(state.Viewport.ScissorRects))
		for i, r := range state.Viewport.ScissorRects {
			scissors[i] = vk.Rect2D{
				Offset: vk.Offset2D{X: int32(r.MinX), Y: int32(r.MinY)},
				Extent: vk.Extent2D{Width: uint32(r.MaxX - r.MinX), Height: uint32(r.MaxY - r.MinY)},
			}
		}
		vk.CmdSetScissor(c.cb, 0, uint32(len(scissors)), scissors)
	}

	for _, vb := range state.VertexBuffers {
		if vb.Buffer == nil {
			continue
		}
		if buf := c.asBuffer(vb.Buffer); buf != nil {
			vk.CmdBindVertexBuffers(c.cb, vb.Slot, 1, []vk.Buffer{buf.buf}, []vk.DeviceSize{vk.DeviceSize(vb.Offset)})
		}
	}
	if state.IndexBuffer.Buffer != nil {
		if buf := c.asBuffer(state.IndexBuffer.Buffer); buf != nil {
			indexType := vk.IndexTypeUint32
			if state.IndexBuffer.Format == nvrhi.FormatR16Uint {
				indexType = vk.IndexTypeUint16
			}
			vk.CmdBindIndexBuffer(c.cb, buf.buf, vk.DeviceSize(state.IndexBuffer.Offset), indexType)
		}
	}

	c.graphics = state
	c.compute = nvrhi.ComputeState{}
	c.graphicsLayout = pipeline.layout
	c.computeLayout = vk.NullPipelineLayout
}

// volatileOffsets returns one zero dynamic offset per volatile
// constant buffer in the set, as dynamic descriptors require.
func volatileOffsets(set nvrhi.BindingSet) []uint32 {
	desc := set.Desc()
	if desc == nil {
		return nil
	}
	var n int
	for _, b := range desc.Bindings {
		if b.Type == nvrhi.ResourceTypeVolatileConstantBuffer {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return make([]uint32, n)
}

func (c *commandList) Draw(args nvrhi.DrawArguments) {
	vk.CmdDraw(c.cb, args.VertexCount, args.InstanceCount, args.StartVertexLocation, args.StartInstanceLocation)
}

func (c *commandList) DrawIndexed(args nvrhi.DrawArguments) {
	vk.CmdDrawIndexed(c.cb, args.VertexCount, args.InstanceCount, args.StartIndexLocation,
		int32(args.StartVertexLocation), args.StartInstanceLocation)
}

const drawIndirectStride = 16 // sizeof(VkDrawIndirectCommand)

func (c *commandList) DrawIndirect(offsetBytes uint64, drawCount uint32) {
	if c.graphics.IndirectParams == nil {
		return
	}
	buf := c.asBuffer(c.graphics.IndirectParams)
	if buf == nil {
		return
	}
	vk.CmdDrawIndirect(c.cb, buf.buf, vk.DeviceSize(offsetBytes), drawCount, drawIndirectStride)
}

func (c *commandList) SetComputeState(state nvrhi.ComputeState) {
	pipeline, ok := state.Pipeline.(*computePipeline)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "vulkan: foreign compute pipeline")
		return
	}

	c.endRenderPass()
	if c.enableAutomaticBarriers {
		for _, set := range state.Bindings {
			c.SetResourceStatesForBindingSet(set)
		}
		if state.IndirectParams != nil {
			c.requireBufferState(state.IndirectParams, nvrhi.ResourceStateIndirectArgument)
		}
	}
	c.commitBarriersInternal()

	for i, set := range state.Bindings {
		vkSet, ok := set.(*bindingSet)
		if !ok {
			continue
		}
		offsets := volatileOffsets(set)
		vk.CmdBindDescriptorSets(c.cb, vk.PipelineBindPointCompute, pipeline.layout,
			uint32(i), 1, []vk.DescriptorSet{vkSet.set}, uint32(len(offsets)), offsets)
	}

	c.compute = state
	c.graphics = nvrhi.GraphicsState{}
	c.computeLayout = pipeline.layout
	c.graphicsLayout = vk.NullPipelineLayout
}

func (c *commandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	vk.CmdDispatch(c.cb, groupsX, groupsY, groupsZ)
}

func (c *commandList) DispatchIndirect(offsetBytes uint64) {
	if c.compute.IndirectParams == nil {
		return
	}
	buf := c.asBuffer(c.compute.IndirectParams)
	if buf == nil {
		return
	}
	vk.CmdDispatchIndirect(c.cb, buf.buf, vk.DeviceSize(offsetBytes))
}

// Markers record nesting only; wiring them to VK_EXT_debug_utils
// requires instance-level extension setup the caller owns.
func (c *commandList) BeginMarker(name string) { c.markerDepth++ }

func (c *commandList) EndMarker() {
	if c.markerDepth > 0 {
		c.markerDepth--
	}
}

func (c *commandList) SetEnableAutomaticBarriers(enable bool) {
	c.enableAutomaticBarriers = enable
}

func (c *commandList) SetResourceStatesForBindingSet(bindingSet nvrhi.BindingSet) {
	desc := bindingSet.Desc()
	if desc == nil {
		return
	}
	for _, b := range desc.Bindings {
		state := nvrhi.BindingRequiredState(b.Type)
		if state == nvrhi.ResourceStateUnknown {
			continue
		}
		// Explicit calls work even with automatic barriers off.
		switch r := b.Resource.(type) {
		case *texture:
			c.tracker.RequireTextureState(r, b.Subresources, state)
		case nvrhi.AccelStruct:
			if buf := c.asBuffer(r.DataBuffer()); buf != nil {
				c.tracker.RequireBufferState(buf, state)
			}
		case *buffer:
			c.tracker.RequireBufferState(r, state)
		}
	}
}

func (c *commandList) SetEnableUavBarriersForTexture(t nvrhi.Texture, enable bool) {
	if tex := c.asTexture(t); tex != nil {
		c.tracker.SetEnableUavBarriersForTexture(tex, enable)
	}
}

func (c *commandList) SetEnableUavBarriersForBuffer(b nvrhi.Buffer, enable bool) {
	if buf := c.asBuffer(b); buf != nil {
		c.tracker.SetEnableUavBarriersForBuffer(buf, enable)
	}
}

func (c *commandList) BeginTrackingTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	if tex := c.asTexture(t); tex != nil {
		c.tracker.BeginTrackingTextureState(tex, subresources, state)
	}
}

func (c *commandList) BeginTrackingBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if buf := c.asBuffer(b); buf != nil {
		c.tracker.BeginTrackingBufferState(buf, state)
	}
}

func (c *commandList) SetTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	if tex := c.asTexture(t); tex != nil {
		c.tracker.RequireTextureState(tex, subresources, state)
	}
}

func (c *commandList) SetBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if buf := c.asBuffer(b); buf != nil {
		c.tracker.RequireBufferState(buf, state)
	}
}

func (c *commandList) SetAccelStructState(as nvrhi.AccelStruct, state nvrhi.ResourceStates) {
	c.SetBufferState(as.DataBuffer(), state)
}

func (c *commandList) SetPermanentTextureState(t nvrhi.Texture, state nvrhi.ResourceStates) {
	if tex := c.asTexture(t); tex != nil {
		c.tracker.SetPermanentTextureState(tex, nvrhi.AllSubresources, state)
	}
}

func (c *commandList) SetPermanentBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {
	if buf := c.asBuffer(b); buf != nil {
		c.tracker.SetPermanentBufferState(buf, state)
	}
}

func (c *commandList) GetTextureSubresourceState(t nvrhi.Texture, arraySlice nvrhi.ArraySlice, mipLevel nvrhi.MipLevel) nvrhi.ResourceStates {
	tex := c.asTexture(t)
	if tex == nil {
		return nvrhi.ResourceStateUnknown
	}
	return c.tracker.GetTextureSubresourceState(tex, arraySlice, mipLevel)
}

func (c *commandList) GetBufferState(b nvrhi.Buffer) nvrhi.ResourceStates {
	buf := c.asBuffer(b)
	if buf == nil {
		return nvrhi.ResourceStateUnknown
	}
	return c.tracker.GetBufferState(buf)
}
