// Copyright 2024 The nvrhi Authors. All rights reserved.

//go:build windows

package d3d12

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

const (
	drawIndirectStride     = 16 // four uint32 draw arguments
	dispatchIndirectStride = 12

	uploadChunkSize = 1 << 16
)

// uploadChunk is a persistently mapped upload-heap buffer feeding
// WriteBuffer copies. Offsets reset when the list reopens, so a chunk
// must not be reused before the previous submission completes.
type uploadChunk struct {
	res    *d3dResource
	mapped uintptr
	size   uint64
	used   uint64
}

func (u *uploadChunk) destroy() {
	if u.res != nil {
		u.res.unmap()
		releaseIUnknown(uintptr(unsafe.Pointer(u.res)))
		u.res = nil
	}
}

// commandList implements nvrhi.CommandList on an
// ID3D12GraphicsCommandList. Barriers are tracked by a
// tracking.StateTracker and committed as one ResourceBarrier call per
// batch.
type commandList struct {
	device *Device
	params nvrhi.CommandListParameters

	alloc *d3dCommandAllocator
	list  *d3dGraphicsCommandList

	tracker                 *tracking.StateTracker
	enableAutomaticBarriers bool

	graphics     nvrhi.GraphicsState
	compute      nvrhi.ComputeState
	graphicsPipe *graphicsPipeline
	computePipe  *computePipeline
	markerDepth  int

	uploadChunks   []*uploadChunk
	submittedValue uint64
}

func (d *Device) CreateCommandList(params nvrhi.CommandListParameters) (nvrhi.CommandList, error) {
	_, listType := d.queue(params.QueueType)
	alloc, err := d.raw.createCommandAllocator(listType)
	if err != nil {
		return nil, err
	}
	list, err := d.raw.createCommandList(listType, alloc)
	if err != nil {
		alloc.release()
		return nil, err
	}
	// Lists are created recording; close so Open can reset uniformly.
	if err := list.close(); err != nil {
		list.release()
		alloc.release()
		return nil, err
	}
	return &commandList{
		device:                  d,
		params:                  params,
		alloc:                   alloc,
		list:                    list,
		tracker:                 tracking.NewStateTracker(d.messages),
		enableAutomaticBarriers: true,
	}, nil
}

func (c *commandList) Destroy() {
	for _, chunk := range c.uploadChunks {
		chunk.destroy()
	}
	c.uploadChunks = nil
	if c.list != nil {
		c.list.release()
		c.list = nil
	}
	if c.alloc != nil {
		c.alloc.release()
		c.alloc = nil
	}
}

func (c *commandList) Device() nvrhi.Device              { return c.device }
func (c *commandList) Desc() nvrhi.CommandListParameters { return c.params }

func (c *commandList) Open() {
	if err := c.alloc.reset(); err != nil {
		c.device.messages.Report(nvrhi.SeverityError, err.Error())
	}
	if err := c.list.reset(c.alloc); err != nil {
		c.device.messages.Report(nvrhi.SeverityError, err.Error())
	}
	for _, chunk := range c.uploadChunks {
		chunk.used = 0
	}
	c.tracker.BeginRecording()
	c.clearCachedState()
}

func (c *commandList) Close() {
	c.tracker.KeepInitialStates()
	c.commitBarriersInternal()
	if err := c.list.close(); err != nil {
		c.device.messages.Report(nvrhi.SeverityError, err.Error())
	}
	c.clearCachedState()
}

func (c *commandList) clearCachedState() {
	c.graphics = nvrhi.GraphicsState{}
	c.compute = nvrhi.ComputeState{}
	c.graphicsPipe = nil
	c.computePipe = nil
}

func (c *commandList) ClearState() {
	c.tracker.ClearBarriers()
	c.clearCachedState()
}

func (c *commandList) asTexture(t nvrhi.Texture) *texture {
	tex, ok := t.(*texture)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: texture was not created by this device")
		return nil
	}
	return tex
}

func (c *commandList) asBuffer(b nvrhi.Buffer) *buffer {
	buf, ok := b.(*buffer)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: buffer was not created by this device")
		return nil
	}
	return buf
}

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

func (c *commandList) CommitBarriers() {
	c.commitBarriersInternal()
}

func (c *commandList) commitBarriersInternal() {
	if !c.tracker.AnyBarriers() {
		return
	}
	barriers := buildBarriers(c.tracker.TextureBarriers(), c.tracker.BufferBarriers())
	if len(barriers) > 0 {
		c.list.resourceBarrier(barriers)
	}
	c.tracker.ClearBarriers()
}

// allocUpload reserves size bytes of mapped upload memory.
func (c *commandList) allocUpload(size uint64) (*uploadChunk, uint64, error) {
	const alignment = 512
	for _, chunk := range c.uploadChunks {
		offset := (chunk.used + alignment - 1) &^ (alignment - 1)
		if offset+size <= chunk.size {
			chunk.used = offset + size
			return chunk, offset, nil
		}
	}

	chunkSize := uint64(uploadChunkSize)
	if size > chunkSize {
		chunkSize = size
	}
	res, err := c.device.raw.createCommittedResource(
		&heapProperties{Type: heapTypeUpload},
		&nativeResourceDesc{
			Dimension:        resourceDimensionBuffer,
			Width:            chunkSize,
			Height:           1,
			DepthOrArraySize: 1,
			MipLevels:        1,
			SampleCount:      1,
			Layout:           textureLayoutRowMajor,
		},
		d3dStateGenericRead,
	)
	if err != nil {
		return nil, 0, err
	}
	mapped, err := res.mapWhole()
	if err != nil {
		releaseIUnknown(uintptr(unsafe.Pointer(res)))
		return nil, 0, err
	}
	chunk := &uploadChunk{res: res, mapped: mapped, size: chunkSize, used: size}
	c.uploadChunks = append(c.uploadChunks, chunk)
	return chunk, 0, nil
}

func (c *commandList) WriteBuffer(b nvrhi.Buffer, data []byte, destOffset uint64) {
	buf := c.asBuffer(b)
	if buf == nil || len(data) == 0 {
		return
	}
	if destOffset+uint64(len(data)) > buf.desc.ByteSize {
		c.device.messages.Report(nvrhi.SeverityError, fmt.Sprintf(
			"d3d12: WriteBuffer of %d bytes at offset %d exceeds buffer size %d",
			len(data), destOffset, buf.desc.ByteSize))
		return
	}

	// Host-writable buffers live in the upload heap and are written
	// in place; upload-heap resources cannot be barrier targets.
	if buf.desc.IsVolatile || buf.desc.CPUAccess == nvrhi.CPUAccessWrite {
		res := (*d3dResource)(unsafe.Pointer(buf.resource))
		mapped, err := res.mapWhole()
		if err != nil {
			c.device.messages.Report(nvrhi.SeverityError, err.Error())
			return
		}
		dst := unsafe.Slice((*byte)(unsafe.Pointer(mapped+uintptr(destOffset))), len(data))
		copy(dst, data)
		res.unmap()
		return
	}

	chunk, offset, err := c.allocUpload(uint64(len(data)))
	if err != nil {
		c.device.messages.Report(nvrhi.SeverityError, err.Error())
		return
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(chunk.mapped+uintptr(offset))), len(data))
	copy(dst, data)

	c.requireBufferState(b, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()
	c.list.copyBufferRegion((*d3dResource)(unsafe.Pointer(buf.resource)), destOffset, chunk.res, offset, uint64(len(data)))
}

func (c *commandList) CopyBuffer(dest nvrhi.Buffer, destOffset uint64, src nvrhi.Buffer, srcOffset uint64, size uint64) {
	destBuf, srcBuf := c.asBuffer(dest), c.asBuffer(src)
	if destBuf == nil || srcBuf == nil {
		return
	}
	c.requireBufferState(src, nvrhi.ResourceStateCopySource)
	c.requireBufferState(dest, nvrhi.ResourceStateCopyDest)
	c.CommitBarriers()
	c.list.copyBufferRegion(
		(*d3dResource)(unsafe.Pointer(destBuf.resource)), destOffset,
		(*d3dResource)(unsafe.Pointer(srcBuf.resource)), srcOffset, size)
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

	dstLoc := textureCopyLocation{
		Resource: destTex.resource,
		Type:     textureCopySubresourceIndex,
	}
	dstLoc.U[0] = uint64(calcSubresource(resolvedDest.MipLevel, resolvedDest.ArraySlice, 0,
		destTex.desc.MipLevels, destTex.desc.ArraySize))
	srcLoc := textureCopyLocation{
		Resource: srcTex.resource,
		Type:     textureCopySubresourceIndex,
	}
	srcLoc.U[0] = uint64(calcSubresource(resolvedSrc.MipLevel, resolvedSrc.ArraySlice, 0,
		srcTex.desc.MipLevels, srcTex.desc.ArraySize))

	srcBox := box{
		Left:   resolvedSrc.X,
		Top:    resolvedSrc.Y,
		Front:  resolvedSrc.Z,
		Right:  resolvedSrc.X + resolvedSrc.Width,
		Bottom: resolvedSrc.Y + resolvedSrc.Height,
		Back:   resolvedSrc.Z + resolvedSrc.Depth,
	}
	c.list.copyTextureRegion(&dstLoc, resolvedDest.X, resolvedDest.Y, resolvedDest.Z, &srcLoc, &srcBox)
}

func (c *commandList) ClearTextureFloat(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearColor nvrhi.Color) {
	tex := c.asTexture(t)
	if tex == nil {
		return
	}
	if tex.rtv == 0 {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: ClearTextureFloat needs a render target texture")
		return
	}
	sub := subresources.Resolve(&tex.desc, false)
	c.requireTextureState(t, sub, nvrhi.ResourceStateRenderTarget)
	c.CommitBarriers()

	color := [4]float32{clearColor.R, clearColor.G, clearColor.B, clearColor.A}
	c.list.clearRenderTargetView(cpuDescriptorHandle{Ptr: uintptr(tex.rtv)}, &color)
}

func (c *commandList) ClearDepthStencilTexture(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearDepth bool, depth float32, clearStencil bool, stencil uint8) {
	tex := c.asTexture(t)
	if tex == nil || (!clearDepth && !clearStencil) {
		return
	}
	if tex.dsv == 0 {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: ClearDepthStencilTexture needs a depth target texture")
		return
	}
	sub := subresources.Resolve(&tex.desc, false)
	c.requireTextureState(t, sub, nvrhi.ResourceStateDepthWrite)
	c.CommitBarriers()

	var flags uint32
	if clearDepth {
		flags |= clearFlagDepth
	}
	if clearStencil {
		flags |= clearFlagStencil
	}
	c.list.clearDepthStencilView(cpuDescriptorHandle{Ptr: uintptr(tex.dsv)}, flags, math.Float32bits(depth), stencil)
}

func (c *commandList) SetPushConstants(data []byte) {
	if len(data) == 0 {
		return
	}
	switch {
	case c.graphicsPipe != nil && c.graphicsPipe.pushConstSize > 0:
		c.list.setGraphicsRoot32BitConstants(c.graphicsPipe.pushConstParam, data)
	case c.computePipe != nil && c.computePipe.pushConstSize > 0:
		c.list.setComputeRoot32BitConstants(c.computePipe.pushConstParam, data)
	}
}

func (c *commandList) SetGraphicsState(state nvrhi.GraphicsState) {
	pipeline, ok := state.Pipeline.(*graphicsPipeline)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: foreign graphics pipeline")
		return
	}
	fb, ok := state.Framebuffer.(*framebuffer)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: foreign framebuffer")
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
	c.commitBarriersInternal()

	c.list.setGraphicsRootSignature(pipeline.rootSignature)
	c.list.setDescriptorHeaps([]*d3dDescriptorHeap{c.device.viewHeap.heap})
	c.bindDescriptorTables(state.Bindings, pipeline.tableParams, false)

	rtvs := make([]cpuDescriptorHandle, len(fb.rtvs))
	for i, h := range fb.rtvs {
		rtvs[i] = cpuDescriptorHandle{Ptr: uintptr(h)}
	}
	var dsv *cpuDescriptorHandle
	if fb.dsv != 0 {
		dsv = &cpuDescriptorHandle{Ptr: uintptr(fb.dsv)}
	}
	c.list.setRenderTargets(rtvs, dsv)
	c.list.setPrimitiveTopology(topologyTriangleList)

	if len(state.Viewport.Viewports) > 0 {
		viewports := make([]nativeViewport, len(state.Viewport.Viewports))
		for i, v := range state.Viewport.Viewports {
			viewports[i] = nativeViewport{
				TopLeftX: v.MinX,
				TopLeftY: v.MinY,
				Width:    v.MaxX - v.MinX,
				Height:   v.MaxY - v.MinY,
				MinDepth: v.MinZ,
				MaxDepth: v.MaxZ,
			}
		}
		c.list.setViewports(viewports)
	}
	if len(state.Viewport.ScissorRects) > 0 {
		rects := make([]nativeRect, len(state.Viewport.ScissorRects))
		for i, r := range state.Viewport.ScissorRects {
			rects[i] = nativeRect{
				Left:   int32(r.MinX),
				Top:    int32(r.MinY),
				Right:  int32(r.MaxX),
				Bottom: int32(r.MaxY),
			}
		}
		c.list.setScissorRects(rects)
	}

	for _, vb := range state.VertexBuffers {
		if vb.Buffer == nil {
			continue
		}
		if buf := c.asBuffer(vb.Buffer); buf != nil {
			c.list.setVertexBuffers(vb.Slot, []vertexBufferView{{
				BufferLocation: buf.gpuVA + vb.Offset,
				SizeInBytes:    uint32(buf.desc.ByteSize - vb.Offset),
				StrideInBytes:  buf.desc.StructStride,
			}})
		}
	}
	if state.IndexBuffer.Buffer != nil {
		if buf := c.asBuffer(state.IndexBuffer.Buffer); buf != nil {
			format := dxgiFormatR32Uint
			if state.IndexBuffer.Format == nvrhi.FormatR16Uint {
				format = dxgiFormatR16Uint
			}
			c.list.setIndexBuffer(&indexBufferView{
				BufferLocation: buf.gpuVA + uint64(state.IndexBuffer.Offset),
				SizeInBytes:    uint32(buf.desc.ByteSize - uint64(state.IndexBuffer.Offset)),
				Format:         format,
			})
		}
	}

	c.graphics = state
	c.compute = nvrhi.ComputeState{}
	c.graphicsPipe = pipeline
	c.computePipe = nil
}

func (c *commandList) bindDescriptorTables(sets []nvrhi.BindingSet, tableParams []int32, compute bool) {
	for i, set := range sets {
		if i >= len(tableParams) || tableParams[i] < 0 {
			continue
		}
		native, ok := set.(*bindingSet)
		if !ok || native.tableSize == 0 {
			continue
		}
		if compute {
			c.list.setComputeRootDescriptorTable(uint32(tableParams[i]), native.tableHandle)
		} else {
			c.list.setGraphicsRootDescriptorTable(uint32(tableParams[i]), native.tableHandle)
		}
	}
}

func (c *commandList) Draw(args nvrhi.DrawArguments) {
	c.list.drawInstanced(args.VertexCount, args.InstanceCount, args.StartVertexLocation, args.StartInstanceLocation)
}

func (c *commandList) DrawIndexed(args nvrhi.DrawArguments) {
	c.list.drawIndexedInstanced(args.VertexCount, args.InstanceCount, args.StartIndexLocation,
		int32(args.StartVertexLocation), args.StartInstanceLocation)
}

func (c *commandList) DrawIndirect(offsetBytes uint64, drawCount uint32) {
	if c.graphics.IndirectParams == nil {
		return
	}
	buf := c.asBuffer(c.graphics.IndirectParams)
	if buf == nil {
		return
	}
	c.list.executeIndirect(c.device.drawSignature, drawCount,
		(*d3dResource)(unsafe.Pointer(buf.resource)), offsetBytes)
}

func (c *commandList) SetComputeState(state nvrhi.ComputeState) {
	pipeline, ok := state.Pipeline.(*computePipeline)
	if !ok {
		c.device.messages.Report(nvrhi.SeverityError, "d3d12: foreign compute pipeline")
		return
	}

	if c.enableAutomaticBarriers {
		for _, set := range state.Bindings {
			c.SetResourceStatesForBindingSet(set)
		}
		if state.IndirectParams != nil {
			c.requireBufferState(state.IndirectParams, nvrhi.ResourceStateIndirectArgument)
		}
	}
	c.commitBarriersInternal()

	c.list.setComputeRootSignature(pipeline.rootSignature)
	c.list.setDescriptorHeaps([]*d3dDescriptorHeap{c.device.viewHeap.heap})
	c.bindDescriptorTables(state.Bindings, pipeline.tableParams, true)

	c.compute = state
	c.graphics = nvrhi.GraphicsState{}
	c.computePipe = pipeline
	c.graphicsPipe = nil
}

func (c *commandList) Dispatch(groupsX, groupsY, groupsZ uint32) {
	c.list.dispatch(groupsX, groupsY, groupsZ)
}

func (c *commandList) DispatchIndirect(offsetBytes uint64) {
	if c.compute.IndirectParams == nil {
		return
	}
	buf := c.asBuffer(c.compute.IndirectParams)
	if buf == nil {
		return
	}
	c.list.executeIndirect(c.device.dispatchSignature, 1,
		(*d3dResource)(unsafe.Pointer(buf.resource)), offsetBytes)
}

// Markers record nesting only; wiring them to PIX requires the
// WinPixEventRuntime the caller owns.
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
