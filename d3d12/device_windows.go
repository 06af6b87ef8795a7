// Copyright 2024 The nvrhi Authors. All rights reserved.

//go:build windows

package d3d12

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

// DeviceDesc wraps the native handles the backend operates on. The
// caller owns device and queue creation; queues left zero fall back
// to the graphics queue.
type DeviceDesc struct {
	Device uintptr // ID3D12Device

	GraphicsQueue uintptr // ID3D12CommandQueue
	ComputeQueue  uintptr
	CopyQueue     uintptr

	MessageCallback nvrhi.MessageCallback
}

// descriptorHeapArena is a bump allocator over one descriptor heap.
// Descriptors are never recycled; heaps are sized for the lifetime
// of the device.
type descriptorHeapArena struct {
	heap      *d3dDescriptorHeap
	cpuBase   uintptr
	gpuBase   uint64
	increment uint32
	capacity  uint32

	mu   sync.Mutex
	next uint32
}

func newDescriptorHeapArena(dev *d3dDevice, heapType, capacity, flags uint32) (*descriptorHeapArena, error) {
	heap, err := dev.createDescriptorHeap(&descriptorHeapDesc{
		Type:           heapType,
		NumDescriptors: capacity,
		Flags:          flags,
	})
	if err != nil {
		return nil, err
	}
	a := &descriptorHeapArena{
		heap:      heap,
		cpuBase:   heap.cpuStart().Ptr,
		increment: dev.descriptorHandleIncrementSize(heapType),
		capacity:  capacity,
	}
	if flags&descriptorHeapFlagShaderVisible != 0 {
		a.gpuBase = heap.gpuStart()
	}
	return a, nil
}

// allocate reserves count contiguous descriptors and returns the
// first index.
func (a *descriptorHeapArena) allocate(count uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next+count > a.capacity {
		return 0, fmt.Errorf("d3d12: descriptor heap exhausted (%d of %d in use): %w",
			a.next, a.capacity, nvrhi.ErrNoDeviceMemory)
	}
	index := a.next
	a.next += count
	return index, nil
}

func (a *descriptorHeapArena) cpuHandle(index uint32) cpuDescriptorHandle {
	return cpuDescriptorHandle{Ptr: a.cpuBase + uintptr(index)*uintptr(a.increment)}
}

func (a *descriptorHeapArena) gpuHandle(index uint32) uint64 {
	return a.gpuBase + uint64(index)*uint64(a.increment)
}

func (a *descriptorHeapArena) release() {
	if a.heap != nil {
		a.heap.release()
		a.heap = nil
	}
}

// Device implements nvrhi.Device on Direct3D 12.
type Device struct {
	desc     DeviceDesc
	messages nvrhi.MessageCallback

	raw    *d3dDevice
	queues [3]*d3dCommandQueue

	rtvHeap  *descriptorHeapArena
	dsvHeap  *descriptorHeapArena
	viewHeap *descriptorHeapArena // shader visible CBV/SRV/UAV

	drawSignature     uintptr
	dispatchSignature uintptr

	// Fence state guarded by submitMu; ID3D12CommandQueue is
	// thread-safe but the value sequence is not.
	submitMu   sync.Mutex
	fence      *d3dFence
	fenceValue uint64
	fenceEvent windows.Handle
}

const (
	rtvHeapSize  = 1024
	dsvHeapSize  = 256
	viewHeapSize = 16384
)

// NewDevice wraps existing native handles. The handles must outlive
// the returned device.
func NewDevice(desc DeviceDesc) (*Device, error) {
	if desc.Device == 0 || desc.GraphicsQueue == 0 {
		return nil, fmt.Errorf("d3d12: device and graphics queue handles are required: %w", nvrhi.ErrInvalidArgument)
	}
	if desc.ComputeQueue == 0 {
		desc.ComputeQueue = desc.GraphicsQueue
	}
	if desc.CopyQueue == 0 {
		desc.CopyQueue = desc.GraphicsQueue
	}
	messages := desc.MessageCallback
	if messages == nil {
		messages = nvrhi.DefaultMessageCallback()
	}

	d := &Device{
		desc:     desc,
		messages: messages,
		raw:      (*d3dDevice)(unsafe.Pointer(desc.Device)),
	}
	d.queues[nvrhi.QueueGraphics] = (*d3dCommandQueue)(unsafe.Pointer(desc.GraphicsQueue))
	d.queues[nvrhi.QueueCompute] = (*d3dCommandQueue)(unsafe.Pointer(desc.ComputeQueue))
	d.queues[nvrhi.QueueCopy] = (*d3dCommandQueue)(unsafe.Pointer(desc.CopyQueue))

	var err error
	if d.rtvHeap, err = newDescriptorHeapArena(d.raw, descriptorHeapTypeRTV, rtvHeapSize, 0); err != nil {
		return nil, err
	}
	if d.dsvHeap, err = newDescriptorHeapArena(d.raw, descriptorHeapTypeDSV, dsvHeapSize, 0); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.viewHeap, err = newDescriptorHeapArena(d.raw, descriptorHeapTypeViews, viewHeapSize, descriptorHeapFlagShaderVisible); err != nil {
		d.Destroy()
		return nil, err
	}

	if d.fence, err = d.raw.createFence(); err != nil {
		d.Destroy()
		return nil, err
	}
	if d.fenceEvent, err = windows.CreateEvent(nil, 0, 0, nil); err != nil {
		d.Destroy()
		return nil, fmt.Errorf("d3d12: CreateEvent failed: %w", err)
	}

	drawArg := indirectArgumentDesc{Type: indirectArgumentDraw}
	if d.drawSignature, err = d.raw.createCommandSignature(&commandSignatureDesc{
		ByteStride:       drawIndirectStride,
		NumArgumentDescs: 1,
		PArgumentDescs:   &drawArg,
	}); err != nil {
		d.Destroy()
		return nil, err
	}
	dispatchArg := indirectArgumentDesc{Type: indirectArgumentDispatch}
	if d.dispatchSignature, err = d.raw.createCommandSignature(&commandSignatureDesc{
		ByteStride:       dispatchIndirectStride,
		NumArgumentDescs: 1,
		PArgumentDescs:   &dispatchArg,
	}); err != nil {
		d.Destroy()
		return nil, err
	}

	return d, nil
}

func (d *Device) Destroy() {
	releaseIUnknown(d.drawSignature)
	releaseIUnknown(d.dispatchSignature)
	d.drawSignature, d.dispatchSignature = 0, 0
	if d.fence != nil {
		d.fence.release()
		d.fence = nil
	}
	if d.fenceEvent != 0 {
		windows.CloseHandle(d.fenceEvent)
		d.fenceEvent = 0
	}
	for _, heap := range []*descriptorHeapArena{d.rtvHeap, d.dsvHeap, d.viewHeap} {
		if heap != nil {
			heap.release()
		}
	}
	d.rtvHeap, d.dsvHeap, d.viewHeap = nil, nil, nil
}

func (d *Device) GraphicsAPI() nvrhi.GraphicsAPI { return nvrhi.APID3D12 }

func (d *Device) MessageCallback() nvrhi.MessageCallback { return d.messages }

func (d *Device) queue(q nvrhi.CommandQueue) (*d3dCommandQueue, uint32) {
	switch q {
	case nvrhi.QueueCompute:
		return d.queues[nvrhi.QueueCompute], commandListTypeCompute
	case nvrhi.QueueCopy:
		return d.queues[nvrhi.QueueCopy], commandListTypeCopy
	}
	return d.queues[nvrhi.QueueGraphics], commandListTypeDirect
}

var dxgiFormatTable = map[nvrhi.Format]uint32{
	nvrhi.FormatR8Uint:           62,
	nvrhi.FormatR8Sint:           64,
	nvrhi.FormatR8Unorm:          61,
	nvrhi.FormatR8Snorm:          63,
	nvrhi.FormatRG8Uint:          50,
	nvrhi.FormatRG8Unorm:         49,
	nvrhi.FormatR16Uint:          57,
	nvrhi.FormatR16Sint:          59,
	nvrhi.FormatR16Unorm:         56,
	nvrhi.FormatR16Float:         54,
	nvrhi.FormatRGBA8Uint:        30,
	nvrhi.FormatRGBA8Unorm:       28,
	nvrhi.FormatRGBA8Snorm:       31,
	nvrhi.FormatBGRA8Unorm:       87,
	nvrhi.FormatSRGBA8Unorm:      29,
	nvrhi.FormatSBGRA8Unorm:      91,
	nvrhi.FormatR10G10B10A2Unorm: 24,
	nvrhi.FormatR11G11B10Float:   26,
	nvrhi.FormatRG16Uint:         36,
	nvrhi.FormatRG16Float:        34,
	nvrhi.FormatR32Uint:          42,
	nvrhi.FormatR32Sint:          43,
	nvrhi.FormatR32Float:         41,
	nvrhi.FormatRGBA16Uint:       12,
	nvrhi.FormatRGBA16Float:      10,
	nvrhi.FormatRGBA16Unorm:      11,
	nvrhi.FormatRG32Uint:         17,
	nvrhi.FormatRG32Float:        16,
	nvrhi.FormatRGB32Uint:        7,
	nvrhi.FormatRGB32Float:       6,
	nvrhi.FormatRGBA32Uint:       3,
	nvrhi.FormatRGBA32Float:      2,
	nvrhi.FormatD16:              55,
	nvrhi.FormatD24S8:            45,
	nvrhi.FormatX24G8Uint:        47,
	nvrhi.FormatD32:              40,
	nvrhi.FormatD32S8:            20,
	nvrhi.FormatX32G8Uint:        22,
	nvrhi.FormatBC1Unorm:         71,
	nvrhi.FormatBC1UnormSRGB:     72,
	nvrhi.FormatBC2Unorm:         74,
	nvrhi.FormatBC3Unorm:         77,
	nvrhi.FormatBC4Unorm:         80,
	nvrhi.FormatBC5Unorm:         83,
	nvrhi.FormatBC6HUFloat:       95,
	nvrhi.FormatBC7Unorm:         98,
}

// dxgiFormat maps a format to its DXGI_FORMAT value, 0 (UNKNOWN) when
// unmapped.
func dxgiFormat(f nvrhi.Format) uint32 {
	return dxgiFormatTable[f]
}

func (d *Device) CreateTexture(desc nvrhi.TextureDesc) (nvrhi.Texture, error) {
	format := dxgiFormat(desc.Format)
	if format == 0 {
		return nil, fmt.Errorf("d3d12: format %v has no DXGI equivalent: %w", desc.Format, nvrhi.ErrInvalidArgument)
	}

	native := nativeResourceDesc{
		Dimension:        resourceDimensionTexture2D,
		Width:            uint64(desc.Width),
		Height:           desc.Height,
		DepthOrArraySize: uint16(desc.ArraySize),
		MipLevels:        uint16(desc.MipLevels),
		Format:           format,
		SampleCount:      desc.SampleCount,
		Layout:           textureLayoutUnknown,
	}
	switch desc.Dimension {
	case nvrhi.Texture1D, nvrhi.Texture1DArray:
		native.Dimension = resourceDimensionTexture1D
	case nvrhi.Texture3D:
		native.Dimension = resourceDimensionTexture3D
		native.DepthOrArraySize = uint16(desc.Depth)
	}

	info := nvrhi.GetFormatInfo(desc.Format)
	if desc.IsRenderTarget {
		if info.HasDepth || info.HasStencil {
			native.Flags |= resourceFlagAllowDepthStencil
		} else {
			native.Flags |= resourceFlagAllowRenderTarget
		}
	}
	if desc.IsUAV {
		native.Flags |= resourceFlagAllowUnorderedAccess
	}

	heap := heapProperties{Type: heapTypeDefault}
	res, err := d.raw.createCommittedResource(&heap, &native, convertResourceStates(desc.InitialState))
	if err != nil {
		return nil, err
	}

	t := &texture{
		desc:     desc,
		record:   tracking.NewTextureState(initialTrackingState(desc.InitialState, desc.KeepInitialState)),
		resource: uintptr(unsafe.Pointer(res)),
	}

	if desc.IsRenderTarget {
		if info.HasDepth || info.HasStencil {
			index, err := d.dsvHeap.allocate(1)
			if err != nil {
				t.Destroy()
				return nil, err
			}
			handle := d.dsvHeap.cpuHandle(index)
			d.raw.createDepthStencilView(res, handle)
			t.dsv = uint64(handle.Ptr)
		} else {
			index, err := d.rtvHeap.allocate(1)
			if err != nil {
				t.Destroy()
				return nil, err
			}
			handle := d.rtvHeap.cpuHandle(index)
			d.raw.createRenderTargetView(res, handle)
			t.rtv = uint64(handle.Ptr)
		}
	}
	return t, nil
}

func (d *Device) CreateBuffer(desc nvrhi.BufferDesc) (nvrhi.Buffer, error) {
	heap := heapProperties{Type: heapTypeDefault}
	initialState := convertResourceStates(desc.InitialState)
	switch {
	case desc.CPUAccess == nvrhi.CPUAccessWrite || desc.IsVolatile:
		heap.Type = heapTypeUpload
		initialState = d3dStateGenericRead
	case desc.CPUAccess == nvrhi.CPUAccessRead:
		heap.Type = heapTypeReadback
		initialState = d3dStateCopyDest
	}

	native := nativeResourceDesc{
		Dimension:        resourceDimensionBuffer,
		Width:            desc.ByteSize,
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		SampleCount:      1,
		Layout:           textureLayoutRowMajor,
	}
	if desc.CanHaveUAVs && heap.Type == heapTypeDefault {
		native.Flags |= resourceFlagAllowUnorderedAccess
	}

	res, err := d.raw.createCommittedResource(&heap, &native, initialState)
	if err != nil {
		return nil, err
	}
	return &buffer{
		desc:     desc,
		record:   tracking.NewBufferState(initialTrackingState(desc.InitialState, desc.KeepInitialState)),
		resource: uintptr(unsafe.Pointer(res)),
		gpuVA:    res.gpuVirtualAddress(),
	}, nil
}

func (d *Device) CreateFramebuffer(desc nvrhi.FramebufferDesc) (nvrhi.Framebuffer, error) {
	fb := &framebuffer{desc: desc, width: ^uint32(0), height: ^uint32(0)}

	takeExtent := func(t *texture) {
		fb.width = min(fb.width, t.desc.Width)
		fb.height = min(fb.height, t.desc.Height)
	}

	for _, a := range desc.ColorAttachments {
		if !a.Valid() {
			continue
		}
		t, ok := a.Texture.(*texture)
		if !ok || t.rtv == 0 {
			return nil, fmt.Errorf("d3d12: color attachment has no render target view: %w", nvrhi.ErrInvalidArgument)
		}
		fb.rtvs = append(fb.rtvs, t.rtv)
		takeExtent(t)
	}
	if desc.DepthAttachment.Valid() {
		t, ok := desc.DepthAttachment.Texture.(*texture)
		if !ok || t.dsv == 0 {
			return nil, fmt.Errorf("d3d12: depth attachment has no depth stencil view: %w", nvrhi.ErrInvalidArgument)
		}
		fb.dsv = t.dsv
		takeExtent(t)
	}
	if len(fb.rtvs) == 0 && fb.dsv == 0 {
		return nil, fmt.Errorf("d3d12: framebuffer needs at least one attachment: %w", nvrhi.ErrInvalidArgument)
	}
	return fb, nil
}

func (d *Device) CreateBindingLayout(desc nvrhi.BindingLayoutDesc) (nvrhi.BindingLayout, error) {
	return &bindingLayout{desc: desc}, nil
}

func (d *Device) CreateBindingSet(desc nvrhi.BindingSetDesc, layout nvrhi.BindingLayout) (nvrhi.BindingSet, error) {
	set := &bindingSet{desc: desc, layout: layout}

	var count uint32
	for _, b := range desc.Bindings {
		if bindingOccupiesTable(b.Type) {
			count++
		}
	}
	if count == 0 {
		return set, nil
	}

	base, err := d.viewHeap.allocate(count)
	if err != nil {
		return nil, err
	}
	set.tableHandle = d.viewHeap.gpuHandle(base)
	set.tableSize = count

	slot := base
	for _, b := range desc.Bindings {
		if !bindingOccupiesTable(b.Type) {
			continue
		}
		if err := d.writeDescriptor(b, d.viewHeap.cpuHandle(slot)); err != nil {
			return nil, err
		}
		slot++
	}
	return set, nil
}

// bindingOccupiesTable reports whether the binding type consumes a
// CBV/SRV/UAV descriptor. Samplers live in their own heap type and
// push constants are root constants.
func bindingOccupiesTable(t nvrhi.ResourceType) bool {
	switch t {
	case nvrhi.ResourceTypeSampler, nvrhi.ResourceTypePushConstants, nvrhi.ResourceTypeNone:
		return false
	}
	return true
}

func (d *Device) writeDescriptor(b nvrhi.BindingSetItem, dest cpuDescriptorHandle) error {
	switch b.Type {
	case nvrhi.ResourceTypeTextureSRV:
		t, ok := b.Resource.(*texture)
		if !ok {
			return fmt.Errorf("d3d12: texture binding on a non-texture resource: %w", nvrhi.ErrInvalidArgument)
		}
		sub := b.Subresources.Resolve(&t.desc, false)
		desc := shaderResourceViewDesc{
			Format:                  dxgiFormat(t.desc.Format),
			ViewDimension:           srvDimensionTexture2D,
			Shader4ComponentMapping: defaultComponentMapping,
		}
		desc.U[0] = uint64(sub.BaseMipLevel) | uint64(sub.NumMipLevels)<<32
		d.raw.createShaderResourceView((*d3dResource)(unsafe.Pointer(t.resource)), &desc, dest)

	case nvrhi.ResourceTypeTextureUAV:
		t, ok := b.Resource.(*texture)
		if !ok {
			return fmt.Errorf("d3d12: texture binding on a non-texture resource: %w", nvrhi.ErrInvalidArgument)
		}
		sub := b.Subresources.Resolve(&t.desc, true)
		desc := unorderedAccessViewDesc{
			Format:        dxgiFormat(t.desc.Format),
			ViewDimension: uavDimensionTexture2D,
		}
		desc.U[0] = uint64(sub.BaseMipLevel)
		d.raw.createUnorderedAccessView((*d3dResource)(unsafe.Pointer(t.resource)), &desc, dest)

	case nvrhi.ResourceTypeConstantBuffer, nvrhi.ResourceTypeVolatileConstantBuffer:
		buf, ok := b.Resource.(*buffer)
		if !ok {
			return fmt.Errorf("d3d12: constant buffer binding on a non-buffer resource: %w", nvrhi.ErrInvalidArgument)
		}
		r := b.Range.Resolve(&buf.desc)
		// CBV sizes are 256-byte aligned.
		size := (uint32(r.ByteSize) + 255) &^ 255
		d.raw.createConstantBufferView(&constantBufferViewDesc{
			BufferLocation: buf.gpuVA + r.ByteOffset,
			SizeInBytes:    size,
		}, dest)

	default:
		// Typed, structured, raw and acceleration structure bindings
		// all view the backing buffer.
		buf, ok := b.Resource.(*buffer)
		if !ok {
			if as, isAS := b.Resource.(nvrhi.AccelStruct); isAS {
				buf, ok = as.DataBuffer().(*buffer)
			}
			if !ok {
				return fmt.Errorf("d3d12: buffer binding on a non-buffer resource: %w", nvrhi.ErrInvalidArgument)
			}
		}
		r := b.Range.Resolve(&buf.desc)
		stride := buf.desc.StructStride
		raw := b.Type == nvrhi.ResourceTypeRawBufferSRV || b.Type == nvrhi.ResourceTypeRawBufferUAV
		var format uint32
		if raw {
			format = dxgiFormatR32Typeless
		}
		if d.isUAVBinding(b.Type) {
			desc := unorderedAccessViewDesc{Format: format, ViewDimension: uavDimensionBuffer}
			fillBufferViewWords(desc.U[:], r, stride, raw)
			d.raw.createUnorderedAccessView((*d3dResource)(unsafe.Pointer(buf.resource)), &desc, dest)
		} else {
			desc := shaderResourceViewDesc{
				Format:                  format,
				ViewDimension:           srvDimensionBuffer,
				Shader4ComponentMapping: defaultComponentMapping,
			}
			fillBufferViewWords(desc.U[:], r, stride, raw)
			d.raw.createShaderResourceView((*d3dResource)(unsafe.Pointer(buf.resource)), &desc, dest)
		}
	}
	return nil
}

func (d *Device) isUAVBinding(t nvrhi.ResourceType) bool {
	switch t {
	case nvrhi.ResourceTypeTextureUAV, nvrhi.ResourceTypeTypedBufferUAV,
		nvrhi.ResourceTypeStructuredBufferUAV, nvrhi.ResourceTypeRawBufferUAV:
		return true
	}
	return false
}

// fillBufferViewWords packs the D3D12_BUFFER_SRV / D3D12_BUFFER_UAV
// union: FirstElement, NumElements, StructureByteStride, then Flags.
// The UAV variant carries CounterOffsetInBytes before Flags.
func fillBufferViewWords(words []uint64, r nvrhi.BufferRange, stride uint32, raw bool) {
	elemSize := uint64(4)
	if stride != 0 {
		elemSize = uint64(stride)
	}
	var flags uint32
	if raw {
		flags = bufferViewFlagRaw
		stride = 0
	}
	words[0] = r.ByteOffset / elemSize
	words[1] = uint64(uint32(r.ByteSize/elemSize)) | uint64(stride)<<32
	if len(words) == 4 {
		words[3] = uint64(flags)
	} else {
		words[2] = uint64(flags)
	}
}

func (d *Device) CreateGraphicsPipeline(desc nvrhi.GraphicsPipelineDesc) (nvrhi.GraphicsPipeline, error) {
	sig, err := d.buildRootSignature(desc.BindingLayouts)
	if err != nil {
		return nil, err
	}
	return &graphicsPipeline{
		desc:           desc,
		rootSignature:  sig.signature,
		pushConstParam: sig.pushConstParam,
		pushConstSize:  sig.pushConstSize,
		tableParams:    sig.tableParams,
	}, nil
}

func (d *Device) CreateComputePipeline(desc nvrhi.ComputePipelineDesc) (nvrhi.ComputePipeline, error) {
	sig, err := d.buildRootSignature(desc.BindingLayouts)
	if err != nil {
		return nil, err
	}
	return &computePipeline{
		desc:           desc,
		rootSignature:  sig.signature,
		pushConstParam: sig.pushConstParam,
		pushConstSize:  sig.pushConstSize,
		tableParams:    sig.tableParams,
	}, nil
}

type rootSignatureLayout struct {
	signature      uintptr
	pushConstParam uint32
	pushConstSize  uint32
	tableParams    []int32
}

const descriptorRangeOffsetAppend = 0xffffffff

// buildRootSignature serializes one descriptor table per layout with
// table-resident bindings, plus a root-constant block when a layout
// declares push constants.
func (d *Device) buildRootSignature(layouts []nvrhi.BindingLayout) (rootSignatureLayout, error) {
	var out rootSignatureLayout
	var params []rootParameter
	var rangeStorage [][]descriptorRange // keeps range arrays reachable

	pushConstSlot := uint32(0)
	pushConstSpace := uint32(0)
	havePushConst := false

	for _, layout := range layouts {
		if layout == nil {
			out.tableParams = append(out.tableParams, -1)
			continue
		}
		ldesc := layout.Desc()
		if ldesc == nil {
			out.tableParams = append(out.tableParams, -1)
			continue
		}

		var ranges []descriptorRange
		for _, item := range ldesc.Bindings {
			switch item.Type {
			case nvrhi.ResourceTypePushConstants:
				pushConstSlot = item.Slot
				pushConstSpace = ldesc.RegisterSpace
				out.pushConstSize = item.Size
				havePushConst = true
				continue
			case nvrhi.ResourceTypeSampler, nvrhi.ResourceTypeNone:
				continue
			}
			rangeType := descriptorRangeSRV
			switch item.Type {
			case nvrhi.ResourceTypeTextureUAV, nvrhi.ResourceTypeTypedBufferUAV,
				nvrhi.ResourceTypeStructuredBufferUAV, nvrhi.ResourceTypeRawBufferUAV:
				rangeType = descriptorRangeUAV
			case nvrhi.ResourceTypeConstantBuffer, nvrhi.ResourceTypeVolatileConstantBuffer:
				rangeType = descriptorRangeCBV
			}
			ranges = append(ranges, descriptorRange{
				RangeType:                         rangeType,
				NumDescriptors:                    item.ArraySize(),
				BaseShaderRegister:                item.Slot,
				RegisterSpace:                     ldesc.RegisterSpace,
				OffsetInDescriptorsFromTableStart: descriptorRangeOffsetAppend,
			})
		}

		if len(ranges) == 0 {
			out.tableParams = append(out.tableParams, -1)
			continue
		}
		rangeStorage = append(rangeStorage, ranges)
		out.tableParams = append(out.tableParams, int32(len(params)))
		params = append(params, descriptorTableParameter(ranges))
	}

	if havePushConst {
		out.pushConstParam = uint32(len(params))
		params = append(params, rootConstantsParameter(pushConstSlot, pushConstSpace, out.pushConstSize/4))
	} else {
		out.pushConstSize = 0
	}

	desc := rootSignatureDesc{Flags: rootSignatureAllowInputLayout}
	if len(params) > 0 {
		desc.NumParameters = uint32(len(params))
		desc.PParameters = &params[0]
	}
	blob, err := serializeRootSignature(&desc)
	runtime.KeepAlive(rangeStorage)
	runtime.KeepAlive(params)
	if err != nil {
		return out, err
	}
	defer blob.release()

	out.signature, err = d.raw.createRootSignature(blob)
	return out, err
}

func (d *Device) ExecuteCommandLists(lists []nvrhi.CommandList) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	for _, l := range lists {
		cl, ok := l.(*commandList)
		if !ok {
			return fmt.Errorf("d3d12: foreign command list: %w", nvrhi.ErrInvalidArgument)
		}
		queue, _ := d.queue(cl.params.QueueType)
		queue.executeCommandLists([]*d3dGraphicsCommandList{cl.list})
		d.fenceValue++
		if err := queue.signal(d.fence, d.fenceValue); err != nil {
			return err
		}
		cl.submittedValue = d.fenceValue
	}
	return nil
}

func (d *Device) WaitForIdle() error {
	d.submitMu.Lock()
	target := d.fenceValue
	d.submitMu.Unlock()

	if d.fence.completedValue() >= target {
		return nil
	}
	if err := d.fence.setEventOnCompletion(target, d.fenceEvent); err != nil {
		return err
	}
	if _, err := windows.WaitForSingleObject(d.fenceEvent, windows.INFINITE); err != nil {
		return fmt.Errorf("d3d12: WaitForSingleObject failed: %w", err)
	}
	return nil
}
