// Copyright 2024 The nvrhi Authors. All rights reserved.

//go:build windows

package d3d12

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// hresultError carries a failed COM call.
type hresultError struct {
	call string
	code uint32
}

func (e hresultError) Error() string {
	return fmt.Sprintf("d3d12: %s failed (%#x)", e.call, e.code)
}

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

var (
	iidResource         = guid{0x696442be, 0xa72e, 0x4059, [8]byte{0xbc, 0x79, 0x5b, 0x5c, 0x98, 0x04, 0x0f, 0xad}}
	iidCommandAllocator = guid{0x6102dee4, 0xaf59, 0x4b09, [8]byte{0xb9, 0x99, 0xb4, 0x4d, 0x73, 0xf0, 0x9b, 0x24}}
	iidGraphicsList     = guid{0x5b160d0f, 0xac1b, 0x4185, [8]byte{0x8b, 0xa8, 0xb3, 0xae, 0x42, 0xa5, 0xa4, 0x55}}
	iidFence            = guid{0x0a753dcf, 0xc4d8, 0x4b91, [8]byte{0xad, 0xf6, 0xbe, 0x5a, 0x60, 0xd9, 0x5a, 0x76}}
	iidDescriptorHeap   = guid{0x8efb471d, 0x616c, 0x4f49, [8]byte{0x90, 0xf7, 0x12, 0x7b, 0xb7, 0x63, 0xfa, 0x51}}
	iidRootSignature    = guid{0xc54a6b66, 0x72df, 0x4ee8, [8]byte{0x8b, 0xe5, 0xa9, 0x46, 0xa1, 0x42, 0x92, 0x14}}
	iidCommandSignature = guid{0xc36a797c, 0xec80, 0x4f0a, [8]byte{0x89, 0x85, 0xa7, 0xb2, 0x47, 0x50, 0x82, 0xd1}}
)

type _IUnknownVTbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

// _ID3D12ObjectVTbl follows IUnknown in every d3d12 interface.
type _ID3D12ObjectVTbl struct {
	GetPrivateData          uintptr
	SetPrivateData          uintptr
	SetPrivateDataInterface uintptr
	SetName                 uintptr
}

// releaseIUnknown releases a raw COM pointer through its vtable.
func releaseIUnknown(obj uintptr) {
	if obj == 0 {
		return
	}
	vtbl := *(**_IUnknownVTbl)(unsafe.Pointer(obj))
	syscall.Syscall(vtbl.Release, 1, obj, 0, 0)
}

type d3dDevice struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetNodeCount                     uintptr
		CreateCommandQueue               uintptr
		CreateCommandAllocator           uintptr
		CreateGraphicsPipelineState      uintptr
		CreateComputePipelineState       uintptr
		CreateCommandList                uintptr
		CheckFeatureSupport              uintptr
		CreateDescriptorHeap             uintptr
		GetDescriptorHandleIncrementSize uintptr
		CreateRootSignature              uintptr
		CreateConstantBufferView         uintptr
		CreateShaderResourceView         uintptr
		CreateUnorderedAccessView        uintptr
		CreateRenderTargetView           uintptr
		CreateDepthStencilView           uintptr
		CreateSampler                    uintptr
		CopyDescriptors                  uintptr
		CopyDescriptorsSimple            uintptr
		GetResourceAllocationInfo        uintptr
		GetCustomHeapProperties          uintptr
		CreateCommittedResource          uintptr
		CreateHeap                       uintptr
		CreatePlacedResource             uintptr
		CreateReservedResource           uintptr
		CreateSharedHandle               uintptr
		OpenSharedHandle                 uintptr
		OpenSharedHandleByName           uintptr
		MakeResident                     uintptr
		Evict                            uintptr
		CreateFence                      uintptr
		GetDeviceRemovedReason           uintptr
		GetCopyableFootprints            uintptr
		CreateQueryHeap                  uintptr
		SetStablePowerState              uintptr
		CreateCommandSignature           uintptr
		GetResourceTiling                uintptr
		GetAdapterLuid                   uintptr
	}
}

type d3dCommandQueue struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetDevice             uintptr
		UpdateTileMappings    uintptr
		CopyTileMappings      uintptr
		ExecuteCommandLists   uintptr
		SetMarker             uintptr
		BeginEvent            uintptr
		EndEvent              uintptr
		Signal                uintptr
		Wait                  uintptr
		GetTimestampFrequency uintptr
		GetClockCalibration   uintptr
		GetDesc               uintptr
	}
}

type d3dCommandAllocator struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetDevice uintptr
		Reset     uintptr
	}
}

type d3dGraphicsCommandList struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetDevice                          uintptr
		GetType                            uintptr
		Close                              uintptr
		Reset                              uintptr
		ClearState                         uintptr
		DrawInstanced                      uintptr
		DrawIndexedInstanced               uintptr
		Dispatch                           uintptr
		CopyBufferRegion                   uintptr
		CopyTextureRegion                  uintptr
		CopyResource                       uintptr
		CopyTiles                          uintptr
		ResolveSubresource                 uintptr
		IASetPrimitiveTopology             uintptr
		RSSetViewports                     uintptr
		RSSetScissorRects                  uintptr
		OMSetBlendFactor                   uintptr
		OMSetStencilRef                    uintptr
		SetPipelineState                   uintptr
		ResourceBarrier                    uintptr
		ExecuteBundle                      uintptr
		SetDescriptorHeaps                 uintptr
		SetComputeRootSignature            uintptr
		SetGraphicsRootSignature           uintptr
		SetComputeRootDescriptorTable      uintptr
		SetGraphicsRootDescriptorTable     uintptr
		SetComputeRoot32BitConstant        uintptr
		SetGraphicsRoot32BitConstant       uintptr
		SetComputeRoot32BitConstants       uintptr
		SetGraphicsRoot32BitConstants      uintptr
		SetComputeRootConstantBufferView   uintptr
		SetGraphicsRootConstantBufferView  uintptr
		SetComputeRootShaderResourceView   uintptr
		SetGraphicsRootShaderResourceView  uintptr
		SetComputeRootUnorderedAccessView  uintptr
		SetGraphicsRootUnorderedAccessView uintptr
		IASetIndexBuffer                   uintptr
		IASetVertexBuffers                 uintptr
		SOSetTargets                       uintptr
		OMSetRenderTargets                 uintptr
		ClearDepthStencilView              uintptr
		ClearRenderTargetView              uintptr
		ClearUnorderedAccessViewUint       uintptr
		ClearUnorderedAccessViewFloat      uintptr
		DiscardResource                    uintptr
		BeginQuery                         uintptr
		EndQuery                           uintptr
		ResolveQueryData                   uintptr
		SetPredication                     uintptr
		SetMarker                          uintptr
		BeginEvent                         uintptr
		EndEvent                           uintptr
		ExecuteIndirect                    uintptr
	}
}

type d3dFence struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetDevice            uintptr
		GetCompletedValue    uintptr
		SetEventOnCompletion uintptr
		Signal               uintptr
	}
}

type d3dResource struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetDevice            uintptr
		Map                  uintptr
		Unmap                uintptr
		GetDesc              uintptr
		GetGPUVirtualAddress uintptr
		WriteToSubresource   uintptr
		ReadFromSubresource  uintptr
		GetHeapProperties    uintptr
	}
}

type d3dDescriptorHeap struct {
	Vtbl *struct {
		_IUnknownVTbl
		_ID3D12ObjectVTbl
		GetDevice                          uintptr
		GetDesc                            uintptr
		GetCPUDescriptorHandleForHeapStart uintptr
		GetGPUDescriptorHandleForHeapStart uintptr
	}
}

type d3dBlob struct {
	Vtbl *struct {
		_IUnknownVTbl
		GetBufferPointer uintptr
		GetBufferSize    uintptr
	}
}

// D3D12 enum values used by the backend.
const (
	heapTypeDefault  uint32 = 1
	heapTypeUpload   uint32 = 2
	heapTypeReadback uint32 = 3

	resourceDimensionBuffer    uint32 = 1
	resourceDimensionTexture1D uint32 = 2
	resourceDimensionTexture2D uint32 = 3
	resourceDimensionTexture3D uint32 = 4

	textureLayoutUnknown  uint32 = 0
	textureLayoutRowMajor uint32 = 1

	resourceFlagAllowRenderTarget    uint32 = 0x1
	resourceFlagAllowDepthStencil    uint32 = 0x2
	resourceFlagAllowUnorderedAccess uint32 = 0x4

	d3dStateGenericRead uint32 = 0xac3

	descriptorHeapTypeViews uint32 = 0
	descriptorHeapTypeRTV   uint32 = 2
	descriptorHeapTypeDSV   uint32 = 3

	descriptorHeapFlagShaderVisible uint32 = 1

	commandListTypeDirect  uint32 = 0
	commandListTypeCompute uint32 = 2
	commandListTypeCopy    uint32 = 3

	descriptorRangeSRV     uint32 = 0
	descriptorRangeUAV     uint32 = 1
	descriptorRangeCBV     uint32 = 2
	descriptorRangeSampler uint32 = 3

	rootParameterTypeTable     uint32 = 0
	rootParameterTypeConstants uint32 = 1

	rootSignatureAllowInputLayout uint32 = 0x1

	srvDimensionBuffer    uint32 = 1
	srvDimensionTexture2D uint32 = 4

	uavDimensionBuffer    uint32 = 1
	uavDimensionTexture2D uint32 = 4

	defaultComponentMapping uint32 = 0x1688

	bufferViewFlagRaw uint32 = 0x1

	topologyTriangleList uint32 = 4

	textureCopySubresourceIndex uint32 = 0

	clearFlagDepth   uint32 = 0x1
	clearFlagStencil uint32 = 0x2

	indirectArgumentDraw     uint32 = 0
	indirectArgumentDispatch uint32 = 2

	dxgiFormatR16Uint     uint32 = 57
	dxgiFormatR32Uint     uint32 = 42
	dxgiFormatR32Typeless uint32 = 39
)

type heapProperties struct {
	Type                 uint32
	CPUPageProperty      uint32
	MemoryPoolPreference uint32
	CreationNodeMask     uint32
	VisibleNodeMask      uint32
}

type nativeResourceDesc struct {
	Dimension        uint32
	_                uint32
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           uint32
	SampleCount      uint32
	SampleQuality    uint32
	Layout           uint32
	Flags            uint32
}

type descriptorHeapDesc struct {
	Type           uint32
	NumDescriptors uint32
	Flags          uint32
	NodeMask       uint32
}

type cpuDescriptorHandle struct {
	Ptr uintptr
}

type descriptorRange struct {
	RangeType                         uint32
	NumDescriptors                    uint32
	BaseShaderRegister                uint32
	RegisterSpace                     uint32
	OffsetInDescriptorsFromTableStart uint32
}

// rootParameter lays out D3D12_ROOT_PARAMETER; the union is carried
// in two 8-byte words (little-endian).
type rootParameter struct {
	ParameterType    uint32
	_                uint32
	U0               uint64
	U1               uint64
	ShaderVisibility uint32
	_                uint32
}

func descriptorTableParameter(ranges []descriptorRange) rootParameter {
	return rootParameter{
		ParameterType: rootParameterTypeTable,
		U0:            uint64(len(ranges)),
		U1:            uint64(uintptr(unsafe.Pointer(&ranges[0]))),
	}
}

func rootConstantsParameter(shaderRegister, registerSpace, num32Bit uint32) rootParameter {
	return rootParameter{
		ParameterType: rootParameterTypeConstants,
		U0:            uint64(shaderRegister) | uint64(registerSpace)<<32,
		U1:            uint64(num32Bit),
	}
}

type rootSignatureDesc struct {
	NumParameters     uint32
	_                 uint32
	PParameters       *rootParameter
	NumStaticSamplers uint32
	_                 uint32
	PStaticSamplers   uintptr
	Flags             uint32
	_                 uint32
}

type constantBufferViewDesc struct {
	BufferLocation uint64
	SizeInBytes    uint32
	_              uint32
}

type shaderResourceViewDesc struct {
	Format                  uint32
	ViewDimension           uint32
	Shader4ComponentMapping uint32
	_                       uint32
	U                       [3]uint64
}

type unorderedAccessViewDesc struct {
	Format        uint32
	ViewDimension uint32
	U             [4]uint64
}

type textureCopyLocation struct {
	Resource uintptr
	Type     uint32
	_        uint32
	U        [4]uint64
}

type box struct {
	Left   uint32
	Top    uint32
	Front  uint32
	Right  uint32
	Bottom uint32
	Back   uint32
}

type nativeViewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type nativeRect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type vertexBufferView struct {
	BufferLocation uint64
	SizeInBytes    uint32
	StrideInBytes  uint32
}

type indexBufferView struct {
	BufferLocation uint64
	SizeInBytes    uint32
	Format         uint32
}

type indirectArgumentDesc struct {
	Type uint32
	U0   uint32
	U1   uint32
	U2   uint32
}

type commandSignatureDesc struct {
	ByteStride       uint32
	NumArgumentDescs uint32
	PArgumentDescs   *indirectArgumentDesc
	NodeMask         uint32
	_                uint32
}

var (
	modD3D12                   = windows.NewLazySystemDLL("d3d12.dll")
	procSerializeRootSignature = modD3D12.NewProc("D3D12SerializeRootSignature")
)

// serializeRootSignature produces the root signature blob consumed by
// CreateRootSignature. The error blob is released if produced.
func serializeRootSignature(desc *rootSignatureDesc) (*d3dBlob, error) {
	var blob, errBlob *d3dBlob
	r, _, _ := procSerializeRootSignature.Call(
		uintptr(unsafe.Pointer(desc)),
		1, // D3D_ROOT_SIGNATURE_VERSION_1
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(&errBlob)),
	)
	if errBlob != nil {
		releaseIUnknown(uintptr(unsafe.Pointer(errBlob)))
	}
	if r != 0 {
		return nil, hresultError{call: "D3D12SerializeRootSignature", code: uint32(r)}
	}
	return blob, nil
}

func (b *d3dBlob) bufferPointer() uintptr {
	r, _, _ := syscall.Syscall(b.Vtbl.GetBufferPointer, 1, uintptr(unsafe.Pointer(b)), 0, 0)
	return r
}

func (b *d3dBlob) bufferSize() uintptr {
	r, _, _ := syscall.Syscall(b.Vtbl.GetBufferSize, 1, uintptr(unsafe.Pointer(b)), 0, 0)
	return r
}

func (b *d3dBlob) release() {
	releaseIUnknown(uintptr(unsafe.Pointer(b)))
}

func (d *d3dDevice) createCommittedResource(heap *heapProperties, desc *nativeResourceDesc, initialState uint32) (*d3dResource, error) {
	var res *d3dResource
	r, _, _ := syscall.Syscall9(
		d.Vtbl.CreateCommittedResource,
		8,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(heap)),
		0, // D3D12_HEAP_FLAG_NONE
		uintptr(unsafe.Pointer(desc)),
		uintptr(initialState),
		0, // no optimized clear value
		uintptr(unsafe.Pointer(&iidResource)),
		uintptr(unsafe.Pointer(&res)),
		0,
	)
	if r != 0 {
		return nil, hresultError{call: "ID3D12Device::CreateCommittedResource", code: uint32(r)}
	}
	return res, nil
}

func (d *d3dDevice) createDescriptorHeap(desc *descriptorHeapDesc) (*d3dDescriptorHeap, error) {
	var heap *d3dDescriptorHeap
	r, _, _ := syscall.Syscall6(
		d.Vtbl.CreateDescriptorHeap,
		4,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(desc)),
		uintptr(unsafe.Pointer(&iidDescriptorHeap)),
		uintptr(unsafe.Pointer(&heap)),
		0, 0,
	)
	if r != 0 {
		return nil, hresultError{call: "ID3D12Device::CreateDescriptorHeap", code: uint32(r)}
	}
	return heap, nil
}

func (d *d3dDevice) descriptorHandleIncrementSize(heapType uint32) uint32 {
	r, _, _ := syscall.Syscall(
		d.Vtbl.GetDescriptorHandleIncrementSize,
		2,
		uintptr(unsafe.Pointer(d)),
		uintptr(heapType),
		0,
	)
	return uint32(r)
}

func (d *d3dDevice) createFence() (*d3dFence, error) {
	var fence *d3dFence
	r, _, _ := syscall.Syscall6(
		d.Vtbl.CreateFence,
		5,
		uintptr(unsafe.Pointer(d)),
		0, // initial value
		0, // D3D12_FENCE_FLAG_NONE
		uintptr(unsafe.Pointer(&iidFence)),
		uintptr(unsafe.Pointer(&fence)),
		0,
	)
	if r != 0 {
		return nil, hresultError{call: "ID3D12Device::CreateFence", code: uint32(r)}
	}
	return fence, nil
}

func (d *d3dDevice) createCommandAllocator(listType uint32) (*d3dCommandAllocator, error) {
	var alloc *d3dCommandAllocator
	r, _, _ := syscall.Syscall6(
		d.Vtbl.CreateCommandAllocator,
		4,
		uintptr(unsafe.Pointer(d)),
		uintptr(listType),
		uintptr(unsafe.Pointer(&iidCommandAllocator)),
		uintptr(unsafe.Pointer(&alloc)),
		0, 0,
	)
	if r != 0 {
		return nil, hresultError{call: "ID3D12Device::CreateCommandAllocator", code: uint32(r)}
	}
	return alloc, nil
}

func (d *d3dDevice) createCommandList(listType uint32, alloc *d3dCommandAllocator) (*d3dGraphicsCommandList, error) {
	var list *d3dGraphicsCommandList
	r, _, _ := syscall.Syscall9(
		d.Vtbl.CreateCommandList,
		7,
		uintptr(unsafe.Pointer(d)),
		0, // node mask
		uintptr(listType),
		uintptr(unsafe.Pointer(alloc)),
		0, // no initial pipeline state
		uintptr(unsafe.Pointer(&iidGraphicsList)),
		uintptr(unsafe.Pointer(&list)),
		0, 0,
	)
	if r != 0 {
		return nil, hresultError{call: "ID3D12Device::CreateCommandList", code: uint32(r)}
	}
	return list, nil
}

func (d *d3dDevice) createRootSignature(blob *d3dBlob) (uintptr, error) {
	var sig uintptr
	r, _, _ := syscall.Syscall6(
		d.Vtbl.CreateRootSignature,
		6,
		uintptr(unsafe.Pointer(d)),
		0, // node mask
		blob.bufferPointer(),
		blob.bufferSize(),
		uintptr(unsafe.Pointer(&iidRootSignature)),
		uintptr(unsafe.Pointer(&sig)),
	)
	if r != 0 {
		return 0, hresultError{call: "ID3D12Device::CreateRootSignature", code: uint32(r)}
	}
	return sig, nil
}

func (d *d3dDevice) createCommandSignature(desc *commandSignatureDesc) (uintptr, error) {
	var sig uintptr
	r, _, _ := syscall.Syscall6(
		d.Vtbl.CreateCommandSignature,
		5,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(desc)),
		0, // no root signature; the arguments carry no root bindings
		uintptr(unsafe.Pointer(&iidCommandSignature)),
		uintptr(unsafe.Pointer(&sig)),
		0,
	)
	if r != 0 {
		return 0, hresultError{call: "ID3D12Device::CreateCommandSignature", code: uint32(r)}
	}
	return sig, nil
}

func (d *d3dDevice) createRenderTargetView(res *d3dResource, dest cpuDescriptorHandle) {
	syscall.Syscall6(
		d.Vtbl.CreateRenderTargetView,
		4,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(res)),
		0, // view of the whole resource
		dest.Ptr,
		0, 0,
	)
}

func (d *d3dDevice) createDepthStencilView(res *d3dResource, dest cpuDescriptorHandle) {
	syscall.Syscall6(
		d.Vtbl.CreateDepthStencilView,
		4,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(res)),
		0,
		dest.Ptr,
		0, 0,
	)
}

func (d *d3dDevice) createShaderResourceView(res *d3dResource, desc *shaderResourceViewDesc, dest cpuDescriptorHandle) {
	syscall.Syscall6(
		d.Vtbl.CreateShaderResourceView,
		4,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(res)),
		uintptr(unsafe.Pointer(desc)),
		dest.Ptr,
		0, 0,
	)
}

func (d *d3dDevice) createUnorderedAccessView(res *d3dResource, desc *unorderedAccessViewDesc, dest cpuDescriptorHandle) {
	syscall.Syscall6(
		d.Vtbl.CreateUnorderedAccessView,
		5,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(res)),
		0, // no counter resource
		uintptr(unsafe.Pointer(desc)),
		dest.Ptr,
		0,
	)
}

func (d *d3dDevice) createConstantBufferView(desc *constantBufferViewDesc, dest cpuDescriptorHandle) {
	syscall.Syscall(
		d.Vtbl.CreateConstantBufferView,
		3,
		uintptr(unsafe.Pointer(d)),
		uintptr(unsafe.Pointer(desc)),
		dest.Ptr,
	)
}

func (q *d3dCommandQueue) executeCommandLists(lists []*d3dGraphicsCommandList) {
	syscall.Syscall(
		q.Vtbl.ExecuteCommandLists,
		3,
		uintptr(unsafe.Pointer(q)),
		uintptr(len(lists)),
		uintptr(unsafe.Pointer(&lists[0])),
	)
}

func (q *d3dCommandQueue) signal(fence *d3dFence, value uint64) error {
	r, _, _ := syscall.Syscall(
		q.Vtbl.Signal,
		3,
		uintptr(unsafe.Pointer(q)),
		uintptr(unsafe.Pointer(fence)),
		uintptr(value),
	)
	if r != 0 {
		return hresultError{call: "ID3D12CommandQueue::Signal", code: uint32(r)}
	}
	return nil
}

func (f *d3dFence) completedValue() uint64 {
	r, _, _ := syscall.Syscall(f.Vtbl.GetCompletedValue, 1, uintptr(unsafe.Pointer(f)), 0, 0)
	return uint64(r)
}

func (f *d3dFence) setEventOnCompletion(value uint64, event windows.Handle) error {
	r, _, _ := syscall.Syscall(
		f.Vtbl.SetEventOnCompletion,
		3,
		uintptr(unsafe.Pointer(f)),
		uintptr(value),
		uintptr(event),
	)
	if r != 0 {
		return hresultError{call: "ID3D12Fence::SetEventOnCompletion", code: uint32(r)}
	}
	return nil
}

func (f *d3dFence) release() {
	releaseIUnknown(uintptr(unsafe.Pointer(f)))
}

func (a *d3dCommandAllocator) reset() error {
	r, _, _ := syscall.Syscall(a.Vtbl.Reset, 1, uintptr(unsafe.Pointer(a)), 0, 0)
	if r != 0 {
		return hresultError{call: "ID3D12CommandAllocator::Reset", code: uint32(r)}
	}
	return nil
}

func (a *d3dCommandAllocator) release() {
	releaseIUnknown(uintptr(unsafe.Pointer(a)))
}

func (r *d3dResource) gpuVirtualAddress() uint64 {
	v, _, _ := syscall.Syscall(r.Vtbl.GetGPUVirtualAddress, 1, uintptr(unsafe.Pointer(r)), 0, 0)
	return uint64(v)
}

func (r *d3dResource) mapWhole() (uintptr, error) {
	var data uintptr
	hr, _, _ := syscall.Syscall6(
		r.Vtbl.Map,
		4,
		uintptr(unsafe.Pointer(r)),
		0, // subresource
		0, // read range: whole resource
		uintptr(unsafe.Pointer(&data)),
		0, 0,
	)
	if hr != 0 {
		return 0, hresultError{call: "ID3D12Resource::Map", code: uint32(hr)}
	}
	return data, nil
}

func (r *d3dResource) unmap() {
	syscall.Syscall(r.Vtbl.Unmap, 3, uintptr(unsafe.Pointer(r)), 0, 0)
}

// cpuStart returns the heap's base CPU handle. The method returns a
// struct, which the MSVC member-function ABI passes through a hidden
// pointer argument.
func (h *d3dDescriptorHeap) cpuStart() cpuDescriptorHandle {
	var out cpuDescriptorHandle
	syscall.Syscall(
		h.Vtbl.GetCPUDescriptorHandleForHeapStart,
		2,
		uintptr(unsafe.Pointer(h)),
		uintptr(unsafe.Pointer(&out)),
		0,
	)
	return out
}

func (h *d3dDescriptorHeap) gpuStart() uint64 {
	var out uint64
	syscall.Syscall(
		h.Vtbl.GetGPUDescriptorHandleForHeapStart,
		2,
		uintptr(unsafe.Pointer(h)),
		uintptr(unsafe.Pointer(&out)),
		0,
	)
	return out
}

func (h *d3dDescriptorHeap) release() {
	releaseIUnknown(uintptr(unsafe.Pointer(h)))
}

func (l *d3dGraphicsCommandList) close() error {
	r, _, _ := syscall.Syscall(l.Vtbl.Close, 1, uintptr(unsafe.Pointer(l)), 0, 0)
	if r != 0 {
		return hresultError{call: "ID3D12GraphicsCommandList::Close", code: uint32(r)}
	}
	return nil
}

func (l *d3dGraphicsCommandList) reset(alloc *d3dCommandAllocator) error {
	r, _, _ := syscall.Syscall(
		l.Vtbl.Reset,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(unsafe.Pointer(alloc)),
		0, // no initial pipeline state
	)
	if r != 0 {
		return hresultError{call: "ID3D12GraphicsCommandList::Reset", code: uint32(r)}
	}
	return nil
}

func (l *d3dGraphicsCommandList) resourceBarrier(barriers []resourceBarrier) {
	syscall.Syscall(
		l.Vtbl.ResourceBarrier,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(len(barriers)),
		uintptr(unsafe.Pointer(&barriers[0])),
	)
}

func (l *d3dGraphicsCommandList) copyBufferRegion(dst *d3dResource, dstOffset uint64, src *d3dResource, srcOffset, size uint64) {
	syscall.Syscall6(
		l.Vtbl.CopyBufferRegion,
		6,
		uintptr(unsafe.Pointer(l)),
		uintptr(unsafe.Pointer(dst)),
		uintptr(dstOffset),
		uintptr(unsafe.Pointer(src)),
		uintptr(srcOffset),
		uintptr(size),
	)
}

func (l *d3dGraphicsCommandList) copyTextureRegion(dst *textureCopyLocation, dstX, dstY, dstZ uint32, src *textureCopyLocation, srcBox *box) {
	syscall.Syscall9(
		l.Vtbl.CopyTextureRegion,
		7,
		uintptr(unsafe.Pointer(l)),
		uintptr(unsafe.Pointer(dst)),
		uintptr(dstX),
		uintptr(dstY),
		uintptr(dstZ),
		uintptr(unsafe.Pointer(src)),
		uintptr(unsafe.Pointer(srcBox)),
		0, 0,
	)
}

func (l *d3dGraphicsCommandList) drawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	syscall.Syscall6(
		l.Vtbl.DrawInstanced,
		5,
		uintptr(unsafe.Pointer(l)),
		uintptr(vertexCount),
		uintptr(instanceCount),
		uintptr(startVertex),
		uintptr(startInstance),
		0,
	)
}

func (l *d3dGraphicsCommandList) drawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	syscall.Syscall6(
		l.Vtbl.DrawIndexedInstanced,
		6,
		uintptr(unsafe.Pointer(l)),
		uintptr(indexCount),
		uintptr(instanceCount),
		uintptr(startIndex),
		uintptr(baseVertex),
		uintptr(startInstance),
	)
}

func (l *d3dGraphicsCommandList) dispatch(x, y, z uint32) {
	syscall.Syscall6(
		l.Vtbl.Dispatch,
		4,
		uintptr(unsafe.Pointer(l)),
		uintptr(x),
		uintptr(y),
		uintptr(z),
		0, 0,
	)
}

func (l *d3dGraphicsCommandList) executeIndirect(sig uintptr, maxCount uint32, argBuf *d3dResource, argOffset uint64) {
	syscall.Syscall9(
		l.Vtbl.ExecuteIndirect,
		7,
		uintptr(unsafe.Pointer(l)),
		sig,
		uintptr(maxCount),
		uintptr(unsafe.Pointer(argBuf)),
		uintptr(argOffset),
		0, // no count buffer
		0,
		0, 0,
	)
}

func (l *d3dGraphicsCommandList) setPrimitiveTopology(topology uint32) {
	syscall.Syscall(
		l.Vtbl.IASetPrimitiveTopology,
		2,
		uintptr(unsafe.Pointer(l)),
		uintptr(topology),
		0,
	)
}

func (l *d3dGraphicsCommandList) setViewports(viewports []nativeViewport) {
	syscall.Syscall(
		l.Vtbl.RSSetViewports,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(len(viewports)),
		uintptr(unsafe.Pointer(&viewports[0])),
	)
}

func (l *d3dGraphicsCommandList) setScissorRects(rects []nativeRect) {
	syscall.Syscall(
		l.Vtbl.RSSetScissorRects,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(len(rects)),
		uintptr(unsafe.Pointer(&rects[0])),
	)
}

func (l *d3dGraphicsCommandList) setRenderTargets(rtvs []cpuDescriptorHandle, dsv *cpuDescriptorHandle) {
	var rtvPtr unsafe.Pointer
	if len(rtvs) > 0 {
		rtvPtr = unsafe.Pointer(&rtvs[0])
	}
	syscall.Syscall6(
		l.Vtbl.OMSetRenderTargets,
		5,
		uintptr(unsafe.Pointer(l)),
		uintptr(len(rtvs)),
		uintptr(rtvPtr),
		0, // handles are not a contiguous range
		uintptr(unsafe.Pointer(dsv)),
		0,
	)
}

func (l *d3dGraphicsCommandList) setDescriptorHeaps(heaps []*d3dDescriptorHeap) {
	syscall.Syscall(
		l.Vtbl.SetDescriptorHeaps,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(len(heaps)),
		uintptr(unsafe.Pointer(&heaps[0])),
	)
}

func (l *d3dGraphicsCommandList) setGraphicsRootSignature(sig uintptr) {
	syscall.Syscall(l.Vtbl.SetGraphicsRootSignature, 2, uintptr(unsafe.Pointer(l)), sig, 0)
}

func (l *d3dGraphicsCommandList) setComputeRootSignature(sig uintptr) {
	syscall.Syscall(l.Vtbl.SetComputeRootSignature, 2, uintptr(unsafe.Pointer(l)), sig, 0)
}

func (l *d3dGraphicsCommandList) setGraphicsRootDescriptorTable(index uint32, handle uint64) {
	syscall.Syscall(
		l.Vtbl.SetGraphicsRootDescriptorTable,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(index),
		uintptr(handle),
	)
}

func (l *d3dGraphicsCommandList) setComputeRootDescriptorTable(index uint32, handle uint64) {
	syscall.Syscall(
		l.Vtbl.SetComputeRootDescriptorTable,
		3,
		uintptr(unsafe.Pointer(l)),
		uintptr(index),
		uintptr(handle),
	)
}

func (l *d3dGraphicsCommandList) setGraphicsRoot32BitConstants(index uint32, data []byte) {
	syscall.Syscall6(
		l.Vtbl.SetGraphicsRoot32BitConstants,
		5,
		uintptr(unsafe.Pointer(l)),
		uintptr(index),
		uintptr(len(data)/4),
		uintptr(unsafe.Pointer(&data[0])),
		0, // destination offset in 32-bit values
		0,
	)
}

func (l *d3dGraphicsCommandList) setComputeRoot32BitConstants(index uint32, data []byte) {
	syscall.Syscall6(
		l.Vtbl.SetComputeRoot32BitConstants,
		5,
		uintptr(unsafe.Pointer(l)),
		uintptr(index),
		uintptr(len(data)/4),
		uintptr(unsafe.Pointer(&data[0])),
		0,
		0,
	)
}

func (l *d3dGraphicsCommandList) setVertexBuffers(startSlot uint32, views []vertexBufferView) {
	syscall.Syscall6(
		l.Vtbl.IASetVertexBuffers,
		4,
		uintptr(unsafe.Pointer(l)),
		uintptr(startSlot),
		uintptr(len(views)),
		uintptr(unsafe.Pointer(&views[0])),
		0, 0,
	)
}

func (l *d3dGraphicsCommandList) setIndexBuffer(view *indexBufferView) {
	syscall.Syscall(
		l.Vtbl.IASetIndexBuffer,
		2,
		uintptr(unsafe.Pointer(l)),
		uintptr(unsafe.Pointer(view)),
		0,
	)
}

func (l *d3dGraphicsCommandList) clearRenderTargetView(rtv cpuDescriptorHandle, color *[4]float32) {
	syscall.Syscall6(
		l.Vtbl.ClearRenderTargetView,
		5,
		uintptr(unsafe.Pointer(l)),
		rtv.Ptr,
		uintptr(unsafe.Pointer(color)),
		0, // clear the whole view
		0,
		0,
	)
}

// clearDepthStencilView relies on the Windows syscall trampoline
// mirroring the first four arguments into the XMM registers, which
// makes passing the depth value as its bit pattern valid.
func (l *d3dGraphicsCommandList) clearDepthStencilView(dsv cpuDescriptorHandle, flags uint32, depthBits uint32, stencil uint8) {
	syscall.Syscall9(
		l.Vtbl.ClearDepthStencilView,
		7,
		uintptr(unsafe.Pointer(l)),
		dsv.Ptr,
		uintptr(flags),
		uintptr(depthBits),
		uintptr(stencil),
		0, // clear the whole view
		0,
		0, 0,
	)
}

func (l *d3dGraphicsCommandList) release() {
	releaseIUnknown(uintptr(unsafe.Pointer(l)))
}
