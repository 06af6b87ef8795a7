// Copyright 2024 The nvrhi Authors. All rights reserved.

// Package d3d12 implements the device and command list interfaces on
// Direct3D 12. The COM plumbing is Windows-only; state conversion and
// barrier descriptor construction are portable and tested everywhere.
package d3d12

import (
	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

// D3D12_RESOURCE_STATES bits.
const (
	d3dStateCommon                 uint32 = 0
	d3dStateVertexAndConstant      uint32 = 0x1
	d3dStateIndexBuffer            uint32 = 0x2
	d3dStateRenderTarget           uint32 = 0x4
	d3dStateUnorderedAccess        uint32 = 0x8
	d3dStateDepthWrite             uint32 = 0x10
	d3dStateDepthRead              uint32 = 0x20
	d3dStateNonPixelShaderResource uint32 = 0x40
	d3dStatePixelShaderResource    uint32 = 0x80
	d3dStateStreamOut              uint32 = 0x100
	d3dStateIndirectArgument       uint32 = 0x200
	d3dStateCopyDest               uint32 = 0x400
	d3dStateCopySource             uint32 = 0x800
	d3dStateResolveDest            uint32 = 0x1000
	d3dStateResolveSource          uint32 = 0x2000
	d3dStateAccelStructure         uint32 = 0x400000
	d3dStateShadingRateSource      uint32 = 0x1000000
)

var d3dStateTable = []struct {
	state nvrhi.ResourceStates
	bits  uint32
}{
	{nvrhi.ResourceStateConstantBuffer, d3dStateVertexAndConstant},
	{nvrhi.ResourceStateVertexBuffer, d3dStateVertexAndConstant},
	{nvrhi.ResourceStateIndexBuffer, d3dStateIndexBuffer},
	{nvrhi.ResourceStateIndirectArgument, d3dStateIndirectArgument},
	{nvrhi.ResourceStateShaderResource, d3dStateNonPixelShaderResource | d3dStatePixelShaderResource},
	{nvrhi.ResourceStateUnorderedAccess, d3dStateUnorderedAccess},
	{nvrhi.ResourceStateRenderTarget, d3dStateRenderTarget},
	{nvrhi.ResourceStateDepthWrite, d3dStateDepthWrite},
	{nvrhi.ResourceStateDepthRead, d3dStateDepthRead},
	{nvrhi.ResourceStateStreamOut, d3dStateStreamOut},
	{nvrhi.ResourceStateCopyDest, d3dStateCopyDest},
	{nvrhi.ResourceStateCopySource, d3dStateCopySource},
	{nvrhi.ResourceStateResolveDest, d3dStateResolveDest},
	{nvrhi.ResourceStateResolveSource, d3dStateResolveSource},
	{nvrhi.ResourceStateAccelStructRead, d3dStateAccelStructure},
	{nvrhi.ResourceStateAccelStructWrite, d3dStateAccelStructure},
	{nvrhi.ResourceStateAccelStructBuildInput, d3dStateNonPixelShaderResource},
	{nvrhi.ResourceStateAccelStructBuildBlas, d3dStateAccelStructure},
	{nvrhi.ResourceStateShadingRateSurface, d3dStateShadingRateSource},
}

// convertResourceStates folds a state bitmask into
// D3D12_RESOURCE_STATES bits. Common and Present both map to the zero
// value, as does the Unknown sentinel, which D3D treats as COMMON with
// full implicit decay.
func convertResourceStates(state nvrhi.ResourceStates) uint32 {
	var bits uint32
	for _, e := range d3dStateTable {
		if state&e.state != 0 {
			bits |= e.bits
		}
	}
	return bits
}

// D3D12_RESOURCE_BARRIER types.
const (
	barrierTypeTransition uint32 = 0
	barrierTypeUAV        uint32 = 2
)

// allSubresourcesIndex is D3D12_RESOURCE_BARRIER_ALL_SUBRESOURCES.
const allSubresourcesIndex uint32 = 0xffffffff

// resourceBarrier lays out D3D12_RESOURCE_BARRIER for the transition
// and UAV cases. UAV barriers use only the Resource field.
type resourceBarrier struct {
	Type        uint32
	Flags       uint32
	Resource    uintptr
	Subresource uint32
	StateBefore uint32
	StateAfter  uint32
}

// nativeResource is implemented by backend textures and buffers.
type nativeResource interface {
	nativePtr() uintptr
}

// calcSubresource flattens (mip, slice, plane) into a D3D12
// subresource index.
func calcSubresource(mip nvrhi.MipLevel, slice nvrhi.ArraySlice, plane, mipLevels, arraySize uint32) uint32 {
	return mip + slice*mipLevels + plane*mipLevels*arraySize
}

// planeCount is the number of format planes barriers must cover.
// Depth-stencil formats carry depth and stencil in separate planes.
func planeCount(f nvrhi.Format) uint32 {
	info := nvrhi.GetFormatInfo(f)
	if info.HasDepth && info.HasStencil {
		return 2
	}
	return 1
}

// buildBarriers converts a pending tracker batch into
// D3D12_RESOURCE_BARRIER descriptors for one ResourceBarrier call.
func buildBarriers(textureBarriers []tracking.TextureBarrier, bufferBarriers []tracking.BufferBarrier) []resourceBarrier {
	out := make([]resourceBarrier, 0, len(textureBarriers)+len(bufferBarriers))

	for _, b := range textureBarriers {
		native, ok := b.Texture.(nativeResource)
		if !ok {
			continue
		}
		if b.UavOnly {
			out = append(out, resourceBarrier{
				Type:     barrierTypeUAV,
				Resource: native.nativePtr(),
			})
			continue
		}
		desc := b.Texture.Desc()
		if b.EntireTexture {
			out = append(out, resourceBarrier{
				Type:        barrierTypeTransition,
				Resource:    native.nativePtr(),
				Subresource: allSubresourcesIndex,
				StateBefore: convertResourceStates(b.StateBefore),
				StateAfter:  convertResourceStates(b.StateAfter),
			})
			continue
		}
		for plane := uint32(0); plane < planeCount(desc.Format); plane++ {
			out = append(out, resourceBarrier{
				Type:        barrierTypeTransition,
				Resource:    native.nativePtr(),
				Subresource: calcSubresource(b.MipLevel, b.ArraySlice, plane, desc.MipLevels, desc.ArraySize),
				StateBefore: convertResourceStates(b.StateBefore),
				StateAfter:  convertResourceStates(b.StateAfter),
			})
		}
	}

	for _, b := range bufferBarriers {
		native, ok := b.Buffer.(nativeResource)
		if !ok {
			continue
		}
		if b.UavOnly {
			out = append(out, resourceBarrier{
				Type:     barrierTypeUAV,
				Resource: native.nativePtr(),
			})
			continue
		}
		out = append(out, resourceBarrier{
			Type:        barrierTypeTransition,
			Resource:    native.nativePtr(),
			Subresource: allSubresourcesIndex,
			StateBefore: convertResourceStates(b.StateBefore),
			StateAfter:  convertResourceStates(b.StateAfter),
		})
	}

	return out
}
