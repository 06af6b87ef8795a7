// Copyright 2024 The nvrhi Authors. All rights reserved.

package d3d12

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

func TestConvertResourceStates(t *testing.T) {
	cases := []struct {
		state nvrhi.ResourceStates
		bits  uint32
	}{
		{nvrhi.ResourceStateUnknown, 0},
		{nvrhi.ResourceStateCommon, 0},
		{nvrhi.ResourceStatePresent, 0},
		{nvrhi.ResourceStateConstantBuffer, d3dStateVertexAndConstant},
		{nvrhi.ResourceStateVertexBuffer, d3dStateVertexAndConstant},
		{nvrhi.ResourceStateIndexBuffer, d3dStateIndexBuffer},
		{nvrhi.ResourceStateShaderResource, d3dStateNonPixelShaderResource | d3dStatePixelShaderResource},
		{nvrhi.ResourceStateUnorderedAccess, d3dStateUnorderedAccess},
		{nvrhi.ResourceStateRenderTarget, d3dStateRenderTarget},
		{nvrhi.ResourceStateDepthWrite, d3dStateDepthWrite},
		{nvrhi.ResourceStateDepthRead, d3dStateDepthRead},
		{nvrhi.ResourceStateCopyDest, d3dStateCopyDest},
		{nvrhi.ResourceStateCopySource, d3dStateCopySource},
		{nvrhi.ResourceStateShadingRateSurface, d3dStateShadingRateSource},
		{
			nvrhi.ResourceStateShaderResource | nvrhi.ResourceStateCopySource,
			d3dStateNonPixelShaderResource | d3dStatePixelShaderResource | d3dStateCopySource,
		},
	}
	for _, c := range cases {
		if x := convertResourceStates(c.state); x != c.bits {
			t.Errorf("convertResourceStates(%v):\nhave %#x\nwant %#x", c.state, x, c.bits)
		}
	}
}

func TestCalcSubresource(t *testing.T) {
	// Subresource index is mip-major within a slice, slice-major
	// within a plane.
	assert.Equal(t, uint32(0), calcSubresource(0, 0, 0, 4, 2))
	assert.Equal(t, uint32(3), calcSubresource(3, 0, 0, 4, 2))
	assert.Equal(t, uint32(4), calcSubresource(0, 1, 0, 4, 2))
	assert.Equal(t, uint32(6), calcSubresource(2, 1, 0, 4, 2))
	assert.Equal(t, uint32(8), calcSubresource(0, 0, 1, 4, 2))
	assert.Equal(t, uint32(14), calcSubresource(2, 1, 1, 4, 2))
}

func newBarrierTexture(format nvrhi.Format, mipLevels uint32) *texture {
	desc := nvrhi.NewTextureDesc()
	desc.Width = 64
	desc.Height = 64
	desc.Format = format
	desc.MipLevels = mipLevels
	return &texture{
		desc:     desc,
		record:   tracking.NewTextureState(nvrhi.ResourceStateCommon),
		resource: 0xd00d,
	}
}

func TestBuildBarriersTransition(t *testing.T) {
	tex := newBarrierTexture(nvrhi.FormatRGBA8Unorm, 4)
	tracker := tracking.NewStateTracker(nil)
	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateRenderTarget)

	barriers := buildBarriers(tracker.TextureBarriers(), nil)

	require.Len(t, barriers, 1)
	b := barriers[0]
	assert.Equal(t, barrierTypeTransition, b.Type)
	assert.Equal(t, uintptr(0xd00d), b.Resource)
	assert.Equal(t, allSubresourcesIndex, b.Subresource)
	assert.Equal(t, uint32(0), b.StateBefore)
	assert.Equal(t, d3dStateRenderTarget, b.StateAfter)
}

func TestBuildBarriersSplitMip(t *testing.T) {
	tex := newBarrierTexture(nvrhi.FormatRGBA8Unorm, 4)
	tracker := tracking.NewStateTracker(nil)
	tracker.RequireTextureState(tex, nvrhi.TextureSubresourceSet{
		BaseMipLevel: 2, NumMipLevels: 1, NumArraySlices: nvrhi.AllArraySlices,
	}, nvrhi.ResourceStateCopySource)

	barriers := buildBarriers(tracker.TextureBarriers(), nil)

	require.Len(t, barriers, 1)
	assert.Equal(t, uint32(2), barriers[0].Subresource)
}

func TestBuildBarriersDepthStencilPlanes(t *testing.T) {
	// A per-mip transition of a depth-stencil texture covers both
	// planes with separate subresource indices.
	tex := newBarrierTexture(nvrhi.FormatD24S8, 2)
	tracker := tracking.NewStateTracker(nil)
	tracker.RequireTextureState(tex, nvrhi.TextureSubresourceSet{
		BaseMipLevel: 1, NumMipLevels: 1, NumArraySlices: nvrhi.AllArraySlices,
	}, nvrhi.ResourceStateDepthWrite)

	barriers := buildBarriers(tracker.TextureBarriers(), nil)

	require.Len(t, barriers, 2)
	assert.Equal(t, uint32(1), barriers[0].Subresource)
	assert.Equal(t, uint32(3), barriers[1].Subresource) // plane 1
}

func TestBuildBarriersUav(t *testing.T) {
	buf := &buffer{
		desc:     nvrhi.BufferDesc{ByteSize: 256, CanHaveUAVs: true},
		record:   tracking.NewBufferState(nvrhi.ResourceStateUnorderedAccess),
		resource: 0xbeef,
	}
	tracker := tracking.NewStateTracker(nil)
	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)
	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)

	barriers := buildBarriers(nil, tracker.BufferBarriers())

	require.Len(t, barriers, 1)
	assert.Equal(t, barrierTypeUAV, barriers[0].Type)
	assert.Equal(t, uintptr(0xbeef), barriers[0].Resource)
	assert.Zero(t, barriers[0].StateBefore)
	assert.Zero(t, barriers[0].StateAfter)
}
