// Copyright 2024 The nvrhi Authors. All rights reserved.

package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfuyang/nvrhi"
)

type testTexture struct {
	desc   nvrhi.TextureDesc
	record *TextureState
}

func newTestTexture(mipLevels, arraySize uint32, initialState nvrhi.ResourceStates) *testTexture {
	desc := nvrhi.NewTextureDesc()
	desc.Width = 256
	desc.Height = 256
	desc.MipLevels = mipLevels
	desc.ArraySize = arraySize
	desc.DebugName = "testTexture"
	if arraySize > 1 {
		desc.Dimension = nvrhi.Texture2DArray
	}
	return &testTexture{desc: desc, record: NewTextureState(initialState)}
}

func (t *testTexture) Destroy()                   {}
func (t *testTexture) Desc() *nvrhi.TextureDesc   { return &t.desc }
func (t *testTexture) StateRecord() *TextureState { return t.record }

type testBuffer struct {
	desc   nvrhi.BufferDesc
	record *BufferState
}

func newTestBuffer(initialState nvrhi.ResourceStates) *testBuffer {
	return &testBuffer{
		desc:   nvrhi.BufferDesc{ByteSize: 1024, DebugName: "testBuffer", CanHaveUAVs: true},
		record: NewBufferState(initialState),
	}
}

func (b *testBuffer) Destroy()                  {}
func (b *testBuffer) Desc() *nvrhi.BufferDesc   { return &b.desc }
func (b *testBuffer) StateRecord() *BufferState { return b.record }

type captureCallback struct {
	errors []string
}

func (c *captureCallback) Report(severity nvrhi.Severity, message string) {
	if severity >= nvrhi.SeverityError {
		c.errors = append(c.errors, message)
	}
}

func mipRange(mip uint32) nvrhi.TextureSubresourceSet {
	return nvrhi.TextureSubresourceSet{
		BaseMipLevel:   mip,
		NumMipLevels:   1,
		BaseArraySlice: 0,
		NumArraySlices: nvrhi.AllArraySlices,
	}
}

func TestRequireTextureStateIdempotent(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	tex := newTestTexture(4, 1, nvrhi.ResourceStateCommon)

	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateShaderResource)
	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateShaderResource)

	require.Len(t, tracker.TextureBarriers(), 1)
	b := tracker.TextureBarriers()[0]
	assert.True(t, b.EntireTexture)
	assert.Equal(t, nvrhi.ResourceStateCommon, b.StateBefore)
	assert.Equal(t, nvrhi.ResourceStateShaderResource, b.StateAfter)
	assert.False(t, b.UavOnly)
}

func TestRequireTextureStateSplitsOnPartialRange(t *testing.T) {
	// A 4-mip texture in a uniform state: transitioning mip 2 splits
	// the record and emits exactly one barrier; transitioning the
	// entire texture afterwards emits barriers for mips 0, 1 and 3
	// only.
	tracker := NewStateTracker(&captureCallback{})
	tex := newTestTexture(4, 1, nvrhi.ResourceStateCommon)

	tracker.RequireTextureState(tex, mipRange(2), nvrhi.ResourceStateShaderResource)

	require.Len(t, tracker.TextureBarriers(), 1)
	first := tracker.TextureBarriers()[0]
	assert.False(t, first.EntireTexture)
	assert.Equal(t, nvrhi.MipLevel(2), first.MipLevel)
	assert.Equal(t, nvrhi.ResourceStateCommon, first.StateBefore)
	assert.Equal(t, nvrhi.ResourceStateShaderResource, first.StateAfter)

	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateShaderResource)

	barriers := tracker.TextureBarriers()
	require.Len(t, barriers, 4)
	var mips []nvrhi.MipLevel
	for _, b := range barriers[1:] {
		mips = append(mips, b.MipLevel)
	}
	assert.ElementsMatch(t, []nvrhi.MipLevel{0, 1, 3}, mips)
}

func TestTextureStatePartitionCoverage(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	tex := newTestTexture(4, 2, nvrhi.ResourceStateCommon)

	r1 := nvrhi.TextureSubresourceSet{BaseMipLevel: 0, NumMipLevels: 2, BaseArraySlice: 0, NumArraySlices: 2}
	r2 := nvrhi.TextureSubresourceSet{BaseMipLevel: 2, NumMipLevels: 2, BaseArraySlice: 0, NumArraySlices: 2}

	tracker.RequireTextureState(tex, r1, nvrhi.ResourceStateRenderTarget)
	tracker.RequireTextureState(tex, r2, nvrhi.ResourceStateCopySource)

	for slice := nvrhi.ArraySlice(0); slice < 2; slice++ {
		for mip := nvrhi.MipLevel(0); mip < 2; mip++ {
			assert.Equal(t, nvrhi.ResourceStateRenderTarget,
				tracker.GetTextureSubresourceState(tex, slice, mip),
				"slice %d mip %d", slice, mip)
		}
		for mip := nvrhi.MipLevel(2); mip < 4; mip++ {
			assert.Equal(t, nvrhi.ResourceStateCopySource,
				tracker.GetTextureSubresourceState(tex, slice, mip),
				"slice %d mip %d", slice, mip)
		}
	}
}

func TestPermanentTextureStateLocks(t *testing.T) {
	mc := &captureCallback{}
	tracker := NewStateTracker(mc)
	tex := newTestTexture(1, 1, nvrhi.ResourceStateCommon)

	tracker.SetPermanentTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateShaderResource)
	require.Empty(t, mc.errors)
	require.Len(t, tracker.TextureBarriers(), 1)

	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateCopyDest)

	assert.Len(t, mc.errors, 1)
	assert.Len(t, tracker.TextureBarriers(), 1)
	assert.Equal(t, nvrhi.ResourceStateShaderResource,
		tracker.GetTextureSubresourceState(tex, 0, 0))

	// Requiring the permanent state itself is not an error.
	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateShaderResource)
	assert.Len(t, mc.errors, 1)
}

func TestPermanentTextureStateRejectsSubset(t *testing.T) {
	mc := &captureCallback{}
	tracker := NewStateTracker(mc)
	tex := newTestTexture(4, 1, nvrhi.ResourceStateCommon)

	tracker.SetPermanentTextureState(tex, mipRange(1), nvrhi.ResourceStateShaderResource)

	// The transition is applied, but the record is not locked.
	assert.Len(t, mc.errors, 1)
	assert.False(t, tex.record.Permanent())
	assert.Equal(t, nvrhi.ResourceStateShaderResource,
		tracker.GetTextureSubresourceState(tex, 0, 1))
}

func TestBufferUavBarrierSequence(t *testing.T) {
	// Scenario: a freshly created buffer in Common. The first
	// unordered-access use is a plain transition; the second places a
	// UAV-hazard barrier even though the state label is unchanged.
	tracker := NewStateTracker(&captureCallback{})
	buf := newTestBuffer(nvrhi.ResourceStateCommon)

	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)

	require.Len(t, tracker.BufferBarriers(), 1)
	assert.False(t, tracker.BufferBarriers()[0].UavOnly)
	assert.Equal(t, nvrhi.ResourceStateCommon, tracker.BufferBarriers()[0].StateBefore)

	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)

	require.Len(t, tracker.BufferBarriers(), 2)
	second := tracker.BufferBarriers()[1]
	assert.True(t, second.UavOnly)
	assert.Equal(t, nvrhi.ResourceStateUnorderedAccess, second.StateBefore)
	assert.Equal(t, nvrhi.ResourceStateUnorderedAccess, second.StateAfter)
}

func TestBufferFirstUavUseAfterSeedElided(t *testing.T) {
	// A buffer seeded directly in UnorderedAccess: its first
	// unordered-access use places no barrier, the second does.
	tracker := NewStateTracker(&captureCallback{})
	buf := newTestBuffer(nvrhi.ResourceStateUnorderedAccess)

	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)
	assert.Empty(t, tracker.BufferBarriers())

	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)
	require.Len(t, tracker.BufferBarriers(), 1)
	assert.True(t, tracker.BufferBarriers()[0].UavOnly)
}

func TestBufferUavBarriersDisabled(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	buf := newTestBuffer(nvrhi.ResourceStateCommon)

	tracker.SetEnableUavBarriersForBuffer(buf, false)
	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)
	tracker.RequireBufferState(buf, nvrhi.ResourceStateUnorderedAccess)

	for _, b := range tracker.BufferBarriers() {
		assert.False(t, b.UavOnly, "no UAV-hazard barriers expected")
	}
	require.Len(t, tracker.BufferBarriers(), 1) // the Common->UAV transition only
}

func TestVolatileBufferNotTracked(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	buf := newTestBuffer(nvrhi.ResourceStateCommon)
	buf.desc.IsVolatile = true

	tracker.RequireBufferState(buf, nvrhi.ResourceStateShaderResource)

	assert.Empty(t, tracker.BufferBarriers())
	assert.Equal(t, nvrhi.ResourceStateCommon, tracker.GetBufferState(buf))
}

func TestVolatileBufferCannotBeMadePermanent(t *testing.T) {
	mc := &captureCallback{}
	tracker := NewStateTracker(mc)
	buf := newTestBuffer(nvrhi.ResourceStateCommon)
	buf.desc.IsVolatile = true

	tracker.SetPermanentBufferState(buf, nvrhi.ResourceStateShaderResource)

	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "untracked buffer")
	assert.False(t, buf.record.Permanent())
	assert.Empty(t, tracker.BufferBarriers())
}

func TestBeginTrackingEmitsNoBarrier(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	tex := newTestTexture(4, 1, nvrhi.ResourceStateUnknown)

	tracker.BeginTrackingTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateShaderResource)

	assert.Empty(t, tracker.TextureBarriers())
	assert.Equal(t, nvrhi.ResourceStateShaderResource,
		tracker.GetTextureSubresourceState(tex, 0, 3))
}

func TestUnknownStateForcesConservativeBarrier(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	tex := newTestTexture(2, 1, nvrhi.ResourceStateUnknown)

	assert.Equal(t, nvrhi.ResourceStateUnknown,
		tracker.GetTextureSubresourceState(tex, 0, 0))

	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateCopyDest)

	require.Len(t, tracker.TextureBarriers(), 1)
	assert.Equal(t, nvrhi.ResourceStateUnknown, tracker.TextureBarriers()[0].StateBefore)
}

func TestKeepInitialStates(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	tracker.BeginRecording()

	tex := newTestTexture(2, 1, nvrhi.ResourceStateShaderResource)
	tex.desc.InitialState = nvrhi.ResourceStateShaderResource
	tex.desc.KeepInitialState = true

	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateCopyDest)
	require.Len(t, tracker.TextureBarriers(), 1)

	tracker.KeepInitialStates()

	require.Len(t, tracker.TextureBarriers(), 2)
	last := tracker.TextureBarriers()[1]
	assert.Equal(t, nvrhi.ResourceStateCopyDest, last.StateBefore)
	assert.Equal(t, nvrhi.ResourceStateShaderResource, last.StateAfter)
}

func TestClearBarriersKeepsTrackedState(t *testing.T) {
	tracker := NewStateTracker(&captureCallback{})
	tex := newTestTexture(1, 1, nvrhi.ResourceStateCommon)

	tracker.RequireTextureState(tex, nvrhi.AllSubresources, nvrhi.ResourceStateRenderTarget)
	tracker.ClearBarriers()

	assert.False(t, tracker.AnyBarriers())
	// The applied state update is not reverted by discarding the batch.
	assert.Equal(t, nvrhi.ResourceStateRenderTarget,
		tracker.GetTextureSubresourceState(tex, 0, 0))
}
