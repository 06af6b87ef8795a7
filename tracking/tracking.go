// Copyright 2024 The nvrhi Authors. All rights reserved.

// Package tracking implements the resource-state tracking engine
// shared by the native backends. A StateTracker belongs to exactly
// one command list and must be driven by one goroutine at a time;
// the TextureState and BufferState records belong to the resources
// themselves, so a resource's last known state survives command-list
// reuse and is visible to the next command list that touches it.
// Concurrent recording against the same resource is a caller-level
// hazard that the tracker does not arbitrate.
package tracking

import (
	"fmt"

	"github.com/lawfuyang/nvrhi"
)

// Texture is the view of a texture resource the tracker operates on.
// Backend textures implement it by embedding a TextureState.
type Texture interface {
	nvrhi.Texture

	// StateRecord returns the texture's tracked-state record.
	// The record is owned by the texture, not by any command list.
	StateRecord() *TextureState
}

// Buffer is the buffer counterpart of Texture.
type Buffer interface {
	nvrhi.Buffer

	// StateRecord returns the buffer's tracked-state record.
	StateRecord() *BufferState
}

// TextureState is the tracked state of a texture. It starts as a
// single uniform state covering every subresource; the first partial
// transition that diverges from the rest splits it into one entry per
// (mip, array slice). Splitting is one-directional: the record never
// re-merges, even if all entries later converge.
type TextureState struct {
	uniformState      nvrhi.ResourceStates
	subresourceStates []nvrhi.ResourceStates

	enableUavBarriers     bool
	firstUavBarrierPlaced bool

	permanentState nvrhi.ResourceStates
	permanent      bool
}

// NewTextureState returns a record seeded with the given state for
// every subresource. Use ResourceStateUnknown when the true state is
// not known at creation; the first transition will then be
// conservative.
func NewTextureState(initialState nvrhi.ResourceStates) *TextureState {
	return &TextureState{
		uniformState:      initialState,
		enableUavBarriers: true,
	}
}

// split reports whether the record holds per-subresource entries.
func (s *TextureState) split() bool { return s.subresourceStates != nil }

// splitStates promotes the record to per-subresource granularity,
// copying the uniform state into every slot.
func (s *TextureState) splitStates(desc *nvrhi.TextureDesc) {
	n := desc.NumSubresources()
	s.subresourceStates = make([]nvrhi.ResourceStates, n)
	for i := range s.subresourceStates {
		s.subresourceStates[i] = s.uniformState
	}
}

// SubresourceState returns the tracked state of one subresource.
func (s *TextureState) SubresourceState(desc *nvrhi.TextureDesc, arraySlice nvrhi.ArraySlice, mipLevel nvrhi.MipLevel) nvrhi.ResourceStates {
	if !s.split() {
		return s.uniformState
	}
	idx := desc.SubresourceIndex(mipLevel, arraySlice)
	if idx >= uint32(len(s.subresourceStates)) {
		return nvrhi.ResourceStateUnknown
	}
	return s.subresourceStates[idx]
}

// Permanent reports whether the record has been locked to a state for
// the rest of the resource's lifetime.
func (s *TextureState) Permanent() bool { return s.permanent }

// BufferState is the tracked state of a buffer. Buffers are always
// tracked whole; there is no subresource granularity.
type BufferState struct {
	state nvrhi.ResourceStates

	enableUavBarriers     bool
	firstUavBarrierPlaced bool

	permanentState nvrhi.ResourceStates
	permanent      bool
}

// NewBufferState returns a record seeded with the given state.
func NewBufferState(initialState nvrhi.ResourceStates) *BufferState {
	return &BufferState{
		state:             initialState,
		enableUavBarriers: true,
	}
}

// State returns the tracked state.
func (s *BufferState) State() nvrhi.ResourceStates { return s.state }

// Permanent reports whether the record has been locked to a state.
func (s *BufferState) Permanent() bool { return s.permanent }

// TextureBarrier is a pending transition of one texture subresource,
// or of the entire texture when EntireTexture is set.
type TextureBarrier struct {
	Texture    Texture
	MipLevel   nvrhi.MipLevel
	ArraySlice nvrhi.ArraySlice
	// EntireTexture widens the barrier to every subresource,
	// allowing the backend to emit one native barrier instead of
	// one per subresource.
	EntireTexture bool

	StateBefore nvrhi.ResourceStates
	StateAfter  nvrhi.ResourceStates

	// UavOnly marks a hazard barrier between two unordered-access
	// uses: StateBefore equals StateAfter and no layout change is
	// implied.
	UavOnly bool
}

// BufferBarrier is a pending transition of a whole buffer.
type BufferBarrier struct {
	Buffer Buffer

	StateBefore nvrhi.ResourceStates
	StateAfter  nvrhi.ResourceStates

	// UavOnly marks a hazard barrier between two unordered-access
	// uses.
	UavOnly bool
}

// StateTracker accumulates the pending barrier batch of one command
// list and applies state transitions to resource records. It performs
// no synchronization of its own.
type StateTracker struct {
	messages nvrhi.MessageCallback

	textureBarriers []TextureBarrier
	bufferBarriers  []BufferBarrier

	// Resources touched since BeginRecording, for restoring
	// KeepInitialState resources at close.
	trackedTextures []Texture
	trackedBuffers  []Buffer
}

// NewStateTracker returns a tracker reporting errors through mc.
func NewStateTracker(mc nvrhi.MessageCallback) *StateTracker {
	if mc == nil {
		mc = nvrhi.DefaultMessageCallback()
	}
	return &StateTracker{messages: mc}
}

// BeginRecording forgets the resources touched by the previous
// recording. Tracked resource states are not reset: a resource's last
// known state survives command-list reuse.
func (t *StateTracker) BeginRecording() {
	t.trackedTextures = t.trackedTextures[:0]
	t.trackedBuffers = t.trackedBuffers[:0]
}

// RequireTextureState records that the upcoming operation needs the
// given range of texture in the given state. For every subresource
// whose tracked state differs, a pending barrier is appended and the
// tracked state updated. Consecutive unordered-access uses get a
// hazard barrier subject to the record's UAV-barrier policy.
func (t *StateTracker) RequireTextureState(texture Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	desc := texture.Desc()
	record := texture.StateRecord()
	t.touchTexture(texture)

	if record.permanent {
		if state != record.permanentState {
			t.messages.Report(nvrhi.SeverityError, fmt.Sprintf(
				"Texture %s is in the permanent state %s and cannot be transitioned to %s",
				textureName(texture), record.permanentState, state))
		}
		return
	}

	subresources = subresources.Resolve(desc, false)

	if subresources.IsEntireTexture(desc) && !record.split() {
		// Uniform fast path: one logical subresource, one barrier.
		t.transitionTexture(texture, record, &record.uniformState, true, 0, 0, state)
		return
	}

	if !record.split() {
		record.splitStates(desc)
	}
	for slice := subresources.BaseArraySlice; slice < subresources.BaseArraySlice+subresources.NumArraySlices; slice++ {
		for mip := subresources.BaseMipLevel; mip < subresources.BaseMipLevel+subresources.NumMipLevels; mip++ {
			idx := desc.SubresourceIndex(mip, slice)
			t.transitionTexture(texture, record, &record.subresourceStates[idx], false, mip, slice, state)
		}
	}
}

// transitionTexture diffs one subresource slot against the required
// state, appending a pending barrier when necessary.
func (t *StateTracker) transitionTexture(texture Texture, record *TextureState, slot *nvrhi.ResourceStates, entire bool, mip nvrhi.MipLevel, slice nvrhi.ArraySlice, state nvrhi.ResourceStates) {
	prior := *slot

	transitionNecessary := prior != state
	uavNecessary := state&nvrhi.ResourceStateUnorderedAccess != 0 &&
		prior&nvrhi.ResourceStateUnorderedAccess != 0 &&
		record.enableUavBarriers && record.firstUavBarrierPlaced

	if transitionNecessary || uavNecessary {
		t.textureBarriers = append(t.textureBarriers, TextureBarrier{
			Texture:       texture,
			MipLevel:      mip,
			ArraySlice:    slice,
			EntireTexture: entire,
			StateBefore:   prior,
			StateAfter:    state,
			UavOnly:       !transitionNecessary,
		})
	}

	if state&nvrhi.ResourceStateUnorderedAccess != 0 {
		record.firstUavBarrierPlaced = true
	}

	*slot = state
}

// RequireBufferState is the buffer counterpart of RequireTextureState.
// Volatile and CPU-visible buffers are not tracked; calls for them are
// ignored.
func (t *StateTracker) RequireBufferState(buffer Buffer, state nvrhi.ResourceStates) {
	desc := buffer.Desc()
	if desc.IsVolatile || desc.CPUAccess != nvrhi.CPUAccessNone {
		return
	}

	record := buffer.StateRecord()
	t.touchBuffer(buffer)

	if record.permanent {
		if state != record.permanentState {
			t.messages.Report(nvrhi.SeverityError, fmt.Sprintf(
				"Buffer %s is in the permanent state %s and cannot be transitioned to %s",
				bufferName(buffer), record.permanentState, state))
		}
		return
	}

	prior := record.state

	transitionNecessary := prior != state
	uavNecessary := state&nvrhi.ResourceStateUnorderedAccess != 0 &&
		prior&nvrhi.ResourceStateUnorderedAccess != 0 &&
		record.enableUavBarriers && record.firstUavBarrierPlaced

	if transitionNecessary || uavNecessary {
		t.bufferBarriers = append(t.bufferBarriers, BufferBarrier{
			Buffer:      buffer,
			StateBefore: prior,
			StateAfter:  state,
			UavOnly:     !transitionNecessary,
		})
	}

	if state&nvrhi.ResourceStateUnorderedAccess != 0 {
		record.firstUavBarrierPlaced = true
	}

	record.state = state
}

// BeginTrackingTextureState seeds the tracked state of a texture range
// without emitting any barrier. Use it when the true current state is
// known from creation semantics or external synchronization.
func (t *StateTracker) BeginTrackingTextureState(texture Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	desc := texture.Desc()
	record := texture.StateRecord()

	if record.permanent {
		return
	}

	subresources = subresources.Resolve(desc, false)

	if subresources.IsEntireTexture(desc) && !record.split() {
		record.uniformState = state
		return
	}

	if !record.split() {
		record.splitStates(desc)
	}
	for slice := subresources.BaseArraySlice; slice < subresources.BaseArraySlice+subresources.NumArraySlices; slice++ {
		for mip := subresources.BaseMipLevel; mip < subresources.BaseMipLevel+subresources.NumMipLevels; mip++ {
			record.subresourceStates[desc.SubresourceIndex(mip, slice)] = state
		}
	}
}

// BeginTrackingBufferState seeds the tracked state of a buffer without
// emitting any barrier.
func (t *StateTracker) BeginTrackingBufferState(buffer Buffer, state nvrhi.ResourceStates) {
	desc := buffer.Desc()
	if desc.IsVolatile || desc.CPUAccess != nvrhi.CPUAccessNone {
		return
	}
	record := buffer.StateRecord()
	if record.permanent {
		return
	}
	record.state = state
}

// SetPermanentTextureState performs one final transition of the whole
// texture and then locks the record: any later call that would change
// its state is reported as an error and not applied. A subresource
// subset is an error; the transition is still applied but the record
// is not locked.
func (t *StateTracker) SetPermanentTextureState(texture Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
	desc := texture.Desc()
	record := texture.StateRecord()

	entire := subresources.Resolve(desc, false).IsEntireTexture(desc)
	if !entire {
		t.messages.Report(nvrhi.SeverityError, fmt.Sprintf(
			"Attempted to perform a permanent state transition on a subset of subresources of texture %s",
			textureName(texture)))
	}

	t.RequireTextureState(texture, subresources, state)

	if entire && !record.permanent {
		record.permanent = true
		record.permanentState = state
	}
}

// SetPermanentBufferState is the buffer counterpart of
// SetPermanentTextureState. Volatile and CPU-visible buffers are never
// tracked, so locking them is an error and the record is left alone.
func (t *StateTracker) SetPermanentBufferState(buffer Buffer, state nvrhi.ResourceStates) {
	desc := buffer.Desc()
	if desc.IsVolatile || desc.CPUAccess != nvrhi.CPUAccessNone {
		t.messages.Report(nvrhi.SeverityError, fmt.Sprintf(
			"Attempted to perform a permanent state transition on the untracked buffer %s",
			bufferName(buffer)))
		return
	}

	record := buffer.StateRecord()

	t.RequireBufferState(buffer, state)

	if !record.permanent {
		record.permanent = true
		record.permanentState = state
	}
}

// GetTextureSubresourceState returns the tracked state of one
// subresource. A subresource that was never seeded reports
// ResourceStateUnknown, which forces a conservative barrier on its
// next transition.
func (t *StateTracker) GetTextureSubresourceState(texture Texture, arraySlice nvrhi.ArraySlice, mipLevel nvrhi.MipLevel) nvrhi.ResourceStates {
	return texture.StateRecord().SubresourceState(texture.Desc(), arraySlice, mipLevel)
}

// GetBufferState returns the tracked state of a buffer.
func (t *StateTracker) GetBufferState(buffer Buffer) nvrhi.ResourceStates {
	return buffer.StateRecord().State()
}

// SetEnableUavBarriersForTexture toggles UAV-hazard barrier placement
// for the texture. Disabling asserts that the caller synchronizes
// unordered-access operations externally.
func (t *StateTracker) SetEnableUavBarriersForTexture(texture Texture, enable bool) {
	record := texture.StateRecord()
	record.enableUavBarriers = enable
	record.firstUavBarrierPlaced = false
}

// SetEnableUavBarriersForBuffer is the buffer counterpart.
func (t *StateTracker) SetEnableUavBarriersForBuffer(buffer Buffer, enable bool) {
	record := buffer.StateRecord()
	record.enableUavBarriers = enable
	record.firstUavBarrierPlaced = false
}

// KeepInitialStates requires every touched resource created with
// KeepInitialState back into its declared initial state. Backends call
// it when a command list closes, before the final barrier commit.
func (t *StateTracker) KeepInitialStates() {
	for _, texture := range t.trackedTextures {
		desc := texture.Desc()
		if desc.KeepInitialState && !texture.StateRecord().permanent {
			t.RequireTextureState(texture, nvrhi.AllSubresources, desc.InitialState)
		}
	}
	for _, buffer := range t.trackedBuffers {
		desc := buffer.Desc()
		if desc.KeepInitialState && !buffer.StateRecord().permanent {
			t.RequireBufferState(buffer, desc.InitialState)
		}
	}
}

// TextureBarriers returns the pending texture barrier batch in
// insertion order.
func (t *StateTracker) TextureBarriers() []TextureBarrier { return t.textureBarriers }

// BufferBarriers returns the pending buffer barrier batch in
// insertion order.
func (t *StateTracker) BufferBarriers() []BufferBarrier { return t.bufferBarriers }

// AnyBarriers reports whether the batch is non-empty.
func (t *StateTracker) AnyBarriers() bool {
	return len(t.textureBarriers) > 0 || len(t.bufferBarriers) > 0
}

// ClearBarriers discards the pending batch. Tracked-state updates that
// were already applied are not reverted.
func (t *StateTracker) ClearBarriers() {
	t.textureBarriers = t.textureBarriers[:0]
	t.bufferBarriers = t.bufferBarriers[:0]
}

func (t *StateTracker) touchTexture(texture Texture) {
	for _, known := range t.trackedTextures {
		if known == texture {
			return
		}
	}
	t.trackedTextures = append(t.trackedTextures, texture)
}

func (t *StateTracker) touchBuffer(buffer Buffer) {
	for _, known := range t.trackedBuffers {
		if known == buffer {
			return
		}
	}
	t.trackedBuffers = append(t.trackedBuffers, buffer)
}

func textureName(texture Texture) string {
	if name := texture.Desc().DebugName; name != "" {
		return name
	}
	return fmt.Sprintf("%p", texture)
}

func bufferName(buffer Buffer) string {
	if name := buffer.Desc().DebugName; name != "" {
		return name
	}
	return fmt.Sprintf("%p", buffer)
}
