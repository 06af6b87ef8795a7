// Copyright 2024 The nvrhi Authors. All rights reserved.

package d3d12

import (
	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

// texture implements nvrhi.Texture and tracking.Texture over an
// ID3D12Resource. Creation and destruction live in the Windows build.
type texture struct {
	desc     nvrhi.TextureDesc
	record   *tracking.TextureState
	resource uintptr
	rtv      uint64 // CPU descriptor handle, 0 when not a render target
	dsv      uint64
}

func (t *texture) Destroy() {
	releaseIUnknown(t.resource)
	t.resource = 0
}

func (t *texture) Desc() *nvrhi.TextureDesc { return &t.desc }

func (t *texture) StateRecord() *tracking.TextureState { return t.record }

func (t *texture) nativePtr() uintptr { return t.resource }

// buffer implements nvrhi.Buffer and tracking.Buffer.
type buffer struct {
	desc     nvrhi.BufferDesc
	record   *tracking.BufferState
	resource uintptr
	gpuVA    uint64
}

func (b *buffer) Destroy() {
	releaseIUnknown(b.resource)
	b.resource = 0
}

func (b *buffer) Desc() *nvrhi.BufferDesc { return &b.desc }

func (b *buffer) StateRecord() *tracking.BufferState { return b.record }

func (b *buffer) nativePtr() uintptr { return b.resource }

func initialTrackingState(initial nvrhi.ResourceStates, keep bool) nvrhi.ResourceStates {
	if keep {
		return initial
	}
	return nvrhi.ResourceStateUnknown
}

// bindingLayout and bindingSet carry their descriptors; root signature
// construction consumes them at pipeline creation.
type bindingLayout struct {
	desc nvrhi.BindingLayoutDesc
}

func (l *bindingLayout) Destroy()                       {}
func (l *bindingLayout) Desc() *nvrhi.BindingLayoutDesc { return &l.desc }

type bindingSet struct {
	desc   nvrhi.BindingSetDesc
	layout nvrhi.BindingLayout

	// Shader-visible descriptor table baked at creation time.
	// tableHandle is the GPU handle of the first descriptor;
	// tableSize is zero for sets with no table-resident bindings.
	tableHandle uint64
	tableSize   uint32
}

func (s *bindingSet) Destroy()                    {}
func (s *bindingSet) Desc() *nvrhi.BindingSetDesc { return &s.desc }
func (s *bindingSet) Layout() nvrhi.BindingLayout { return s.layout }

type framebuffer struct {
	desc nvrhi.FramebufferDesc

	rtvs   []uint64 // CPU descriptor handles of the color attachments
	dsv    uint64
	width  uint32
	height uint32
}

func (f *framebuffer) Destroy()                     {}
func (f *framebuffer) Desc() *nvrhi.FramebufferDesc { return &f.desc }

type graphicsPipeline struct {
	desc          nvrhi.GraphicsPipelineDesc
	rootSignature uintptr

	// Root parameter index and declared byte size of the
	// push-constant block; pushConstSize is zero when absent.
	pushConstParam uint32
	pushConstSize  uint32

	// tableParams maps a binding set slot to its descriptor table
	// root parameter, -1 for layouts with no table bindings.
	tableParams []int32
}

func (p *graphicsPipeline) Destroy() {
	releaseIUnknown(p.rootSignature)
	p.rootSignature = 0
}

func (p *graphicsPipeline) Desc() *nvrhi.GraphicsPipelineDesc { return &p.desc }

type computePipeline struct {
	desc          nvrhi.ComputePipelineDesc
	rootSignature uintptr

	pushConstParam uint32
	pushConstSize  uint32
	tableParams    []int32
}

func (p *computePipeline) Destroy() {
	releaseIUnknown(p.rootSignature)
	p.rootSignature = 0
}

func (p *computePipeline) Desc() *nvrhi.ComputePipelineDesc { return &p.desc }
