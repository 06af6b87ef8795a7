// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

import "testing"

func TestBindingRequiredState(t *testing.T) {
	cases := []struct {
		t    ResourceType
		want ResourceStates
	}{
		{ResourceTypeTextureSRV, ResourceStateShaderResource},
		{ResourceTypeRawBufferSRV, ResourceStateShaderResource},
		{ResourceTypeTextureUAV, ResourceStateUnorderedAccess},
		{ResourceTypeStructuredBufferUAV, ResourceStateUnorderedAccess},
		{ResourceTypeConstantBuffer, ResourceStateConstantBuffer},
		{ResourceTypeVolatileConstantBuffer, ResourceStateConstantBuffer},
		{ResourceTypeAccelStruct, ResourceStateAccelStructRead},
		{ResourceTypeSampler, ResourceStateUnknown},
		{ResourceTypePushConstants, ResourceStateUnknown},
		{ResourceTypeNone, ResourceStateUnknown},
	}
	for _, c := range cases {
		if x := BindingRequiredState(c.t); x != c.want {
			t.Errorf("BindingRequiredState(%d):\nhave %v\nwant %v", c.t, x, c.want)
		}
	}
}

type stateTexture struct {
	Texture
	desc TextureDesc
}

func (t *stateTexture) Desc() *TextureDesc { return &t.desc }

type stateFramebuffer struct {
	Framebuffer
	desc FramebufferDesc
}

func (f *stateFramebuffer) Desc() *FramebufferDesc { return &f.desc }

type textureStateCall struct {
	texture Texture
	set     TextureSubresourceSet
	state   ResourceStates
}

type stateRecorder struct {
	CommandList
	calls []textureStateCall
}

func (r *stateRecorder) SetTextureState(t Texture, set TextureSubresourceSet, state ResourceStates) {
	r.calls = append(r.calls, textureStateCall{t, set, state})
}

func TestSetResourceStatesForFramebuffer(t *testing.T) {
	color := &stateTexture{desc: NewTextureDesc()}
	depth := &stateTexture{desc: NewTextureDesc()}
	depth.desc.Format = FormatD24S8

	fb := &stateFramebuffer{desc: FramebufferDesc{
		ColorAttachments: []FramebufferAttachment{
			{Texture: color, Subresources: AllSubresources},
		},
		DepthAttachment: FramebufferAttachment{
			Texture:      depth,
			Subresources: AllSubresources,
		},
	}}

	var rec stateRecorder
	SetResourceStatesForFramebuffer(&rec, fb)

	if len(rec.calls) != 2 {
		t.Fatalf("calls: have %d, want 2", len(rec.calls))
	}
	if rec.calls[0].texture != Texture(color) || rec.calls[0].state != ResourceStateRenderTarget {
		t.Errorf("color attachment: have (%v, %v), want (color, RenderTarget)",
			rec.calls[0].texture, rec.calls[0].state)
	}
	if rec.calls[1].texture != Texture(depth) || rec.calls[1].state != ResourceStateDepthWrite {
		t.Errorf("depth attachment: have (%v, %v), want (depth, DepthWrite)",
			rec.calls[1].texture, rec.calls[1].state)
	}

	// A read-only depth attachment resolves to DepthRead.
	fb.desc.DepthAttachment.IsReadOnly = true
	rec.calls = nil
	SetResourceStatesForFramebuffer(&rec, fb)
	if len(rec.calls) != 2 || rec.calls[1].state != ResourceStateDepthRead {
		t.Errorf("read-only depth attachment: have %v, want DepthRead", rec.calls[1].state)
	}
}
