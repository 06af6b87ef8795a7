// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

import "testing"

func TestSubresourceSetResolve(t *testing.T) {
	tex2D := NewTextureDesc()
	tex2D.MipLevels = 4

	texArray := NewTextureDesc()
	texArray.Dimension = Texture2DArray
	texArray.MipLevels = 4
	texArray.ArraySize = 6

	cases := []struct {
		desc           *TextureDesc
		set            TextureSubresourceSet
		singleMipLevel bool
		want           TextureSubresourceSet
	}{
		{
			&tex2D,
			AllSubresources,
			false,
			TextureSubresourceSet{NumMipLevels: 4, NumArraySlices: 1},
		},
		{
			&tex2D,
			TextureSubresourceSet{BaseMipLevel: 1, NumMipLevels: AllMipLevels},
			false,
			TextureSubresourceSet{BaseMipLevel: 1, NumMipLevels: 3, NumArraySlices: 1},
		},
		{
			&tex2D,
			TextureSubresourceSet{BaseMipLevel: 2, NumMipLevels: 4},
			true,
			TextureSubresourceSet{BaseMipLevel: 2, NumMipLevels: 1, NumArraySlices: 1},
		},
		{
			// Slice range applies only to array dimensions.
			&tex2D,
			TextureSubresourceSet{NumMipLevels: 4, BaseArraySlice: 3, NumArraySlices: 2},
			false,
			TextureSubresourceSet{NumMipLevels: 4, NumArraySlices: 1},
		},
		{
			&texArray,
			TextureSubresourceSet{NumMipLevels: 4, BaseArraySlice: 2, NumArraySlices: AllArraySlices},
			false,
			TextureSubresourceSet{NumMipLevels: 4, BaseArraySlice: 2, NumArraySlices: 4},
		},
		{
			// Range past the end resolves to zero mip levels.
			&tex2D,
			TextureSubresourceSet{BaseMipLevel: 7, NumMipLevels: 2},
			false,
			TextureSubresourceSet{BaseMipLevel: 7, NumArraySlices: 1},
		},
	}
	for _, c := range cases {
		if x := c.set.Resolve(c.desc, c.singleMipLevel); x != c.want {
			t.Errorf("Resolve(%+v, %v):\nhave %+v\nwant %+v", c.set, c.singleMipLevel, x, c.want)
		}
	}
}

func TestSubresourceSetIsEntireTexture(t *testing.T) {
	desc := NewTextureDesc()
	desc.Dimension = Texture2DArray
	desc.MipLevels = 4
	desc.ArraySize = 2

	cases := []struct {
		set  TextureSubresourceSet
		want bool
	}{
		{AllSubresources, true},
		{TextureSubresourceSet{NumMipLevels: 4, NumArraySlices: 2}, true},
		{TextureSubresourceSet{NumMipLevels: 3, NumArraySlices: 2}, false},
		{TextureSubresourceSet{BaseMipLevel: 1, NumMipLevels: 3, NumArraySlices: 2}, false},
		{TextureSubresourceSet{NumMipLevels: 4, BaseArraySlice: 1, NumArraySlices: 1}, false},
	}
	for _, c := range cases {
		if x := c.set.IsEntireTexture(&desc); x != c.want {
			t.Errorf("IsEntireTexture(%+v):\nhave %v\nwant %v", c.set, x, c.want)
		}
	}
}

func TestSubresourceIndex(t *testing.T) {
	desc := NewTextureDesc()
	desc.Dimension = Texture2DArray
	desc.MipLevels = 4
	desc.ArraySize = 3

	cases := []struct {
		mip   MipLevel
		slice ArraySlice
		want  uint32
	}{
		{0, 0, 0},
		{3, 0, 3},
		{0, 1, 4},
		{2, 2, 10},
	}
	for _, c := range cases {
		if x := desc.SubresourceIndex(c.mip, c.slice); x != c.want {
			t.Errorf("SubresourceIndex(%d, %d):\nhave %d\nwant %d", c.mip, c.slice, x, c.want)
		}
	}
	if x := desc.NumSubresources(); x != 12 {
		t.Errorf("NumSubresources:\nhave %d\nwant 12", x)
	}
}

func TestTextureSliceResolve(t *testing.T) {
	desc := NewTextureDesc()
	desc.Width = 256
	desc.Height = 128
	desc.Format = FormatRGBA8Unorm
	desc.MipLevels = 9

	s := NewTextureSlice()
	s.MipLevel = 3
	r := s.Resolve(&desc)
	if r.Width != 32 || r.Height != 16 || r.Depth != 1 {
		t.Errorf("Resolve mip 3: have %dx%dx%d, want 32x16x1", r.Width, r.Height, r.Depth)
	}

	// Mips below the block size round up to whole blocks.
	bc := desc
	bc.Format = FormatBC1Unorm
	s.MipLevel = 7
	r = s.Resolve(&bc)
	if r.Width != 4 || r.Height != 4 {
		t.Errorf("Resolve compressed mip 7: have %dx%d, want 4x4", r.Width, r.Height)
	}
}

func TestBufferRangeResolve(t *testing.T) {
	desc := BufferDesc{ByteSize: 1024}

	cases := []struct {
		r    BufferRange
		want BufferRange
	}{
		{EntireBuffer, BufferRange{0, 1024}},
		{BufferRange{256, 0}, BufferRange{256, 768}},
		{BufferRange{256, 512}, BufferRange{256, 512}},
		{BufferRange{256, 4096}, BufferRange{256, 768}},
		{BufferRange{2048, 16}, BufferRange{1024, 0}},
	}
	for _, c := range cases {
		if x := c.r.Resolve(&desc); x != c.want {
			t.Errorf("Resolve(%+v):\nhave %+v\nwant %+v", c.r, x, c.want)
		}
	}
}
