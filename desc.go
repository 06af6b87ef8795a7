// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

// MipLevel is a mip level index within a texture.
type MipLevel = uint32

// ArraySlice is an array slice index within a texture.
type ArraySlice = uint32

// TextureDimension is the dimensionality of a texture.
type TextureDimension int

// Texture dimensions.
const (
	TextureDimensionUnknown TextureDimension = iota
	Texture1D
	Texture1DArray
	Texture2D
	Texture2DArray
	TextureCube
	TextureCubeArray
	Texture2DMS
	Texture2DMSArray
	Texture3D
)

// hasArraySlices reports whether the dimension addresses array slices
// individually.
func (d TextureDimension) hasArraySlices() bool {
	switch d {
	case Texture1DArray, Texture2DArray, TextureCube, TextureCubeArray, Texture2DMSArray:
		return true
	}
	return false
}

// CPUAccessMode describes host visibility of a buffer.
type CPUAccessMode int

// CPU access modes.
const (
	CPUAccessNone CPUAccessMode = iota
	CPUAccessRead
	CPUAccessWrite
)

// TextureDesc describes a texture resource.
//
// InitialState and KeepInitialState control automatic state tracking:
// when KeepInitialState is set, command lists begin tracking the
// texture in InitialState on first use, and transition it back to
// InitialState when they close.
type TextureDesc struct {
	Width       uint32
	Height      uint32
	Depth       uint32
	ArraySize   uint32
	MipLevels   uint32
	SampleCount uint32
	Format      Format
	Dimension   TextureDimension
	DebugName   string

	IsRenderTarget bool
	IsUAV          bool
	IsTypeless     bool

	InitialState     ResourceStates
	KeepInitialState bool
}

// NewTextureDesc returns a TextureDesc with the usual defaults:
// a 1x1x1, single-sample, single-mip 2D texture.
func NewTextureDesc() TextureDesc {
	return TextureDesc{
		Width:       1,
		Height:      1,
		Depth:       1,
		ArraySize:   1,
		MipLevels:   1,
		SampleCount: 1,
		Dimension:   Texture2D,
	}
}

// NumSubresources returns the number of individually addressable
// (mip, array slice) units in the texture.
func (d *TextureDesc) NumSubresources() uint32 {
	return d.MipLevels * d.ArraySize
}

// SubresourceIndex flattens a (mip, array slice) pair into the
// canonical subresource index.
func (d *TextureDesc) SubresourceIndex(mipLevel MipLevel, arraySlice ArraySlice) uint32 {
	return mipLevel + arraySlice*d.MipLevels
}

// BufferDesc describes a buffer resource.
//
// Volatile buffers are versioned upload buffers written by the CPU
// every frame; they are never state-tracked.
type BufferDesc struct {
	ByteSize     uint64
	StructStride uint32 // nonzero makes the buffer structured
	DebugName    string

	CanHaveUAVs        bool
	CanHaveRawViews    bool
	IsVertexBuffer     bool
	IsIndexBuffer      bool
	IsConstantBuffer   bool
	IsDrawIndirectArgs bool
	IsAccelStructStorage bool
	IsVolatile         bool

	CPUAccess CPUAccessMode

	InitialState     ResourceStates
	KeepInitialState bool
}

// AllMipLevels and AllArraySlices mark a TextureSubresourceSet field
// as extending to the end of the resource.
const (
	AllMipLevels   MipLevel   = ^MipLevel(0)
	AllArraySlices ArraySlice = ^ArraySlice(0)
)

// TextureSubresourceSet selects a rectangular range of texture
// subresources: mip levels [BaseMipLevel, BaseMipLevel+NumMipLevels)
// across array slices [BaseArraySlice, BaseArraySlice+NumArraySlices).
type TextureSubresourceSet struct {
	BaseMipLevel   MipLevel
	NumMipLevels   MipLevel
	BaseArraySlice ArraySlice
	NumArraySlices ArraySlice
}

// AllSubresources selects every subresource of a texture, tracked or
// not yet split.
var AllSubresources = TextureSubresourceSet{
	BaseMipLevel:   0,
	NumMipLevels:   AllMipLevels,
	BaseArraySlice: 0,
	NumArraySlices: AllArraySlices,
}

// Resolve clamps the set against the texture descriptor. If
// singleMipLevel is true, the result covers exactly one mip level.
// For non-array dimensions the resolved slice range is always [0, 1).
func (s TextureSubresourceSet) Resolve(desc *TextureDesc, singleMipLevel bool) TextureSubresourceSet {
	var ret TextureSubresourceSet
	ret.BaseMipLevel = s.BaseMipLevel

	if singleMipLevel {
		ret.NumMipLevels = 1
	} else {
		lastMipLevelPlusOne := min(saturatingAdd(s.BaseMipLevel, s.NumMipLevels), desc.MipLevels)
		if lastMipLevelPlusOne > s.BaseMipLevel {
			ret.NumMipLevels = lastMipLevelPlusOne - s.BaseMipLevel
		}
	}

	if desc.Dimension.hasArraySlices() {
		ret.BaseArraySlice = s.BaseArraySlice
		lastArraySlicePlusOne := min(saturatingAdd(s.BaseArraySlice, s.NumArraySlices), desc.ArraySize)
		if lastArraySlicePlusOne > s.BaseArraySlice {
			ret.NumArraySlices = lastArraySlicePlusOne - s.BaseArraySlice
		}
	} else {
		ret.BaseArraySlice = 0
		ret.NumArraySlices = 1
	}

	return ret
}

// IsEntireTexture reports whether the set covers every subresource
// of a texture with the given descriptor.
func (s TextureSubresourceSet) IsEntireTexture(desc *TextureDesc) bool {
	if s.BaseMipLevel > 0 || saturatingAdd(s.BaseMipLevel, s.NumMipLevels) < desc.MipLevels {
		return false
	}
	if desc.Dimension.hasArraySlices() {
		if s.BaseArraySlice > 0 || saturatingAdd(s.BaseArraySlice, s.NumArraySlices) < desc.ArraySize {
			return false
		}
	}
	return true
}

// saturatingAdd adds two uint32 values, clamping at the maximum
// instead of wrapping. The "all" sentinels rely on this.
func saturatingAdd(a, b uint32) uint32 {
	if c := a + b; c >= a {
		return c
	}
	return ^uint32(0)
}

// TextureSlice selects a region of a single texture subresource.
// Width, Height and Depth of ^uint32(0) mean "to the end of the
// mip level".
type TextureSlice struct {
	X, Y, Z              uint32
	Width, Height, Depth uint32
	MipLevel             MipLevel
	ArraySlice           ArraySlice
}

// NewTextureSlice returns a slice covering the whole of mip level 0.
func NewTextureSlice() TextureSlice {
	return TextureSlice{
		Width:  ^uint32(0),
		Height: ^uint32(0),
		Depth:  ^uint32(0),
	}
}

// Resolve computes the concrete extent of the slice within the given
// texture. For compressed formats the extent is rounded up to whole
// blocks.
func (s TextureSlice) Resolve(desc *TextureDesc) TextureSlice {
	ret := s

	if s.Width == ^uint32(0) {
		ret.Width = max(desc.Width>>s.MipLevel, 1)
	}
	if s.Height == ^uint32(0) {
		ret.Height = max(desc.Height>>s.MipLevel, 1)
	}
	if s.Depth == ^uint32(0) {
		if desc.Dimension == Texture3D {
			ret.Depth = max(desc.Depth>>s.MipLevel, 1)
		} else {
			ret.Depth = 1
		}
	}

	info := GetFormatInfo(desc.Format)
	blockSize := uint32(info.BlockSize)
	ret.Width = max(ret.Width, blockSize)
	ret.Height = max(ret.Height, blockSize)
	if blockSize > 1 {
		ret.Width = (ret.Width + blockSize - 1) / blockSize * blockSize
		ret.Height = (ret.Height + blockSize - 1) / blockSize * blockSize
	}

	return ret
}

// BufferRange selects a byte range of a buffer. A zero ByteSize means
// "to the end of the buffer".
type BufferRange struct {
	ByteOffset uint64
	ByteSize   uint64
}

// EntireBuffer selects the whole buffer.
var EntireBuffer = BufferRange{}

// Resolve clamps the range against the buffer descriptor.
func (r BufferRange) Resolve(desc *BufferDesc) BufferRange {
	var ret BufferRange
	ret.ByteOffset = min(r.ByteOffset, desc.ByteSize)
	if r.ByteSize == 0 {
		ret.ByteSize = desc.ByteSize - ret.ByteOffset
	} else {
		ret.ByteSize = min(r.ByteSize, desc.ByteSize-ret.ByteOffset)
	}
	return ret
}
