// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

// Format describes the layout of a texel or vertex element.
type Format int

// Formats.
const (
	FormatUnknown Format = iota

	FormatR8Uint
	FormatR8Sint
	FormatR8Unorm
	FormatR8Snorm
	FormatRG8Uint
	FormatRG8Unorm
	FormatR16Uint
	FormatR16Sint
	FormatR16Unorm
	FormatR16Float
	FormatRGBA8Uint
	FormatRGBA8Unorm
	FormatRGBA8Snorm
	FormatBGRA8Unorm
	FormatSRGBA8Unorm
	FormatSBGRA8Unorm
	FormatR10G10B10A2Unorm
	FormatR11G11B10Float
	FormatRG16Uint
	FormatRG16Float
	FormatR32Uint
	FormatR32Sint
	FormatR32Float
	FormatRGBA16Uint
	FormatRGBA16Float
	FormatRGBA16Unorm
	FormatRG32Uint
	FormatRG32Float
	FormatRGB32Uint
	FormatRGB32Float
	FormatRGBA32Uint
	FormatRGBA32Float

	FormatD16
	FormatD24S8
	FormatX24G8Uint
	FormatD32
	FormatD32S8
	FormatX32G8Uint

	FormatBC1Unorm
	FormatBC1UnormSRGB
	FormatBC2Unorm
	FormatBC3Unorm
	FormatBC4Unorm
	FormatBC5Unorm
	FormatBC6HUFloat
	FormatBC7Unorm

	formatCount
)

// FormatKind is the coarse category of a format.
type FormatKind int

// Format kinds.
const (
	FormatKindInteger FormatKind = iota
	FormatKindNormalized
	FormatKindFloat
	FormatKindDepthStencil
)

// FormatInfo describes the properties of a Format that are relevant to
// subresource arithmetic and barrier translation: block footprint and
// depth/stencil aspects.
type FormatInfo struct {
	Format        Format
	Name          string
	Kind          FormatKind
	BytesPerBlock uint8
	BlockSize     uint8
	HasDepth      bool
	HasStencil    bool
}

var formatInfo = [formatCount]FormatInfo{
	{FormatUnknown, "UNKNOWN", FormatKindInteger, 0, 1, false, false},

	{FormatR8Uint, "R8_UINT", FormatKindInteger, 1, 1, false, false},
	{FormatR8Sint, "R8_SINT", FormatKindInteger, 1, 1, false, false},
	{FormatR8Unorm, "R8_UNORM", FormatKindNormalized, 1, 1, false, false},
	{FormatR8Snorm, "R8_SNORM", FormatKindNormalized, 1, 1, false, false},
	{FormatRG8Uint, "RG8_UINT", FormatKindInteger, 2, 1, false, false},
	{FormatRG8Unorm, "RG8_UNORM", FormatKindNormalized, 2, 1, false, false},
	{FormatR16Uint, "R16_UINT", FormatKindInteger, 2, 1, false, false},
	{FormatR16Sint, "R16_SINT", FormatKindInteger, 2, 1, false, false},
	{FormatR16Unorm, "R16_UNORM", FormatKindNormalized, 2, 1, false, false},
	{FormatR16Float, "R16_FLOAT", FormatKindFloat, 2, 1, false, false},
	{FormatRGBA8Uint, "RGBA8_UINT", FormatKindInteger, 4, 1, false, false},
	{FormatRGBA8Unorm, "RGBA8_UNORM", FormatKindNormalized, 4, 1, false, false},
	{FormatRGBA8Snorm, "RGBA8_SNORM", FormatKindNormalized, 4, 1, false, false},
	{FormatBGRA8Unorm, "BGRA8_UNORM", FormatKindNormalized, 4, 1, false, false},
	{FormatSRGBA8Unorm, "SRGBA8_UNORM", FormatKindNormalized, 4, 1, false, false},
	{FormatSBGRA8Unorm, "SBGRA8_UNORM", FormatKindNormalized, 4, 1, false, false},
	{FormatR10G10B10A2Unorm, "R10G10B10A2_UNORM", FormatKindNormalized, 4, 1, false, false},
	{FormatR11G11B10Float, "R11G11B10_FLOAT", FormatKindFloat, 4, 1, false, false},
	{FormatRG16Uint, "RG16_UINT", FormatKindInteger, 4, 1, false, false},
	{FormatRG16Float, "RG16_FLOAT", FormatKindFloat, 4, 1, false, false},
	{FormatR32Uint, "R32_UINT", FormatKindInteger, 4, 1, false, false},
	{FormatR32Sint, "R32_SINT", FormatKindInteger, 4, 1, false, false},
	{FormatR32Float, "R32_FLOAT", FormatKindFloat, 4, 1, false, false},
	{FormatRGBA16Uint, "RGBA16_UINT", FormatKindInteger, 8, 1, false, false},
	{FormatRGBA16Float, "RGBA16_FLOAT", FormatKindFloat, 8, 1, false, false},
	{FormatRGBA16Unorm, "RGBA16_UNORM", FormatKindNormalized, 8, 1, false, false},
	{FormatRG32Uint, "RG32_UINT", FormatKindInteger, 8, 1, false, false},
	{FormatRG32Float, "RG32_FLOAT", FormatKindFloat, 8, 1, false, false},
	{FormatRGB32Uint, "RGB32_UINT", FormatKindInteger, 12, 1, false, false},
	{FormatRGB32Float, "RGB32_FLOAT", FormatKindFloat, 12, 1, false, false},
	{FormatRGBA32Uint, "RGBA32_UINT", FormatKindInteger, 16, 1, false, false},
	{FormatRGBA32Float, "RGBA32_FLOAT", FormatKindFloat, 16, 1, false, false},

	{FormatD16, "D16", FormatKindDepthStencil, 2, 1, true, false},
	{FormatD24S8, "D24S8", FormatKindDepthStencil, 4, 1, true, true},
	{FormatX24G8Uint, "X24G8_UINT", FormatKindInteger, 4, 1, false, true},
	{FormatD32, "D32", FormatKindDepthStencil, 4, 1, true, false},
	{FormatD32S8, "D32S8", FormatKindDepthStencil, 8, 1, true, true},
	{FormatX32G8Uint, "X32G8_UINT", FormatKindInteger, 8, 1, false, true},

	{FormatBC1Unorm, "BC1_UNORM", FormatKindNormalized, 8, 4, false, false},
	{FormatBC1UnormSRGB, "BC1_UNORM_SRGB", FormatKindNormalized, 8, 4, false, false},
	{FormatBC2Unorm, "BC2_UNORM", FormatKindNormalized, 16, 4, false, false},
	{FormatBC3Unorm, "BC3_UNORM", FormatKindNormalized, 16, 4, false, false},
	{FormatBC4Unorm, "BC4_UNORM", FormatKindNormalized, 8, 4, false, false},
	{FormatBC5Unorm, "BC5_UNORM", FormatKindNormalized, 16, 4, false, false},
	{FormatBC6HUFloat, "BC6H_UFLOAT", FormatKindFloat, 16, 4, false, false},
	{FormatBC7Unorm, "BC7_UNORM", FormatKindNormalized, 16, 4, false, false},
}

// GetFormatInfo returns the properties of f.
// Unlisted values map to FormatUnknown.
func GetFormatInfo(f Format) *FormatInfo {
	if f < 0 || f >= formatCount {
		f = FormatUnknown
	}
	return &formatInfo[f]
}
