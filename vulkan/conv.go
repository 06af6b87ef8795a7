// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
)

// resourceStateMapping is the Vulkan rendition of one resource state:
// the pipeline stages that use it, the access mask those stages need,
// and the image layout it implies for textures.
type resourceStateMapping struct {
	stageFlags vk.PipelineStageFlags
	accessMask vk.AccessFlags
	layout     vk.ImageLayout
}

var stateMappings = []struct {
	state nvrhi.ResourceStates
	m     resourceStateMapping
}{
	{nvrhi.ResourceStateCommon, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		0,
		vk.ImageLayoutGeneral,
	}},
	{nvrhi.ResourceStateConstantBuffer, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessUniformReadBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateVertexBuffer, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		vk.AccessFlags(vk.AccessVertexAttributeReadBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateIndexBuffer, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		vk.AccessFlags(vk.AccessIndexReadBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateIndirectArgument, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit),
		vk.AccessFlags(vk.AccessIndirectCommandReadBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateShaderResource, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderReadBit),
		vk.ImageLayoutShaderReadOnlyOptimal,
	}},
	{nvrhi.ResourceStateUnorderedAccess, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
		vk.ImageLayoutGeneral,
	}},
	{nvrhi.ResourceStateRenderTarget, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		vk.ImageLayoutColorAttachmentOptimal,
	}},
	{nvrhi.ResourceStateDepthWrite, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		vk.ImageLayoutDepthStencilAttachmentOptimal,
	}},
	{nvrhi.ResourceStateDepthRead, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
		vk.ImageLayoutDepthStencilReadOnlyOptimal,
	}},
	{nvrhi.ResourceStateStreamOut, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderWriteBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateCopyDest, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.ImageLayoutTransferDstOptimal,
	}},
	{nvrhi.ResourceStateCopySource, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.AccessFlags(vk.AccessTransferReadBit),
		vk.ImageLayoutTransferSrcOptimal,
	}},
	{nvrhi.ResourceStateResolveDest, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.ImageLayoutTransferDstOptimal,
	}},
	{nvrhi.ResourceStateResolveSource, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.AccessFlags(vk.AccessTransferReadBit),
		vk.ImageLayoutTransferSrcOptimal,
	}},
	{nvrhi.ResourceStatePresent, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessMemoryReadBit),
		vk.ImageLayoutPresentSrc,
	}},
	{nvrhi.ResourceStateAccelStructRead, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderReadBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateAccelStructWrite, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderWriteBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateAccelStructBuildInput, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderReadBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateAccelStructBuildBlas, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
		vk.ImageLayoutUndefined,
	}},
	{nvrhi.ResourceStateShadingRateSurface, resourceStateMapping{
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.AccessFlags(vk.AccessMemoryReadBit),
		vk.ImageLayoutGeneral,
	}},
}

// convertResourceState folds a state bitmask into stage, access and
// layout. The sentinel ResourceStateUnknown yields zero stages with an
// undefined layout, which a barrier treats as "discard previous
// contents, wait for nothing".
func convertResourceState(state nvrhi.ResourceStates) resourceStateMapping {
	var out resourceStateMapping
	out.layout = vk.ImageLayoutUndefined
	if state == nvrhi.ResourceStateUnknown {
		out.stageFlags = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		return out
	}
	for _, e := range stateMappings {
		if state&e.state == 0 {
			continue
		}
		out.stageFlags |= e.m.stageFlags
		out.accessMask |= e.m.accessMask
		if e.m.layout != vk.ImageLayoutUndefined {
			out.layout = e.m.layout
		}
	}
	return out
}

var formatTable = map[nvrhi.Format]vk.Format{
	nvrhi.FormatR8Uint:            vk.FormatR8Uint,
	nvrhi.FormatR8Sint:            vk.FormatR8Sint,
	nvrhi.FormatR8Unorm:           vk.FormatR8Unorm,
	nvrhi.FormatR8Snorm:           vk.FormatR8Snorm,
	nvrhi.FormatRG8Uint:           vk.FormatR8g8Uint,
	nvrhi.FormatRG8Unorm:          vk.FormatR8g8Unorm,
	nvrhi.FormatR16Uint:           vk.FormatR16Uint,
	nvrhi.FormatR16Sint:           vk.FormatR16Sint,
	nvrhi.FormatR16Unorm:          vk.FormatR16Unorm,
	nvrhi.FormatR16Float:          vk.FormatR16Sfloat,
	nvrhi.FormatRGBA8Uint:         vk.FormatR8g8b8a8Uint,
	nvrhi.FormatRGBA8Unorm:        vk.FormatR8g8b8a8Unorm,
	nvrhi.FormatRGBA8Snorm:        vk.FormatR8g8b8a8Snorm,
	nvrhi.FormatBGRA8Unorm:        vk.FormatB8g8r8a8Unorm,
	nvrhi.FormatSRGBA8Unorm:       vk.FormatR8g8b8a8Srgb,
	nvrhi.FormatSBGRA8Unorm:       vk.FormatB8g8r8a8Srgb,
	nvrhi.FormatR10G10B10A2Unorm:  vk.FormatA2b10g10r10UnormPack32,
	nvrhi.FormatR11G11B10Float:    vk.FormatB10g11r11UfloatPack32,
	nvrhi.FormatRG16Uint:          vk.FormatR16g16Uint,
	nvrhi.FormatRG16Float:         vk.FormatR16g16Sfloat,
	nvrhi.FormatR32Uint:           vk.FormatR32Uint,
	nvrhi.FormatR32Sint:           vk.FormatR32Sint,
	nvrhi.FormatR32Float:          vk.FormatR32Sfloat,
	nvrhi.FormatRGBA16Uint:        vk.FormatR16g16b16a16Uint,
	nvrhi.FormatRGBA16Float:       vk.FormatR16g16b16a16Sfloat,
	nvrhi.FormatRGBA16Unorm:       vk.FormatR16g16b16a16Unorm,
	nvrhi.FormatRG32Uint:          vk.FormatR32g32Uint,
	nvrhi.FormatRG32Float:         vk.FormatR32g32Sfloat,
	nvrhi.FormatRGB32Uint:         vk.FormatR32g32b32Uint,
	nvrhi.FormatRGB32Float:        vk.FormatR32g32b32Sfloat,
	nvrhi.FormatRGBA32Uint:        vk.FormatR32g32b32a32Uint,
	nvrhi.FormatRGBA32Float:       vk.FormatR32g32b32a32Sfloat,
	nvrhi.FormatD16:               vk.FormatD16Unorm,
	nvrhi.FormatD24S8:             vk.FormatD24UnormS8Uint,
	nvrhi.FormatX24G8Uint:         vk.FormatD24UnormS8Uint,
	nvrhi.FormatD32:               vk.FormatD32Sfloat,
	nvrhi.FormatD32S8:             vk.FormatD32SfloatS8Uint,
	nvrhi.FormatX32G8Uint:         vk.FormatD32SfloatS8Uint,
	nvrhi.FormatBC1Unorm:          vk.FormatBc1RgbaUnormBlock,
	nvrhi.FormatBC1UnormSRGB:      vk.FormatBc1RgbaSrgbBlock,
	nvrhi.FormatBC2Unorm:          vk.FormatBc2UnormBlock,
	nvrhi.FormatBC3Unorm:          vk.FormatBc3UnormBlock,
	nvrhi.FormatBC4Unorm:          vk.FormatBc4UnormBlock,
	nvrhi.FormatBC5Unorm:          vk.FormatBc5UnormBlock,
	nvrhi.FormatBC6HUFloat:        vk.FormatBc6hUfloatBlock,
	nvrhi.FormatBC7Unorm:          vk.FormatBc7UnormBlock,
}

func convertFormat(f nvrhi.Format) vk.Format {
	if v, ok := formatTable[f]; ok {
		return v
	}
	return vk.FormatUndefined
}

// aspectMaskForFormat selects the image aspects barriers and clears
// operate on.
func aspectMaskForFormat(f nvrhi.Format) vk.ImageAspectFlags {
	info := nvrhi.GetFormatInfo(f)
	var mask vk.ImageAspectFlags
	if info.HasDepth {
		mask |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if info.HasStencil {
		mask |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	if mask == 0 {
		mask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return mask
}

func convertDescriptorType(t nvrhi.ResourceType) vk.DescriptorType {
	switch t {
	case nvrhi.ResourceTypeTextureSRV:
		return vk.DescriptorTypeSampledImage
	case nvrhi.ResourceTypeTextureUAV:
		return vk.DescriptorTypeStorageImage
	case nvrhi.ResourceTypeTypedBufferSRV:
		return vk.DescriptorTypeUniformTexelBuffer
	case nvrhi.ResourceTypeTypedBufferUAV:
		return vk.DescriptorTypeStorageTexelBuffer
	case nvrhi.ResourceTypeStructuredBufferSRV, nvrhi.ResourceTypeRawBufferSRV,
		nvrhi.ResourceTypeStructuredBufferUAV, nvrhi.ResourceTypeRawBufferUAV,
		nvrhi.ResourceTypeAccelStruct:
		return vk.DescriptorTypeStorageBuffer
	case nvrhi.ResourceTypeConstantBuffer:
		return vk.DescriptorTypeUniformBuffer
	case nvrhi.ResourceTypeVolatileConstantBuffer:
		return vk.DescriptorTypeUniformBufferDynamic
	case nvrhi.ResourceTypeSampler:
		return vk.DescriptorTypeSampler
	}
	return vk.DescriptorTypeSampledImage
}

func convertDimension(d nvrhi.TextureDimension) (vk.ImageType, vk.ImageViewType) {
	switch d {
	case nvrhi.Texture1D:
		return vk.ImageType1d, vk.ImageViewType1d
	case nvrhi.Texture1DArray:
		return vk.ImageType1d, vk.ImageViewType1dArray
	case nvrhi.Texture2DArray, nvrhi.Texture2DMSArray:
		return vk.ImageType2d, vk.ImageViewType2dArray
	case nvrhi.TextureCube:
		return vk.ImageType2d, vk.ImageViewTypeCube
	case nvrhi.TextureCubeArray:
		return vk.ImageType2d, vk.ImageViewTypeCubeArray
	case nvrhi.Texture3D:
		return vk.ImageType3d, vk.ImageViewType3d
	}
	return vk.ImageType2d, vk.ImageViewType2d
}

func convertSampleCount(count uint32) (vk.SampleCountFlagBits, error) {
	switch count {
	case 0, 1:
		return vk.SampleCount1Bit, nil
	case 2:
		return vk.SampleCount2Bit, nil
	case 4:
		return vk.SampleCount4Bit, nil
	case 8:
		return vk.SampleCount8Bit, nil
	}
	return vk.SampleCount1Bit, fmt.Errorf("vulkan: unsupported sample count %d: %w", count, nvrhi.ErrInvalidArgument)
}
