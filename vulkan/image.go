// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

// texture implements nvrhi.Texture and tracking.Texture.
type texture struct {
	device *Device
	desc   nvrhi.TextureDesc
	record *tracking.TextureState

	image  vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
}

func (t *texture) Desc() *nvrhi.TextureDesc { return &t.desc }

func (t *texture) StateRecord() *tracking.TextureState { return t.record }

func (t *texture) Destroy() {
	dev := t.device.desc.Device
	if t.view != vk.NullImageView {
		vk.DestroyImageView(dev, t.view, nil)
	}
	vk.DestroyImage(dev, t.image, nil)
	vk.FreeMemory(dev, t.memory, nil)
}

func (d *Device) CreateTexture(desc nvrhi.TextureDesc) (nvrhi.Texture, error) {
	format := convertFormat(desc.Format)
	imageType, viewType := convertDimension(desc.Dimension)
	aspect := aspectMaskForFormat(desc.Format)

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
	if desc.IsRenderTarget {
		if aspect&vk.ImageAspectFlags(vk.ImageAspectColorBit) != 0 {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		} else {
			usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		}
	}
	if desc.IsUAV {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}

	samples, err := convertSampleCount(desc.SampleCount)
	if err != nil {
		return nil, err
	}

	var flags vk.ImageCreateFlags
	if desc.Dimension == nvrhi.TextureCube || desc.Dimension == nvrhi.TextureCubeArray {
		flags |= vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: imageType,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  desc.Depth,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArraySize,
		Samples:       samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	dev := d.desc.Device
	var image vk.Image
	if res := vk.CreateImage(dev, &info, nil, &image); res != vk.Success {
		return nil, fmt.Errorf("vulkan: vkCreateImage failed for %q (%d): %w", desc.DebugName, res, nvrhi.ErrFatal)
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, image, &memReqs)
	memReqs.Deref()

	memType, err := d.findMemoryType(memReqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(dev, image, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(dev, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyImage(dev, image, nil)
		return nil, fmt.Errorf("vulkan: vkAllocateMemory failed for %q (%d): %w", desc.DebugName, res, nvrhi.ErrNoDeviceMemory)
	}
	vk.BindImageMemory(dev, image, memory, 0)

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: desc.MipLevels,
			LayerCount: desc.ArraySize,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(dev, &viewInfo, nil, &view); res != vk.Success {
		vk.DestroyImage(dev, image, nil)
		vk.FreeMemory(dev, memory, nil)
		return nil, fmt.Errorf("vulkan: vkCreateImageView failed for %q (%d): %w", desc.DebugName, res, nvrhi.ErrFatal)
	}

	initial := nvrhi.ResourceStateUnknown
	if desc.KeepInitialState {
		initial = desc.InitialState
	}
	return &texture{
		device: d,
		desc:   desc,
		record: tracking.NewTextureState(initial),
		image:  image,
		memory: memory,
		view:   view,
	}, nil
}

// subresourceView creates a view restricted to a subresource range,
// used for framebuffer attachments.
func (t *texture) subresourceView(format nvrhi.Format, subresources nvrhi.TextureSubresourceSet) (vk.ImageView, error) {
	if format == nvrhi.FormatUnknown {
		format = t.desc.Format
	}
	subresources = subresources.Resolve(&t.desc, true)
	_, viewType := convertDimension(t.desc.Dimension)

	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    t.image,
		ViewType: viewType,
		Format:   convertFormat(format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectMaskForFormat(format),
			BaseMipLevel:   subresources.BaseMipLevel,
			LevelCount:     subresources.NumMipLevels,
			BaseArrayLayer: subresources.BaseArraySlice,
			LayerCount:     subresources.NumArraySlices,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(t.device.desc.Device, &info, nil, &view); res != vk.Success {
		return vk.NullImageView, fmt.Errorf("vulkan: vkCreateImageView failed for %q (%d): %w",
			t.desc.DebugName, res, nvrhi.ErrFatal)
	}
	return view, nil
}
