// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
)

// framebuffer implements nvrhi.Framebuffer as a render pass plus a
// VkFramebuffer over per-attachment views. Attachments use load/store
// ops that preserve contents; clears go through the explicit clear
// operations, not the render pass.
type framebuffer struct {
	device *Device
	desc   nvrhi.FramebufferDesc

	renderPass vk.RenderPass
	fb         vk.Framebuffer
	views      []vk.ImageView
	width      uint32
	height     uint32
}

func (f *framebuffer) Desc() *nvrhi.FramebufferDesc { return &f.desc }

func (f *framebuffer) Destroy() {
	dev := f.device.desc.Device
	vk.DestroyFramebuffer(dev, f.fb, nil)
	vk.DestroyRenderPass(dev, f.renderPass, nil)
	for _, v := range f.views {
		vk.DestroyImageView(dev, v, nil)
	}
}

func (d *Device) CreateFramebuffer(desc nvrhi.FramebufferDesc) (nvrhi.Framebuffer, error) {
	fb := &framebuffer{device: d, desc: desc}

	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference

	addAttachment := func(a nvrhi.FramebufferAttachment, depth bool) error {
		tex, ok := a.Texture.(*texture)
		if !ok {
			return fmt.Errorf("vulkan: foreign texture in framebuffer: %w", nvrhi.ErrInvalidArgument)
		}
		format := a.Format
		if format == nvrhi.FormatUnknown {
			format = tex.desc.Format
		}
		view, err := tex.subresourceView(format, a.Subresources)
		if err != nil {
			return err
		}
		fb.views = append(fb.views, view)

		sub := a.Subresources.Resolve(&tex.desc, true)
		mipWidth := max(tex.desc.Width>>sub.BaseMipLevel, 1)
		mipHeight := max(tex.desc.Height>>sub.BaseMipLevel, 1)
		if fb.width == 0 || mipWidth < fb.width {
			fb.width = mipWidth
		}
		if fb.height == 0 || mipHeight < fb.height {
			fb.height = mipHeight
		}

		samples, err := convertSampleCount(tex.desc.SampleCount)
		if err != nil {
			return err
		}

		layout := vk.ImageLayoutColorAttachmentOptimal
		if depth {
			layout = vk.ImageLayoutDepthStencilAttachmentOptimal
			if a.IsReadOnly {
				layout = vk.ImageLayoutDepthStencilReadOnlyOptimal
			}
		}
		ref := vk.AttachmentReference{
			Attachment: uint32(len(attachments)),
			Layout:     layout,
		}
		if depth {
			depthRef = &ref
		} else {
			colorRefs = append(colorRefs, ref)
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         convertFormat(format),
			Samples:        samples,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpLoad,
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  layout,
			FinalLayout:    layout,
		})
		return nil
	}

	for _, a := range desc.ColorAttachments {
		if err := addAttachment(a, false); err != nil {
			fb.Destroy()
			return nil, err
		}
	}
	if desc.DepthAttachment.Valid() {
		if err := addAttachment(desc.DepthAttachment, true); err != nil {
			fb.Destroy()
			return nil, err
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: depthRef,
	}
	rpInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	dev := d.desc.Device
	if res := vk.CreateRenderPass(dev, &rpInfo, nil, &fb.renderPass); res != vk.Success {
		fb.Destroy()
		return nil, fmt.Errorf("vulkan: vkCreateRenderPass failed (%d): %w", res, nvrhi.ErrFatal)
	}

	fbInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      fb.renderPass,
		AttachmentCount: uint32(len(fb.views)),
		PAttachments:    fb.views,
		Width:           fb.width,
		Height:          fb.height,
		Layers:          1,
	}
	if res := vk.CreateFramebuffer(dev, &fbInfo, nil, &fb.fb); res != vk.Success {
		fb.Destroy()
		return nil, fmt.Errorf("vulkan: vkCreateFramebuffer failed (%d): %w", res, nvrhi.ErrFatal)
	}
	return fb, nil
}
