// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
)

func TestConvertResourceState(t *testing.T) {
	cases := []struct {
		state  nvrhi.ResourceStates
		stages vk.PipelineStageFlags
		access vk.AccessFlags
		layout vk.ImageLayout
	}{
		{
			nvrhi.ResourceStateUnknown,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			0,
			vk.ImageLayoutUndefined,
		},
		{
			nvrhi.ResourceStateShaderResource,
			vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
			vk.AccessFlags(vk.AccessShaderReadBit),
			vk.ImageLayoutShaderReadOnlyOptimal,
		},
		{
			nvrhi.ResourceStateUnorderedAccess,
			vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
			vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
			vk.ImageLayoutGeneral,
		},
		{
			nvrhi.ResourceStateRenderTarget,
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
			vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			nvrhi.ResourceStateDepthWrite,
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
		{
			nvrhi.ResourceStateCopyDest,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.ImageLayoutTransferDstOptimal,
		},
		{
			// Combined states accumulate stages and access; the layout
			// comes from the last layout-bearing bit in table order.
			nvrhi.ResourceStateCopySource | nvrhi.ResourceStateShaderResource,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit | vk.PipelineStageAllCommandsBit),
			vk.AccessFlags(vk.AccessTransferReadBit | vk.AccessShaderReadBit),
			vk.ImageLayoutTransferSrcOptimal,
		},
		{
			nvrhi.ResourceStateVertexBuffer | nvrhi.ResourceStateIndexBuffer,
			vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
			vk.AccessFlags(vk.AccessVertexAttributeReadBit | vk.AccessIndexReadBit),
			vk.ImageLayoutUndefined,
		},
	}
	for _, c := range cases {
		m := convertResourceState(c.state)
		if m.stageFlags != c.stages {
			t.Errorf("convertResourceState(%v).stageFlags:\nhave %#x\nwant %#x", c.state, m.stageFlags, c.stages)
		}
		if m.accessMask != c.access {
			t.Errorf("convertResourceState(%v).accessMask:\nhave %#x\nwant %#x", c.state, m.accessMask, c.access)
		}
		if m.layout != c.layout {
			t.Errorf("convertResourceState(%v).layout:\nhave %v\nwant %v", c.state, m.layout, c.layout)
		}
	}
}

func TestConvertFormat(t *testing.T) {
	// Every listed format must map to a defined Vulkan format.
	for f := nvrhi.FormatR8Uint; f <= nvrhi.FormatBC7Unorm; f++ {
		if x := convertFormat(f); x == vk.FormatUndefined {
			t.Errorf("convertFormat(%v):\nhave FormatUndefined\nwant a defined format", f)
		}
	}
	if x := convertFormat(nvrhi.FormatUnknown); x != vk.FormatUndefined {
		t.Errorf("convertFormat(FormatUnknown):\nhave %v\nwant FormatUndefined", x)
	}
}

func TestAspectMaskForFormat(t *testing.T) {
	cases := []struct {
		format nvrhi.Format
		mask   vk.ImageAspectFlags
	}{
		{nvrhi.FormatRGBA8Unorm, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
		{nvrhi.FormatD16, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
		{nvrhi.FormatD24S8, vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)},
		{nvrhi.FormatD32S8, vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)},
		{nvrhi.FormatX24G8Uint, vk.ImageAspectFlags(vk.ImageAspectStencilBit)},
	}
	for _, c := range cases {
		if x := aspectMaskForFormat(c.format); x != c.mask {
			t.Errorf("aspectMaskForFormat(%v):\nhave %#x\nwant %#x", c.format, x, c.mask)
		}
	}
}

func TestConvertSampleCount(t *testing.T) {
	cases := []struct {
		count uint32
		want  vk.SampleCountFlagBits
		ok    bool
	}{
		{0, vk.SampleCount1Bit, true},
		{1, vk.SampleCount1Bit, true},
		{2, vk.SampleCount2Bit, true},
		{4, vk.SampleCount4Bit, true},
		{8, vk.SampleCount8Bit, true},
		{3, vk.SampleCount1Bit, false},
		{16, vk.SampleCount1Bit, false},
	}
	for _, c := range cases {
		x, err := convertSampleCount(c.count)
		if x != c.want || (err == nil) != c.ok {
			t.Errorf("convertSampleCount(%d):\nhave (%v, %v)\nwant (%v, ok=%v)", c.count, x, err, c.want, c.ok)
		}
	}
}
