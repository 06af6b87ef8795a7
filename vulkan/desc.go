// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
)

// bindingLayout implements nvrhi.BindingLayout as a descriptor set
// layout plus the push-constant range the layout declares, if any.
type bindingLayout struct {
	device *Device
	desc   nvrhi.BindingLayoutDesc

	dsl           vk.DescriptorSetLayout
	pushConstSize uint32
}

func (l *bindingLayout) Desc() *nvrhi.BindingLayoutDesc { return &l.desc }

func (l *bindingLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(l.device.desc.Device, l.dsl, nil)
}

func (d *Device) CreateBindingLayout(desc nvrhi.BindingLayoutDesc) (nvrhi.BindingLayout, error) {
	var bindings []vk.DescriptorSetLayoutBinding
	var pushConstSize uint32
	for _, item := range desc.Bindings {
		if item.Type == nvrhi.ResourceTypePushConstants {
			pushConstSize = item.Size
			continue
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         item.Slot,
			DescriptorType:  convertDescriptorType(item.Type),
			DescriptorCount: item.ArraySize(),
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAll),
		})
	}

	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var dsl vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.desc.Device, &info, nil, &dsl); res != vk.Success {
		return nil, fmt.Errorf("vulkan: vkCreateDescriptorSetLayout failed (%d): %w", res, nvrhi.ErrFatal)
	}
	return &bindingLayout{device: d, desc: desc, dsl: dsl, pushConstSize: pushConstSize}, nil
}

// bindingSet implements nvrhi.BindingSet. The descriptor pool is owned
// by the set, sized for exactly its bindings.
type bindingSet struct {
	device *Device
	desc   nvrhi.BindingSetDesc
	layout nvrhi.BindingLayout

	pool vk.DescriptorPool
	set  vk.DescriptorSet
}

func (s *bindingSet) Desc() *nvrhi.BindingSetDesc    { return &s.desc }
func (s *bindingSet) Layout() nvrhi.BindingLayout    { return s.layout }

func (s *bindingSet) Destroy() {
	vk.DestroyDescriptorPool(s.device.desc.Device, s.pool, nil)
}

func (d *Device) CreateBindingSet(desc nvrhi.BindingSetDesc, layout nvrhi.BindingLayout) (nvrhi.BindingSet, error) {
	vkLayout, ok := layout.(*bindingLayout)
	if !ok {
		return nil, fmt.Errorf("vulkan: foreign binding layout: %w", nvrhi.ErrInvalidArgument)
	}
	dev := d.desc.Device

	sizes := make(map[vk.DescriptorType]uint32)
	for _, b := range desc.Bindings {
		if b.Type == nvrhi.ResourceTypePushConstants {
			continue
		}
		sizes[convertDescriptorType(b.Type)]++
	}
	var poolSizes []vk.DescriptorPoolSize
	for t, n := range sizes {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(dev, &poolInfo, nil, &pool); res != vk.Success {
		return nil, fmt.Errorf("vulkan: vkCreateDescriptorPool failed (%d): %w", res, nvrhi.ErrFatal)
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vkLayout.dsl},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(dev, &allocInfo, &set); res != vk.Success {
		vk.DestroyDescriptorPool(dev, pool, nil)
		return nil, fmt.Errorf("vulkan: vkAllocateDescriptorSets failed (%d): %w", res, nvrhi.ErrFatal)
	}

	var writes []vk.WriteDescriptorSet
	for _, b := range desc.Bindings {
		if b.Type == nvrhi.ResourceTypePushConstants {
			continue
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      b.Slot,
			DstArrayElement: b.ArrayElement,
			DescriptorCount: 1,
			DescriptorType:  convertDescriptorType(b.Type),
		}
		switch r := b.Resource.(type) {
		case *texture:
			layout := vk.ImageLayoutShaderReadOnlyOptimal
			if b.Type == nvrhi.ResourceTypeTextureUAV {
				layout = vk.ImageLayoutGeneral
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   r.view,
				ImageLayout: layout,
			}}
		case *buffer:
			rng := b.Range.Resolve(&r.desc)
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: r.buf,
				Offset: vk.DeviceSize(rng.ByteOffset),
				Range:  vk.DeviceSize(rng.ByteSize),
			}}
		default:
			continue
		}
		writes = append(writes, write)
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(dev, uint32(len(writes)), writes, 0, nil)
	}

	return &bindingSet{device: d, desc: desc, layout: layout, pool: pool, set: set}, nil
}

// graphicsPipeline carries the pipeline layout derived from its
// binding layouts. Shader and fixed-function state are supplied
// through the native pipeline cache outside this interface.
type graphicsPipeline struct {
	device *Device
	desc   nvrhi.GraphicsPipelineDesc
	layout vk.PipelineLayout
}

func (p *graphicsPipeline) Desc() *nvrhi.GraphicsPipelineDesc { return &p.desc }

func (p *graphicsPipeline) Destroy() {
	vk.DestroyPipelineLayout(p.device.desc.Device, p.layout, nil)
}

type computePipeline struct {
	device *Device
	desc   nvrhi.ComputePipelineDesc
	layout vk.PipelineLayout
}

func (p *computePipeline) Desc() *nvrhi.ComputePipelineDesc { return &p.desc }

func (p *computePipeline) Destroy() {
	vk.DestroyPipelineLayout(p.device.desc.Device, p.layout, nil)
}

// createPipelineLayout folds binding layouts into a VkPipelineLayout.
func (d *Device) createPipelineLayout(layouts []nvrhi.BindingLayout) (vk.PipelineLayout, error) {
	var setLayouts []vk.DescriptorSetLayout
	var pushRanges []vk.PushConstantRange
	for _, l := range layouts {
		vkl, ok := l.(*bindingLayout)
		if !ok {
			return vk.NullPipelineLayout, fmt.Errorf("vulkan: foreign binding layout: %w", nvrhi.ErrInvalidArgument)
		}
		setLayouts = append(setLayouts, vkl.dsl)
		if vkl.pushConstSize > 0 {
			pushRanges = append(pushRanges, vk.PushConstantRange{
				StageFlags: vk.ShaderStageFlags(vk.ShaderStageAll),
				Offset:     0,
				Size:       vkl.pushConstSize,
			})
		}
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushRanges)),
		PPushConstantRanges:    pushRanges,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.desc.Device, &info, nil, &layout); res != vk.Success {
		return vk.NullPipelineLayout, fmt.Errorf("vulkan: vkCreatePipelineLayout failed (%d): %w", res, nvrhi.ErrFatal)
	}
	return layout, nil
}

func (d *Device) CreateGraphicsPipeline(desc nvrhi.GraphicsPipelineDesc) (nvrhi.GraphicsPipeline, error) {
	layout, err := d.createPipelineLayout(desc.BindingLayouts)
	if err != nil {
		return nil, err
	}
	return &graphicsPipeline{device: d, desc: desc, layout: layout}, nil
}

func (d *Device) CreateComputePipeline(desc nvrhi.ComputePipelineDesc) (nvrhi.ComputePipeline, error) {
	layout, err := d.createPipelineLayout(desc.BindingLayouts)
	if err != nil {
		return nil, err
	}
	return &computePipeline{device: d, desc: desc, layout: layout}, nil
}
