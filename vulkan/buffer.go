// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

// buffer implements nvrhi.Buffer and tracking.Buffer.
type buffer struct {
	device *Device
	desc   nvrhi.BufferDesc
	record *tracking.BufferState

	buf    vk.Buffer
	memory vk.DeviceMemory
}

func (b *buffer) Desc() *nvrhi.BufferDesc { return &b.desc }

func (b *buffer) StateRecord() *tracking.BufferState { return b.record }

func (b *buffer) Destroy() {
	dev := b.device.desc.Device
	vk.DestroyBuffer(dev, b.buf, nil)
	vk.FreeMemory(dev, b.memory, nil)
}

func (d *Device) CreateBuffer(desc nvrhi.BufferDesc) (nvrhi.Buffer, error) {
	usage := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	if desc.IsVertexBuffer {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if desc.IsIndexBuffer {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if desc.IsConstantBuffer || desc.IsVolatile {
		usage |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if desc.IsDrawIndirectArgs {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit)
	}
	if desc.StructStride != 0 || desc.CanHaveRawViews || desc.CanHaveUAVs || desc.IsAccelStructStorage {
		usage |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}

	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.ByteSize),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	dev := d.desc.Device
	var buf vk.Buffer
	if res := vk.CreateBuffer(dev, &info, nil, &buf); res != vk.Success {
		return nil, fmt.Errorf("vulkan: vkCreateBuffer failed for %q (%d): %w", desc.DebugName, res, nvrhi.ErrFatal)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buf, &memReqs)
	memReqs.Deref()

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.CPUAccess != nvrhi.CPUAccessNone || desc.IsVolatile {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	memType, err := d.findMemoryType(memReqs.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(dev, buf, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(dev, &allocInfo, nil, &memory); res != vk.Success {
		vk.DestroyBuffer(dev, buf, nil)
		return nil, fmt.Errorf("vulkan: vkAllocateMemory failed for %q (%d): %w", desc.DebugName, res, nvrhi.ErrNoDeviceMemory)
	}
	vk.BindBufferMemory(dev, buf, memory, 0)

	initial := nvrhi.ResourceStateUnknown
	if desc.KeepInitialState {
		initial = desc.InitialState
	}
	return &buffer{
		device: d,
		desc:   desc,
		record: tracking.NewBufferState(initial),
		buf:    buf,
		memory: memory,
	}, nil
}
