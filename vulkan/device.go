// Copyright 2024 The nvrhi Authors. All rights reserved.

// Package vulkan implements the device and command list interfaces on
// the Vulkan API. The caller owns instance and device creation; the
// package wraps the handles it is given and never touches presentation.
package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/lawfuyang/nvrhi"
)

// DeviceDesc carries the native handles a Device is built around.
// All handles must remain valid for the lifetime of the Device.
type DeviceDesc struct {
	Instance       vk.Instance
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device

	// Queues indexed by nvrhi.CommandQueue. A nil compute or copy
	// queue falls back to the graphics queue.
	GraphicsQueue       vk.Queue
	ComputeQueue        vk.Queue
	CopyQueue           vk.Queue
	GraphicsQueueFamily uint32
	ComputeQueueFamily  uint32
	CopyQueueFamily     uint32

	MessageCallback nvrhi.MessageCallback
}

// Device implements nvrhi.Device on Vulkan.
type Device struct {
	desc     DeviceDesc
	messages nvrhi.MessageCallback

	// Queue handles require external synchronization; one mutex per
	// distinct queue keeps submissions from separate goroutines apart.
	submitMu sync.Mutex

	memProps vk.PhysicalDeviceMemoryProperties
}

// NewDevice wraps caller-supplied native handles.
func NewDevice(desc DeviceDesc) (*Device, error) {
	if desc.Device == nil || desc.PhysicalDevice == nil || desc.GraphicsQueue == nil {
		return nil, fmt.Errorf("vulkan: missing native handles: %w", nvrhi.ErrInvalidArgument)
	}
	if desc.ComputeQueue == nil {
		desc.ComputeQueue = desc.GraphicsQueue
		desc.ComputeQueueFamily = desc.GraphicsQueueFamily
	}
	if desc.CopyQueue == nil {
		desc.CopyQueue = desc.GraphicsQueue
		desc.CopyQueueFamily = desc.GraphicsQueueFamily
	}
	if desc.MessageCallback == nil {
		desc.MessageCallback = nvrhi.DefaultMessageCallback()
	}
	d := &Device{desc: desc, messages: desc.MessageCallback}
	vk.GetPhysicalDeviceMemoryProperties(desc.PhysicalDevice, &d.memProps)
	d.memProps.Deref()
	return d, nil
}

func (d *Device) Destroy() {}

func (d *Device) GraphicsAPI() nvrhi.GraphicsAPI { return nvrhi.APIVulkan }

func (d *Device) MessageCallback() nvrhi.MessageCallback { return d.messages }

func (d *Device) queue(q nvrhi.CommandQueue) (vk.Queue, uint32) {
	switch q {
	case nvrhi.QueueCompute:
		return d.desc.ComputeQueue, d.desc.ComputeQueueFamily
	case nvrhi.QueueCopy:
		return d.desc.CopyQueue, d.desc.CopyQueueFamily
	}
	return d.desc.GraphicsQueue, d.desc.GraphicsQueueFamily
}

// findMemoryType picks a memory type index satisfying typeBits and
// the property flags.
func (d *Device) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		d.memProps.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && d.memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, fmt.Errorf("vulkan: no suitable memory type: %w", nvrhi.ErrNoDeviceMemory)
}

func (d *Device) ExecuteCommandLists(lists []nvrhi.CommandList) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	for _, l := range lists {
		cl, ok := l.(*commandList)
		if !ok {
			return fmt.Errorf("vulkan: foreign command list: %w", nvrhi.ErrInvalidArgument)
		}
		queue, _ := d.queue(cl.params.QueueType)
		submit := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vk.CommandBuffer{cl.cb},
		}
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, vk.NullFence); res != vk.Success {
			return fmt.Errorf("vulkan: vkQueueSubmit failed (%d): %w", res, nvrhi.ErrFatal)
		}
	}
	return nil
}

func (d *Device) WaitForIdle() error {
	if res := vk.DeviceWaitIdle(d.desc.Device); res != vk.Success {
		return fmt.Errorf("vulkan: vkDeviceWaitIdle failed (%d): %w", res, nvrhi.ErrFatal)
	}
	return nil
}
