// Copyright 2024 The nvrhi Authors. All rights reserved.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawfuyang/nvrhi"
)

// mockDevice counts the calls that reach the backend so tests can
// assert that invalid ones were skipped.
type mockDevice struct {
	messages nvrhi.MessageCallback
}

func (d *mockDevice) Destroy()                               {}
func (d *mockDevice) GraphicsAPI() nvrhi.GraphicsAPI         { return nvrhi.APIVulkan }
func (d *mockDevice) MessageCallback() nvrhi.MessageCallback { return d.messages }

func (d *mockDevice) CreateTexture(desc nvrhi.TextureDesc) (nvrhi.Texture, error) {
	return &mockTexture{desc: desc}, nil
}

func (d *mockDevice) CreateBuffer(desc nvrhi.BufferDesc) (nvrhi.Buffer, error) {
	return &mockBuffer{desc: desc}, nil
}

func (d *mockDevice) CreateFramebuffer(desc nvrhi.FramebufferDesc) (nvrhi.Framebuffer, error) {
	return &mockFramebuffer{desc: desc}, nil
}

func (d *mockDevice) CreateBindingLayout(desc nvrhi.BindingLayoutDesc) (nvrhi.BindingLayout, error) {
	return &mockLayout{desc: desc}, nil
}

func (d *mockDevice) CreateBindingSet(desc nvrhi.BindingSetDesc, layout nvrhi.BindingLayout) (nvrhi.BindingSet, error) {
	return &mockBindingSet{desc: desc, layout: layout}, nil
}

func (d *mockDevice) CreateGraphicsPipeline(desc nvrhi.GraphicsPipelineDesc) (nvrhi.GraphicsPipeline, error) {
	return &mockGraphicsPipeline{desc: desc}, nil
}

func (d *mockDevice) CreateComputePipeline(desc nvrhi.ComputePipelineDesc) (nvrhi.ComputePipeline, error) {
	return &mockComputePipeline{desc: desc}, nil
}

func (d *mockDevice) CreateCommandList(params nvrhi.CommandListParameters) (nvrhi.CommandList, error) {
	return &mockCommandList{device: d, params: params}, nil
}

func (d *mockDevice) ExecuteCommandLists(lists []nvrhi.CommandList) error { return nil }
func (d *mockDevice) WaitForIdle() error                                  { return nil }

type mockTexture struct{ desc nvrhi.TextureDesc }

func (t *mockTexture) Destroy()                 {}
func (t *mockTexture) Desc() *nvrhi.TextureDesc { return &t.desc }

type mockBuffer struct{ desc nvrhi.BufferDesc }

func (b *mockBuffer) Destroy()                {}
func (b *mockBuffer) Desc() *nvrhi.BufferDesc { return &b.desc }

type mockFramebuffer struct{ desc nvrhi.FramebufferDesc }

func (f *mockFramebuffer) Destroy()                     {}
func (f *mockFramebuffer) Desc() *nvrhi.FramebufferDesc { return &f.desc }

type mockLayout struct{ desc nvrhi.BindingLayoutDesc }

func (l *mockLayout) Destroy()                       {}
func (l *mockLayout) Desc() *nvrhi.BindingLayoutDesc { return &l.desc }

type mockBindingSet struct {
	desc   nvrhi.BindingSetDesc
	layout nvrhi.BindingLayout
}

func (s *mockBindingSet) Destroy()                    {}
func (s *mockBindingSet) Desc() *nvrhi.BindingSetDesc { return &s.desc }
func (s *mockBindingSet) Layout() nvrhi.BindingLayout { return s.layout }

type mockGraphicsPipeline struct{ desc nvrhi.GraphicsPipelineDesc }

func (p *mockGraphicsPipeline) Destroy()                          {}
func (p *mockGraphicsPipeline) Desc() *nvrhi.GraphicsPipelineDesc { return &p.desc }

type mockComputePipeline struct{ desc nvrhi.ComputePipelineDesc }

func (p *mockComputePipeline) Destroy()                         {}
func (p *mockComputePipeline) Desc() *nvrhi.ComputePipelineDesc { return &p.desc }

// mockCommandList records how many calls got through the wrapper.
type mockCommandList struct {
	device *mockDevice
	params nvrhi.CommandListParameters

	opens, closes int
	draws         int
	dispatches    int
	pushConstants int
	stateSets     int
	commits       int
}

func (c *mockCommandList) Destroy()    {}
func (c *mockCommandList) Open()       { c.opens++ }
func (c *mockCommandList) Close()      { c.closes++ }
func (c *mockCommandList) ClearState() {}

func (c *mockCommandList) WriteBuffer(b nvrhi.Buffer, data []byte, destOffset uint64) {}
func (c *mockCommandList) CopyBuffer(dest nvrhi.Buffer, destOffset uint64, src nvrhi.Buffer, srcOffset uint64, size uint64) {
}
func (c *mockCommandList) CopyTexture(dest nvrhi.Texture, destSlice nvrhi.TextureSlice, src nvrhi.Texture, srcSlice nvrhi.TextureSlice) {
}
func (c *mockCommandList) ClearTextureFloat(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearColor nvrhi.Color) {
}
func (c *mockCommandList) ClearDepthStencilTexture(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, clearDepth bool, depth float32, clearStencil bool, stencil uint8) {
}

func (c *mockCommandList) SetPushConstants(data []byte)               { c.pushConstants++ }
func (c *mockCommandList) SetGraphicsState(state nvrhi.GraphicsState) { c.stateSets++ }
func (c *mockCommandList) Draw(args nvrhi.DrawArguments)              { c.draws++ }
func (c *mockCommandList) DrawIndexed(args nvrhi.DrawArguments)       { c.draws++ }
func (c *mockCommandList) DrawIndirect(offsetBytes uint64, drawCount uint32) {
	c.draws++
}
func (c *mockCommandList) SetComputeState(state nvrhi.ComputeState) { c.stateSets++ }
func (c *mockCommandList) Dispatch(x, y, z uint32)                  { c.dispatches++ }
func (c *mockCommandList) DispatchIndirect(offsetBytes uint64)      { c.dispatches++ }

func (c *mockCommandList) BeginMarker(name string) {}
func (c *mockCommandList) EndMarker()              {}

func (c *mockCommandList) SetEnableAutomaticBarriers(enable bool)                   {}
func (c *mockCommandList) SetResourceStatesForBindingSet(bindingSet nvrhi.BindingSet) {}
func (c *mockCommandList) SetEnableUavBarriersForTexture(t nvrhi.Texture, enable bool) {}
func (c *mockCommandList) SetEnableUavBarriersForBuffer(b nvrhi.Buffer, enable bool)   {}
func (c *mockCommandList) BeginTrackingTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
}
func (c *mockCommandList) BeginTrackingBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates) {}
func (c *mockCommandList) SetTextureState(t nvrhi.Texture, subresources nvrhi.TextureSubresourceSet, state nvrhi.ResourceStates) {
}
func (c *mockCommandList) SetBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates)          {}
func (c *mockCommandList) SetAccelStructState(as nvrhi.AccelStruct, state nvrhi.ResourceStates) {}
func (c *mockCommandList) SetPermanentTextureState(t nvrhi.Texture, state nvrhi.ResourceStates) {}
func (c *mockCommandList) SetPermanentBufferState(b nvrhi.Buffer, state nvrhi.ResourceStates)   {}
func (c *mockCommandList) CommitBarriers()                                                      { c.commits++ }

func (c *mockCommandList) GetTextureSubresourceState(t nvrhi.Texture, arraySlice nvrhi.ArraySlice, mipLevel nvrhi.MipLevel) nvrhi.ResourceStates {
	return nvrhi.ResourceStateUnknown
}
func (c *mockCommandList) GetBufferState(b nvrhi.Buffer) nvrhi.ResourceStates {
	return nvrhi.ResourceStateUnknown
}

func (c *mockCommandList) Device() nvrhi.Device               { return c.device }
func (c *mockCommandList) Desc() nvrhi.CommandListParameters  { return c.params }

type captureCallback struct {
	errors []string
}

func (c *captureCallback) Report(severity nvrhi.Severity, message string) {
	if severity >= nvrhi.SeverityError {
		c.errors = append(c.errors, message)
	}
}

func newTestDevice() (nvrhi.Device, *captureCallback) {
	mc := &captureCallback{}
	return WrapDevice(&mockDevice{messages: mc}), mc
}

func srvLayout(t *testing.T, device nvrhi.Device, space uint32, slots ...uint32) nvrhi.BindingLayout {
	t.Helper()
	desc := nvrhi.BindingLayoutDesc{RegisterSpace: space}
	for _, slot := range slots {
		desc.Bindings = append(desc.Bindings, nvrhi.BindingLayoutItem{
			Slot: slot,
			Type: nvrhi.ResourceTypeTextureSRV,
		})
	}
	layout, err := device.CreateBindingLayout(desc)
	require.NoError(t, err)
	return layout
}

func TestCreateBindingLayoutRejectsDuplicates(t *testing.T) {
	device, mc := newTestDevice()

	_, err := device.CreateBindingLayout(nvrhi.BindingLayoutDesc{
		Bindings: []nvrhi.BindingLayoutItem{
			{Slot: 0, Type: nvrhi.ResourceTypeTextureSRV},
			{Slot: 0, Type: nvrhi.ResourceTypeTypedBufferSRV},
		},
	})

	require.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "duplicate binding")
}

func TestCreateBindingLayoutAllowsSameSlotAcrossCategories(t *testing.T) {
	device, mc := newTestDevice()

	_, err := device.CreateBindingLayout(nvrhi.BindingLayoutDesc{
		Bindings: []nvrhi.BindingLayoutItem{
			{Slot: 0, Type: nvrhi.ResourceTypeTextureSRV},
			{Slot: 0, Type: nvrhi.ResourceTypeTextureUAV},
			{Slot: 0, Type: nvrhi.ResourceTypeConstantBuffer},
			{Slot: 0, Type: nvrhi.ResourceTypeSampler},
		},
	})

	assert.NoError(t, err)
	assert.Empty(t, mc.errors)
}

func TestCreateBindingLayoutArrayClaimsRange(t *testing.T) {
	device, _ := newTestDevice()

	_, err := device.CreateBindingLayout(nvrhi.BindingLayoutDesc{
		Bindings: []nvrhi.BindingLayoutItem{
			{Slot: 0, Type: nvrhi.ResourceTypeTextureSRV, Size: 4},
			{Slot: 0, Type: nvrhi.ResourceTypeStructuredBufferSRV},
		},
	})

	assert.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
}

func TestCreateBindingLayoutPushConstantLimit(t *testing.T) {
	device, mc := newTestDevice()

	_, err := device.CreateBindingLayout(nvrhi.BindingLayoutDesc{
		Bindings: []nvrhi.BindingLayoutItem{
			{Slot: 0, Type: nvrhi.ResourceTypePushConstants, Size: nvrhi.MaxPushConstantSize + 4},
		},
	})

	require.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
	assert.Contains(t, mc.errors[0], "push-constant")
}

func TestCreateGraphicsPipelineVolatileCBLimit(t *testing.T) {
	device, mc := newTestDevice()

	volatileLayout := func(space uint32, count int) nvrhi.BindingLayout {
		desc := nvrhi.BindingLayoutDesc{RegisterSpace: space}
		for slot := 0; slot < count; slot++ {
			desc.Bindings = append(desc.Bindings, nvrhi.BindingLayoutItem{
				Slot: uint32(slot),
				Type: nvrhi.ResourceTypeVolatileConstantBuffer,
			})
		}
		layout, err := device.CreateBindingLayout(desc)
		require.NoError(t, err)
		return layout
	}

	a := volatileLayout(0, nvrhi.MaxVolatileConstantBuffers)
	b := volatileLayout(1, 1)

	_, err := device.CreateGraphicsPipeline(nvrhi.GraphicsPipelineDesc{
		BindingLayouts: []nvrhi.BindingLayout{a},
	})
	assert.NoError(t, err)

	_, err = device.CreateGraphicsPipeline(nvrhi.GraphicsPipelineDesc{
		BindingLayouts: []nvrhi.BindingLayout{a, b},
		DebugName:      "too many volatile CBs",
	})
	require.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
	assert.Contains(t, mc.errors[len(mc.errors)-1], "volatile constant buffers")
}

func TestCreateGraphicsPipelineRejectsOverlappingLayouts(t *testing.T) {
	device, mc := newTestDevice()

	// Two layouts in the same register space claiming SRV slot 1.
	a := srvLayout(t, device, 0, 0, 1)
	b := srvLayout(t, device, 0, 1)

	_, err := device.CreateGraphicsPipeline(nvrhi.GraphicsPipelineDesc{
		BindingLayouts: []nvrhi.BindingLayout{a, b},
		DebugName:      "overlapping",
	})

	require.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
	assert.Contains(t, mc.errors[len(mc.errors)-1], "overlapping bindings")
}

func TestCreateGraphicsPipelineAllowsDistinctSpaces(t *testing.T) {
	device, mc := newTestDevice()

	a := srvLayout(t, device, 0, 0, 1)
	b := srvLayout(t, device, 1, 0, 1)

	_, err := device.CreateGraphicsPipeline(nvrhi.GraphicsPipelineDesc{
		BindingLayouts: []nvrhi.BindingLayout{a, b},
	})

	assert.NoError(t, err)
	assert.Empty(t, mc.errors)
}

func TestCommandListStateMachine(t *testing.T) {
	device, mc := newTestDevice()
	cl, err := device.CreateCommandList(nvrhi.CommandListParameters{})
	require.NoError(t, err)
	inner := cl.(*commandListWrapper).inner.(*mockCommandList)

	// Recording before Open is reported and skipped.
	cl.Draw(nvrhi.DrawArguments{VertexCount: 3})
	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "has not been opened")
	assert.Zero(t, inner.draws)

	cl.Open()
	cl.Open()
	assert.Len(t, mc.errors, 2)
	assert.Equal(t, 1, inner.opens)

	cl.Close()
	cl.CommitBarriers()
	assert.Len(t, mc.errors, 3)
	assert.Contains(t, mc.errors[2], "has been closed")
	assert.Zero(t, inner.commits)
}

func TestDrawRequiresGraphicsState(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{})
	inner := cl.(*commandListWrapper).inner.(*mockCommandList)

	cl.Open()
	cl.Draw(nvrhi.DrawArguments{VertexCount: 3})

	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "SetGraphicsState has not been called")
	assert.Zero(t, inner.draws)
}

func TestGraphicsOpsRejectedOnComputeQueue(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{QueueType: nvrhi.QueueCompute})

	cl.Open()
	cl.SetGraphicsState(nvrhi.GraphicsState{})

	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "not supported")
}

func buildGraphicsState(t *testing.T, device nvrhi.Device, pushConstSize uint32) (nvrhi.GraphicsState, nvrhi.BindingLayout) {
	t.Helper()

	items := []nvrhi.BindingLayoutItem{{Slot: 0, Type: nvrhi.ResourceTypeTextureSRV}}
	if pushConstSize > 0 {
		items = append(items, nvrhi.BindingLayoutItem{
			Slot: 1, Type: nvrhi.ResourceTypePushConstants, Size: pushConstSize,
		})
	}
	layout, err := device.CreateBindingLayout(nvrhi.BindingLayoutDesc{Bindings: items})
	require.NoError(t, err)

	texDesc := nvrhi.NewTextureDesc()
	texDesc.Width = 4
	texDesc.Height = 4
	texDesc.IsRenderTarget = true
	tex, err := device.CreateTexture(texDesc)
	require.NoError(t, err)

	fb, err := device.CreateFramebuffer(nvrhi.FramebufferDesc{
		ColorAttachments: []nvrhi.FramebufferAttachment{{Texture: tex}},
	})
	require.NoError(t, err)

	pipeline, err := device.CreateGraphicsPipeline(nvrhi.GraphicsPipelineDesc{
		BindingLayouts: []nvrhi.BindingLayout{layout},
	})
	require.NoError(t, err)

	set, err := device.CreateBindingSet(nvrhi.BindingSetDesc{
		Bindings: []nvrhi.BindingSetItem{{Resource: tex, Slot: 0, Type: nvrhi.ResourceTypeTextureSRV}},
	}, layout)
	require.NoError(t, err)

	return nvrhi.GraphicsState{
		Pipeline:    pipeline,
		Framebuffer: fb,
		Bindings:    []nvrhi.BindingSet{set},
	}, layout
}

func TestBindingSetLayoutMismatch(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{})
	inner := cl.(*commandListWrapper).inner.(*mockCommandList)

	state, _ := buildGraphicsState(t, device, 0)
	other := srvLayout(t, device, 0, 0)
	foreignSet, err := device.CreateBindingSet(nvrhi.BindingSetDesc{
		Bindings: []nvrhi.BindingSetItem{{Slot: 0, Type: nvrhi.ResourceTypeTextureSRV}},
	}, other)
	require.NoError(t, err)
	state.Bindings = []nvrhi.BindingSet{foreignSet}

	cl.Open()
	cl.SetGraphicsState(state)

	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "different layout")
	assert.Zero(t, inner.stateSets)
}

func TestPushConstantSizeEnforced(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{})
	inner := cl.(*commandListWrapper).inner.(*mockCommandList)

	state, _ := buildGraphicsState(t, device, 16)

	cl.Open()
	cl.SetGraphicsState(state)
	require.Empty(t, mc.errors)

	// Draw before push constants are set.
	cl.Draw(nvrhi.DrawArguments{VertexCount: 3})
	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "SetPushConstants has not been called")

	// Wrong size.
	cl.SetPushConstants(make([]byte, 8))
	require.Len(t, mc.errors, 2)
	assert.Zero(t, inner.pushConstants)

	// Correct size, then the draw goes through.
	cl.SetPushConstants(make([]byte, 16))
	cl.Draw(nvrhi.DrawArguments{VertexCount: 3})
	assert.Len(t, mc.errors, 2)
	assert.Equal(t, 1, inner.pushConstants)
	assert.Equal(t, 1, inner.draws)
}

func TestSetGraphicsStateResetsPushConstants(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{})

	state, _ := buildGraphicsState(t, device, 16)

	cl.Open()
	cl.SetGraphicsState(state)
	cl.SetPushConstants(make([]byte, 16))
	cl.Draw(nvrhi.DrawArguments{VertexCount: 3})
	require.Empty(t, mc.errors)

	// Rebinding state invalidates the previously set push constants.
	cl.SetGraphicsState(state)
	cl.Draw(nvrhi.DrawArguments{VertexCount: 3})
	require.Len(t, mc.errors, 1)
	assert.True(t, strings.Contains(mc.errors[0], "SetPushConstants"))
}

func TestExecuteRequiresClosedLists(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{})

	cl.Open()
	err := device.ExecuteCommandLists([]nvrhi.CommandList{cl})

	require.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
	assert.Contains(t, mc.errors[0], "not closed")

	cl.Close()
	assert.NoError(t, device.ExecuteCommandLists([]nvrhi.CommandList{cl}))
}

func TestWriteBufferBounds(t *testing.T) {
	device, mc := newTestDevice()
	cl, _ := device.CreateCommandList(nvrhi.CommandListParameters{})
	buf, err := device.CreateBuffer(nvrhi.BufferDesc{ByteSize: 16, DebugName: "small"})
	require.NoError(t, err)

	cl.Open()
	cl.WriteBuffer(buf, make([]byte, 8), 12)

	require.Len(t, mc.errors, 1)
	assert.Contains(t, mc.errors[0], "overflows")
}

func TestCreateBufferValidation(t *testing.T) {
	device, _ := newTestDevice()

	_, err := device.CreateBuffer(nvrhi.BufferDesc{DebugName: "empty"})
	assert.ErrorIs(t, err, nvrhi.ErrInvalidArgument)

	_, err = device.CreateBuffer(nvrhi.BufferDesc{
		ByteSize: 64, IsVolatile: true, CanHaveUAVs: true,
	})
	assert.ErrorIs(t, err, nvrhi.ErrInvalidArgument)

	_, err = device.CreateBuffer(nvrhi.BufferDesc{
		ByteSize: 64, KeepInitialState: true,
	})
	assert.ErrorIs(t, err, nvrhi.ErrInvalidArgument)
}
