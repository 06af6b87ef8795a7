// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

import "strings"

// ResourceStates is a bitmask of usage roles a buffer or texture
// subresource can be in. Multiple read-only roles may be combined;
// RenderTarget and UnorderedAccess are exclusive with the read-only
// roles. The zero value, ResourceStateUnknown, is the sentinel
// returned when querying a subresource that was never tracked.
type ResourceStates uint32

// Resource states.
const (
	ResourceStateUnknown          ResourceStates = 0
	ResourceStateCommon           ResourceStates = 1 << 0
	ResourceStateConstantBuffer   ResourceStates = 1 << 1
	ResourceStateVertexBuffer     ResourceStates = 1 << 2
	ResourceStateIndexBuffer      ResourceStates = 1 << 3
	ResourceStateIndirectArgument ResourceStates = 1 << 4
	ResourceStateShaderResource   ResourceStates = 1 << 5
	ResourceStateUnorderedAccess  ResourceStates = 1 << 6
	ResourceStateRenderTarget     ResourceStates = 1 << 7
	ResourceStateDepthWrite       ResourceStates = 1 << 8
	ResourceStateDepthRead        ResourceStates = 1 << 9
	ResourceStateStreamOut        ResourceStates = 1 << 10
	ResourceStateCopyDest         ResourceStates = 1 << 11
	ResourceStateCopySource       ResourceStates = 1 << 12
	ResourceStateResolveDest      ResourceStates = 1 << 13
	ResourceStateResolveSource    ResourceStates = 1 << 14
	ResourceStatePresent          ResourceStates = 1 << 15

	ResourceStateAccelStructRead       ResourceStates = 1 << 16
	ResourceStateAccelStructWrite      ResourceStates = 1 << 17
	ResourceStateAccelStructBuildInput ResourceStates = 1 << 18
	ResourceStateAccelStructBuildBlas  ResourceStates = 1 << 19
	ResourceStateShadingRateSurface    ResourceStates = 1 << 20
)

var resourceStateNames = [...]struct {
	bit  ResourceStates
	name string
}{
	{ResourceStateCommon, "Common"},
	{ResourceStateConstantBuffer, "ConstantBuffer"},
	{ResourceStateVertexBuffer, "VertexBuffer"},
	{ResourceStateIndexBuffer, "IndexBuffer"},
	{ResourceStateIndirectArgument, "IndirectArgument"},
	{ResourceStateShaderResource, "ShaderResource"},
	{ResourceStateUnorderedAccess, "UnorderedAccess"},
	{ResourceStateRenderTarget, "RenderTarget"},
	{ResourceStateDepthWrite, "DepthWrite"},
	{ResourceStateDepthRead, "DepthRead"},
	{ResourceStateStreamOut, "StreamOut"},
	{ResourceStateCopyDest, "CopyDest"},
	{ResourceStateCopySource, "CopySource"},
	{ResourceStateResolveDest, "ResolveDest"},
	{ResourceStateResolveSource, "ResolveSource"},
	{ResourceStatePresent, "Present"},
	{ResourceStateAccelStructRead, "AccelStructRead"},
	{ResourceStateAccelStructWrite, "AccelStructWrite"},
	{ResourceStateAccelStructBuildInput, "AccelStructBuildInput"},
	{ResourceStateAccelStructBuildBlas, "AccelStructBuildBlas"},
	{ResourceStateShadingRateSurface, "ShadingRateSurface"},
}

// String returns the names of the set bits joined by "|".
func (s ResourceStates) String() string {
	if s == ResourceStateUnknown {
		return "Unknown"
	}
	var b strings.Builder
	for _, n := range resourceStateNames {
		if s&n.bit != 0 {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(n.name)
		}
	}
	return b.String()
}

// HasWriteAccess reports whether the state grants the GPU write access
// to the resource. Two consecutive uses in a writable state require a
// barrier even if the state label does not change.
func (s ResourceStates) HasWriteAccess() bool {
	const writes = ResourceStateUnorderedAccess |
		ResourceStateRenderTarget |
		ResourceStateDepthWrite |
		ResourceStateStreamOut |
		ResourceStateCopyDest |
		ResourceStateResolveDest |
		ResourceStateAccelStructWrite |
		ResourceStateAccelStructBuildBlas
	return s&writes != 0
}

// CommandQueue identifies the kind of queue a command list records for.
type CommandQueue int

// Queue kinds.
const (
	QueueGraphics CommandQueue = iota
	QueueCompute
	QueueCopy

	queueCount
)

// String returns the queue name.
func (q CommandQueue) String() string {
	switch q {
	case QueueGraphics:
		return "Graphics"
	case QueueCompute:
		return "Compute"
	case QueueCopy:
		return "Copy"
	}
	return "InvalidQueue"
}
