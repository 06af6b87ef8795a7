// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

import "testing"

func TestResourceStatesString(t *testing.T) {
	cases := []struct {
		s    ResourceStates
		want string
	}{
		{ResourceStateUnknown, "Unknown"},
		{ResourceStateCommon, "Common"},
		{ResourceStateShaderResource | ResourceStateCopySource, "ShaderResource|CopySource"},
		{ResourceStateDepthWrite | ResourceStateDepthRead, "DepthWrite|DepthRead"},
		{ResourceStateShadingRateSurface, "ShadingRateSurface"},
	}
	for _, c := range cases {
		if x := c.s.String(); x != c.want {
			t.Errorf("String(%#x):\nhave %q\nwant %q", uint32(c.s), x, c.want)
		}
	}
}

func TestResourceStatesHasWriteAccess(t *testing.T) {
	cases := []struct {
		s    ResourceStates
		want bool
	}{
		{ResourceStateUnknown, false},
		{ResourceStateCommon, false},
		{ResourceStateShaderResource, false},
		{ResourceStateUnorderedAccess, true},
		{ResourceStateRenderTarget, true},
		{ResourceStateDepthWrite, true},
		{ResourceStateDepthRead, false},
		{ResourceStateCopyDest, true},
		{ResourceStateCopySource, false},
		{ResourceStateAccelStructWrite, true},
		{ResourceStateAccelStructRead, false},
		{ResourceStateShaderResource | ResourceStateCopyDest, true},
	}
	for _, c := range cases {
		if x := c.s.HasWriteAccess(); x != c.want {
			t.Errorf("HasWriteAccess(%v):\nhave %v\nwant %v", c.s, x, c.want)
		}
	}
}

func TestCommandQueueString(t *testing.T) {
	cases := []struct {
		q    CommandQueue
		want string
	}{
		{QueueGraphics, "Graphics"},
		{QueueCompute, "Compute"},
		{QueueCopy, "Copy"},
		{CommandQueue(99), "InvalidQueue"},
	}
	for _, c := range cases {
		if x := c.q.String(); x != c.want {
			t.Errorf("String(%d):\nhave %q\nwant %q", c.q, x, c.want)
		}
	}
}
