// Copyright 2024 The nvrhi Authors. All rights reserved.

package vulkan

import (
	"testing"

	"github.com/lawfuyang/nvrhi"
	"github.com/lawfuyang/nvrhi/tracking"
)

func TestCommitBarriersEmptyKeepsRenderPass(t *testing.T) {
	// With no pending barriers, CommitBarriers must record nothing and
	// leave an open render pass instance open.
	c := &commandList{
		tracker:        tracking.NewStateTracker(nvrhi.DefaultMessageCallback()),
		renderPassOpen: true,
	}

	c.CommitBarriers()

	if !c.renderPassOpen {
		t.Error("empty CommitBarriers ended the render pass")
	}
}
