// Copyright 2024 The nvrhi Authors. All rights reserved.

// Package validation wraps a Device in a layer that checks API usage
// and reports violations through the device's message callback.
// Invalid recording calls are skipped instead of reaching the backend.
package validation

import (
	"fmt"

	"github.com/lawfuyang/nvrhi"
)

// bindingCategory groups resource types that share a register
// namespace. Bindings of different categories never conflict.
type bindingCategory int

const (
	categoryNone bindingCategory = iota
	categorySRV
	categoryUAV
	categoryCB
	categorySampler
)

func categoryOf(t nvrhi.ResourceType) bindingCategory {
	switch t {
	case nvrhi.ResourceTypeTextureSRV, nvrhi.ResourceTypeTypedBufferSRV,
		nvrhi.ResourceTypeStructuredBufferSRV, nvrhi.ResourceTypeRawBufferSRV,
		nvrhi.ResourceTypeAccelStruct:
		return categorySRV
	case nvrhi.ResourceTypeTextureUAV, nvrhi.ResourceTypeTypedBufferUAV,
		nvrhi.ResourceTypeStructuredBufferUAV, nvrhi.ResourceTypeRawBufferUAV:
		return categoryUAV
	case nvrhi.ResourceTypeConstantBuffer, nvrhi.ResourceTypeVolatileConstantBuffer,
		nvrhi.ResourceTypePushConstants:
		return categoryCB
	case nvrhi.ResourceTypeSampler:
		return categorySampler
	}
	return categoryNone
}

func (c bindingCategory) String() string {
	switch c {
	case categorySRV:
		return "SRV"
	case categoryUAV:
		return "UAV"
	case categoryCB:
		return "CB"
	case categorySampler:
		return "Sampler"
	}
	return "None"
}

// bindingLocation identifies one register a layout claims.
type bindingLocation struct {
	space    uint32
	slot     uint32
	element  uint32
	category bindingCategory
}

func (l bindingLocation) String() string {
	return fmt.Sprintf("%s slot %d element %d space %d", l.category, l.slot, l.element, l.space)
}

// bindingSummary is the flattened register footprint of one or more
// binding layouts, used to detect duplicate claims at creation time.
type bindingSummary struct {
	locations      map[bindingLocation]struct{}
	numVolatileCBs int
	pushConstSize  uint32
	numPushConst   int
}

func newBindingSummary() *bindingSummary {
	return &bindingSummary{locations: make(map[bindingLocation]struct{})}
}

// add claims every register of the item and returns the first location
// already claimed, if any.
func (s *bindingSummary) add(space uint32, item nvrhi.BindingLayoutItem) (bindingLocation, bool) {
	if item.Type == nvrhi.ResourceTypeVolatileConstantBuffer {
		s.numVolatileCBs++
	}
	if item.Type == nvrhi.ResourceTypePushConstants {
		s.numPushConst++
		s.pushConstSize = item.Size
	}
	for element := uint32(0); element < item.ArraySize(); element++ {
		loc := bindingLocation{
			space:    space,
			slot:     item.Slot,
			element:  element,
			category: categoryOf(item.Type),
		}
		if _, dup := s.locations[loc]; dup {
			return loc, true
		}
		s.locations[loc] = struct{}{}
	}
	return bindingLocation{}, false
}

// addLayout folds a whole layout into the summary.
func (s *bindingSummary) addLayout(desc *nvrhi.BindingLayoutDesc) (bindingLocation, bool) {
	for _, item := range desc.Bindings {
		if loc, dup := s.add(desc.RegisterSpace, item); dup {
			return loc, true
		}
	}
	return bindingLocation{}, false
}

// summarizePipelineBindings builds the combined footprint of a
// pipeline's layouts. Bindless layouts (nil desc) are skipped.
func summarizePipelineBindings(layouts []nvrhi.BindingLayout) (*bindingSummary, bindingLocation, bool) {
	summary := newBindingSummary()
	for _, layout := range layouts {
		if layout == nil {
			continue
		}
		desc := layout.Desc()
		if desc == nil {
			continue
		}
		if loc, dup := summary.addLayout(desc); dup {
			return summary, loc, true
		}
	}
	return summary, bindingLocation{}, false
}
