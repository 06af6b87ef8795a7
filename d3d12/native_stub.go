// Copyright 2024 The nvrhi Authors. All rights reserved.

//go:build !windows

package d3d12

// releaseIUnknown is a no-op off Windows; native resources can only
// be created where the COM layer is available.
func releaseIUnknown(obj uintptr) {}
