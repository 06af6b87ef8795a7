// Copyright 2024 The nvrhi Authors. All rights reserved.

package nvrhi

// BindingRequiredState returns the resource state a binding of the
// given type requires during draws and dispatches, or
// ResourceStateUnknown for bindings that do not imply a state
// (samplers, push constants).
func BindingRequiredState(t ResourceType) ResourceStates {
	switch t {
	case ResourceTypeTextureSRV,
		ResourceTypeTypedBufferSRV,
		ResourceTypeStructuredBufferSRV,
		ResourceTypeRawBufferSRV:
		return ResourceStateShaderResource
	case ResourceTypeTextureUAV,
		ResourceTypeTypedBufferUAV,
		ResourceTypeStructuredBufferUAV,
		ResourceTypeRawBufferUAV:
		return ResourceStateUnorderedAccess
	case ResourceTypeConstantBuffer, ResourceTypeVolatileConstantBuffer:
		return ResourceStateConstantBuffer
	case ResourceTypeAccelStruct:
		return ResourceStateAccelStructRead
	}
	return ResourceStateUnknown
}

// SetResourceStatesForFramebuffer requires the attachment states of
// fb: RenderTarget for color attachments, DepthWrite or DepthRead for
// the depth attachment.
func SetResourceStatesForFramebuffer(cl CommandList, fb Framebuffer) {
	desc := fb.Desc()

	for _, attachment := range desc.ColorAttachments {
		cl.SetTextureState(attachment.Texture, attachment.Subresources, ResourceStateRenderTarget)
	}

	if desc.DepthAttachment.Valid() {
		state := ResourceStateDepthWrite
		if desc.DepthAttachment.IsReadOnly {
			state = ResourceStateDepthRead
		}
		cl.SetTextureState(desc.DepthAttachment.Texture, desc.DepthAttachment.Subresources, state)
	}
}
