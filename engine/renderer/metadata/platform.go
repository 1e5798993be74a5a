package metadata

/** @brief The shader platform the renderer compiles for. */
type ShaderPlatform int

const (
	ShaderPlatformUnknown ShaderPlatform = iota
	ShaderPlatformPCD3DSM4
	ShaderPlatformPCD3DSM5
	ShaderPlatformPS4
	ShaderPlatformXboxOneD3D12
	ShaderPlatformVulkanSM4
	ShaderPlatformVulkanSM5
	ShaderPlatformVulkanSM5Lumin
	ShaderPlatformVulkanES31Android
	ShaderPlatformMetal
	ShaderPlatformOpenGLES31
)

var shaderPlatformNames = map[ShaderPlatform]string{
	ShaderPlatformUnknown:           "SP_Unknown",
	ShaderPlatformPCD3DSM4:          "SP_PCD3D_SM4",
	ShaderPlatformPCD3DSM5:          "SP_PCD3D_SM5",
	ShaderPlatformPS4:               "SP_PS4",
	ShaderPlatformXboxOneD3D12:      "SP_XBOXONE_D3D12",
	ShaderPlatformVulkanSM4:         "SP_VULKAN_SM4",
	ShaderPlatformVulkanSM5:         "SP_VULKAN_SM5",
	ShaderPlatformVulkanSM5Lumin:    "SP_VULKAN_SM5_LUMIN",
	ShaderPlatformVulkanES31Android: "SP_VULKAN_ES3_1_ANDROID",
	ShaderPlatformMetal:             "SP_METAL",
	ShaderPlatformOpenGLES31:        "SP_OPENGL_ES3_1",
}

func (sp ShaderPlatform) String() string {
	if name, ok := shaderPlatformNames[sp]; ok {
		return name
	}
	return shaderPlatformNames[ShaderPlatformUnknown]
}

// ParseShaderPlatform maps an "SP_" name to its platform.
func ParseShaderPlatform(name string) (ShaderPlatform, bool) {
	for sp, n := range shaderPlatformNames {
		if n == name {
			return sp, true
		}
	}
	return ShaderPlatformUnknown, false
}

// ShaderPlatformSupportsCompression reports whether block compressed texture
// arrays can be sampled on the platform.
func ShaderPlatformSupportsCompression(sp ShaderPlatform) bool {
	switch sp {
	case ShaderPlatformPCD3DSM4,
		ShaderPlatformPCD3DSM5,
		ShaderPlatformPS4,
		ShaderPlatformXboxOneD3D12,
		ShaderPlatformVulkanSM5,
		ShaderPlatformVulkanSM4,
		ShaderPlatformVulkanSM5Lumin:
		return true
	default:
		return false
	}
}

/**
 * @brief What the active renderer backend can do. Reported by the backend and
 * consulted before any texture array resource is created.
 */
type PlatformCapabilities struct {
	ShaderPlatform         ShaderPlatform
	SupportsTexture2DArray bool
	MaxArrayLayers         uint32
	/** @brief Formats the device cannot create, on top of the static table. */
	UnsupportedFormats map[PixelFormat]bool
}

// FormatSupported combines the static format table with the device's exclusions.
func (c PlatformCapabilities) FormatSupported(pf PixelFormat) bool {
	return pf.Info().Supported && !c.UnsupportedFormats[pf]
}

// CanCreateTextureArray reports whether an array of the given format can be
// created and sampled on this platform.
func (c PlatformCapabilities) CanCreateTextureArray(pf PixelFormat) bool {
	if !c.SupportsTexture2DArray || !c.FormatSupported(pf) {
		return false
	}
	return !pf.IsCompressed() || ShaderPlatformSupportsCompression(c.ShaderPlatform)
}
