package metadata

/** @brief User-facing settings of a texture array asset. */
type TextureArraySettings struct {
	SRGB     bool
	NoTiling bool
	/** @brief Texture group the sampler filter, LOD bias and memory stats come from. */
	LODGroup       string
	LODBias        int32
	MipGenSettings MipGenSettings
	PowerOfTwoMode PowerOfTwoMode
	/** @brief Keep every mip resident. */
	NeverStream bool
}

func DefaultTextureArraySettings() TextureArraySettings {
	return TextureArraySettings{
		SRGB:           true,
		LODGroup:       "World",
		MipGenSettings: MipGenFromTextureGroup,
		PowerOfTwoMode: PowerOfTwoNone,
	}
}

/**
 * @brief The persisted form of a texture array. Sources are stored by name
 * only; PlatformData is present only when Cooked is set.
 */
type TextureArrayArchive struct {
	Name        string
	SourceNames []string
	Settings    TextureArraySettings
	Cooked      bool
	// ContentGUID is the identity of the merged source the cooked data was built from.
	ContentGUID  [16]byte
	PlatformData *PlatformData
}
