package metadata

/** @brief Pre-defined resource types. */
type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	/** @brief Image resource type, decoded into a SourceImage. */
	ResourceTypeImage
	/** @brief Texture array archive resource type. */
	ResourceTypeTextureArray
	/** @brief Custom resource type. Used by loaders outside the core engine. */
	ResourceTypeCustom
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeTextureArray:
		return "texture_array"
	case ResourceTypeCustom:
		return "custom"
	default:
		return "none"
	}
}

/** @brief A generic structure for a resource. All resource loaders load data into these. */
type Resource struct {
	/** @brief The identifier of the loader which handles this resource. */
	LoaderID uint32
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

type ImageResourceParams struct {
	/** @brief Flip the image vertically on load. */
	FlipY bool
}
