package assets

import "github.com/spaghettifunk/anima/engine/renderer/metadata"

// Loader turns a file into a resource. The concrete type of Resource.Data
// depends on the loader: *metadata.SourceImage for images and
// *metadata.TextureArrayArchive for texture array archives.
type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
