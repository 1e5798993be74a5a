package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Indexes the asset directory, loads assets through the registered
 * loaders and turns file system changes into engine events so texture
 * arrays can follow their source images.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	// Register loaders
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeTextureArray, &loaders.ArchiveLoader{})
	return am, nil
}

// Initialize indexes assetsDir and starts watching it. An empty dir skips watching.
func (am *AssetManager) Initialize(assetsDir string) error {
	go am.start()
	if assetsDir == "" {
		return nil
	}
	return am.addRecursive(assetsDir)
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	<-am.stopped
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	am.mutex.RLock()
	closed := am.isClosed
	am.mutex.RUnlock()
	if closed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads the file at path with the loader registered for resourceType.
func (am *AssetManager) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	path = filepath.Clean(path)
	loader, loaderExists := am.loaders[resourceType]
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type: %s", resourceType)
	}

	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	am.mutex.RLock()
	info, ok := am.assets[asset.FullPath]
	am.mutex.RUnlock()
	if !ok {
		return errors.Newf("asset not found: %s", asset.FullPath)
	}
	return am.loaders[info.Type].Unload(asset)
}

// LoadSourceImage decodes an image file into a source image named after its cleaned path.
func (am *AssetManager) LoadSourceImage(name string) (*metadata.SourceImage, error) {
	res, err := am.LoadAsset(name, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: false})
	if err != nil {
		return nil, err
	}
	img, ok := res.Data.(*metadata.SourceImage)
	if !ok {
		return nil, errors.Newf("'%s' did not decode into a source image", name)
	}
	return img, nil
}

func (am *AssetManager) LoadTextureArchive(path string) (*metadata.TextureArrayArchive, error) {
	res, err := am.LoadAsset(path, metadata.ResourceTypeTextureArray, nil)
	if err != nil {
		return nil, err
	}
	ar, ok := res.Data.(*metadata.TextureArrayArchive)
	if !ok {
		return nil, errors.Newf("'%s' is not a texture array archive", path)
	}
	return ar, nil
}

// Assets lists the indexed assets of the given type.
func (am *AssetManager) Assets(resourceType metadata.ResourceType) []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0)
	for _, info := range am.assets {
		if info.Type == resourceType {
			out = append(out, info)
		}
	}
	return out
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %v", e)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	path := filepath.Clean(e.Name)
	s, err := os.Stat(path)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(path, false); err != nil {
				core.LogWarn("cannot watch '%s': %v", path, err)
			}
		}
		return
	}

	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if am.handleFileEvent(path) == metadata.ResourceTypeImage {
			fireSourceEvent(core.EVENT_CODE_TEXTURE_SOURCE_CHANGED, am, path)
		}
	}
	// Can't stat a deleted file, so removals are matched against the index.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if am.removeAsset(path) == metadata.ResourceTypeImage {
			fireSourceEvent(core.EVENT_CODE_TEXTURE_SOURCE_REMOVED, am, path)
		}
	}
}

func fireSourceEvent(code core.SystemEventCode, sender interface{}, path string) {
	ctx := core.EventContext{}
	ctx.Data.C[0] = path
	core.EventFire(code, sender, ctx)
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(filepath.Clean(walkPath))
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) metadata.ResourceType {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, ok := am.assets[path]
	if !ok {
		info = AssetInfo{Path: path, Type: assetType}
	}
	am.assets[path] = info
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) metadata.ResourceType {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, ok := am.assets[path]
	if !ok {
		return metadata.ResourceTypeNone
	}
	delete(am.assets, path)
	return info.Type
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return metadata.ResourceTypeImage
	case loaders.ArchiveExtension:
		return metadata.ResourceTypeTextureArray
	default:
		return metadata.ResourceTypeNone
	}
}
