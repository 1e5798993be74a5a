package systems

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type textureArrayReference struct {
	ReferenceCount uint64
	Handle         uint32
	AutoRelease    bool
}

/**
 * @brief Registry of texture array assets. Arrays live in a fixed number of
 * slots and are looked up by name; auto-release arrays are destroyed when
 * their last reference is released.
 */
type TextureSystem struct {
	Config *core.TextureSystemConfig

	mutex sync.Mutex
	// Array of registered textures.
	RegisteredTextures []*TextureArray
	// Hashtable for texture lookups.
	RegisteredTextureTable map[string]*textureArrayReference

	env      *textureArrayEnv
	resolver SourceResolver
}

func NewTextureSystem(config *core.Config, r *renderer.Renderer, rt *RenderThread, resolver SourceResolver) (*TextureSystem, error) {
	if config.TextureSystem.MaxTextureCount == 0 {
		err := errors.New("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError("%v", err)
		return nil, err
	}
	if r == nil || rt == nil {
		return nil, errors.New("func NewTextureSystem - renderer and render thread are required")
	}

	ts := &TextureSystem{
		Config:                 &config.TextureSystem,
		RegisteredTextures:     make([]*TextureArray, config.TextureSystem.MaxTextureCount),
		RegisteredTextureTable: make(map[string]*textureArrayReference),
		env: &textureArrayEnv{
			renderThread: rt,
			cooker:       NewCooker(config.Platform.BulkDataAlignment),
			caps:         r.Capabilities(),
			config:       config,
		},
		resolver: resolver,
	}
	return ts, nil
}

func (ts *TextureSystem) Initialize() error {
	if !core.EventRegister(core.EVENT_CODE_TEXTURE_SOURCE_CHANGED, ts, ts.onSourceEvent) {
		core.LogWarn("texture system could not listen for source changes")
	}
	if !core.EventRegister(core.EVENT_CODE_TEXTURE_SOURCE_REMOVED, ts, ts.onSourceEvent) {
		core.LogWarn("texture system could not listen for source removals")
	}
	return nil
}

// Shutdown schedules the destroy of every registered array.
func (ts *TextureSystem) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_TEXTURE_SOURCE_CHANGED, ts)
	core.EventUnregister(core.EVENT_CODE_TEXTURE_SOURCE_REMOVED, ts)

	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	for i, t := range ts.RegisteredTextures {
		if t != nil {
			t.Release()
			ts.RegisteredTextures[i] = nil
		}
	}
	ts.RegisteredTextureTable = make(map[string]*textureArrayReference)
	return nil
}

// ArrayNameFor is the name the factory gives an array built from sources.
func ArrayNameFor(sources []*metadata.SourceImage) string {
	if len(sources) == 0 || sources[0] == nil {
		return "TextureArray" + TextureArraySuffix
	}
	base := filepath.Base(sources[0].Name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + TextureArraySuffix
}

/**
 * @brief Creates a texture array from the given textures, one slice per
 * texture in order, and schedules its GPU resource. The array never streams
 * and takes its mip policy from its texture group.
 */
func (ts *TextureSystem) NewTextureArrayFromTextures(sources []*metadata.SourceImage, autoRelease bool) (*TextureArray, error) {
	settings := metadata.DefaultTextureArraySettings()
	settings.MipGenSettings = metadata.MipGenFromTextureGroup
	settings.NeverStream = true
	return ts.Create(ArrayNameFor(sources), settings, sources, autoRelease)
}

/**
 * @brief Registers a new array, aggregates its sources and schedules its GPU
 * resource. The returned array holds one reference. Platforms that cannot
 * create the resource still get the asset.
 */
func (ts *TextureSystem) Create(name string, settings metadata.TextureArraySettings, sources []*metadata.SourceImage, autoRelease bool) (*TextureArray, error) {
	ta := newTextureArray(name, settings, ts.env)
	if err := ts.register(ta, autoRelease); err != nil {
		return nil, err
	}
	ta.SetSourceImages(sources)
	if err := ts.rebuild(ta); err != nil {
		return ta, err
	}
	return ta, nil
}

// Load registers an array from its persisted form.
func (ts *TextureSystem) Load(ar *metadata.TextureArrayArchive, autoRelease bool) (*TextureArray, error) {
	ta, err := textureArrayFromArchive(ar, ts.resolver, ts.env)
	if err != nil {
		return nil, err
	}
	if err := ts.register(ta, autoRelease); err != nil {
		return nil, err
	}
	if err := ts.rebuild(ta); err != nil {
		return ta, err
	}
	return ta, nil
}

// rebuild only reports failures the caller can act on.
func (ts *TextureSystem) rebuild(ta *TextureArray) error {
	err := ta.RequestResourceRebuild()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrUnsupportedOnPlatform), errors.Is(err, core.ErrNoMips):
		core.LogWarn("texture array '%s' has no GPU resource: %v", ta.Name(), err)
		return nil
	default:
		return err
	}
}

func (ts *TextureSystem) register(ta *TextureArray, autoRelease bool) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	if _, exists := ts.RegisteredTextureTable[ta.name]; exists {
		return errors.Newf("texture array '%s' is already registered", ta.name)
	}
	for i := uint32(0); i < ts.Config.MaxTextureCount; i++ {
		if ts.RegisteredTextures[i] == nil {
			ta.ID = i
			ta.Generation = 0
			ts.RegisteredTextures[i] = ta
			ts.RegisteredTextureTable[ta.name] = &textureArrayReference{
				ReferenceCount: 1,
				Handle:         i,
				AutoRelease:    autoRelease,
			}
			return nil
		}
	}
	core.LogError("texture system cannot hold anymore textures. Adjust configuration to allow more.")
	return errors.Newf("no free slot for texture array '%s'", ta.name)
}

// Acquire returns a registered array and increments its reference count.
func (ts *TextureSystem) Acquire(name string) (*TextureArray, error) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		return nil, errors.Newf("texture array '%s' is not registered", name)
	}
	ref.ReferenceCount++
	return ts.RegisteredTextures[ref.Handle], nil
}

/**
 * @brief Drops one reference. An auto-release array whose count reaches zero
 * is unregistered and its resource destroyed.
 */
func (ts *TextureSystem) Release(name string) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		core.LogWarn("Tried to release non-existent texture array: '%s'", name)
		return
	}
	if ref.ReferenceCount == 0 {
		core.LogWarn("Tried to release texture array '%s' where references was already 0.", name)
		return
	}
	ref.ReferenceCount--
	if ref.ReferenceCount == 0 && ref.AutoRelease {
		ta := ts.RegisteredTextures[ref.Handle]
		ta.Release()
		ta.ID = metadata.InvalidID
		ta.Generation = metadata.InvalidID
		ts.RegisteredTextures[ref.Handle] = nil
		delete(ts.RegisteredTextureTable, name)
		core.LogDebug("Released texture array '%s', unloaded because reference count=0 and AutoRelease=true.", name)
	}
}

// Get looks an array up without touching its reference count.
func (ts *TextureSystem) Get(name string) (*TextureArray, bool) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		return nil, false
	}
	return ts.RegisteredTextures[ref.Handle], true
}

func (ts *TextureSystem) ReferenceCount(name string) uint64 {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	if ref, ok := ts.RegisteredTextureTable[name]; ok {
		return ref.ReferenceCount
	}
	return 0
}

// Arrays returns the registered arrays sorted by name.
func (ts *TextureSystem) Arrays() []*TextureArray {
	ts.mutex.Lock()
	out := make([]*TextureArray, 0, len(ts.RegisteredTextureTable))
	for _, ref := range ts.RegisteredTextureTable {
		out = append(out, ts.RegisteredTextures[ref.Handle])
	}
	ts.mutex.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (ts *TextureSystem) Capabilities() metadata.PlatformCapabilities {
	return ts.env.caps
}

func (ts *TextureSystem) onSourceEvent(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	path := data.Data.C[0]
	for _, ta := range ts.Arrays() {
		if !ta.UsesSource(path) {
			continue
		}
		if code == core.EVENT_CODE_TEXTURE_SOURCE_REMOVED {
			core.LogWarn("source '%s' of texture array '%s' was removed", path, ta.Name())
			continue
		}
		ts.ReloadSource(ta, path)
	}
	// Other listeners may care about the same file.
	return false
}

// ReloadSource re-reads one source of an array and rebuilds its resource.
func (ts *TextureSystem) ReloadSource(ta *TextureArray, name string) {
	if ts.resolver == nil {
		return
	}
	img, err := ts.resolver(name)
	if err != nil {
		core.LogError("reloading source '%s' of texture array '%s': %v", name, ta.Name(), err)
		return
	}
	if !ta.ReplaceSourceImage(img) {
		return
	}
	if err := ts.rebuild(ta); err != nil {
		core.LogError("rebuilding texture array '%s': %v", ta.Name(), err)
		return
	}
	core.LogInfo("texture array '%s' reloaded after '%s' changed", ta.Name(), name)
}
