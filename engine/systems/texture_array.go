package systems

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// TextureArraySuffix is appended to the first source's name by the factory.
const TextureArraySuffix = "_2DArray"

// textureArrayEnv is what an asset needs from the systems around it.
type textureArrayEnv struct {
	renderThread *RenderThread
	cooker       *Cooker
	caps         metadata.PlatformCapabilities
	config       *core.Config
}

/**
 * @brief A texture array asset. Every slice is one source image; all sources
 * share size, mip count and format. The asset owns the merged source, the
 * cooked platform data and at most one live ArrayResource, which it only
 * ever touches through render commands.
 */
type TextureArray struct {
	ID         uint32
	Generation uint32

	mutex sync.RWMutex

	name     string
	settings metadata.TextureArraySettings

	sources     []*metadata.SourceImage
	source      *metadata.MergedSource
	contentGUID uuid.UUID

	platformData *metadata.PlatformData
	cookedStale  bool

	reference metadata.TextureReference
	resource  *ArrayResource

	env *textureArrayEnv
}

func newTextureArray(name string, settings metadata.TextureArraySettings, env *textureArrayEnv) *TextureArray {
	return &TextureArray{
		ID:          metadata.InvalidID,
		Generation:  metadata.InvalidID,
		name:        name,
		settings:    settings,
		source:      metadata.EmptyMergedSource(),
		cookedStale: true,
		env:         env,
	}
}

func (ta *TextureArray) Name() string {
	return ta.name
}

func (ta *TextureArray) Kind() metadata.TextureKind {
	return metadata.TextureKind2DArray
}

func (ta *TextureArray) Settings() metadata.TextureArraySettings {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.settings
}

// SetSettings replaces the settings; cooked data is rebuilt on the next resource rebuild.
func (ta *TextureArray) SetSettings(settings metadata.TextureArraySettings) {
	ta.mutex.Lock()
	defer ta.mutex.Unlock()
	ta.settings = settings
	ta.cookedStale = true
	ta.updateMipGenSettings()
}

/**
 * @brief Replaces the slice list and re-aggregates. Slice i samples
 * sources[i]. Returns whether the new merged source is valid.
 */
func (ta *TextureArray) SetSourceImages(sources []*metadata.SourceImage) bool {
	ta.mutex.Lock()
	ta.sources = append([]*metadata.SourceImage(nil), sources...)
	ta.mutex.Unlock()
	return ta.RefreshFromSources()
}

// ReplaceSourceImage swaps every slice whose source has the same name as img.
// Returns false when no slice uses it.
func (ta *TextureArray) ReplaceSourceImage(img *metadata.SourceImage) bool {
	ta.mutex.Lock()
	replaced := false
	for i, src := range ta.sources {
		if src != nil && src.Name == img.Name {
			ta.sources[i] = img
			replaced = true
		}
	}
	ta.mutex.Unlock()
	if replaced {
		ta.RefreshFromSources()
	}
	return replaced
}

// UsesSource reports whether any slice was built from the named source.
func (ta *TextureArray) UsesSource(name string) bool {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	for _, src := range ta.sources {
		if src != nil && src.Name == name {
			return true
		}
	}
	return false
}

func (ta *TextureArray) SourceImages() []*metadata.SourceImage {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return append([]*metadata.SourceImage(nil), ta.sources...)
}

func (ta *TextureArray) SourceNames() []string {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	names := make([]string, len(ta.sources))
	for i, src := range ta.sources {
		if src != nil {
			names[i] = src.Name
		}
	}
	return names
}

/**
 * @brief Rebuilds the merged source from the current slice list. On success
 * the content GUID changes; in every case the cooked data becomes stale.
 * Incompatible sources leave the asset with the empty merged source.
 */
func (ta *TextureArray) RefreshFromSources() bool {
	ta.mutex.Lock()
	merged, err := Aggregate(ta.sources)
	if err != nil {
		core.LogWarn("texture array '%s' sources are incompatible: %v", ta.name, err)
		merged = metadata.EmptyMergedSource()
	}
	valid := merged.IsValid()
	ta.source = merged
	if valid {
		ta.contentGUID = uuid.New()
	}
	ta.cookedStale = true
	ta.updateMipGenSettings()
	slices := merged.NumSlices
	ta.mutex.Unlock()

	if valid {
		ctx := core.EventContext{}
		ctx.Data.C[0] = ta.name
		ctx.Data.U32[0] = slices
		core.EventFire(core.EVENT_CODE_TEXTURE_ARRAY_REFRESHED, ta, ctx)
	}
	return valid
}

// updateMipGenSettings drops mips for sources that cannot have them. An empty
// source says nothing about the shape and keeps the settings. Caller holds the lock.
func (ta *TextureArray) updateMipGenSettings() {
	if ta.settings.PowerOfTwoMode != metadata.PowerOfTwoNone || !ta.source.IsValid() {
		return
	}
	if !ta.source.IsPowerOfTwo() || !math.IsPowerOfTwo(ta.source.NumSlices) {
		ta.settings.MipGenSettings = metadata.MipGenNoMipmaps
		ta.settings.NeverStream = true
	}
}

// CachePlatformData cooks the merged source if the cooked data is stale.
func (ta *TextureArray) CachePlatformData(ctx context.Context) error {
	ta.mutex.Lock()
	defer ta.mutex.Unlock()
	return ta.cachePlatformData(ctx)
}

func (ta *TextureArray) cachePlatformData(ctx context.Context) error {
	if !ta.cookedStale && ta.platformData != nil {
		return nil
	}
	if !ta.source.IsValid() {
		ta.platformData = nil
		ta.cookedStale = false
		return nil
	}
	pd, err := ta.env.cooker.Cook(ctx, ta.source, ta.settings.MipGenSettings)
	if err != nil {
		ta.platformData = nil
		return errors.Wrapf(err, "cooking texture array '%s'", ta.name)
	}
	ta.platformData = pd
	ta.cookedStale = false
	return nil
}

/**
 * @brief Re-cooks if needed and schedules a new GPU resource at the cached
 * LOD bias.
 */
func (ta *TextureArray) RequestResourceRebuild() error {
	ta.mutex.Lock()
	defer ta.mutex.Unlock()
	if err := ta.cachePlatformData(context.Background()); err != nil {
		ta.releaseResource()
		return err
	}
	return ta.createGpuResource(ta.cachedLODBias())
}

/**
 * @brief Replaces the GPU resource with one whose first resident mip is
 * mipBias. The destroy of the previous resource is enqueued before the
 * initialize of the new one. Platforms that cannot hold this array, and
 * assets without cooked mips, get no resource.
 */
func (ta *TextureArray) CreateGpuResource(mipBias uint32) error {
	ta.mutex.Lock()
	defer ta.mutex.Unlock()
	return ta.createGpuResource(mipBias)
}

func (ta *TextureArray) createGpuResource(mipBias uint32) error {
	ta.releaseResource()

	pd := ta.platformData
	if pd.NumMips() == 0 {
		core.LogWarn("%s contains no miplevels! Please delete.", ta.name)
		return errors.Wrapf(core.ErrNoMips, "'%s'", ta.name)
	}
	if !ta.env.caps.SupportsTexture2DArray {
		core.LogWarn("%s cannot be created, rhi does not support texture2d arrays.", ta.name)
		return errors.Wrapf(core.ErrUnsupportedOnPlatform, "'%s': texture arrays are not supported", ta.name)
	}
	if !ta.env.caps.CanCreateTextureArray(pd.PixelFormat) {
		core.LogWarn("%s cannot be created, rhi does not support format %s.", ta.name, pd.PixelFormat)
		return errors.Wrapf(core.ErrUnsupportedOnPlatform, "'%s': format %s on %s", ta.name, pd.PixelFormat, ta.env.caps.ShaderPlatform)
	}
	if limit := ta.env.caps.MaxArrayLayers; limit > 0 && pd.NumSlices > limit {
		core.LogWarn("%s cannot be created, %d slices exceed the device limit of %d.", ta.name, pd.NumSlices, limit)
		return errors.Wrapf(core.ErrUnsupportedOnPlatform, "'%s': %d slices, device limit %d", ta.name, pd.NumSlices, limit)
	}

	group := ta.env.config.TextureGroup(ta.settings.LODGroup)
	res, err := NewArrayResource(ArrayResourceParams{
		Name:         ta.name,
		PlatformData: pd,
		MipBias:      mipBias,
		SRGB:         ta.settings.SRGB,
		NoTiling:     ta.settings.NoTiling,
		Filter:       metadata.ParseTextureFilter(group.Filter),
		LODGroup:     ta.settings.LODGroup,
		TextureSize:  int64(ta.calcTextureMemorySize(pd.NumMips() - mipBias)),
		Reference:    &ta.reference,
	})
	if err != nil {
		return err
	}
	ta.resource = res
	return ta.env.renderThread.Enqueue(fmt.Sprintf("init %s", ta.name), res.Initialize)
}

// releaseResource enqueues the destroy of the current resource. Caller holds the lock.
func (ta *TextureArray) releaseResource() {
	if ta.resource == nil {
		return
	}
	res := ta.resource
	ta.resource = nil
	if err := ta.env.renderThread.Enqueue(fmt.Sprintf("destroy %s", ta.name), res.Destroy); err != nil {
		core.LogError("texture array '%s' leaked its resource: %v", ta.name, err)
	}
}

// Release schedules the destroy of the GPU resource, if any.
func (ta *TextureArray) Release() {
	ta.mutex.Lock()
	defer ta.mutex.Unlock()
	ta.releaseResource()
}

/**
 * @brief The asset's LOD bias: its own bias plus its group's, clamped to
 * the cooked mip range.
 */
func (ta *TextureArray) CachedLODBias() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.cachedLODBias()
}

func (ta *TextureArray) cachedLODBias() uint32 {
	numMips := ta.platformData.NumMips()
	if numMips == 0 {
		return 0
	}
	bias := ta.settings.LODBias + ta.env.config.TextureGroup(ta.settings.LODGroup).LODBias
	return uint32(math.Clamp(bias, 0, int32(numMips-1)))
}

// CalcTextureMemorySize is the byte size of the smallest mipCount mips of every slice.
func (ta *TextureArray) CalcTextureMemorySize(mipCount uint32) uint64 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.calcTextureMemorySize(mipCount)
}

func (ta *TextureArray) calcTextureMemorySize(mipCount uint32) uint64 {
	pd := ta.platformData
	numMips := pd.NumMips()
	mipCount = math.Min(mipCount, numMips)
	size := uint64(0)
	for mip := numMips - mipCount; mip < numMips; mip++ {
		size += metadata.CalcMipMapSize(pd.SizeX, pd.SizeY, pd.PixelFormat, mip) * uint64(pd.NumSlices)
	}
	return size
}

func (ta *TextureArray) CalcTextureMemorySizeEnum(which metadata.TextureMipCount) uint64 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	numMips := ta.platformData.NumMips()
	switch which {
	case metadata.TextureMipCountResident, metadata.TextureMipCountAllMipsBiased:
		return ta.calcTextureMemorySize(numMips - ta.cachedLODBias())
	default:
		return ta.calcTextureMemorySize(numMips)
	}
}

func (ta *TextureArray) SizeX() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	if ta.platformData == nil {
		return 0
	}
	return ta.platformData.SizeX
}

func (ta *TextureArray) SizeY() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	if ta.platformData == nil {
		return 0
	}
	return ta.platformData.SizeY
}

func (ta *TextureArray) SizeZ() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	if ta.platformData == nil {
		return 0
	}
	return ta.platformData.NumSlices
}

func (ta *TextureArray) NumMips() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.platformData.NumMips()
}

func (ta *TextureArray) PixelFormat() metadata.PixelFormat {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	if ta.platformData == nil {
		return metadata.PixelFormatUnknown
	}
	return ta.platformData.PixelFormat
}

// MaxSlice is the last valid slice index, 0 for an empty array.
func (ta *TextureArray) MaxSlice() uint32 {
	z := ta.SizeZ()
	if z == 0 {
		return 0
	}
	return z - 1
}

// ClampSlice maps any requested slice into [0, MaxSlice].
func (ta *TextureArray) ClampSlice(slice int) uint32 {
	return uint32(math.Clamp(slice, 0, int(ta.MaxSlice())))
}

// IsResourceValid reports whether a resource exists and has finished initializing.
func (ta *TextureArray) IsResourceValid() bool {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.resource != nil && ta.resource.State() == ResourceReady
}

func (ta *TextureArray) Resource() *ArrayResource {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.resource
}

func (ta *TextureArray) EffectiveWidth() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	if ta.resource != nil {
		return ta.resource.EffectiveWidth()
	}
	if ta.platformData == nil {
		return 0
	}
	return ta.platformData.SizeX
}

func (ta *TextureArray) EffectiveHeight() uint32 {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	if ta.resource != nil {
		return ta.resource.EffectiveHeight()
	}
	if ta.platformData == nil {
		return 0
	}
	return ta.platformData.SizeY
}

// Reference is the stable indirection material bindings sample through.
func (ta *TextureArray) Reference() *metadata.TextureReference {
	return &ta.reference
}

func (ta *TextureArray) ContentGUID() uuid.UUID {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.contentGUID
}

// MergedSource returns a snapshot of the merged source.
func (ta *TextureArray) MergedSource() *metadata.MergedSource {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.source.Clone()
}

// PlatformData returns the cooked data. Callers must not modify it.
func (ta *TextureArray) PlatformData() *metadata.PlatformData {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.platformData
}

func (ta *TextureArray) IsCookedStale() bool {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	return ta.cookedStale
}

// AssetRegistryTags are the searchable properties shown by asset tools.
func (ta *TextureArray) AssetRegistryTags() map[string]string {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	x, y, z := ta.dimensions()
	format := metadata.PixelFormatUnknown
	if ta.platformData != nil {
		format = ta.platformData.PixelFormat
	} else if ta.source.IsValid() {
		format = ta.source.Format.PixelFormat()
	}
	return map[string]string{
		"Dimensions": fmt.Sprintf("%dx%dx%d", x, y, z),
		"Format":     format.String(),
	}
}

func (ta *TextureArray) Desc() string {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	x, y, z := ta.dimensions()
	format := metadata.PixelFormatUnknown
	if ta.platformData != nil {
		format = ta.platformData.PixelFormat
	}
	return fmt.Sprintf("Texture 2D Array: %dx%dx%d [%s]", x, y, z, format)
}

func (ta *TextureArray) dimensions() (uint32, uint32, uint32) {
	if ta.platformData != nil {
		return ta.platformData.SizeX, ta.platformData.SizeY, ta.platformData.NumSlices
	}
	return ta.source.Width, ta.source.Height, ta.source.NumSlices
}

// ToArchive captures the persisted form; cooked data is included only when cooked is set.
func (ta *TextureArray) ToArchive(cooked bool) *metadata.TextureArrayArchive {
	ta.mutex.RLock()
	defer ta.mutex.RUnlock()
	ar := &metadata.TextureArrayArchive{
		Name:        ta.name,
		Settings:    ta.settings,
		ContentGUID: ta.contentGUID,
	}
	for _, src := range ta.sources {
		if src != nil {
			ar.SourceNames = append(ar.SourceNames, src.Name)
		}
	}
	if cooked && ta.platformData != nil && !ta.cookedStale {
		ar.Cooked = true
		ar.PlatformData = ta.platformData
	}
	return ar
}

// SourceResolver loads a source image by name.
type SourceResolver func(name string) (*metadata.SourceImage, error)

/**
 * @brief Rebuilds an asset from its persisted form. Archives without cooked
 * data resolve their sources and re-aggregate; cooked archives keep their
 * platform data as is.
 */
func textureArrayFromArchive(ar *metadata.TextureArrayArchive, resolve SourceResolver, env *textureArrayEnv) (*TextureArray, error) {
	if ar == nil || strings.TrimSpace(ar.Name) == "" {
		return nil, errors.Wrap(core.ErrInvalidArchive, "archive has no name")
	}
	ta := newTextureArray(ar.Name, ar.Settings, env)
	ta.contentGUID = ar.ContentGUID
	if ar.Cooked {
		ta.platformData = ar.PlatformData
		ta.cookedStale = false
		return ta, nil
	}
	if resolve == nil {
		return nil, errors.Wrapf(core.ErrInvalidArchive, "'%s' has no cooked data and no way to load its sources", ar.Name)
	}
	sources := make([]*metadata.SourceImage, 0, len(ar.SourceNames))
	for _, name := range ar.SourceNames {
		img, err := resolve(name)
		if err != nil {
			return nil, errors.Wrapf(err, "loading source '%s' of '%s'", name, ar.Name)
		}
		sources = append(sources, img)
	}
	ta.sources = sources
	ta.PostLoad()
	return ta, nil
}

// PostLoad re-aggregates an asset loaded without cooked data.
func (ta *TextureArray) PostLoad() {
	ta.mutex.RLock()
	needsSource := len(ta.sources) > 0 && !ta.source.IsValid()
	ta.mutex.RUnlock()
	if needsSource {
		ta.RefreshFromSources()
	}
}
