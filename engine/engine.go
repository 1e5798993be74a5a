package engine

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/assets/loaders"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	"github.com/spaghettifunk/anima/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

type Engine struct {
	currentStage  Stage
	app           *ApplicationConfig
	config        *core.Config
	renderer      *renderer.Renderer
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	quit          chan struct{}
}

// CapabilitiesFromConfig describes the platform the configuration targets.
func CapabilitiesFromConfig(cfg *core.Config) metadata.PlatformCapabilities {
	sp, ok := metadata.ParseShaderPlatform(cfg.Platform.ShaderPlatform)
	if !ok {
		core.LogWarn("unknown shader platform '%s', using %s", cfg.Platform.ShaderPlatform, sp)
	}
	return metadata.PlatformCapabilities{
		ShaderPlatform:         sp,
		SupportsTexture2DArray: cfg.Platform.SupportsTexture2DArray,
		MaxArrayLayers:         cfg.Platform.MaxArrayLayers,
	}
}

func New(app *ApplicationConfig) (*Engine, error) {
	cfg, err := core.LoadConfig(app.ConfigPath, app.EnvPath)
	if err != nil {
		core.LogError("%v", err)
		return nil, err
	}
	core.SetLogLevel(core.ParseLogLevel(cfg.Log.Level))

	if !core.EventSystemInitialize() {
		return nil, errors.New("failed to initialize the event system")
	}
	if err := core.MemoryStatsInitialize(); err != nil {
		return nil, err
	}

	r, err := renderer.New(renderer.Headless, CapabilitiesFromConfig(cfg))
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError("%v", err)
		return nil, err
	}

	sm, err := systems.NewSystemManager(cfg, r, am)
	if err != nil {
		core.LogError("%v", err)
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		app:           app,
		config:        cfg,
		renderer:      r,
		assetManager:  am,
		systemManager: sm,
		quit:          make(chan struct{}, 1),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := e.renderer.Initialize(e.app.Name); err != nil {
		return err
	}
	if err := e.assetManager.Initialize(e.app.AssetsDir); err != nil {
		return err
	}
	if err := e.systemManager.Initialize(); err != nil {
		return err
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Config() *core.Config {
	return e.config
}

func (e *Engine) TextureSystem() *systems.TextureSystem {
	return e.systemManager.TextureSystem()
}

/**
 * @brief Loads the given images and builds a texture array from them, one
 * slice per image in order. An empty name picks the factory name.
 */
func (e *Engine) BuildTextureArray(name string, paths []string, settings metadata.TextureArraySettings) (*systems.TextureArray, error) {
	sources := make([]*metadata.SourceImage, 0, len(paths))
	for _, p := range paths {
		img, err := e.assetManager.LoadSourceImage(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, img)
	}
	if name == "" {
		name = systems.ArrayNameFor(sources)
	}
	ta, err := e.TextureSystem().Create(name, settings, sources, false)
	if err != nil {
		return ta, err
	}
	return ta, e.systemManager.Flush(context.Background())
}

// LoadTextureArray registers an array from an archive on disk.
func (e *Engine) LoadTextureArray(path string) (*systems.TextureArray, error) {
	ar, err := e.assetManager.LoadTextureArchive(path)
	if err != nil {
		return nil, err
	}
	ta, err := e.TextureSystem().Load(ar, false)
	if err != nil {
		return ta, err
	}
	return ta, e.systemManager.Flush(context.Background())
}

// SaveTextureArray writes ta next to outDir, with cooked mips when cooked is set.
func (e *Engine) SaveTextureArray(ta *systems.TextureArray, outDir string, cooked bool) (string, error) {
	path := filepath.Join(outDir, ta.Name()+loaders.ArchiveExtension)
	if err := loaders.SaveTextureArray(path, ta.ToArchive(cooked)); err != nil {
		return "", err
	}
	return path, nil
}

/**
 * @brief Blocks while the asset watcher keeps texture arrays in sync with
 * their sources. Returns when ctx is done or a quit event arrives.
 */
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	select {
	case <-ctx.Done():
	case <-e.quit:
	}
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listenerInst interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		select {
		case e.quit <- struct{}{}:
		default:
		}
		return true
	}
	return false
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	core.LogInfo("texture memory at shutdown: %d bytes in %d textures", core.MemoryStatsTextureMemory(), core.MemoryStatsTextureCount())
	if err := core.MemoryStatsShutdown(); err != nil {
		return err
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageShutdown
	return nil
}
