package systems

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
)

// shutdownTimeout bounds how long Shutdown waits for pending render commands.
const shutdownTimeout = 10 * time.Second

type SystemManager struct {
	renderThread  *RenderThread
	textureSystem *TextureSystem
	renderer      *renderer.Renderer
}

func NewSystemManager(config *core.Config, r *renderer.Renderer, am *assets.AssetManager) (*SystemManager, error) {
	rt, err := NewRenderThread(r, config.Render.CommandBufferSize, config.Render.HistorySize)
	if err != nil {
		return nil, err
	}
	var resolver SourceResolver
	if am != nil {
		resolver = am.LoadSourceImage
	}
	ts, err := NewTextureSystem(config, r, rt, resolver)
	if err != nil {
		rt.Shutdown()
		return nil, err
	}
	return &SystemManager{
		renderThread:  rt,
		textureSystem: ts,
		renderer:      r,
	}, nil
}

func (sm *SystemManager) Initialize() error {
	return sm.textureSystem.Initialize()
}

func (sm *SystemManager) TextureSystem() *TextureSystem {
	return sm.textureSystem
}

func (sm *SystemManager) RenderThread() *RenderThread {
	return sm.renderThread
}

// Flush waits until every render command issued so far has executed.
func (sm *SystemManager) Flush(ctx context.Context) error {
	return sm.renderThread.Flush(ctx)
}

/**
 * @brief Releases every texture array, drains the render thread and stops
 * it. The renderer itself is shut down by its owner.
 */
func (sm *SystemManager) Shutdown() error {
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sm.renderThread.Flush(ctx); err != nil && !errors.Is(err, core.ErrRenderThreadStopped) {
		core.LogError("render thread did not drain: %v", err)
	}
	return sm.renderThread.Shutdown()
}
