package systems

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func testCaps() metadata.PlatformCapabilities {
	return metadata.PlatformCapabilities{
		ShaderPlatform:         metadata.ShaderPlatformVulkanSM5,
		SupportsTexture2DArray: true,
		MaxArrayLayers:         2048,
	}
}

func newTestRenderer(t *testing.T, caps metadata.PlatformCapabilities) (*renderer.Renderer, *headless.Backend) {
	t.Helper()
	backend := headless.New(caps)
	r := renderer.NewWithBackend(backend)
	if err := r.Initialize("systems-test"); err != nil {
		t.Fatal(err)
	}
	return r, backend
}

func flush(t *testing.T, rt *RenderThread) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestRenderThreadRunsInOrder(t *testing.T) {
	r, _ := newTestRenderer(t, testCaps())
	rt, err := NewRenderThread(r, 4, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		if err := rt.Enqueue("step", func(*renderer.Renderer) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	flush(t, rt)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 50 {
		t.Fatalf("ran %d commands, want 50", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("command %d ran at position %d", v, i)
		}
	}
}

func TestRenderThreadShutdown(t *testing.T) {
	r, _ := newTestRenderer(t, testCaps())
	rt, err := NewRenderThread(r, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	ran := false
	if err := rt.Enqueue("last", func(*renderer.Renderer) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := rt.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("Shutdown() did not drain the queue")
	}
	if err := rt.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	err = rt.Enqueue("late", func(*renderer.Renderer) error { return nil })
	if !errors.Is(err, core.ErrRenderThreadStopped) {
		t.Errorf("Enqueue() after shutdown = %v, want ErrRenderThreadStopped", err)
	}
	if err := rt.Flush(context.Background()); !errors.Is(err, core.ErrRenderThreadStopped) {
		t.Errorf("Flush() after shutdown = %v", err)
	}
}

func TestRenderThreadSurvivesFailures(t *testing.T) {
	r, _ := newTestRenderer(t, testCaps())
	rt, err := NewRenderThread(r, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown()

	_ = rt.Enqueue("fails", func(*renderer.Renderer) error { return errors.New("boom") })
	_ = rt.Enqueue("panics", func(*renderer.Renderer) error { panic("render thread panic") })
	_ = rt.Enqueue("works", func(*renderer.Renderer) error { return nil })
	flush(t, rt)

	if got := rt.Failed(); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
	// The fence itself may still be recording when Flush returns.
	if got := rt.Executed(); got < 3 {
		t.Errorf("Executed() = %d, want at least 3", got)
	}
	timings := rt.RecentTimings()
	if len(timings) < 3 {
		t.Fatalf("RecentTimings() has %d entries", len(timings))
	}
	if timings[0].Name != "fails" || timings[0].Err == nil {
		t.Errorf("first timing = %+v", timings[0])
	}
	if timings[2].Name != "works" || timings[2].Err != nil {
		t.Errorf("third timing = %+v", timings[2])
	}
}

func TestRenderThreadFlushHonoursContext(t *testing.T) {
	r, _ := newTestRenderer(t, testCaps())
	rt, err := NewRenderThread(r, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	release := make(chan struct{})
	_ = rt.Enqueue("blocks", func(*renderer.Renderer) error {
		<-release
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rt.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush() = %v, want deadline exceeded", err)
	}
	close(release)
	rt.Shutdown()
}

func TestNewRenderThreadValidation(t *testing.T) {
	r, _ := newTestRenderer(t, testCaps())
	if _, err := NewRenderThread(nil, 1, 1); err == nil {
		t.Error("nil renderer accepted")
	}
	if _, err := NewRenderThread(r, -1, 1); !errors.Is(err, ErrNegativeBufferSize) {
		t.Errorf("negative buffer = %v", err)
	}
}
