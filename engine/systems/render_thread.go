package systems

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/spaghettifunk/anima/engine/containers"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
)

// RenderFunc is the body of a render command. It runs on the render thread
// and is the only place GPU objects may be created or destroyed.
type RenderFunc func(r *renderer.Renderer) error

type renderCommand struct {
	name    string
	execute RenderFunc
}

// CommandTiming records how long one render command took.
type CommandTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

var ErrNegativeBufferSize = errors.New("attempting to create a render thread with a negative command buffer size")

/**
 * @brief A single worker goroutine owning the renderer. Commands run in the
 * exact order they were enqueued, each one after the previous completed.
 */
type RenderThread struct {
	renderer *renderer.Renderer
	queue    chan renderCommand
	wg       sync.WaitGroup

	// guards stopped and sends on queue
	mutex   sync.RWMutex
	stopped bool

	historyMutex sync.Mutex
	history      *containers.RingQueue[CommandTiming]

	executed atomic.Uint64
	failed   atomic.Uint64
}

func NewRenderThread(r *renderer.Renderer, bufferSize, historySize int) (*RenderThread, error) {
	if r == nil {
		return nil, errors.New("func NewRenderThread - renderer is nil")
	}
	if bufferSize < 0 {
		return nil, ErrNegativeBufferSize
	}
	if historySize < 0 {
		historySize = 0
	}
	rt := &RenderThread{
		renderer: r,
		queue:    make(chan renderCommand, bufferSize),
		history:  containers.NewRingQueue[CommandTiming](historySize),
	}
	rt.start()
	return rt, nil
}

func (rt *RenderThread) start() {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		for cmd := range rt.queue {
			start := hrtime.Now()
			err := rt.run(cmd)
			elapsed := hrtime.Since(start)

			rt.executed.Add(1)
			if err != nil {
				rt.failed.Add(1)
				core.LogError("render command '%s' failed: %v", cmd.name, err)
			}

			rt.historyMutex.Lock()
			rt.history.Push(CommandTiming{Name: cmd.name, Duration: elapsed, Err: err})
			rt.historyMutex.Unlock()
		}
	}()
}

// run isolates a panicking command so the render thread keeps draining the queue.
func (rt *RenderThread) run(cmd renderCommand) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.AssertionFailedf("render command '%s' panicked: %v", cmd.name, r)
		}
	}()
	return cmd.execute(rt.renderer)
}

/**
 * @brief Queues fn to run on the render thread. Blocks while the command
 * buffer is full. Returns core.ErrRenderThreadStopped after Shutdown.
 */
func (rt *RenderThread) Enqueue(name string, fn RenderFunc) error {
	if fn == nil {
		return errors.AssertionFailedf("render command '%s' has no body", name)
	}
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()
	if rt.stopped {
		return errors.Wrapf(core.ErrRenderThreadStopped, "cannot enqueue '%s'", name)
	}
	rt.queue <- renderCommand{name: name, execute: fn}
	return nil
}

// Flush blocks until every command enqueued before the call has executed.
func (rt *RenderThread) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := rt.Enqueue("fence", func(*renderer.Renderer) error {
		close(done)
		return nil
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for render thread fence")
	}
}

/**
 * @brief Drains the remaining commands and stops the worker. Safe to call
 * more than once.
 */
func (rt *RenderThread) Shutdown() error {
	rt.mutex.Lock()
	if rt.stopped {
		rt.mutex.Unlock()
		return nil
	}
	rt.stopped = true
	close(rt.queue)
	rt.mutex.Unlock()

	rt.wg.Wait()
	return nil
}

// Executed is the number of commands run so far, fences included.
func (rt *RenderThread) Executed() uint64 {
	return rt.executed.Load()
}

func (rt *RenderThread) Failed() uint64 {
	return rt.failed.Load()
}

// RecentTimings returns the latest command timings, oldest first.
func (rt *RenderThread) RecentTimings() []CommandTiming {
	rt.historyMutex.Lock()
	defer rt.historyMutex.Unlock()
	return rt.history.Items()
}
