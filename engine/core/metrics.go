package core

import (
	"sync"
	"sync/atomic"
)

// MemoryStatsState holds the process-wide GPU memory counters. Every update is
// a single atomic add; reporting tools may read from any goroutine.
type MemoryStatsState struct {
	textureMemory atomic.Int64
	textureCount  atomic.Int64
	// LOD group name -> *atomic.Int64
	groups sync.Map
}

var memoryStatsMutex sync.Mutex
var memoryStats *MemoryStatsState = nil

// MemoryStatsInitialize creates the counters. Calling it twice keeps the
// existing state.
func MemoryStatsInitialize() error {
	memoryStatsMutex.Lock()
	defer memoryStatsMutex.Unlock()
	if memoryStats == nil {
		memoryStats = &MemoryStatsState{}
	}
	return nil
}

// MemoryStatsShutdown drops the counters. A later MemoryStatsInitialize starts from zero.
func MemoryStatsShutdown() error {
	memoryStatsMutex.Lock()
	defer memoryStatsMutex.Unlock()
	if memoryStats != nil && memoryStats.textureMemory.Load() != 0 {
		LogWarn("memory stats shut down with %d bytes of texture memory still accounted", memoryStats.textureMemory.Load())
	}
	memoryStats = nil
	return nil
}

func getMemoryStats() *MemoryStatsState {
	memoryStatsMutex.Lock()
	defer memoryStatsMutex.Unlock()
	if memoryStats == nil {
		memoryStats = &MemoryStatsState{}
	}
	return memoryStats
}

func (s *MemoryStatsState) group(name string) *atomic.Int64 {
	if v, ok := s.groups.Load(name); ok {
		return v.(*atomic.Int64)
	}
	v, _ := s.groups.LoadOrStore(name, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// MemoryStatsTextureInc accounts a newly created texture of size bytes.
func MemoryStatsTextureInc(group string, size int64) {
	s := getMemoryStats()
	s.textureMemory.Add(size)
	s.textureCount.Add(1)
	if group != "" {
		s.group(group).Add(size)
	}
}

// MemoryStatsTextureDec reverses a previous MemoryStatsTextureInc with the same arguments.
func MemoryStatsTextureDec(group string, size int64) {
	s := getMemoryStats()
	s.textureMemory.Add(-size)
	s.textureCount.Add(-1)
	if group != "" {
		s.group(group).Add(-size)
	}
}

func MemoryStatsTextureMemory() int64 {
	return getMemoryStats().textureMemory.Load()
}

func MemoryStatsTextureCount() int64 {
	return getMemoryStats().textureCount.Load()
}

func MemoryStatsGroupMemory(group string) int64 {
	return getMemoryStats().group(group).Load()
}
