package core

import "sync"

type EventContext struct {
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		U32 [4]uint32

		C [4]string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A source image file was created or modified on disk.
	/* Context usage:
	 * string path = data.C[0];
	 */
	EVENT_CODE_TEXTURE_SOURCE_CHANGED SystemEventCode = 0x10

	// A source image file was removed from disk.
	/* Context usage:
	 * string path = data.C[0];
	 */
	EVENT_CODE_TEXTURE_SOURCE_REMOVED SystemEventCode = 0x11

	// A texture array re-aggregated its sources.
	/* Context usage:
	 * string name = data.C[0];
	 * u32 slices = data.U32[0];
	 */
	EVENT_CODE_TEXTURE_ARRAY_REFRESHED SystemEventCode = 0x12

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventCodeEntry struct {
	events []*registeredEvent
}

// State structure.
type eventSystemState struct {
	mutex sync.RWMutex
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES]eventCodeEntry
}

var eventMutex sync.Mutex
var eventState *eventSystemState = nil

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

func EventSystemInitialize() bool {
	eventMutex.Lock()
	defer eventMutex.Unlock()
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{}
	return true
}

func EventSystemShutdown() error {
	eventMutex.Lock()
	defer eventMutex.Unlock()
	eventState = nil
	return nil
}

func getEventState() *eventSystemState {
	eventMutex.Lock()
	defer eventMutex.Unlock()
	return eventState
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * can only be registered once per code; a duplicate returns false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	state := getEventState()
	if state == nil || code < 0 || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()

	entry := &state.registered[code]
	for _, e := range entry.events {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	entry.events = append(entry.events, &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns false.
 */
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	state := getEventState()
	if state == nil || code < 0 || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	state.mutex.Lock()
	defer state.mutex.Unlock()

	entry := &state.registered[code]
	for i, e := range entry.events {
		if e.listener == listener {
			entry.events = append(entry.events[:i], entry.events[i+1:]...)
			return true
		}
	}
	// Not found.
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	state := getEventState()
	if state == nil || code < 0 || int(code) >= MAX_MESSAGE_CODES {
		return false
	}
	state.mutex.RLock()
	events := make([]*registeredEvent, len(state.registered[code].events))
	copy(events, state.registered[code].events)
	state.mutex.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
