package core

import "testing"

func TestEventRegisterFire(t *testing.T) {
	EventSystemInitialize()
	defer EventSystemShutdown()

	listener := &struct{ hits int }{}
	ok := EventRegister(EVENT_CODE_TEXTURE_SOURCE_CHANGED, listener, func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
		inst.(*struct{ hits int }).hits++
		return data.Data.C[0] == "stone.png"
	})
	if !ok {
		t.Fatal("EventRegister returned false")
	}
	if EventRegister(EVENT_CODE_TEXTURE_SOURCE_CHANGED, listener, nil) {
		t.Error("duplicate registration should be rejected")
	}

	ctx := EventContext{}
	ctx.Data.C[0] = "stone.png"
	if !EventFire(EVENT_CODE_TEXTURE_SOURCE_CHANGED, nil, ctx) {
		t.Error("EventFire should report handled")
	}
	if listener.hits != 1 {
		t.Errorf("hits = %d, want 1", listener.hits)
	}

	if !EventUnregister(EVENT_CODE_TEXTURE_SOURCE_CHANGED, listener) {
		t.Error("EventUnregister returned false")
	}
	if EventFire(EVENT_CODE_TEXTURE_SOURCE_CHANGED, nil, ctx) {
		t.Error("EventFire after unregister should not be handled")
	}
}
