package config

import "testing"

func TestSetAndGet(t *testing.T) {
	cfg := New()
	Set(cfg)

	if Get() != cfg {
		t.Error("Get() did not return the Set() instance")
	}
}

func TestMustGetPanicsWhenUnset(t *testing.T) {
	configMutex.Lock()
	globalConfig = nil
	configMutex.Unlock()

	defer func() {
		if recover() == nil {
			t.Error("MustGet should panic when uninitialized")
		}
	}()
	MustGet()
}
