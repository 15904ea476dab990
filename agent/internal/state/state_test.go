package state

import (
	"testing"

	"beacon/agent/internal/device"
)

func TestAdoptUUIDOnce(t *testing.T) {
	a := New(device.Identity{UUID: "local", Hostname: "h"})
	if a.AdoptUUID("") {
		t.Fatal("empty id adopted")
	}
	if !a.AdoptUUID("server-1") || a.UUID() != "server-1" {
		t.Fatalf("first adoption failed, uuid=%s", a.UUID())
	}
	if a.AdoptUUID("server-2") || a.UUID() != "server-1" {
		t.Fatalf("second adoption took effect, uuid=%s", a.UUID())
	}
	if a.Identity().Hostname != "h" {
		t.Fatal("identity fields lost")
	}
}

func TestStop(t *testing.T) {
	a := New(device.Identity{})
	if !a.Running() {
		t.Fatal("new agent not running")
	}
	a.Stop()
	if a.Running() {
		t.Fatal("agent still running after Stop")
	}
}
