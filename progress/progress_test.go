package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmissionOrderPreserved(t *testing.T) {
	reg := NewRegistry()
	bus, em := reg.Bind("sess-1")

	em.Emit("step1", "starting")
	em.Emit("step2", "working")
	em.Done(map[string]any{"ok": true})

	events, n := bus.Since(0)
	assert.Equal(t, 4, n)
	assert.Equal(t, "step1", events[0].Status)
	assert.Equal(t, "step2", events[1].Status)
	assert.Equal(t, EventResult, events[2].Type)
	assert.Equal(t, EventDone, events[3].Type)
}

func TestSinceIsIncremental(t *testing.T) {
	reg := NewRegistry()
	bus, em := reg.Bind("sess-2")
	em.Emit("a", "")
	_, n1 := bus.Since(0)

	em.Emit("b", "")
	events, n2 := bus.Since(n1)
	assert.Len(t, events, 1)
	assert.Equal(t, "b", events[0].Status)
	assert.Equal(t, 2, n2)
}

func TestIsClosedOnTerminalEvent(t *testing.T) {
	reg := NewRegistry()
	bus, em := reg.Bind("sess-3")
	assert.False(t, bus.IsClosed())
	em.Error("boom")
	assert.True(t, bus.IsClosed())
}

func TestDropRemovesBus(t *testing.T) {
	reg := NewRegistry()
	bus1, em := reg.Bind("sess-4")
	em.Emit("x", "")
	reg.Drop("sess-4")
	bus2, _ := reg.Bind("sess-4")
	assert.NotSame(t, bus1, bus2)
	events, _ := bus2.Since(0)
	assert.Empty(t, events)
}
