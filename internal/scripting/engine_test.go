package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/riftforge/tagworld/internal/core/registry"
)

const wandererScript = `
wanderer = {
  update = function(self, dt)
    self.x = (self.x or 0) + dt
    if self.x >= 1 then
      set_state(self.id, "tired")
      add_flags(self.id, "seen_world")
    end
  end,
  render = function(self)
    self.rendered = (self.rendered or 0) + 1
  end,
}
`

func newTestEngine(t *testing.T, script string) (*Engine, *registry.Registry[*Actor]) {
	t.Helper()
	dir := t.TempDir()
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "behavior.lua"), []byte(script), 0o644))
	}
	eng, err := NewEngine(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	reg := registry.NewWith[*Actor](registry.Config{Seed: 1})
	eng.Bind(reg)
	return eng, reg
}

func TestMissingScriptsDirIsNotAnError(t *testing.T) {
	eng, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zaptest.NewLogger(t))
	require.NoError(t, err)
	eng.Close()
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("this is not lua ("), 0o644))
	_, err := NewEngine(dir, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestScriptedUpdateThroughPoolDispatch(t *testing.T) {
	eng, reg := newTestEngine(t, wandererScript)

	a, h := eng.Spawn("wanderer", "npc")
	assert.Equal(t, registry.Live, reg.Presence(h))
	assert.True(t, reg.Is(a, "npc"))

	reg.Query("npc").Update(0.6)
	st, _ := reg.State(a)
	assert.Equal(t, "", st)

	reg.Query("npc").Update(0.6)
	st, _ = reg.State(a)
	assert.Equal(t, "tired", st)
	assert.True(t, reg.HasFlags(a, "seen_world"))

	x, ok := a.Key("x")
	require.True(t, ok)
	assert.InDelta(t, 1.2, x, 1e-9)
}

func TestScriptedRenderAndKeyedAccessor(t *testing.T) {
	eng, reg := newTestEngine(t, wandererScript)

	a, _ := eng.Spawn("wanderer")
	b, _ := eng.Spawn("wanderer")
	reg.Query().Update(0.5)
	reg.Query().Update(0.25).Render()

	_, ok := a.Key("rendered")
	assert.True(t, ok)

	// b updated once more, so it has the bigger x
	b.Update(0.5)
	biggest, ok := reg.Query().BiggestBy("x")
	require.True(t, ok)
	assert.Same(t, b, biggest)
}

func TestUnknownBehaviorIsANoOp(t *testing.T) {
	eng, reg := newTestEngine(t, wandererScript)
	a, _ := eng.Spawn("no_such_behavior", "npc")
	reg.Query("npc").Update(1)
	_, ok := a.Key("x")
	assert.False(t, ok)
}

func TestBindingsTolerateUnknownHandles(t *testing.T) {
	eng, _ := newTestEngine(t, "")
	require.NoError(t, eng.DoString(`set_state("ghost", "dead")`))
	require.NoError(t, eng.DoString(`assert(describe("ghost") == "")`))
	require.NoError(t, eng.DoString(`assert(has_flags("ghost", "x") == false)`))
}
