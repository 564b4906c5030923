package prototype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftforge/tagworld/internal/core/registry"
)

func writeTable(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archetypes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleTable = `
archetypes:
  - name: npc
    state: idle
    flags: npc mortal
  - name: guard
    extends: npc
    flags: armed
  - name: ghost
    extends: npc
    state: haunting
    flags: ethereal
`

func TestLoadResolvesInheritance(t *testing.T) {
	table, err := Load(writeTable(t, sampleTable))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Count())

	guard, ok := table.Get("guard")
	require.True(t, ok)
	assert.Equal(t, "idle", guard.State, "state inherited from parent")
	assert.Equal(t, "npc mortal armed", guard.Flags)
	assert.Empty(t, guard.Extends, "resolved prototypes carry no live link")

	ghost, _ := table.Get("ghost")
	assert.Equal(t, "haunting", ghost.State, "own state wins over parent")
	assert.Equal(t, "npc mortal ethereal", ghost.Flags)
}

func TestLoadRejectsCycles(t *testing.T) {
	_, err := Load(writeTable(t, `
archetypes:
  - name: a
    extends: b
  - name: b
    extends: a
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoadRejectsUnknownParent(t *testing.T) {
	_, err := Load(writeTable(t, `
archetypes:
  - name: a
    extends: nowhere
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parent")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestQueryRendering(t *testing.T) {
	p := Prototype{State: "idle", Flags: "npc mortal"}
	assert.Equal(t, "@idle npc mortal", p.Query())
	assert.Equal(t, "npc", Prototype{Flags: "npc"}.Query())
	assert.Equal(t, "", Prototype{}.Query())
}

type pawn struct{ name string }

func TestSpawnAppliesDefaultsAndExtras(t *testing.T) {
	table, err := Load(writeTable(t, sampleTable))
	require.NoError(t, err)

	r := registry.NewWith[*pawn](registry.Config{Seed: 1})
	g := &pawn{name: "g"}
	h, ok := Spawn(r, table, "guard", g, "#captain elite")
	assert.True(t, ok)
	assert.Equal(t, registry.Handle("captain"), h)
	assert.True(t, r.Is(g, "@idle npc mortal armed elite"))

	// prototype defaults are copies: retagging g leaves the table alone
	r.SetState(g, "dead")
	g2 := &pawn{name: "g2"}
	_, _ = Spawn(r, table, "guard", g2)
	assert.True(t, r.Is(g2, "@idle armed"))
}

func TestSpawnUnknownArchetype(t *testing.T) {
	table, err := Load(writeTable(t, sampleTable))
	require.NoError(t, err)

	r := registry.NewWith[*pawn](registry.Config{Seed: 1})
	e := &pawn{}
	h, ok := Spawn(r, table, "dragon", e, "winged")
	assert.False(t, ok)
	assert.Equal(t, registry.Live, r.Presence(h))
	assert.True(t, r.Is(e, "winged"))
}
