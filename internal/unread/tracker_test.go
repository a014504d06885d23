package unread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_AuthorAndViewerSkipped(t *testing.T) {
	tr := NewTracker()

	changes := tr.OnMessageFannedOut("general", "u-x", []string{"u-x", "u-y", "u-z"}, []string{"u-y"})

	assert.Equal(t, []Change{{UserID: "u-z", RoomID: "general", Count: 1}}, changes)
	assert.Equal(t, 0, tr.Counts("u-x")["general"])
	assert.Equal(t, 0, tr.Counts("u-y")["general"])
	assert.Equal(t, 1, tr.Counts("u-z")["general"])
}

func TestTracker_ExactAndMonotonic(t *testing.T) {
	tr := NewTracker()
	prev := 0
	for i := 1; i <= 150; i++ {
		tr.OnMessageFannedOut("general", "u-x", []string{"u-y"}, nil)
		got := tr.Counts("u-y")["general"]
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	// No cap.
	assert.Equal(t, 150, tr.Counts("u-y")["general"])
}

func TestTracker_DuplicateRecipients(t *testing.T) {
	tr := NewTracker()
	tr.OnMessageFannedOut("general", "u-x", []string{"u-y", "u-y", ""}, nil)
	assert.Equal(t, 1, tr.Counts("u-y")["general"])
}

func TestTracker_MarkRead(t *testing.T) {
	tr := NewTracker()
	tr.OnMessageFannedOut("general", "u-x", []string{"u-y"}, nil)
	tr.OnMessageFannedOut("random", "u-x", []string{"u-y"}, nil)

	change, changed := tr.MarkRead("u-y", "general")
	assert.True(t, changed)
	assert.Equal(t, Change{UserID: "u-y", RoomID: "general", Count: 0}, change)
	assert.Equal(t, 0, tr.Counts("u-y")["general"])
	assert.Equal(t, 1, tr.Counts("u-y")["random"])

	_, changed = tr.MarkRead("u-y", "general")
	assert.False(t, changed)
	_, changed = tr.MarkRead("u-nobody", "general")
	assert.False(t, changed)

	assert.Equal(t, map[string]int{"general": 0, "random": 1}, tr.Counts("u-y"))
}

func TestTracker_RoomsIndependent(t *testing.T) {
	tr := NewTracker()
	tr.OnMessageFannedOut("a", "u-x", []string{"u-y"}, nil)
	tr.OnMessageFannedOut("b", "u-x", []string{"u-y"}, []string{"u-y"})
	assert.Equal(t, 1, tr.Counts("u-y")["a"])
	assert.Equal(t, 0, tr.Counts("u-y")["b"])
}

func TestTracker_SeedContinuesPersistedCount(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, []string{"u-y", "u-z"}, tr.Unseeded([]string{"u-y", "", "u-z", "u-y"}))

	assert.True(t, tr.Seed("u-y", map[string]int{"general": 3, "random": 0, "bad": -1}))
	assert.True(t, tr.Seed("u-z", nil))
	assert.Empty(t, tr.Unseeded([]string{"u-y", "u-z"}))

	changes := tr.OnMessageFannedOut("general", "u-x", []string{"u-y", "u-z"}, nil)
	assert.Equal(t, []Change{
		{UserID: "u-y", RoomID: "general", Count: 4},
		{UserID: "u-z", RoomID: "general", Count: 1},
	}, changes)
	assert.Equal(t, map[string]int{"general": 4, "random": 0}, tr.Counts("u-y"))
}

func TestTracker_SeedOnlyOnce(t *testing.T) {
	tr := NewTracker()
	require.True(t, tr.Seed("u-y", map[string]int{"general": 2}))
	tr.MarkRead("u-y", "general")

	// A stale read of the store must not resurrect the cleared counter.
	assert.False(t, tr.Seed("u-y", map[string]int{"general": 2}))
	assert.Equal(t, 0, tr.Counts("u-y")["general"])
}
