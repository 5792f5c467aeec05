package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	withID := &Identity{ID: "spotify:track:1", Title: "A", Artists: []string{"X"}}
	withoutID := &Identity{Title: "A", Artists: []string{"X", "Y"}}

	assert.Equal(t, "spotify:track:1", withID.Key())
	assert.Equal(t, "A|X, Y", withoutID.Key())
	assert.Equal(t, "", (&Identity{}).Key())

	var nilTrack *Identity
	assert.Equal(t, "", nilTrack.Key())
}

func TestIsSameTrack(t *testing.T) {
	a := &Identity{Title: "A", Artists: []string{"X"}}
	b := &Identity{Title: "A", Artists: []string{"X"}, Album: "different"}
	c := &Identity{ID: "1", Title: "A", Artists: []string{"X"}}

	assert.True(t, a.IsSameTrack(b))
	assert.False(t, a.IsSameTrack(c))
	assert.False(t, a.IsSameTrack(nil))

	var nilTrack *Identity
	assert.True(t, nilTrack.IsSameTrack(nil))
}

func TestDurationAndValidity(t *testing.T) {
	id := &Identity{Title: "A", Artists: []string{"X"}, DurationMs: 269_999}

	assert.Equal(t, int64(269), id.DurationSecs())
	assert.True(t, id.IsValid())
	assert.False(t, (&Identity{Title: "A"}).IsValid())
}

func TestClone(t *testing.T) {
	id := &Identity{Title: "A", Artists: []string{"X"}}
	c := id.Clone()
	c.Artists[0] = "changed"

	assert.Equal(t, "X", id.Artists[0])
}
