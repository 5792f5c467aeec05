package player

import (
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFromMetadata(t *testing.T) {
	metadata := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/com/spotify/track/abc")),
		"xesam:title":   dbus.MakeVariant("晴天"),
		"xesam:artist":  dbus.MakeVariant([]string{"周杰伦", " "}),
		"xesam:album":   dbus.MakeVariant("叶惠美"),
		"mpris:artUrl":  dbus.MakeVariant("https://i.scdn.co/image/x"),
		"mpris:length":  dbus.MakeVariant(uint64(269_000_000)),
	}

	id := identityFromMetadata(metadata)

	assert.Equal(t, "/com/spotify/track/abc", id.ID)
	assert.Equal(t, "晴天", id.Title)
	assert.Equal(t, []string{"周杰伦"}, id.Artists)
	assert.Equal(t, int64(269_000), id.DurationMs)
	assert.True(t, id.IsValid())
}

func TestIdentityFromMetadataWithoutID(t *testing.T) {
	metadata := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")),
		"xesam:title":   dbus.MakeVariant("Song"),
		"xesam:artist":  dbus.MakeVariant("Artist"),
		"mpris:length":  dbus.MakeVariant(int64(-1)),
	}

	id := identityFromMetadata(metadata)

	assert.Empty(t, id.ID)
	assert.Equal(t, "Song|Artist", id.Key())
	assert.Zero(t, id.DurationMs)
}

func TestMicrosToMillis(t *testing.T) {
	assert.Equal(t, int64(1500), microsToMillis(int64(1_500_000)))
	assert.Equal(t, int64(1500), microsToMillis(uint64(1_500_000)))
	assert.Equal(t, int64(0), microsToMillis(int64(-5)))
	assert.Equal(t, int64(0), microsToMillis("nope"))
}

func TestIsPlaybackSignal(t *testing.T) {
	changed := &dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []any{mprisPlayerIface, map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Paused")}},
	}
	volume := &dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []any{mprisPlayerIface, map[string]dbus.Variant{"Volume": dbus.MakeVariant(0.5)}},
	}
	seeked := &dbus.Signal{Name: mprisPlayerIface + ".Seeked", Body: []any{int64(1)}}

	assert.True(t, isPlaybackSignal(changed))
	assert.True(t, isPlaybackSignal(seeked))
	assert.False(t, isPlaybackSignal(volume))
	assert.False(t, isPlaybackSignal(nil))
}

func TestIsPlayerGone(t *testing.T) {
	gone := dbus.Error{Name: errServiceUnknown}
	assert.True(t, isPlayerGone(gone))
	assert.True(t, isPlayerGone(fmt.Errorf("wrapped: %w", gone)))
	assert.True(t, isPlayerGone(&dbus.Error{Name: errNameHasNoOwner}))
	assert.False(t, isPlayerGone(dbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}))
}

func TestNotifyCoalesces(t *testing.T) {
	m, err := NewMPRIS(&dbus.Conn{}, DefaultMprisService)
	require.NoError(t, err)

	m.notify()
	m.notify()

	assert.Len(t, m.Changes(), 1)
}

func TestNewMPRISValidates(t *testing.T) {
	_, err := NewMPRIS(nil, DefaultMprisService)
	assert.Error(t, err)
	_, err = NewMPRIS(&dbus.Conn{}, "")
	assert.Error(t, err)
}
