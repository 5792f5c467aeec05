package player

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/track"
)

const (
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"

	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"

	errServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"
	errNameHasNoOwner = "org.freedesktop.DBus.Error.NameHasNoOwner"
)

// MPRIS reads playback from a media player on the D-Bus session bus.
type MPRIS struct {
	bus     *dbus.Conn
	service string
	ownsBus bool

	signals  chan *dbus.Signal
	changes  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
}

// ConnectMPRIS opens the session bus and subscribes to the player's change
// signals.
func ConnectMPRIS(ctx context.Context, service string) (*MPRIS, error) {
	bus, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	m, err := NewMPRIS(bus, service)
	if err != nil {
		bus.Close()
		return nil, err
	}
	m.ownsBus = true

	if err := m.subscribe(); err != nil {
		logger.Warn("could not set up mpris signals, relying on polling", logger.ErrorField(err))
	}
	return m, nil
}

func NewMPRIS(bus *dbus.Conn, service string) (*MPRIS, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if service == "" {
		return nil, errors.New("empty mpris service name")
	}

	return &MPRIS{
		bus:      bus,
		service:  service,
		changes:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}, nil
}

func (m *MPRIS) Service() string {
	return m.service
}

func (m *MPRIS) Changes() <-chan struct{} {
	return m.changes
}

func (m *MPRIS) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.signals != nil {
			m.bus.RemoveSignal(m.signals)
		}
	})
	if m.ownsBus {
		return m.bus.Close()
	}
	return nil
}

func (m *MPRIS) CurrentPlayback(ctx context.Context) (*Playback, error) {
	obj := m.bus.Object(m.service, mprisPath)

	status, err := m.stringProperty(ctx, obj, mprisPlayerIface+".PlaybackStatus")
	if err != nil {
		if isPlayerGone(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playback status: %w", err)
	}
	if status == "Stopped" {
		return nil, nil
	}

	var metaVariant dbus.Variant
	err = obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, mprisPlayerIface, "Metadata").Store(&metaVariant)
	if err != nil {
		if isPlayerGone(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", metaVariant.Value())
	}

	identity := identityFromMetadata(metadata)
	if !identity.IsValid() {
		return nil, nil
	}

	var posVariant dbus.Variant
	err = obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, mprisPlayerIface, "Position").Store(&posVariant)
	if err != nil {
		return nil, fmt.Errorf("failed to get position property: %w", err)
	}

	return &Playback{
		Track:      identity,
		ProgressMs: microsToMillis(posVariant.Value()),
		Playing:    status == "Playing",
		ObservedAt: time.Now(),
	}, nil
}

func (m *MPRIS) stringProperty(ctx context.Context, obj dbus.BusObject, name string) (string, error) {
	iface, prop := name[:strings.LastIndex(name, ".")], name[strings.LastIndex(name, ".")+1:]

	var variant dbus.Variant
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iface, prop).Store(&variant); err != nil {
		return "", err
	}
	value, ok := variant.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s type %T", prop, variant.Value())
	}
	return value, nil
}

func (m *MPRIS) subscribe() error {
	matches := []string{
		fmt.Sprintf(
			"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
			m.service, mprisPath,
		),
		fmt.Sprintf(
			"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
			m.service, mprisPlayerIface, mprisPath,
		),
	}
	for _, match := range matches {
		if err := m.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err; err != nil {
			return fmt.Errorf("failed to add match %q: %w", match, err)
		}
	}

	m.signals = make(chan *dbus.Signal, 10)
	m.bus.Signal(m.signals)
	go m.signalLoop()
	return nil
}

func (m *MPRIS) signalLoop() {
	for {
		select {
		case sig, ok := <-m.signals:
			if !ok {
				return
			}
			if isPlaybackSignal(sig) {
				m.notify()
			}
		case <-m.stopChan:
			return
		}
	}
}

func isPlaybackSignal(sig *dbus.Signal) bool {
	if sig == nil {
		return false
	}

	switch sig.Name {
	case mprisPlayerIface + ".Seeked":
		return true
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) < 2 {
			return false
		}
		iface, ok := sig.Body[0].(string)
		if !ok || iface != mprisPlayerIface {
			return false
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return false
		}
		_, metadata := changed["Metadata"]
		_, status := changed["PlaybackStatus"]
		return metadata || status
	}
	return false
}

func (m *MPRIS) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Player is an MPRIS service found on the bus.
type Player struct {
	Service  string
	Identity string
}

// ListPlayers returns the MPRIS players currently on the bus.
func ListPlayers(ctx context.Context, bus *dbus.Conn) ([]Player, error) {
	var names []string
	if err := bus.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var players []Player
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		p := Player{Service: name}
		if v, err := bus.Object(name, mprisPath).GetProperty(mprisRootIface + ".Identity"); err == nil {
			p.Identity, _ = v.Value().(string)
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Service < players[j].Service })
	return players, nil
}

func identityFromMetadata(metadata map[string]dbus.Variant) track.Identity {
	trackID := extractString(metadata, "mpris:trackid")
	if trackID == "" {
		trackID = extractObjectPath(metadata, "mpris:trackid")
	}
	// players without a real id report the no-track placeholder
	if trackID == "/org/mpris/MediaPlayer2/TrackList/NoTrack" {
		trackID = ""
	}

	return track.Identity{
		ID:         trackID,
		Title:      extractString(metadata, "xesam:title"),
		Artists:    extractArtists(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		DurationMs: microsToMillis(variantValue(metadata, "mpris:length")),
	}
}

func variantValue(metadata map[string]dbus.Variant, key string) any {
	if metadata == nil {
		return nil
	}
	variant, exists := metadata[key]
	if !exists {
		return nil
	}
	return variant.Value()
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	text, _ := variantValue(metadata, key).(string)
	return text
}

func extractObjectPath(metadata map[string]dbus.Variant, key string) string {
	path, _ := variantValue(metadata, key).(dbus.ObjectPath)
	return string(path)
}

func extractArtists(metadata map[string]dbus.Variant, key string) []string {
	switch typed := variantValue(metadata, key).(type) {
	case []string:
		out := make([]string, 0, len(typed))
		for _, a := range typed {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
		return out
	case string:
		if typed = strings.TrimSpace(typed); typed != "" {
			return []string{typed}
		}
	}
	return nil
}

func microsToMillis(raw any) int64 {
	switch typed := raw.(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return typed / 1000
	case uint64:
		return int64(typed / 1000)
	case int32:
		if typed <= 0 {
			return 0
		}
		return int64(typed) / 1000
	case float64:
		if typed <= 0 {
			return 0
		}
		return int64(typed / 1000)
	default:
		return 0
	}
}

func isPlayerGone(err error) bool {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name == errServiceUnknown || dbusErr.Name == errNameHasNoOwner
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) {
		return dbusErrPtr.Name == errServiceUnknown || dbusErrPtr.Name == errNameHasNoOwner
	}
	return false
}
