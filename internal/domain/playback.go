package domain

import "time"

// PlaybackStatus is derived from a PlaybackState.
type PlaybackStatus string

const (
	PlaybackStopped PlaybackStatus = "stopped"
	PlaybackPlaying PlaybackStatus = "playing"
	PlaybackPaused  PlaybackStatus = "paused"
)

// Media is the track loaded into a listening room.
type Media struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration"`
}

// PlaybackState is the anchored playback state of a listening room. Position
// is the elapsed seconds at PositionAnchorTime; observers add the time since
// the anchor themselves while IsPlaying is set.
type PlaybackState struct {
	Media              *Media    `json:"media,omitempty"`
	IsPlaying          bool      `json:"is_playing"`
	Position           float64   `json:"position"`
	PositionAnchorTime time.Time `json:"position_anchor_time"`
	Duration           float64   `json:"duration"`
}

// Status returns the state machine state.
func (s PlaybackState) Status() PlaybackStatus {
	switch {
	case s.Media == nil:
		return PlaybackStopped
	case s.IsPlaying:
		return PlaybackPlaying
	default:
		return PlaybackPaused
	}
}

// PositionAt returns the true position at t, clamped to [0, Duration] when
// the duration is known.
func (s PlaybackState) PositionAt(t time.Time) float64 {
	pos := s.Position
	if s.IsPlaying {
		if elapsed := t.Sub(s.PositionAnchorTime).Seconds(); elapsed > 0 {
			pos += elapsed
		}
	}
	return s.Clamp(pos)
}

// Clamp bounds pos to the playable range.
func (s PlaybackState) Clamp(pos float64) float64 {
	if pos < 0 {
		return 0
	}
	if s.Duration > 0 && pos > s.Duration {
		return s.Duration
	}
	return pos
}
