package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlaybackState_PositionAt(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	media := &Media{Title: "Song A", Duration: 200}

	tests := []struct {
		name  string
		state PlaybackState
		at    time.Time
		want  float64
	}{
		{"stopped", PlaybackState{}, anchor.Add(time.Minute), 0},
		{"playing at anchor", PlaybackState{Media: media, IsPlaying: true, Position: 5, PositionAnchorTime: anchor, Duration: 200}, anchor, 5},
		{"playing later", PlaybackState{Media: media, IsPlaying: true, Position: 5, PositionAnchorTime: anchor, Duration: 200}, anchor.Add(10 * time.Second), 15},
		{"paused ignores time", PlaybackState{Media: media, Position: 5, PositionAnchorTime: anchor, Duration: 200}, anchor.Add(time.Hour), 5},
		{"clamped to duration", PlaybackState{Media: media, IsPlaying: true, Position: 190, PositionAnchorTime: anchor, Duration: 200}, anchor.Add(time.Minute), 200},
		{"clock behind anchor", PlaybackState{Media: media, IsPlaying: true, Position: 5, PositionAnchorTime: anchor, Duration: 200}, anchor.Add(-time.Second), 5},
		{"unknown duration", PlaybackState{Media: &Media{Title: "stream"}, IsPlaying: true, PositionAnchorTime: anchor}, anchor.Add(time.Hour), 3600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.state.PositionAt(tt.at), 1e-9)
		})
	}
}

func TestPlaybackState_Status(t *testing.T) {
	media := &Media{Title: "Song A"}
	assert.Equal(t, PlaybackStopped, PlaybackState{}.Status())
	assert.Equal(t, PlaybackPlaying, PlaybackState{Media: media, IsPlaying: true}.Status())
	assert.Equal(t, PlaybackPaused, PlaybackState{Media: media}.Status())
}

func TestIsListeningRoomID(t *testing.T) {
	assert.True(t, IsListeningRoomID("listen:abc"))
	assert.False(t, IsListeningRoomID("listen:"))
	assert.False(t, IsListeningRoomID("general"))
}
