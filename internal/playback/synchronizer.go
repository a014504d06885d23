// Package playback implements the listening-room state machine. States are
// Stopped (no media), Playing and Paused; every transition rewrites the
// position anchor to the transition's own instant.
package playback

import (
	"fmt"
	"math"
	"time"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// StateStore holds playback state per room. room.Directory implements it.
type StateStore interface {
	Playback(roomID string) (domain.PlaybackState, error)
	SetPlayback(roomID string, state domain.PlaybackState) error
}

// Synchronizer applies transitions to the states held in a StateStore.
type Synchronizer struct {
	store StateStore
	now   func() time.Time
}

// New creates a synchronizer. now is injectable for tests.
func New(store StateStore, now func() time.Time) *Synchronizer {
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{store: store, now: now}
}

// Now is the clock used to anchor transitions.
func (s *Synchronizer) Now() time.Time {
	return s.now()
}

// Current returns the stored state of roomID.
func (s *Synchronizer) Current(roomID string) (domain.PlaybackState, error) {
	return s.store.Playback(roomID)
}

// Play loads media and starts it from 0, or, with nil media, resumes a paused
// track from its stored position.
func (s *Synchronizer) Play(roomID string, media *domain.Media) (domain.PlaybackState, error) {
	return s.transition(roomID, func(st domain.PlaybackState, now time.Time) (domain.PlaybackState, error) {
		if media != nil {
			m := *media
			return domain.PlaybackState{
				Media:              &m,
				IsPlaying:          true,
				Position:           0,
				PositionAnchorTime: now,
				Duration:           m.Duration,
			}, nil
		}
		if st.Status() != domain.PlaybackPaused {
			return st, fmt.Errorf("%w: resume from %s", domain.ErrInvalidTransition, st.Status())
		}
		st.IsPlaying = true
		st.PositionAnchorTime = now
		return st, nil
	})
}

// Pause freezes the position at its computed value.
func (s *Synchronizer) Pause(roomID string) (domain.PlaybackState, error) {
	return s.transition(roomID, func(st domain.PlaybackState, now time.Time) (domain.PlaybackState, error) {
		if st.Status() != domain.PlaybackPlaying {
			return st, fmt.Errorf("%w: pause from %s", domain.ErrInvalidTransition, st.Status())
		}
		st.Position = st.PositionAt(now)
		st.IsPlaying = false
		st.PositionAnchorTime = now
		return st, nil
	})
}

// Seek moves the position, keeping the playing flag. Positions outside the
// track are clamped.
func (s *Synchronizer) Seek(roomID string, position float64) (domain.PlaybackState, error) {
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return domain.PlaybackState{}, domain.ErrInvalidPosition
	}
	return s.transition(roomID, func(st domain.PlaybackState, now time.Time) (domain.PlaybackState, error) {
		if st.Status() == domain.PlaybackStopped {
			return st, fmt.Errorf("%w: seek while stopped", domain.ErrInvalidTransition)
		}
		st.Position = st.Clamp(position)
		st.PositionAnchorTime = now
		return st, nil
	})
}

func (s *Synchronizer) transition(roomID string, apply func(domain.PlaybackState, time.Time) (domain.PlaybackState, error)) (domain.PlaybackState, error) {
	st, err := s.store.Playback(roomID)
	if err != nil {
		return domain.PlaybackState{}, err
	}
	next, err := apply(st, s.now())
	if err != nil {
		return st, err
	}
	if err := s.store.SetPlayback(roomID, next); err != nil {
		return st, err
	}
	return next, nil
}
