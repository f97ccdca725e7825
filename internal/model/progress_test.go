package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTrackProgress(t *testing.T) {
	cases := []struct {
		name       string
		total      int
		completed  int
		percentage float64
		complete   bool
	}{
		{"not started", 5, 0, 0, false},
		{"two of five", 5, 2, 40, false},
		{"one of three rounds", 3, 1, 33.33, false},
		{"two of three rounds", 3, 2, 66.67, false},
		{"all done", 4, 4, 100, true},
		{"empty track never complete", 0, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewTrackProgress(9, tc.total, tc.completed)
			assert.Equal(t, uint(9), p.TrackID)
			assert.Equal(t, tc.percentage, p.ProgressPercentage)
			assert.Equal(t, tc.complete, p.IsComplete)
		})
	}
}

func TestContentTypeValid(t *testing.T) {
	assert.True(t, ContentVideo.Valid())
	assert.True(t, ContentReading.Valid())
	assert.True(t, ContentActivity.Valid())
	assert.False(t, ContentType("podcast").Valid())
}
