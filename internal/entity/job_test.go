package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"data-quality-service/internal/entity"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to entity.JobStatus
		ok       bool
	}{
		{entity.StatusPending, entity.StatusRunning, true},
		{entity.StatusRunning, entity.StatusCompleted, true},
		{entity.StatusRunning, entity.StatusFailed, true},
		{entity.StatusPending, entity.StatusFailed, true},
		{entity.StatusPending, entity.StatusCompleted, false},
		{entity.StatusCompleted, entity.StatusFailed, false},
		{entity.StatusFailed, entity.StatusRunning, false},
		{entity.StatusRunning, entity.StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, entity.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSourcesFor(t *testing.T) {
	assert.Equal(t, []entity.JobStatus{entity.StatusPending, entity.StatusRunning}, entity.SourcesFor(entity.StatusFailed))
	assert.Equal(t, []entity.JobStatus{entity.StatusRunning}, entity.SourcesFor(entity.StatusCompleted))
	assert.Empty(t, entity.SourcesFor(entity.StatusPending))
}

func TestTerminal(t *testing.T) {
	assert.True(t, entity.StatusCompleted.Terminal())
	assert.True(t, entity.StatusFailed.Terminal())
	assert.False(t, entity.StatusRunning.Terminal())
	assert.False(t, entity.JobStatus("nope").Valid())
}
