package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotID_Monotonic(t *testing.T) {
	prev, err := NewSnapshotID()
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		next, err := NewSnapshotID()
		require.NoError(t, err)
		assert.Greater(t, next, prev, "snapshot ids must increase with creation time")
		prev = next
	}
}

func TestSnapshotTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id, err := NewSnapshotID()
	require.NoError(t, err)

	ts, ok := SnapshotTime(id)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
	assert.True(t, ts.After(before))

	_, ok = SnapshotTime("2024-01-01")
	assert.False(t, ok, "legacy ids are not uuids")
}
