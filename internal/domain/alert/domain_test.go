package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggered() *History {
	return &History{ID: 1, RuleID: 2, MonitorID: 3, Status: StatusTriggered,
		TriggeredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestHistory_Acknowledge(t *testing.T) {
	h := triggered()
	at := h.TriggeredAt.Add(5 * time.Minute)

	require.NoError(t, h.Acknowledge("alice", at))
	assert.Equal(t, StatusAcknowledged, h.Status)
	require.NotNil(t, h.AcknowledgedAt)
	assert.Equal(t, at, *h.AcknowledgedAt)
	assert.Equal(t, "alice", *h.AcknowledgedBy)

	assert.ErrorIs(t, h.Acknowledge("bob", at), ErrNotAcknowledgeable, "double ack is rejected")
	assert.Equal(t, "alice", *h.AcknowledgedBy)
}

func TestHistory_ResolveAfterAck(t *testing.T) {
	h := triggered()
	ackAt := h.TriggeredAt.Add(time.Minute)
	resAt := h.TriggeredAt.Add(10 * time.Minute)

	require.NoError(t, h.Acknowledge("alice", ackAt))
	require.NoError(t, h.Resolve("bob", resAt))

	assert.Equal(t, StatusResolved, h.Status)
	assert.Equal(t, resAt, *h.ResolvedAt)
	assert.Equal(t, "alice", *h.AcknowledgedBy, "ack fields are preserved")
	assert.Equal(t, ackAt, *h.AcknowledgedAt)
}

func TestHistory_ResolveDirectlyBackfillsAck(t *testing.T) {
	h := triggered()
	resAt := h.TriggeredAt.Add(10 * time.Minute)

	require.NoError(t, h.Resolve("carol", resAt))

	assert.Equal(t, StatusResolved, h.Status)
	require.NotNil(t, h.AcknowledgedAt)
	assert.Equal(t, resAt, *h.AcknowledgedAt)
	assert.Equal(t, "carol", *h.AcknowledgedBy)
}

func TestHistory_ResolveTwice(t *testing.T) {
	h := triggered()
	require.NoError(t, h.Resolve("carol", h.TriggeredAt.Add(time.Minute)))
	assert.ErrorIs(t, h.Resolve("dave", h.TriggeredAt.Add(2*time.Minute)), ErrAlreadyResolved)
}

func TestHistory_AcknowledgeResolved(t *testing.T) {
	h := triggered()
	require.NoError(t, h.Resolve("carol", h.TriggeredAt.Add(time.Minute)))
	assert.ErrorIs(t, h.Acknowledge("dave", h.TriggeredAt.Add(2*time.Minute)), ErrNotAcknowledgeable)
}

func TestHistory_Open(t *testing.T) {
	h := triggered()
	assert.True(t, h.Open())

	require.NoError(t, h.Acknowledge("alice", h.TriggeredAt.Add(time.Minute)))
	assert.True(t, h.Open(), "acknowledged alerts still suppress new firings")

	require.NoError(t, h.Resolve("alice", h.TriggeredAt.Add(2*time.Minute)))
	assert.False(t, h.Open())
}
