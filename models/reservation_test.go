package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlotKey(t *testing.T) {
	t.Run("normalizes the datetime to UTC", func(t *testing.T) {
		nairobi := time.FixedZone("EAT", 3*60*60)
		slot, err := NewSlotKey(time.Date(2026, 9, 3, 13, 0, 0, 0, nairobi), "Cleaning")
		require.NoError(t, err)
		assert.Equal(t, time.UTC, slot.DateTime.Location())
		assert.Equal(t, "Cleaning:2026-09-03T10:00:00Z", slot.String())
	})

	t.Run("trims the service type", func(t *testing.T) {
		slot, err := NewSlotKey(time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC), "  Cleaning ")
		require.NoError(t, err)
		assert.Equal(t, "Cleaning", slot.ServiceType)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewSlotKey(time.Time{}, "Cleaning")
		require.Error(t, err)
		_, err = NewSlotKey(time.Now(), "   ")
		require.Error(t, err)
	})

	t.Run("equal instants in different zones form the same key", func(t *testing.T) {
		nairobi := time.FixedZone("EAT", 3*60*60)
		a, err := NewSlotKey(time.Date(2026, 9, 3, 13, 0, 0, 0, nairobi), "Cleaning")
		require.NoError(t, err)
		b, err := NewSlotKey(time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC), "Cleaning")
		require.NoError(t, err)
		assert.Equal(t, a.String(), b.String())
	})
}

func TestHolderIdentityMatches(t *testing.T) {
	t.Run("matches on user id", func(t *testing.T) {
		a := HolderIdentity{UserID: "u1", Email: "a@example.com"}
		b := HolderIdentity{UserID: "u1", Email: "other@example.com"}
		assert.True(t, a.Matches(b))
	})

	t.Run("matches on email case-insensitively", func(t *testing.T) {
		a := HolderIdentity{Email: "Guest@Example.com"}
		b := HolderIdentity{Email: "guest@example.COM"}
		assert.True(t, a.Matches(b))
	})

	t.Run("distinct holders do not match", func(t *testing.T) {
		a := HolderIdentity{UserID: "u1", Email: "a@example.com"}
		b := HolderIdentity{UserID: "u2", Email: "b@example.com"}
		assert.False(t, a.Matches(b))
	})

	t.Run("zero identities never match", func(t *testing.T) {
		assert.False(t, HolderIdentity{}.Matches(HolderIdentity{}))
	})
}

func TestReservationActiveAt(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	res := Reservation{ExpiresAt: now.Add(time.Minute)}

	assert.True(t, res.ActiveAt(now))
	assert.False(t, res.ActiveAt(now.Add(time.Minute)))
	assert.False(t, res.ActiveAt(now.Add(2*time.Minute)))
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{
		"first_come_first_served",
		"priority_based",
		"payment_intent_priority",
		"returning_customer_priority",
		"manual",
	} {
		parsed, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, ResolutionStrategy(name), parsed)
	}

	_, err := ParseStrategy("coin_flip")
	require.Error(t, err)
	_, err = ParseStrategy("")
	require.Error(t, err)
}
