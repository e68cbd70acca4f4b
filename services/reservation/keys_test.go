package reservation

import (
	"testing"
	"time"

	"slothold/models"

	"github.com/stretchr/testify/assert"
)

func TestSlotLockKey(t *testing.T) {
	slot := models.SlotKey{
		DateTime:    time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
		ServiceType: "Cleaning",
	}
	assert.Equal(t, "slotlock:Cleaning:2026-09-03T10:00:00Z", slotLockKey(slot))
}

func TestHolderKeys(t *testing.T) {
	t.Run("user id only", func(t *testing.T) {
		keys := holderKeys(models.HolderIdentity{UserID: "u1"})
		assert.Equal(t, []string{"holder:user:u1"}, keys)
	})

	t.Run("email is lowercased", func(t *testing.T) {
		keys := holderKeys(models.HolderIdentity{Email: "Guest@Example.COM"})
		assert.Equal(t, []string{"holder:email:guest@example.com"}, keys)
	})

	t.Run("both identities get an index entry", func(t *testing.T) {
		keys := holderKeys(models.HolderIdentity{UserID: "u1", Email: "g@example.com"})
		assert.Equal(t, []string{"holder:user:u1", "holder:email:g@example.com"}, keys)
	})

	t.Run("zero identity has no keys", func(t *testing.T) {
		assert.Empty(t, holderKeys(models.HolderIdentity{}))
	})
}
