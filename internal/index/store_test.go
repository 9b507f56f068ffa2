package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/welcomebot/internal/profile"
	"github.com/eliseohh/welcomebot/internal/profile/profiletest"
)

func newTestStore(t *testing.T) *ProfileStore {
	t.Helper()
	db, err := NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProfileStore(db)
}

func TestProfileStoreContract(t *testing.T) {
	profiletest.RunStoreContract(t, func(t *testing.T) profile.Store {
		return newTestStore(t)
	})
}

func TestMemoryDBsAreIsolated(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)

	require.NoError(t, a.Upsert(profile.Profile{ID: 1, Username: "ann"}))

	_, err := b.FindByName("ann")
	assert.ErrorIs(t, err, profile.ErrNotFound)
	list, err := b.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpsertDropsRemovedAnswers(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(profile.Profile{ID: 1, Answers: map[int]string{1: "a", 2: "b"}}))

	_, err := s.Update(1, func(p *profile.Profile) { p.SetAnswer(2, "") })
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM answers WHERE profile_id = 1").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUnlinkedIDsKeepDecreasing(t *testing.T) {
	s := newTestStore(t)
	var ids []int64
	for i := 0; i < 3; i++ {
		p, err := s.AddUnlinked(profile.Profile{Username: fmt.Sprintf("manual%d", i)})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{-1, -2, -3}, ids)
}
