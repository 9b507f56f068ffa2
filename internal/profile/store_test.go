package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/eliseohh/welcomebot/internal/profile"
	"github.com/eliseohh/welcomebot/internal/profile/profiletest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemStoreContract(t *testing.T) {
	profiletest.RunStoreContract(t, func(t *testing.T) profile.Store {
		return profile.NewMemStore()
	})
}

func TestMemStoreDuplicateNames(t *testing.T) {
	s := profile.NewMemStore()
	require.NoError(t, s.Upsert(profile.Profile{ID: 1, Username: "twin"}))
	require.NoError(t, s.Upsert(profile.Profile{ID: 2, Username: "Twin"}))

	p, err := s.FindByName("twin")
	require.NoError(t, err)
	assert.Contains(t, []int64{1, 2}, p.ID)

	// Renaming whichever profile the index points at must leave the other
	// one reachable.
	_, err = s.Update(p.ID, func(p *profile.Profile) { p.Username = "solo" })
	require.NoError(t, err)

	other, err := s.FindByName("TWIN")
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, other.ID)

	solo, err := s.FindByName("solo")
	require.NoError(t, err)
	assert.Equal(t, p.ID, solo.ID)
}

func TestMemStoreGetDoesNotStore(t *testing.T) {
	s := profile.NewMemStore()
	p, err := s.Get(5)
	require.NoError(t, err)
	p.Username = "ghost"

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.FindByName("ghost")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}
