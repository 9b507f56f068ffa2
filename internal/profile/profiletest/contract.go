// Package profiletest checks that a profile.Store behaves like the
// in-memory reference store.
package profiletest

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliseohh/welcomebot/internal/profile"
)

// RunStoreContract runs the shared store tests. newStore must return an
// empty, isolated store on every call.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) profile.Store) {
	t.Run("get missing returns empty profile", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []int64{1, 42, -7} {
			p, err := s.Get(id)
			require.NoError(t, err)
			assert.Equal(t, id, p.ID)
			assert.Empty(t, p.Answers)
			assert.Empty(t, p.Username)
		}
	})

	t.Run("upsert then get round trips", func(t *testing.T) {
		s := newStore(t)
		want := profile.Profile{
			ID:        100,
			Username:  "ann",
			FirstName: "Ann",
			LastName:  "Lee",
			Answers:   map[int]string{1: "Ann", 2: "23", 11: "figures &amp; cards"},
		}
		require.NoError(t, s.Upsert(want))

		got, err := s.Get(100)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("profile mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("upsert replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: 5, Username: "old", Answers: map[int]string{1: "a", 2: "b"}}))
		require.NoError(t, s.Upsert(profile.Profile{ID: 5, Username: "new", Answers: map[int]string{3: "c"}}))

		got, err := s.Get(5)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{3: "c"}, got.Answers)

		_, err = s.FindByName("old")
		assert.ErrorIs(t, err, profile.ErrNotFound)
		p, err := s.FindByName("new")
		require.NoError(t, err)
		assert.Equal(t, int64(5), p.ID)
	})

	t.Run("returned profiles are copies", func(t *testing.T) {
		s := newStore(t)
		in := profile.Profile{ID: 9, Answers: map[int]string{1: "x"}}
		require.NoError(t, s.Upsert(in))
		in.Answers[1] = "mutated"

		got, err := s.Get(9)
		require.NoError(t, err)
		got.Answers[2] = "also mutated"

		again, err := s.Get(9)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{1: "x"}, again.Answers)
	})

	t.Run("find by name is case insensitive", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: 1, Username: "Ann", Answers: map[int]string{1: "Ann"}}))
		require.NoError(t, s.Upsert(profile.Profile{ID: 2, Username: "bob"}))

		for _, q := range []string{"ann", "ANN", "Ann", "@ann", " aNn "} {
			p, err := s.FindByName(q)
			require.NoError(t, err, q)
			assert.Equal(t, int64(1), p.ID, q)
			assert.Equal(t, "Ann", p.Answers[1], q)
		}
	})

	t.Run("find by name not found", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: 1, Username: "ann"}))
		require.NoError(t, s.Upsert(profile.Profile{ID: 2}))

		for _, q := range []string{"carl", "", "@", "an"} {
			_, err := s.FindByName(q)
			assert.True(t, errors.Is(err, profile.ErrNotFound), "query %q", q)
		}
	})

	t.Run("list is a snapshot of everything", func(t *testing.T) {
		s := newStore(t)
		for id := int64(1); id <= 5; id++ {
			require.NoError(t, s.Upsert(profile.Profile{ID: id}))
		}
		// Reads of missing IDs must not create profiles.
		_, err := s.Get(99)
		require.NoError(t, err)

		list, err := s.List()
		require.NoError(t, err)
		ids := make([]int64, 0, len(list))
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, ids)
	})

	t.Run("update starts from stored profile", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: 3, Username: "cat", Answers: map[int]string{1: "x", 2: "y"}}))

		got, err := s.Update(3, func(p *profile.Profile) {
			p.Apply(map[int]string{1: "", 4: "<b>hi</b>"})
		})
		require.NoError(t, err)
		want := map[int]string{2: "y", 4: "&lt;b&gt;hi&lt;/b&gt;"}
		assert.Equal(t, want, got.Answers)

		stored, err := s.Get(3)
		require.NoError(t, err)
		assert.Equal(t, want, stored.Answers)
	})

	t.Run("update creates missing profile and keeps the key", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Update(77, func(p *profile.Profile) {
			p.ID = 1000
			p.Username = "dora"
			p.SetAnswer(1, "Dora")
		})
		require.NoError(t, err)
		assert.Equal(t, int64(77), got.ID)

		p, err := s.FindByName("DORA")
		require.NoError(t, err)
		if diff := cmp.Diff(got, p, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("profile mismatch (-update +find):\n%s", diff)
		}
	})

	t.Run("rename moves the name lookup", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: 8, Username: "before"}))
		_, err := s.Update(8, func(p *profile.Profile) { p.Username = "after" })
		require.NoError(t, err)

		_, err = s.FindByName("before")
		assert.ErrorIs(t, err, profile.ErrNotFound)
		p, err := s.FindByName("after")
		require.NoError(t, err)
		assert.Equal(t, int64(8), p.ID)
	})

	t.Run("unlinked profiles never collide", func(t *testing.T) {
		s := newStore(t)
		a, err := s.AddUnlinked(profile.Profile{Username: "first", Answers: map[int]string{1: "A"}})
		require.NoError(t, err)
		b, err := s.AddUnlinked(profile.Profile{Username: "second", Answers: map[int]string{1: "B"}})
		require.NoError(t, err)

		assert.Less(t, a.ID, int64(0))
		assert.Less(t, b.ID, int64(0))
		assert.NotEqual(t, a.ID, b.ID)
		assert.False(t, a.Linked())

		pa, err := s.FindByName("first")
		require.NoError(t, err)
		assert.Equal(t, "A", pa.Answers[1])
		pb, err := s.FindByName("second")
		require.NoError(t, err)
		assert.Equal(t, "B", pb.Answers[1])
	})

	t.Run("unlinked ids skip stored negative ids", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: -1, Username: "kept", Answers: map[int]string{1: "keep me"}}))
		require.NoError(t, s.Upsert(profile.Profile{ID: -5, Username: "also"}))

		p, err := s.AddUnlinked(profile.Profile{Username: "fresh"})
		require.NoError(t, err)
		assert.Equal(t, int64(-6), p.ID)

		kept, err := s.Get(-1)
		require.NoError(t, err)
		assert.Equal(t, "kept", kept.Username)
		assert.Equal(t, "keep me", kept.Answers[1])
	})

	t.Run("unlinked add rejects a taken name", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(profile.Profile{ID: 4, Username: "Ann"}))

		_, err := s.AddUnlinked(profile.Profile{Username: "@ann"})
		assert.ErrorIs(t, err, profile.ErrExists)

		// Nameless manual profiles never clash.
		_, err = s.AddUnlinked(profile.Profile{})
		require.NoError(t, err)
		_, err = s.AddUnlinked(profile.Profile{})
		require.NoError(t, err)

		list, err := s.List()
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("concurrent adds of one name create one profile", func(t *testing.T) {
		s := newStore(t)
		const adders = 16

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < adders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.AddUnlinked(profile.Profile{Username: "newbie"})
				if err != nil {
					assert.ErrorIs(t, err, profile.ErrExists)
					return
				}
				mu.Lock()
				created++
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		list, err := s.List()
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("concurrent updates on one key lose nothing", func(t *testing.T) {
		s := newStore(t)
		const writers = 32

		var wg sync.WaitGroup
		for i := 1; i <= writers; i++ {
			wg.Add(1)
			go func(q int) {
				defer wg.Done()
				_, err := s.Update(1, func(p *profile.Profile) {
					p.SetAnswer(q, "answer")
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		p, err := s.Get(1)
		require.NoError(t, err)
		assert.Len(t, p.Answers, writers)
	})

	t.Run("concurrent writers on different keys", func(t *testing.T) {
		s := newStore(t)
		const users = 16

		var wg sync.WaitGroup
		for i := int64(1); i <= users; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				for q := 1; q <= 5; q++ {
					_, err := s.Update(id, func(p *profile.Profile) { p.SetAnswer(q, "a") })
					assert.NoError(t, err)
				}
				_, err := s.Get(id)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		list, err := s.List()
		require.NoError(t, err)
		require.Len(t, list, users)
		for _, p := range list {
			assert.Len(t, p.Answers, 5)
		}
	})
}
