// Package kvtest checks that a store.Storage behaves as the store expects.
package kvtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/store"
)

// Run exercises s; it must start empty.
func Run(t *testing.T, s store.Storage) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Load("missing")
		assert.Equal(t, store.ErrNotFound, err)
		assert.NoError(t, s.Remove("missing"), "removing a missing key is not an error")
	})

	t.Run("save load overwrite remove", func(t *testing.T) {
		require.NoError(t, s.Save("k", "v1"))
		v, err := s.Load("k")
		require.NoError(t, err)
		assert.Equal(t, "v1", v)

		require.NoError(t, s.Save("k", `{"é":"ç"}`))
		v, err = s.Load("k")
		require.NoError(t, err)
		assert.Equal(t, `{"é":"ç"}`, v)

		require.NoError(t, s.Remove("k"))
		_, err = s.Load("k")
		assert.Equal(t, store.ErrNotFound, err)
	})

	t.Run("store round trip", func(t *testing.T) {
		st := store.New(store.Options{Storage: s})
		st.AddClass(school.ClassRoom{ID: "c9", Name: "Robótica", Year: 2025, Subject: "Tecnologia"})
		require.True(t, st.Login("ana@escola.com"))

		restored := store.New(store.Options{Storage: s})
		state := restored.GetState()
		assert.Len(t, state.Classes, 3)
		if assert.NotNil(t, state.CurrentUser) {
			assert.Equal(t, "ana@escola.com", state.CurrentUser.Email)
		}

		restored.Logout()
		_, err := s.Load(store.SessionKey)
		assert.Equal(t, store.ErrNotFound, err)
	})
}
