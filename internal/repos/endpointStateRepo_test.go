package repos_test

import (
	"database/sql"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheelibin/striplight/internal/models"
	"github.com/wheelibin/striplight/internal/repos"
)

func newRepo(t *testing.T) *repos.EndpointStateRepo {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// each pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	r, err := repos.NewEndpointStateRepo(logger, db)
	require.NoError(t, err)
	return r
}

func Test_EndpointStateRepo(t *testing.T) {

	t.Run("nothing saved: should return ErrNotPersisted", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.Load(1)
		assert.ErrorIs(t, err, repos.ErrNotPersisted)

		_, err = r.LoadLevel(1)
		assert.ErrorIs(t, err, repos.ErrNotPersisted)
	})

	t.Run("should round trip level and on state independently", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.SaveLevel(2, 120))
		require.NoError(t, r.SaveOnOff(2, true))
		require.NoError(t, r.SaveLevel(2, 80))

		state, err := r.Load(2)
		require.NoError(t, err)
		assert.Equal(t, models.PersistedState{Level: 80, On: true}, state)

		level, err := r.LoadLevel(2)
		require.NoError(t, err)
		assert.Equal(t, uint8(80), level)
	})

	t.Run("on state saved without level: LoadLevel should return ErrNotPersisted", func(t *testing.T) {
		r := newRepo(t)

		require.NoError(t, r.SaveOnOff(3, true))

		_, err := r.LoadLevel(3)
		assert.ErrorIs(t, err, repos.ErrNotPersisted)

		state, err := r.Load(3)
		require.NoError(t, err)
		assert.True(t, state.On)
	})
}
