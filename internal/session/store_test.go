package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := NewFileStore(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	ss, err := NewSQLiteStore(filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": ss,
		"redis":  NewRedisStore(rc, "test:"),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, st.Set(ctx, "k", "v1"))
			require.NoError(t, st.Set(ctx, "k", "v2"))
			v, err := st.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v2", v)

			require.NoError(t, st.Delete(ctx, "k"))
			_, err = st.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, st.Delete(ctx, "never-set"))
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	st, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, KeyAccessToken, "abc"))

	again, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := again.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestRedisStoreUsesPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	st := NewRedisStore(rc, "")
	require.NoError(t, st.Set(ctx, KeyRefreshToken, "r"))
	assert.True(t, mr.Exists(defaultRedisPrefix+KeyRefreshToken))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	st, err := Open(ctx, Options{Backend: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, st)
	require.NoError(t, st.Close())

	st, err = Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	_, err = Open(ctx, Options{Backend: "file"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
