package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// setupStores returns every Store implementation, ready for use.
func setupStores(t *testing.T) map[string]Store {
	t.Helper()

	onDisk := NewBadgerStore(log.NewTestLogger())
	require.NoError(t, onDisk.Open(t.TempDir()))

	inMemory := NewBadgerStore(log.NewTestLogger(), WithInMemory())
	require.NoError(t, inMemory.Open(""))

	t.Cleanup(func() {
		onDisk.Close()
		inMemory.Close()
	})

	return map[string]Store{
		"badger-disk":   onDisk,
		"badger-memory": inMemory,
		"memory":        NewMemoryStore(),
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()

	for name, s := range setupStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "default", KeyToken)
			assert.True(t, IsNotFound(err))

			require.NoError(t, s.Set(ctx, "default", KeyToken, "abc"))
			v, err := s.Get(ctx, "default", KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "abc", v)

			require.NoError(t, s.Set(ctx, "default", KeyToken, "def"))
			v, err = s.Get(ctx, "default", KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "def", v)

			require.NoError(t, s.Delete(ctx, "default", KeyToken))
			_, err = s.Get(ctx, "default", KeyToken)
			assert.True(t, IsNotFound(err))

			assert.NoError(t, s.Delete(ctx, "default", "never-set"))
		})
	}
}

func TestStoreClearIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()

	for name, s := range setupStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "prod", KeyToken, "p"))
			require.NoError(t, s.Set(ctx, "prod", "last_route", "/servers"))
			require.NoError(t, s.Set(ctx, "staging", KeyToken, "s"))

			keys, err := s.Keys(ctx, "prod")
			require.NoError(t, err)
			assert.Equal(t, []string{"last_route", KeyToken}, keys)

			require.NoError(t, s.Clear(ctx, "prod"))

			keys, err = s.Keys(ctx, "prod")
			require.NoError(t, err)
			assert.Empty(t, keys)

			v, err := s.Get(ctx, "staging", KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "s", v)
		})
	}
}

func TestStoreRejectsBadNamespace(t *testing.T) {
	s := NewMemoryStore()
	assert.Error(t, s.Set(context.Background(), "", KeyToken, "x"))
	assert.Error(t, s.Set(context.Background(), "a/b", KeyToken, "x"))
}

func TestBadgerStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewBadgerStore(log.NewTestLogger())
	require.NoError(t, first.Open(dir))
	require.NoError(t, first.Set(ctx, "default", KeyToken, "persisted"))
	require.NoError(t, first.Close())

	second := NewBadgerStore(log.NewTestLogger())
	require.NoError(t, second.Open(dir))
	v, err := second.Get(ctx, "default", KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}

func TestBadgerStoreEncryption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := []byte("0123456789abcdef0123456789abcdef")

	encrypted := NewBadgerStore(log.NewTestLogger(), WithEncryptionKey(key))
	require.NoError(t, encrypted.Open(dir))
	require.NoError(t, encrypted.Set(ctx, "default", KeyToken, "secret-token"))
	require.NoError(t, encrypted.Close())

	reopened := NewBadgerStore(log.NewTestLogger(), WithEncryptionKey(key))
	require.NoError(t, reopened.Open(dir))
	v, err := reopened.Get(ctx, "default", KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", v)

	wrongKey := NewBadgerStore(log.NewTestLogger(), WithEncryptionKey([]byte("fedcba9876543210fedcba9876543210")))
	require.NoError(t, wrongKey.Open(dir))
	_, err = wrongKey.Get(ctx, "default", KeyToken)
	assert.Error(t, err)
}

func TestBadgerStoreNotOpen(t *testing.T) {
	s := NewBadgerStore(log.NewTestLogger())
	_, err := s.Get(context.Background(), "default", KeyToken)
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	ns, key, ok := ParseKey(MakeKey("prod", "token"))
	require.True(t, ok)
	assert.Equal(t, "prod", ns)
	assert.Equal(t, "token", key)

	_, _, ok = ParseKey([]byte("other/prod/token"))
	assert.False(t, ok)
}
