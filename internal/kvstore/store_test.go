package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/youthinvest/internal/testutil"
)

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		v, ok, err := s.Get("missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, s.Set("youthInvest_projects", `{"data":[1,2],"timestamp":1}`))

		v, ok, err := s.Get("youthInvest_projects")
		require.NoError(t, err)
		require.True(t, ok, "Get() returned false for existing key")
		assert.Equal(t, `{"data":[1,2],"timestamp":1}`, v)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, s.Set("overwrite", "value1"))
		require.NoError(t, s.Set("overwrite", "value2"))

		v, _, err := s.Get("overwrite")
		require.NoError(t, err)
		assert.Equal(t, "value2", v)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, s.Set("remove-me", "x"))
		require.NoError(t, s.Remove("remove-me"))

		_, ok, err := s.Get("remove-me")
		require.NoError(t, err)
		assert.False(t, ok, "Get() should return false after Remove()")
	})

	t.Run("RemoveMissing", func(t *testing.T) {
		assert.NoError(t, s.Remove("never-set"))
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, _, err := s.Get("  ")
		assert.ErrorIs(t, err, ErrEmptyKey)
		assert.ErrorIs(t, s.Set("", "x"), ErrEmptyKey)
		assert.ErrorIs(t, s.Remove(""), ErrEmptyKey)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemory()
	_ = s.Set("a", "1")
	_ = s.Set("b", "2")
	_ = s.Remove("a")
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemory()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Set("shared-key", "v")
				_, _, _ = s.Get("shared-key")
				_ = s.Remove("shared-key")
			}
		}()
	}

	wg.Wait()
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runStoreContract(t, s)
}

func TestFileStore_EmptyDirectory(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestFileStore_SanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("youthinvest:user/balance", "500"))
	assert.FileExists(t, filepath.Join(dir, "youthinvest_user_balance.json"))

	v, ok, err := s.Get("youthinvest:user/balance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "500", v)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("youthInvest_userBalance", "42"))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	v, ok, err := second.Get("youthInvest_userBalance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	s, err := NewRedis(RedisConfig{Addr: addr, Prefix: "youthinvest-test:"})
	if err != nil {
		t.Skipf("Skipping test: redis not available: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)

	// Values are stored without a Redis expiry.
	ttl, err := s.Client().TTL(context.Background(), "youthinvest-test:youthInvest_projects").Result()
	require.NoError(t, err)
	assert.Less(t, ttl, time.Duration(0), "want no expiry")
}

func TestPostgresStore(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	ctx := context.Background()
	tdb.Cleanup(ctx)
	defer tdb.Cleanup(ctx)

	runStoreContract(t, NewPostgres(tdb.SQL()))
}
