package implementation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	repo := NewFileCredentialRepository(path)

	_, found, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, found, "missing file reads as empty store")

	require.NoError(t, repo.Set(ctx, "accessToken", "a.b.c"))
	require.NoError(t, repo.Set(ctx, "refreshToken", "r-1"))

	value, found, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a.b.c", value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second repository over the same file sees the same credentials
	other := NewFileCredentialRepository(path)
	value, found, err = other.Get(ctx, "refreshToken")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "r-1", value)

	require.NoError(t, repo.Delete(ctx, "accessToken", "refreshToken"))
	_, found, _ = repo.Get(ctx, "accessToken")
	assert.False(t, found)
	_, found, _ = other.Get(ctx, "refreshToken")
	assert.False(t, found)
}

func TestFileCredentialRepository_DeleteMissingIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	repo := NewFileCredentialRepository(path)

	require.NoError(t, repo.Delete(context.Background(), "accessToken"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileCredentialRepository_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileCredentialRepository(path).Get(context.Background(), "accessToken")
	assert.ErrorContains(t, err, "decode credential file")
}

func TestRedisCredentialRepository_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	repo := NewRedisCredentialRepository(rdb, "test:")

	_, found, err := repo.Get(context.Background(), "accessToken")
	assert.False(t, found)
	assert.ErrorContains(t, err, "redis get accessToken")

	assert.NoError(t, repo.Delete(context.Background()), "no keys means no round trip")
}
