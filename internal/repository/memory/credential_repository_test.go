package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository()

	require.NoError(t, repo.Set(ctx, "accessToken", "token"))
	require.NoError(t, repo.Set(ctx, "refreshToken", "refresh"))

	value, found, err := repo.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "token", value)

	require.NoError(t, repo.Delete(ctx, "accessToken", "refreshToken"))

	_, found, _ = repo.Get(ctx, "accessToken")
	assert.False(t, found)
	_, found, _ = repo.Get(ctx, "refreshToken")
	assert.False(t, found)
}
