package memory

import (
	"context"

	"ragchat-client/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// CredentialRepository keeps credentials for the lifetime of the process only.
type CredentialRepository struct {
	cache *cache.Cache
}

func NewCredentialRepository() contract.ICredentialRepository {
	// Credentials expire when the backend says so, never locally.
	c := cache.New(cache.NoExpiration, 0)
	return &CredentialRepository{
		cache: c,
	}
}

func (r *CredentialRepository) Get(_ context.Context, key string) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *CredentialRepository) Set(_ context.Context, key, value string) error {
	r.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (r *CredentialRepository) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		r.cache.Delete(key)
	}
	return nil
}
