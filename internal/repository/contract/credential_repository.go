package contract

import "context"

// ICredentialRepository is durable key-value storage for session credentials.
// Delete takes every key of a credential pair at once; implementations that can
// remove them in a single write must do so.
type ICredentialRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
