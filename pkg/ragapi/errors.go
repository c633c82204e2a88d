package ragapi

import (
	"errors"
	"fmt"
)

// RemoteError is any failed call to the RAG backend: transport failure,
// non-2xx status, or an undecodable body.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rag api %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("rag api %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
