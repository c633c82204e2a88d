package service

import (
	"errors"
	"fmt"

	"ragchat-client/pkg/ragapi"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrNoActiveChat = errors.New("no chat selected")
	ErrSendDisabled = errors.New("send is disabled until at least one file is staged")
	ErrInvalidName  = errors.New("chat name must not be blank")
	ErrClosed       = errors.New("session core is closed")
	ErrSessionReset = errors.New("session was reset while the request was in flight")
)

// DecodeError means the stored access credential could not be read as a token.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode credential: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err came from the RAG backend boundary.
func IsRemote(err error) bool {
	return ragapi.IsRemote(err)
}

// Outcome tells the caller what an action did, so no-ops are never silent.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeNoOp
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNoOp:
		return "noop"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}
