package service

import (
	"context"
	"encoding/json"
	"sync"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// GraphFetchFunc performs the backend call for one chat's graph.
type GraphFetchFunc func(ctx context.Context, chatId string) (json.RawMessage, error)

// GraphRequest is one intent to show a chat's graph.
type GraphRequest struct {
	Id     uuid.UUID
	ChatId string

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *GraphRequest) Context() context.Context {
	return r.ctx
}

// graphFlight is the context one shared backend call runs under. It is
// cancelled only once every request that joined it has left.
type graphFlight struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

// KnowledgeGraphViewModel caches at most one graph snapshot and applies fetch
// results by last-intent-wins: only the most recent request may land, and only
// while its chat is still the selected one.
//
// Begin, Complete, Invalidate, View and Loading must be serialised by the
// caller. Load runs outside that lock.
type KnowledgeGraphViewModel struct {
	logger logger.ILogger
	group  singleflight.Group

	current     *entity.GraphSnapshot
	pending     *GraphRequest
	outstanding map[uuid.UUID]*GraphRequest

	// flights is touched from Load, so it has its own lock
	flightMu sync.Mutex
	flights  map[string]*graphFlight
}

func NewKnowledgeGraphViewModel(log logger.ILogger) *KnowledgeGraphViewModel {
	return &KnowledgeGraphViewModel{
		logger:      log,
		outstanding: map[uuid.UUID]*GraphRequest{},
		flights:     map[string]*graphFlight{},
	}
}

// Begin records a new intent for chatId. Outstanding requests for any other
// chat are cancelled; requests for the same chat keep running and share one
// backend call with this one.
func (vm *KnowledgeGraphViewModel) Begin(parent context.Context, chatId string) *GraphRequest {
	vm.cancelWhere(func(r *GraphRequest) bool { return r.ChatId != chatId })

	ctx, cancel := context.WithCancel(parent)
	req := &GraphRequest{
		Id:     uuid.New(),
		ChatId: chatId,
		ctx:    ctx,
		cancel: cancel,
	}
	vm.pending = req
	vm.outstanding[req.Id] = req
	return req
}

// Load fetches the graph for req. Failures become an error-tagged snapshot so
// the rendering layer shows them in place of the graph.
//
// Requests for the same chat share one backend call. The call is not bound to
// any single request's context: a caller giving up only leaves the call, and
// the call is cancelled when the last joined request has left.
func (vm *KnowledgeGraphViewModel) Load(req *GraphRequest, fetch GraphFetchFunc) entity.GraphSnapshot {
	err := req.ctx.Err()
	if err == nil {
		var snap entity.GraphSnapshot
		if snap, err = vm.share(req, fetch); err == nil {
			return snap
		}
	}

	vm.logger.Warn("KnowledgeGraph", "Graph fetch failed", map[string]interface{}{
		"chat_id":    req.ChatId,
		"request_id": req.Id.String(),
		"error":      err.Error(),
	})
	return entity.GraphSnapshot{ChatId: req.ChatId, Error: constant.GraphFetchErrorMessage}
}

func (vm *KnowledgeGraphViewModel) share(req *GraphRequest, fetch GraphFetchFunc) (entity.GraphSnapshot, error) {
	flight := vm.join(req)
	defer vm.leave(req.ChatId, flight)

	ch := vm.group.DoChan(req.ChatId, func() (interface{}, error) {
		return fetch(flight.ctx, req.ChatId)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return entity.GraphSnapshot{}, res.Err
		}
		return entity.GraphSnapshot{ChatId: req.ChatId, Data: res.Val.(json.RawMessage)}, nil
	case <-req.ctx.Done():
		return entity.GraphSnapshot{}, req.ctx.Err()
	}
}

func (vm *KnowledgeGraphViewModel) join(req *GraphRequest) *graphFlight {
	vm.flightMu.Lock()
	defer vm.flightMu.Unlock()

	f, ok := vm.flights[req.ChatId]
	if !ok {
		// keep the caller's values (trace span) but not its cancellation
		ctx, cancel := context.WithCancel(context.WithoutCancel(req.ctx))
		f = &graphFlight{ctx: ctx, cancel: cancel}
		vm.flights[req.ChatId] = f
	}
	f.refs++
	return f
}

func (vm *KnowledgeGraphViewModel) leave(chatId string, f *graphFlight) {
	vm.flightMu.Lock()
	defer vm.flightMu.Unlock()

	f.refs--
	if f.refs > 0 {
		return
	}
	f.cancel()
	if vm.flights[chatId] == f {
		delete(vm.flights, chatId)
		// a call cancelled here must not be joined by a later request
		vm.group.Forget(chatId)
	}
}

// Complete applies snap if req is still the latest intent and its chat is
// still selected. Anything else is discarded.
func (vm *KnowledgeGraphViewModel) Complete(req *GraphRequest, snap entity.GraphSnapshot, selected string) Outcome {
	req.cancel()
	delete(vm.outstanding, req.Id)

	if vm.pending != req {
		return OutcomeDiscarded
	}
	vm.pending = nil

	if snap.ChatId != selected {
		return OutcomeDiscarded
	}
	vm.current = &snap
	return OutcomeApplied
}

// Invalidate cancels every outstanding request and drops the cached snapshot.
func (vm *KnowledgeGraphViewModel) Invalidate() {
	vm.cancelWhere(func(*GraphRequest) bool { return true })
	vm.pending = nil
	vm.current = nil
}

// View returns the cached snapshot only when it belongs to selected.
func (vm *KnowledgeGraphViewModel) View(selected string) *entity.GraphSnapshot {
	if vm.current == nil || selected == "" || vm.current.ChatId != selected {
		return nil
	}
	snap := vm.current.Clone()
	return &snap
}

func (vm *KnowledgeGraphViewModel) Loading(selected string) bool {
	return vm.pending != nil && selected != "" && vm.pending.ChatId == selected
}

func (vm *KnowledgeGraphViewModel) cancelWhere(match func(*GraphRequest) bool) {
	for id, r := range vm.outstanding {
		if !match(r) {
			continue
		}
		r.cancel()
		// later requests for this chat must not join the superseded call
		vm.group.Forget(r.ChatId)
		delete(vm.outstanding, id)
		if vm.pending == r {
			vm.pending = nil
		}
	}
}
