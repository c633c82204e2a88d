package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func staticGraph(raw string) GraphFetchFunc {
	return func(context.Context, string) (json.RawMessage, error) {
		return json.RawMessage(raw), nil
	}
}

func TestKnowledgeGraph_LoadAndView(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	req := vm.Begin(context.Background(), "c1")
	assert.True(t, vm.Loading("c1"))
	assert.False(t, vm.Loading("c2"))

	snap := vm.Load(req, staticGraph(`{"nodes":[1]}`))
	outcome := vm.Complete(req, snap, "c1")

	assert.Equal(t, OutcomeApplied, outcome)
	assert.False(t, vm.Loading("c1"))
	view := vm.View("c1")
	require.NotNil(t, view)
	assert.Equal(t, "c1", view.ChatId)
	assert.JSONEq(t, `{"nodes":[1]}`, string(view.Data))
	assert.Nil(t, vm.View("c2"), "a snapshot never shows under another chat")
	assert.Nil(t, vm.View(""))
}

func TestKnowledgeGraph_FetchErrorBecomesSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	req := vm.Begin(context.Background(), "c1")
	snap := vm.Load(req, func(context.Context, string) (json.RawMessage, error) {
		return nil, errors.New("boom")
	})

	assert.Equal(t, entity.GraphSnapshot{ChatId: "c1", Error: constant.GraphFetchErrorMessage}, snap)
	assert.Equal(t, OutcomeApplied, vm.Complete(req, snap, "c1"))
	assert.True(t, vm.View("c1").Failed())
}

func TestKnowledgeGraph_NewerChatCancelsOlderRequest(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	reqA := vm.Begin(context.Background(), "c1")
	reqB := vm.Begin(context.Background(), "c2")

	assert.ErrorIs(t, reqA.Context().Err(), context.Canceled)
	assert.NoError(t, reqB.Context().Err())

	// B resolves first, A's late result must not overwrite it
	assert.Equal(t, OutcomeApplied, vm.Complete(reqB, entity.GraphSnapshot{ChatId: "c2", Data: json.RawMessage(`{"b":1}`)}, "c2"))
	assert.Equal(t, OutcomeDiscarded, vm.Complete(reqA, entity.GraphSnapshot{ChatId: "c1", Data: json.RawMessage(`{"a":1}`)}, "c2"))

	view := vm.View("c2")
	require.NotNil(t, view)
	assert.JSONEq(t, `{"b":1}`, string(view.Data))
}

func TestKnowledgeGraph_SameChatRequestSupersedes(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	first := vm.Begin(context.Background(), "c1")
	second := vm.Begin(context.Background(), "c1")
	assert.NoError(t, first.Context().Err(), "same chat requests are not cancelled")

	assert.Equal(t, OutcomeDiscarded, vm.Complete(first, entity.GraphSnapshot{ChatId: "c1", Data: json.RawMessage(`{"v":1}`)}, "c1"))
	assert.True(t, vm.Loading("c1"))
	assert.Equal(t, OutcomeApplied, vm.Complete(second, entity.GraphSnapshot{ChatId: "c1", Data: json.RawMessage(`{"v":2}`)}, "c1"))
	assert.JSONEq(t, `{"v":2}`, string(vm.View("c1").Data))
}

func TestKnowledgeGraph_DiscardWhenSelectionMoved(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	req := vm.Begin(context.Background(), "c1")
	snap := vm.Load(req, staticGraph(`{}`))

	assert.Equal(t, OutcomeDiscarded, vm.Complete(req, snap, "c2"))
	assert.Nil(t, vm.View("c1"))
	assert.Nil(t, vm.View("c2"))
}

func TestKnowledgeGraph_ConcurrentRequestsShareOneFetch(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context, string) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return json.RawMessage(`{"shared":true}`), nil
	}

	reqA := vm.Begin(context.Background(), "c1")
	reqB := vm.Begin(context.Background(), "c1")

	var wg sync.WaitGroup
	results := make([]entity.GraphSnapshot, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = vm.Load(reqA, fetch)
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = vm.Load(reqB, fetch)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, results[0], results[1])
	vm.Complete(reqA, results[0], "c1")
	vm.Complete(reqB, results[1], "c1")
}

func flightRefs(vm *KnowledgeGraphViewModel, chatId string) int {
	vm.flightMu.Lock()
	defer vm.flightMu.Unlock()
	if f, ok := vm.flights[chatId]; ok {
		return f.refs
	}
	return 0
}

func TestKnowledgeGraph_SharedFetchOutlivesFirstCaller(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, _ string) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		select {
		case <-release:
			return json.RawMessage(`{"ok":1}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	parentA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	reqA := vm.Begin(parentA, "c1")
	reqB := vm.Begin(context.Background(), "c1")

	var wg sync.WaitGroup
	var snapA, snapB entity.GraphSnapshot
	wg.Add(1)
	go func() {
		defer wg.Done()
		snapA = vm.Load(reqA, fetch)
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		snapB = vm.Load(reqB, fetch)
	}()
	require.Eventually(t, func() bool { return flightRefs(vm, "c1") == 2 }, time.Second, time.Millisecond)

	// the first caller gives up; the call keeps running for the second
	cancelA()
	require.Eventually(t, func() bool { return flightRefs(vm, "c1") == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.True(t, snapA.Failed())
	assert.False(t, snapB.Failed())
	assert.JSONEq(t, `{"ok":1}`, string(snapB.Data))
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, OutcomeDiscarded, vm.Complete(reqA, snapA, "c1"))
	assert.Equal(t, OutcomeApplied, vm.Complete(reqB, snapB, "c1"))
	assert.Zero(t, flightRefs(vm, "c1"))
}

func TestKnowledgeGraph_SharedFetchCancelledWhenEveryCallerLeaves(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	entered := make(chan struct{})
	fetchErr := make(chan error, 1)
	blocking := func(ctx context.Context, _ string) (json.RawMessage, error) {
		close(entered)
		<-ctx.Done()
		fetchErr <- ctx.Err()
		return nil, ctx.Err()
	}

	reqA := vm.Begin(context.Background(), "c1")
	reqB := vm.Begin(context.Background(), "c1")
	var wg sync.WaitGroup
	for _, req := range []*GraphRequest{reqA, reqB} {
		wg.Add(1)
		go func(r *GraphRequest) {
			defer wg.Done()
			vm.Load(r, blocking)
		}(req)
	}
	<-entered
	require.Eventually(t, func() bool { return flightRefs(vm, "c1") == 2 }, time.Second, time.Millisecond)

	vm.Invalidate()
	wg.Wait()

	select {
	case err := <-fetchErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("backend call was not cancelled")
	}
	assert.Zero(t, flightRefs(vm, "c1"))
}

func TestKnowledgeGraph_CancelledCallIsNotJoined(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	entered := make(chan struct{})
	blocking := func(ctx context.Context, _ string) (json.RawMessage, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	reqA := vm.Begin(context.Background(), "c1")
	var wg sync.WaitGroup
	var staleSnap entity.GraphSnapshot
	wg.Add(1)
	go func() {
		defer wg.Done()
		staleSnap = vm.Load(reqA, blocking)
	}()
	<-entered

	reqB := vm.Begin(context.Background(), "c2")
	reqC := vm.Begin(context.Background(), "c1")
	fresh := vm.Load(reqC, staticGraph(`{"fresh":1}`))
	wg.Wait()

	assert.Equal(t, constant.GraphFetchErrorMessage, staleSnap.Error)
	assert.False(t, fresh.Failed())
	assert.JSONEq(t, `{"fresh":1}`, string(fresh.Data))

	assert.Equal(t, OutcomeDiscarded, vm.Complete(reqA, staleSnap, "c1"))
	assert.Equal(t, OutcomeDiscarded, vm.Complete(reqB, entity.GraphSnapshot{ChatId: "c2"}, "c1"))
	assert.Equal(t, OutcomeApplied, vm.Complete(reqC, fresh, "c1"))
}

func TestKnowledgeGraph_Invalidate(t *testing.T) {
	defer goleak.VerifyNone(t)
	vm := NewKnowledgeGraphViewModel(logger.NewNopLogger())

	done := vm.Begin(context.Background(), "c1")
	vm.Complete(done, vm.Load(done, staticGraph(`{}`)), "c1")
	req := vm.Begin(context.Background(), "c1")

	vm.Invalidate()

	assert.ErrorIs(t, req.Context().Err(), context.Canceled)
	assert.Nil(t, vm.View("c1"))
	assert.False(t, vm.Loading("c1"))

	snap := vm.Load(req, func(ctx context.Context, _ string) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.True(t, snap.Failed())
	assert.Equal(t, OutcomeDiscarded, vm.Complete(req, snap, "c1"))
}
