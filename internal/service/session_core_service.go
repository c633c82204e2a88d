package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/dto"
	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"
	"ragchat-client/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// IRagAPI is the backend boundary as the core sees it. Headers are passed on
// every call; the client never reads credentials itself.
type IRagAPI interface {
	ListChats(ctx context.Context, headers map[string]string) ([]dto.ChatResponse, error)
	CreateChat(ctx context.Context, headers map[string]string, name string) (*dto.ChatResponse, error)
	GetKnowledgeGraph(ctx context.Context, headers map[string]string, chatId string) (json.RawMessage, error)
}

// IEventPublisher fans session events out to other processes.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ISessionCore interface {
	InstanceId() string
	Identity() *entity.Identity
	Start(ctx context.Context) error
	SelectChat(ctx context.Context, chatId string) (Outcome, error)
	CreateChat(ctx context.Context, name string) (entity.ChatSummary, error)
	StageFiles(ctx context.Context, candidates []entity.StagedFile) int
	UnstageFile(ctx context.Context, index int) Outcome
	OpenGraphView(ctx context.Context) Outcome
	CloseGraphView(ctx context.Context) Outcome
	RequestGraphSnapshot(ctx context.Context, chatId string) (Outcome, error)
	ShowGraph(ctx context.Context) (Outcome, error)
	ToggleSidebar(ctx context.Context) bool
	SetDraft(ctx context.Context, text string) Outcome
	SendMessage(ctx context.Context, text string) (entity.ChatMessage, error)
	Login(ctx context.Context, tok *oauth2.Token) (*entity.Identity, error)
	Logout(ctx context.Context) error
	ResetFromRemote(ctx context.Context, origin string) Outcome
	DismissNotice(ctx context.Context) Outcome
	Snapshot() entity.SessionSnapshot
	Close()
}

// sessionCore composes the session components. A single mutex serialises all
// state; backend calls run without it and re-check the epoch on return.
type sessionCore struct {
	instanceId string
	auth       *AuthSessionManager
	api        IRagAPI
	publisher  ISnapshotPublisher
	events     IEventPublisher
	logger     logger.ILogger
	now        func() time.Time

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup

	mu               sync.Mutex
	directory        *ChatDirectory
	staging          *UploadStagingArea
	graph            *KnowledgeGraphViewModel
	messages         map[string][]entity.ChatMessage
	draft            string
	graphModalOpen   bool
	sidebarCollapsed bool
	notice           *entity.Notice
	inFlight         int
	loadStarted      bool
	epoch            uint64
	version          uint64
	closed           bool
}

// NewSessionCore wires the core. eventPublisher may be nil when no
// cross-process bus is configured.
func NewSessionCore(
	auth *AuthSessionManager,
	api IRagAPI,
	publisher ISnapshotPublisher,
	eventPublisher IEventPublisher,
	log logger.ILogger,
) ISessionCore {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &sessionCore{
		instanceId: uuid.NewString(),
		auth:       auth,
		api:        api,
		publisher:  publisher,
		events:     eventPublisher,
		logger:     log,
		now:        time.Now,
		bgCtx:      bgCtx,
		bgCancel:   bgCancel,
		directory:  NewChatDirectory(),
		staging:    NewUploadStagingArea(),
		graph:      NewKnowledgeGraphViewModel(log),
		messages:   map[string][]entity.ChatMessage{},
	}
}

func (c *sessionCore) InstanceId() string {
	return c.instanceId
}

func (c *sessionCore) Identity() *entity.Identity {
	return c.auth.Identity()
}

// Start restores the identity from storage and loads the chat list once per
// session.
func (c *sessionCore) Start(ctx context.Context) error {
	identity := c.auth.Restore(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	if identity != nil {
		c.logger.Info("SessionCore", "Session started", map[string]interface{}{"username": identity.Username})
	}
	return c.loadDirectory(ctx)
}

func (c *sessionCore) loadDirectory(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.loadStarted {
		c.mu.Unlock()
		return nil
	}
	c.loadStarted = true
	c.inFlight++
	epoch := c.epoch
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	list, err := c.api.ListChats(ctx, c.auth.AuthHeaders(ctx))

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("SessionCore", "Discarding chat list from a previous session", nil)
		return ErrSessionReset
	}
	c.inFlight--
	if err != nil {
		// a later Start may retry
		c.loadStarted = false
		c.setNoticeLocked(constant.ChatListErrorMessage)
	} else {
		c.directory.ApplyLoaded(list)
	}
	snap = c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	if err != nil {
		c.logger.Error("SessionCore", "Failed to load chats", map[string]interface{}{"error": err})
		return fmt.Errorf("load chats: %w", err)
	}
	c.logger.Info("SessionCore", "Chats loaded", map[string]interface{}{"count": len(list)})
	return nil
}

func (c *sessionCore) SelectChat(ctx context.Context, chatId string) (Outcome, error) {
	c.mu.Lock()
	prev := c.directory.Selected()
	outcome, err := c.directory.Select(chatId)
	if err != nil || outcome != OutcomeApplied {
		c.mu.Unlock()
		return outcome, err
	}
	c.selectionChangedLocked(prev)
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return outcome, nil
}

// CreateChat asks the backend for a new chat and, once confirmed, appends and
// selects it. A failure leaves the directory unchanged.
func (c *sessionCore) CreateChat(ctx context.Context, name string) (entity.ChatSummary, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return entity.ChatSummary{}, ErrClosed
	}
	name, err := c.directory.ValidateName(name)
	if err != nil {
		c.mu.Unlock()
		return entity.ChatSummary{}, err
	}
	c.inFlight++
	epoch := c.epoch
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	res, err := c.api.CreateChat(ctx, c.auth.AuthHeaders(ctx), name)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return entity.ChatSummary{}, ErrSessionReset
	}
	c.inFlight--
	var summary entity.ChatSummary
	if err != nil {
		c.setNoticeLocked(constant.ChatCreateErrorMessage)
	} else {
		prev := c.directory.Selected()
		summary = c.directory.CommitCreated(*res)
		if prev != summary.Id {
			c.selectionChangedLocked(prev)
		}
	}
	snap = c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	if err != nil {
		c.logger.Error("SessionCore", "Failed to create chat", map[string]interface{}{"name": name, "error": err})
		return entity.ChatSummary{}, fmt.Errorf("create chat: %w", err)
	}
	c.logger.Info("SessionCore", "Chat created", map[string]interface{}{"chat_id": summary.Id})
	return summary, nil
}

// StageFiles keeps the candidates the attachment policy accepts and returns
// how many were kept.
func (c *sessionCore) StageFiles(ctx context.Context, candidates []entity.StagedFile) int {
	c.mu.Lock()
	accepted := c.staging.Stage(candidates)
	if accepted == 0 {
		c.mu.Unlock()
		return 0
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	if dropped := len(candidates) - accepted; dropped > 0 {
		c.logger.Debug("SessionCore", "Dropped files outside the attachment policy", map[string]interface{}{"dropped": dropped})
	}
	return accepted
}

func (c *sessionCore) UnstageFile(ctx context.Context, index int) Outcome {
	c.mu.Lock()
	outcome := c.staging.Unstage(index)
	if outcome != OutcomeApplied {
		c.mu.Unlock()
		return outcome
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return outcome
}

// OpenGraphView opens the modal without fetching. Without a selected chat
// there is nothing to show.
func (c *sessionCore) OpenGraphView(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.graphModalOpen || c.directory.Selected() == "" {
		c.mu.Unlock()
		return OutcomeNoOp
	}
	c.graphModalOpen = true
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return OutcomeApplied
}

// CloseGraphView closes the modal. An in-flight fetch keeps running and its
// result stays cached for the next open.
func (c *sessionCore) CloseGraphView(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.graphModalOpen {
		c.mu.Unlock()
		return OutcomeNoOp
	}
	c.graphModalOpen = false
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return OutcomeApplied
}

// RequestGraphSnapshot fetches the graph of chatId and waits for the result.
// The result lands only if it is still the latest request and chatId is still
// selected when it arrives.
func (c *sessionCore) RequestGraphSnapshot(ctx context.Context, chatId string) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return OutcomeNoOp, ErrClosed
	}
	if chatId == "" {
		c.mu.Unlock()
		return OutcomeNoOp, ErrNoActiveChat
	}
	if !c.directory.Contains(chatId) {
		c.mu.Unlock()
		return OutcomeNoOp, ErrChatNotFound
	}
	req := c.graph.Begin(ctx, chatId)
	epoch := c.epoch
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	return c.runGraphRequest(ctx, req, epoch), nil
}

// ShowGraph opens the modal for the selected chat and fetches its graph in
// the background. The modal shows the loading state until the result lands.
func (c *sessionCore) ShowGraph(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return OutcomeNoOp, ErrClosed
	}
	chatId := c.directory.Selected()
	if chatId == "" {
		c.mu.Unlock()
		return OutcomeNoOp, ErrNoActiveChat
	}
	c.graphModalOpen = true
	req := c.graph.Begin(c.bgCtx, chatId)
	epoch := c.epoch
	c.wg.Add(1)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	go func() {
		defer c.wg.Done()
		c.runGraphRequest(c.bgCtx, req, epoch)
	}()
	return OutcomeApplied, nil
}

func (c *sessionCore) runGraphRequest(ctx context.Context, req *GraphRequest, epoch uint64) Outcome {
	result := c.graph.Load(req, c.fetchGraph)

	c.mu.Lock()
	if epoch != c.epoch || c.closed {
		req.cancel()
		c.mu.Unlock()
		return OutcomeDiscarded
	}
	outcome := c.graph.Complete(req, result, c.directory.Selected())
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	c.logger.Debug("SessionCore", "Graph request finished", map[string]interface{}{
		"chat_id": req.ChatId,
		"outcome": outcome.String(),
	})
	return outcome
}

func (c *sessionCore) fetchGraph(ctx context.Context, chatId string) (json.RawMessage, error) {
	return c.api.GetKnowledgeGraph(ctx, c.auth.AuthHeaders(ctx), chatId)
}

func (c *sessionCore) ToggleSidebar(ctx context.Context) bool {
	c.mu.Lock()
	c.sidebarCollapsed = !c.sidebarCollapsed
	collapsed := c.sidebarCollapsed
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return collapsed
}

func (c *sessionCore) SetDraft(ctx context.Context, text string) Outcome {
	c.mu.Lock()
	if c.draft == text {
		c.mu.Unlock()
		return OutcomeNoOp
	}
	c.draft = text
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return OutcomeApplied
}

// SendMessage records the user's message with the staged files attached, then
// clears the staging area and the draft. An empty text falls back to the draft.
func (c *sessionCore) SendMessage(ctx context.Context, text string) (entity.ChatMessage, error) {
	c.mu.Lock()
	if c.staging.Len() == 0 {
		c.mu.Unlock()
		return entity.ChatMessage{}, ErrSendDisabled
	}
	chatId := c.directory.Selected()
	if chatId == "" {
		c.mu.Unlock()
		return entity.ChatMessage{}, ErrNoActiveChat
	}
	if text == "" {
		text = c.draft
	}
	msg := entity.ChatMessage{
		Id:          uuid.New(),
		Role:        entity.ChatMessageRoleUser,
		Text:        text,
		Attachments: c.staging.Names(),
		Timestamp:   c.now(),
	}
	c.messages[chatId] = append(c.messages[chatId], msg)
	c.staging.Clear()
	c.draft = ""
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	c.logger.Info("SessionCore", "Message recorded", map[string]interface{}{
		"chat_id":     chatId,
		"attachments": len(msg.Attachments),
	})
	return msg.Clone(), nil
}

// Login installs credentials from the external login flow and loads the chat
// list if this session has not loaded it yet.
func (c *sessionCore) Login(ctx context.Context, tok *oauth2.Token) (*entity.Identity, error) {
	identity, err := c.auth.Login(ctx, tok)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventSnapshot, snap)

	if err := c.loadDirectory(ctx); err != nil {
		c.logger.Warn("SessionCore", "Chat list unavailable after login", map[string]interface{}{"error": err.Error()})
	}
	return identity, nil
}

// Logout clears the credentials and resets every component. The reset
// happens even when storage fails; the storage error is still returned.
func (c *sessionCore) Logout(ctx context.Context) error {
	err := c.auth.Logout(ctx)

	c.mu.Lock()
	c.resetLocked()
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(ctx, constant.SessionEventReset, snap)

	if c.events != nil {
		evt := events.NewSessionReset(c.instanceId, c.now())
		if pubErr := c.events.Publish(ctx, evt); pubErr != nil {
			c.logger.Warn("SessionCore", "Failed to announce session reset", map[string]interface{}{"error": pubErr.Error()})
		}
	}
	return err
}

// ResetFromRemote applies a reset announced by another process sharing the
// credential store. Events this core published itself are ignored.
func (c *sessionCore) ResetFromRemote(ctx context.Context, origin string) Outcome {
	if origin == c.instanceId {
		return OutcomeNoOp
	}
	c.auth.Forget()

	c.mu.Lock()
	c.resetLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventReset, snap)
	c.logger.Info("SessionCore", "Session reset by another process", map[string]interface{}{"origin": origin})
	return OutcomeApplied
}

func (c *sessionCore) DismissNotice(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.notice == nil {
		c.mu.Unlock()
		return OutcomeNoOp
	}
	c.notice = nil
	snap := c.commitLocked()
	c.mu.Unlock()

	c.publish(ctx, constant.SessionEventSnapshot, snap)
	return OutcomeApplied
}

func (c *sessionCore) Snapshot() entity.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildLocked()
}

// Close cancels background graph requests and waits for them to return.
func (c *sessionCore) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.bgCancel()
	c.graph.Invalidate()
	c.mu.Unlock()

	c.wg.Wait()
}

// selectionChangedLocked drops graph state scoped to the previous chat.
func (c *sessionCore) selectionChangedLocked(prev string) {
	c.graph.Invalidate()
	c.graphModalOpen = false
	c.logger.Debug("SessionCore", "Selection changed", map[string]interface{}{
		"from": prev,
		"to":   c.directory.Selected(),
	})
}

func (c *sessionCore) resetLocked() {
	c.epoch++
	c.directory.Reset()
	c.staging.Clear()
	c.graph.Invalidate()
	c.messages = map[string][]entity.ChatMessage{}
	c.draft = ""
	c.graphModalOpen = false
	c.sidebarCollapsed = false
	c.notice = nil
	c.inFlight = 0
	c.loadStarted = false
}

func (c *sessionCore) setNoticeLocked(message string) {
	c.notice = &entity.Notice{
		Level:     entity.NoticeLevelError,
		Message:   message,
		CreatedAt: c.now(),
	}
}

// commitLocked bumps the version and builds the post-action snapshot.
func (c *sessionCore) commitLocked() entity.SessionSnapshot {
	c.version++
	return c.buildLocked()
}

func (c *sessionCore) buildLocked() entity.SessionSnapshot {
	selected := c.directory.Selected()

	history := c.messages[selected]
	messages := make([]entity.ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, m.Clone())
	}

	var notice *entity.Notice
	if c.notice != nil {
		n := *c.notice
		notice = &n
	}

	return entity.SessionSnapshot{
		Version:          c.version,
		StagedFiles:      c.staging.Views(),
		Messages:         messages,
		IsLoading:        c.inFlight > 0,
		Draft:            c.draft,
		Chats:            c.directory.List(),
		SelectedChatId:   selected,
		GraphModalOpen:   c.graphModalOpen,
		GraphLoading:     c.graph.Loading(selected),
		Graph:            c.graph.View(selected),
		SidebarCollapsed: c.sidebarCollapsed,
		User:             c.auth.Identity(),
		CanSend:          c.staging.Len() > 0,
		Notice:           notice,
	}
}

func (c *sessionCore) publish(ctx context.Context, kind string, snap entity.SessionSnapshot) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, kind, snap); err != nil {
		c.logger.Warn("SessionCore", "Failed to publish snapshot", map[string]interface{}{
			"version": snap.Version,
			"error":   err.Error(),
		})
	}
}
