package service

import (
	"strings"

	"ragchat-client/internal/dto"
	"ragchat-client/internal/entity"
)

// ChatDirectory is the ordered list of known chats and the selection into it.
// It holds no lock; ChatSessionCore serialises every call.
type ChatDirectory struct {
	chats    []entity.ChatSummary
	index    map[string]int
	selected string
	loaded   bool
}

func NewChatDirectory() *ChatDirectory {
	return &ChatDirectory{index: map[string]int{}}
}

func summaryFromResponse(res dto.ChatResponse) entity.ChatSummary {
	return entity.ChatSummary{
		Id:           string(res.Id),
		Title:        res.Name,
		MessageCount: 0,
		LastUpdated:  res.CreatedAt,
	}
}

// List returns a copy of the chats in the order they were received.
func (d *ChatDirectory) List() []entity.ChatSummary {
	return append([]entity.ChatSummary(nil), d.chats...)
}

func (d *ChatDirectory) Selected() string {
	return d.selected
}

func (d *ChatDirectory) Loaded() bool {
	return d.loaded
}

func (d *ChatDirectory) Contains(id string) bool {
	_, ok := d.index[id]
	return ok
}

// ApplyLoaded installs the initial listing. Chats created while the listing
// was in flight are kept after it unless the listing already has them.
func (d *ChatDirectory) ApplyLoaded(list []dto.ChatResponse) {
	created := d.chats
	d.chats = make([]entity.ChatSummary, 0, len(list)+len(created))
	d.index = make(map[string]int, len(list)+len(created))

	for _, res := range list {
		d.upsert(summaryFromResponse(res))
	}
	for _, c := range created {
		if !d.Contains(c.Id) {
			d.upsert(c)
		}
	}
	d.loaded = true
}

// ValidateName trims a requested chat name and rejects blank ones before any
// remote call is made.
func (d *ChatDirectory) ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

// CommitCreated appends a chat the backend has confirmed and selects it.
func (d *ChatDirectory) CommitCreated(res dto.ChatResponse) entity.ChatSummary {
	summary := summaryFromResponse(res)
	d.upsert(summary)
	d.selected = summary.Id
	return summary
}

// Select points the selection at id. Unknown ids are rejected and leave the
// selection untouched; re-selecting the current chat is a no-op.
func (d *ChatDirectory) Select(id string) (Outcome, error) {
	if !d.Contains(id) {
		return OutcomeNoOp, ErrChatNotFound
	}
	if d.selected == id {
		return OutcomeNoOp, nil
	}
	d.selected = id
	return OutcomeApplied, nil
}

func (d *ChatDirectory) Reset() {
	d.chats = nil
	d.index = map[string]int{}
	d.selected = ""
	d.loaded = false
}

func (d *ChatDirectory) upsert(summary entity.ChatSummary) {
	if i, ok := d.index[summary.Id]; ok {
		d.chats[i] = summary
		return
	}
	d.index[summary.Id] = len(d.chats)
	d.chats = append(d.chats, summary)
}
