package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessageRole string

const (
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant"
)

type ChatMessage struct {
	Id          uuid.UUID       `json:"id"`
	Role        ChatMessageRole `json:"role"`
	Text        string          `json:"text"`
	Attachments []string        `json:"attachments"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (m ChatMessage) Clone() ChatMessage {
	out := m
	out.Attachments = append([]string(nil), m.Attachments...)
	return out
}
