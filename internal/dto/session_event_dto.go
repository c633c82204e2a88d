package dto

import "ragchat-client/internal/entity"

// SessionEventMessage is the payload carried on the snapshot topic.
type SessionEventMessage struct {
	Type     string                 `json:"type"`
	Snapshot entity.SessionSnapshot `json:"snapshot"`
}
