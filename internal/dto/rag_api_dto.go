package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ChatId accepts both string and numeric ids from the backend.
type ChatId string

func (id *ChatId) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("chat id is null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ChatId(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("chat id must be a string or number: %w", err)
	}
	*id = ChatId(n.String())
	return nil
}

type ChatResponse struct {
	Id        ChatId    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateChatRequest struct {
	Name string `json:"name"`
}

type KnowledgeGraphResponse struct {
	GraphData json.RawMessage `json:"graph_data"`
}
