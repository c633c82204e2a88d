package entity

import "encoding/json"

// GraphSnapshot is the knowledge graph of one chat, or the error that replaced it.
// Exactly one of Data and Error is set.
type GraphSnapshot struct {
	ChatId string          `json:"chat_id"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (g GraphSnapshot) Failed() bool {
	return g.Error != ""
}

func (g GraphSnapshot) Clone() GraphSnapshot {
	out := g
	if g.Data != nil {
		out.Data = append(json.RawMessage(nil), g.Data...)
	}
	return out
}
