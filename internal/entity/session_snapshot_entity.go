package entity

import "time"

type NoticeLevel string

const (
	NoticeLevelWarning NoticeLevel = "warning"
	NoticeLevelError   NoticeLevel = "error"
)

// Notice is a dismissible message about a failed background operation.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionSnapshot is the immutable view of the session handed to the rendering
// layer after every action. Nothing in it aliases core state.
type SessionSnapshot struct {
	Version          uint64           `json:"version"`
	StagedFiles      []StagedFileView `json:"staged_files"`
	Messages         []ChatMessage    `json:"messages"`
	IsLoading        bool             `json:"is_loading"`
	Draft            string           `json:"draft"`
	Chats            []ChatSummary    `json:"chats"`
	SelectedChatId   string           `json:"selected_chat_id,omitempty"`
	GraphModalOpen   bool             `json:"graph_modal_open"`
	GraphLoading     bool             `json:"graph_loading"`
	Graph            *GraphSnapshot   `json:"graph,omitempty"`
	SidebarCollapsed bool             `json:"sidebar_collapsed"`
	User             *Identity        `json:"user,omitempty"`
	CanSend          bool             `json:"can_send"`
	Notice           *Notice          `json:"notice,omitempty"`
}
