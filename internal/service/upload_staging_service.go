package service

import (
	"ragchat-client/internal/entity"
	"ragchat-client/pkg/attachment"
)

// UploadStagingArea holds the files that will ride along with the next
// message. It is independent of the selected chat.
type UploadStagingArea struct {
	files []entity.StagedFile
}

func NewUploadStagingArea() *UploadStagingArea {
	return &UploadStagingArea{}
}

// Stage appends the candidates that satisfy the attachment policy, in order.
// Rejected candidates are dropped without an error. Returns how many were kept.
func (s *UploadStagingArea) Stage(candidates []entity.StagedFile) int {
	accepted := attachment.Filter(candidates)
	s.files = append(s.files, accepted...)
	return len(accepted)
}

// Unstage removes the file at index. Out of range is a no-op.
func (s *UploadStagingArea) Unstage(index int) Outcome {
	if index < 0 || index >= len(s.files) {
		return OutcomeNoOp
	}
	s.files = append(s.files[:index:index], s.files[index+1:]...)
	return OutcomeApplied
}

func (s *UploadStagingArea) Clear() {
	s.files = nil
}

func (s *UploadStagingArea) Len() int {
	return len(s.files)
}

func (s *UploadStagingArea) Files() []entity.StagedFile {
	return append([]entity.StagedFile(nil), s.files...)
}

func (s *UploadStagingArea) Views() []entity.StagedFileView {
	views := make([]entity.StagedFileView, 0, len(s.files))
	for _, f := range s.files {
		views = append(views, f.View())
	}
	return views
}

func (s *UploadStagingArea) Names() []string {
	names := make([]string, 0, len(s.files))
	for _, f := range s.files {
		names = append(names, f.Name)
	}
	return names
}
