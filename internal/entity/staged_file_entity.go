package entity

import "io"

// FileHandle gives access to the bytes of a staged file without loading them
// into the staging area itself.
type FileHandle interface {
	Open() (io.ReadCloser, error)
	Size() int64
}

type StagedFile struct {
	Name     string
	MimeType string
	Payload  FileHandle
}

// StagedFileView is the payload-free projection handed to the rendering layer.
type StagedFileView struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

func (f StagedFile) View() StagedFileView {
	var size int64
	if f.Payload != nil {
		size = f.Payload.Size()
	}
	return StagedFileView{Name: f.Name, MimeType: f.MimeType, Size: size}
}
