package attachment

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ragchat-client/internal/entity"

	"github.com/gabriel-vasile/mimetype"
)

type pathHandle struct {
	path string
	size int64
}

func (h pathHandle) Open() (io.ReadCloser, error) { return os.Open(h.path) }
func (h pathHandle) Size() int64                  { return h.size }

type bytesHandle struct {
	data []byte
}

func (h bytesHandle) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(h.data)), nil
}
func (h bytesHandle) Size() int64 { return int64(len(h.data)) }

// FromPath builds a candidate for a file on local disk. The MIME type is
// sniffed from the content, so a renamed PDF is still recognised and a text
// file named report.pdf is not.
func FromPath(path string) (entity.StagedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.StagedFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return entity.StagedFile{}, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return entity.StagedFile{}, fmt.Errorf("detect mime type of %s: %w", path, err)
	}

	return entity.StagedFile{
		Name:     filepath.Base(path),
		MimeType: baseType(mtype),
		Payload:  pathHandle{path: path, size: info.Size()},
	}, nil
}

// FromBytes builds a candidate from an in-memory upload. declaredType is the
// type the sender claimed; when empty it is sniffed from data.
func FromBytes(name, declaredType string, data []byte) entity.StagedFile {
	mimeType := declaredType
	if mimeType == "" {
		mimeType = baseType(mimetype.Detect(data))
	}
	return entity.StagedFile{
		Name:     name,
		MimeType: mimeType,
		Payload:  bytesHandle{data: data},
	}
}

// baseType drops parameters such as "; charset=utf-8".
func baseType(m *mimetype.MIME) string {
	t, _, _ := strings.Cut(m.String(), ";")
	return t
}
