// Package attachment decides which files may be attached to an outgoing
// message and wraps their bytes in handles the staging area can hold.
package attachment

import (
	"strings"

	"ragchat-client/internal/constant"
	"ragchat-client/internal/entity"
)

// Accepts reports whether f satisfies the attachment policy: the MIME type is
// exactly PDF, or the name ends with the DOCX extension.
func Accepts(f entity.StagedFile) bool {
	return f.MimeType == constant.MimeTypePDF || strings.HasSuffix(f.Name, constant.ExtensionDOCX)
}

// Filter returns the accepted subsequence of candidates, preserving order.
func Filter(candidates []entity.StagedFile) []entity.StagedFile {
	accepted := make([]entity.StagedFile, 0, len(candidates))
	for _, c := range candidates {
		if Accepts(c) {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
