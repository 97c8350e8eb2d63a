// Package security guards the AST layer against spending its parse
// budget on files that were never going to yield useful nodes: binary
// blobs saved with a source extension, and files past the configured
// size ceiling.
package security

import (
	"os"
	"unicode/utf8"
)

// FileValidator enforces layer2.maxFileSize and a binary-content guard
// before a candidate file reaches the tree-sitter parser.
type FileValidator struct {
	MaxFileSize int64
}

func NewFileValidator(maxFileSize int64) *FileValidator {
	return &FileValidator{MaxFileSize: maxFileSize}
}

// ShouldSkip reports whether path is too large or looks binary, reading
// at most a small header rather than the whole file.
func (fv *FileValidator) ShouldSkip(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	if fv.MaxFileSize > 0 && info.Size() > fv.MaxFileSize {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	header := make([]byte, 4096)
	n, _ := f.Read(header)
	return isBinaryData(header[:n])
}

// isBinaryData reports true when more than 30% of the sample is
// non-printable control bytes or bytes that are not valid UTF-8, the
// same threshold libmagic-style sniffers use for "binary vs text".
func isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	nonPrintable := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			nonPrintable++
		} else if r < 9 || (r > 13 && r < 32) || r == 127 {
			nonPrintable++
		}
		i += size
	}
	return float64(nonPrintable)/float64(len(data)) > 0.3
}
