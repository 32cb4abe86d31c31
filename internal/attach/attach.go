// Package attach vets user file uploads before they enter a transcript.
package attach

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Only text-based files may be attached. The extension check is done
// manually rather than trusting any MIME detection.
var allowedExtensions = map[string]bool{
	"txt": true, "py": true, "json": true, "md": true,
	"ts": true, "tsx": true, "yaml": true, "yml": true,
	"csv": true, "toml": true, "ini": true, "html": true,
	"css": true, "js": true,
}

// UnsupportedTypeError reports a rejected extension. The upload is dropped
// and the transcript is left untouched.
type UnsupportedTypeError struct {
	Extension string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: only text-based files are allowed", e.Extension)
}

// NotTextError reports bytes that do not decode as UTF-8.
type NotTextError struct {
	Name string
}

func (e *NotTextError) Error() string {
	return fmt.Sprintf("unable to process %q: ensure it is a valid text-based file", e.Name)
}

// File is an accepted attachment. Content is the exact decoded text.
type File struct {
	Name    string
	Content string
}

// Vet checks the file name's extension against the allow-list and the
// bytes for valid UTF-8. The returned content is byte-identical to the
// input so the attachment round-trips exactly into the transcript.
func Vet(name string, data []byte) (*File, error) {
	ext := extension(name)
	if !allowedExtensions[ext] {
		return nil, &UnsupportedTypeError{Extension: ext}
	}
	if !utf8.Valid(data) {
		return nil, &NotTextError{Name: name}
	}
	return &File{Name: name, Content: string(data)}, nil
}

func extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
