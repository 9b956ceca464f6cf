package chat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Upload is an incoming multipart file, decoupled from net/http so the
// service can be exercised without an HTTP request.
type Upload struct {
	FileName string
	Content  io.Reader
}

// imageMIMETypes maps the accepted image extensions to the MIME type sent to
// the vision model.
var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// plainTextExts are document extensions read verbatim as UTF-8 text.
var plainTextExts = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".c":        true,
	".java":     true,
	".py":       true,
}

// binaryDocExts are document extensions the service recognizes but cannot
// extract text from. They get ErrUnsupportedFileType rather than a plain
// validation error so the API can answer 501.
var binaryDocExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".ppt":  true,
	".pptx": true,
}

// imageMIMEType validates an image upload's extension and returns its MIME
// type.
func imageMIMEType(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	mime, ok := imageMIMETypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: image type %q not allowed", ErrValidation, ext)
	}
	return mime, nil
}

// validateDocumentExt checks a document upload's extension before any bytes
// are read.
func validateDocumentExt(fileName string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case plainTextExts[ext]:
		return nil
	case binaryDocExts[ext]:
		return fmt.Errorf("%w: %q requires format-specific extraction", ErrUnsupportedFileType, ext)
	default:
		return fmt.Errorf("%w: file type %q not allowed", ErrValidation, ext)
	}
}

// saveTemp spools the upload to a temporary file and returns its path.
// Callers remove the file with removeTemp on every exit path.
func saveTemp(upload Upload) (string, error) {
	f, err := os.CreateTemp("", "parley-upload-*"+filepath.Ext(upload.FileName))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, upload.Content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("spooling upload %q: %w", upload.FileName, err)
	}
	return f.Name(), nil
}

// removeTemp deletes a spooled upload, ignoring already-gone files.
func removeTemp(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// extractText reads a plain-text document from disk. Extension validation
// happens before the file is spooled, so only readable types arrive here.
func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}
