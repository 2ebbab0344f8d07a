package transcribe

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError rejects an upload before any service call is made. It is
// user-correctable and surfaced synchronously.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("transcribe: invalid input: %s", e.Reason)
}

// allowedMIMETypes is the supported audio format allowlist.
var allowedMIMETypes = map[string]bool{
	"audio/mpeg":   true,
	"audio/mp3":    true,
	"audio/wav":    true,
	"audio/x-wav":  true,
	"audio/ogg":    true,
	"audio/aac":    true,
	"audio/x-m4a":  true,
	"audio/mp4":    true,
	"audio/flac":   true,
	"audio/aiff":   true,
	"audio/x-aiff": true,
	"video/mp4":    true,
	"video/mpeg":   true,
}

// extensionToMIME maps supported file extensions to a MIME type, used when
// the upload does not carry a usable Content-Type.
var extensionToMIME = map[string]string{
	".mp3":  "audio/mpeg",
	".mpga": "audio/mpeg",
	".mpeg": "video/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/x-m4a",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".aiff": "audio/aiff",
	".mp4":  "audio/mp4",
}

// ResolveMIMEType returns the effective MIME type for an upload, preferring
// the declared content type and falling back to the file extension.
func ResolveMIMEType(contentType, filename string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return extensionToMIME[strings.ToLower(filepath.Ext(filename))]
}

// Validate enforces the size limit and format allowlist. The handler calls
// this before creating a job; Transcribe also calls it so the adapter fails
// fast when used directly.
func (t *Transcriber) Validate(audio []byte, mimeType string) error {
	if len(audio) == 0 {
		return ValidationError{Reason: "empty audio"}
	}
	if t.maxBytes > 0 && int64(len(audio)) > t.maxBytes {
		return ValidationError{Reason: fmt.Sprintf("audio exceeds maximum size of %d bytes", t.maxBytes)}
	}
	if !allowedMIMETypes[strings.ToLower(mimeType)] {
		return ValidationError{Reason: fmt.Sprintf("unsupported format %q", mimeType)}
	}
	return nil
}
