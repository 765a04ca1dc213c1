package processor

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

// localName is the file name an input gets inside the work directory.
func localName(kind string, index int, objectKey, contentType string) string {
	ext := ExtFromMime(contentType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(objectKey))
	}
	if index < 0 {
		return kind + ext
	}
	return fmt.Sprintf("%s_%02d%s", kind, index, ext)
}

// ExtFromMime returns the file extension for a MIME type, or "".
func ExtFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/aac":
		return ".aac"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "application/ogg", "audio/ogg":
		return ".ogg"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}

// truncate keeps stored error messages bounded and valid UTF-8. Postgres
// rejects text columns holding invalid sequences.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
