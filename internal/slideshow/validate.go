// Package slideshow holds the rules an upload must satisfy before a
// render job is created.
package slideshow

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"slidecast/internal/pkg/errors"
)

// Limits bounds an upload.
type Limits struct {
	MinPhotos     int
	MaxPhotos     int
	MaxPhotoBytes int64
	MaxAudioBytes int64
}

// File describes one uploaded part. ContentType is the sniffed type, not
// the one the client declared.
type File struct {
	Name        string
	Size        int64
	ContentType string
}

var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var audioTypes = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/wave":      ".wav",
	"audio/aac":       ".aac",
	"audio/mp4":       ".m4a",
	"video/mp4":       ".m4a",
	"application/ogg": ".ogg",
}

// Sniffing cannot recognise raw MPEG frames or ADTS streams, so these
// extensions are trusted when the content sniffs as octet-stream.
var audioByExt = map[string]string{
	".mp3": "audio/mpeg",
	".aac": "audio/aac",
	".m4a": "audio/mp4",
}

// Sniff reads up to 512 bytes from r and returns the detected type.
func Sniff(r io.Reader) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	ct := http.DetectContentType(buf[:n])
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct, nil
}

// ValidatePhotos checks the photo count and every photo.
func (l Limits) ValidatePhotos(files []File) error {
	n := len(files)
	if n < l.MinPhotos || n > l.MaxPhotos {
		return errors.ValidationField("photos",
			fmt.Sprintf("expected between %d and %d photos, got %d", l.MinPhotos, l.MaxPhotos, n)).
			WithFields(map[string]any{"count": n, "min": l.MinPhotos, "max": l.MaxPhotos})
	}
	for i, f := range files {
		if f.Size == 0 {
			return photoErr(i, f, "photo is empty")
		}
		if l.MaxPhotoBytes > 0 && f.Size > l.MaxPhotoBytes {
			return errors.New(errors.CodePayloadTooLarge, fmt.Sprintf("photo %d exceeds %d bytes", i, l.MaxPhotoBytes)).
				WithFields(map[string]any{"field": "photos", "index": i, "name": f.Name, "limit": l.MaxPhotoBytes})
		}
		if _, ok := photoTypes[f.ContentType]; !ok {
			return photoErr(i, f, fmt.Sprintf("unsupported photo type %s", f.ContentType))
		}
	}
	return nil
}

// ValidateAudio checks an optional audio track. A nil file is valid.
func (l Limits) ValidateAudio(f *File) error {
	if f == nil {
		return nil
	}
	if f.Size == 0 {
		return errors.ValidationField("audio", "audio is empty")
	}
	if l.MaxAudioBytes > 0 && f.Size > l.MaxAudioBytes {
		return errors.New(errors.CodePayloadTooLarge, fmt.Sprintf("audio exceeds %d bytes", l.MaxAudioBytes)).
			WithFields(map[string]any{"field": "audio", "name": f.Name, "limit": l.MaxAudioBytes})
	}
	if AudioType(*f) == "" {
		return errors.ValidationField("audio", fmt.Sprintf("unsupported audio type %s", f.ContentType)).
			WithField("name", f.Name)
	}
	return nil
}

// AudioType resolves the content type used to store an audio file, or ""
// if it is not audio.
func AudioType(f File) string {
	if _, ok := audioTypes[f.ContentType]; ok {
		return f.ContentType
	}
	if f.ContentType == "application/octet-stream" {
		return audioByExt[strings.ToLower(filepath.Ext(f.Name))]
	}
	return ""
}

// Ext returns the file extension used when storing a validated file.
func Ext(contentType string) string {
	if e, ok := photoTypes[contentType]; ok {
		return e
	}
	if e, ok := audioTypes[contentType]; ok {
		return e
	}
	return ".bin"
}

func photoErr(i int, f File, msg string) *errors.Error {
	return errors.ValidationField("photos", fmt.Sprintf("photo %d: %s", i, msg)).
		WithFields(map[string]any{"index": i, "name": f.Name})
}
