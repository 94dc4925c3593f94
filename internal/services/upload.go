package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// UploadFile is one file part of an upload
type UploadFile struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

type sniffedFile struct {
	mimeType string
	ext      string
	body     io.Reader
}

func isMediaType(mimeType string, allowVideo bool) bool {
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	return allowVideo && strings.HasPrefix(mimeType, "video/")
}

func baseMediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// sniffUpload checks both the declared and the detected content type of f.
// Detected media types take precedence; undetectable content falls back to the declared type.
func sniffUpload(field string, f UploadFile, allowVideo bool) (*sniffedFile, error) {
	kind := "an image"
	if allowVideo {
		kind = "an image or video"
	}

	declared := baseMediaType(f.ContentType)
	if !isMediaType(declared, allowVideo) {
		return nil, rejected(fmt.Sprintf("%s must be %s, got %q", field, kind, declared))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	if n == 0 {
		return nil, rejected(field + " is empty")
	}
	head = head[:n]

	out := &sniffedFile{mimeType: declared}
	detected := mimetype.Detect(head)
	if detected.Is("application/octet-stream") {
		if m := mimetype.Lookup(declared); m != nil {
			out.ext = m.Extension()
		}
	} else {
		out.mimeType = baseMediaType(detected.String())
		if !isMediaType(out.mimeType, allowVideo) {
			return nil, rejected(fmt.Sprintf("%s content is %s, not %s", field, out.mimeType, kind))
		}
		out.ext = detected.Extension()
	}

	if out.ext == "" {
		out.ext = strings.ToLower(filepath.Ext(f.Filename))
	}
	if !safeExt.MatchString(out.ext) {
		out.ext = ".bin"
	}

	out.body = io.MultiReader(bytes.NewReader(head), f.Content)
	return out, nil
}
