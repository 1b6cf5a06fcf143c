package format

import (
	"context"
	"encoding/base64"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/leofalp/aibridge/providers/ai"
)

// DefaultMaxImageBytes bounds local image files.
const DefaultMaxImageBytes = 20 * 1024 * 1024

// ImageProcessor resolves an image reference into something a provider can
// send. Failures must be validation errors.
type ImageProcessor interface {
	ProcessImageURL(ctx context.Context, ref string) (ai.ImageURL, error)
}

// Images is the default ImageProcessor.
type Images struct {
	maxBytes int64
}

// ImagesOption configures Images.
type ImagesOption func(*Images)

// WithMaxImageBytes overrides DefaultMaxImageBytes.
func WithMaxImageBytes(n int64) ImagesOption {
	return func(p *Images) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// NewImages returns the default image processor.
func NewImages(opts ...ImagesOption) *Images {
	p := &Images{maxBytes: DefaultMaxImageBytes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ensure Images implements ImageProcessor at compile time.
var _ ImageProcessor = (*Images)(nil)

// ProcessImageURL accepts data URLs, http(s) URLs and local file paths.
func (p *Images) ProcessImageURL(ctx context.Context, ref string) (ai.ImageURL, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ai.ImageURL{}, ai.NewValidationError("empty image reference")

	case strings.HasPrefix(ref, "data:"):
		mimeType, err := dataURLMIMEType(ref)
		if err != nil {
			return ai.ImageURL{}, err
		}
		return ai.ImageURL{URL: ref, MIMEType: mimeType}, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ai.ImageURL{URL: ref, MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(stripQuery(ref))))}, nil
	}

	if err := ctx.Err(); err != nil {
		return ai.ImageURL{}, err
	}
	return p.inlineFile(strings.TrimPrefix(ref, "file://"))
}

func (p *Images) inlineFile(path string) (ai.ImageURL, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ai.ImageURL{}, ai.NewValidationError("image %q not readable: %v", path, err)
	}
	if info.IsDir() {
		return ai.ImageURL{}, ai.NewValidationError("image %q is a directory", path)
	}
	if info.Size() > p.maxBytes {
		return ai.ImageURL{}, ai.NewValidationError("image %q is %d bytes, limit is %d", path, info.Size(), p.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ai.ImageURL{}, ai.NewValidationError("image %q not readable: %v", path, err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(byExt, "image/") {
			mimeType = byExt
		} else {
			return ai.ImageURL{}, ai.NewValidationError("file %q is not an image (%s)", path, mimeType)
		}
	}

	return ai.ImageURL{
		URL:      "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}

// dataURLMIMEType validates a base64 image data URL and returns its MIME type.
func dataURLMIMEType(ref string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || payload == "" {
		return "", ai.NewValidationError("malformed data URL")
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	if !strings.HasPrefix(mimeType, "image/") {
		return "", ai.NewValidationError("data URL is not an image (%s)", mimeType)
	}
	if encoding != "base64" {
		return "", ai.NewValidationError("data URL must be base64 encoded")
	}
	return mimeType, nil
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
