package ai

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// imageData is a receipt image ready for transport: sniffed MIME type plus
// base64 payload.
type imageData struct {
	mime string
	b64  string
}

func (d imageData) dataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", d.mime, d.b64)
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// loadImage reads and sniffs a receipt image. Any failure (missing path,
// unreadable file, unsupported type) reports false; the caller turns that
// into a skipped outcome.
func loadImage(path string) (imageData, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return imageData{}, false
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return imageData{}, false
	}

	raw, err := os.ReadFile(path)
	if err != nil || len(raw) == 0 {
		return imageData{}, false
	}

	mime := http.DetectContentType(raw)
	if _, ok := allowedImageTypes[mime]; !ok {
		return imageData{}, false
	}

	return imageData{
		mime: mime,
		b64:  base64.StdEncoding.EncodeToString(raw),
	}, true
}
