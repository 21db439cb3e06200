package qr

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// PNG renders content as a QR code image.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr: empty content")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// DataURI renders content as a base64 PNG data URI for direct embedding.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
