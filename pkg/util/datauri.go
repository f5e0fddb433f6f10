package util

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid data uri")

// DecodeDataURI decodes "data:<mime>;base64,<payload>". A bare base64 string
// is accepted and reported as application/octet-stream.
func DecodeDataURI(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrInvalidDataURI
	}
	contentType := "application/octet-stream"
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", ErrInvalidDataURI
		}
		if mt := strings.TrimSuffix(header, ";base64"); mt != "" {
			contentType = mt
		}
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Join(ErrInvalidDataURI, err)
	}
	if len(raw) == 0 {
		return nil, "", ErrInvalidDataURI
	}
	return raw, contentType, nil
}

// ExtensionFor maps an image content type to a file extension.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	return "bin"
}
