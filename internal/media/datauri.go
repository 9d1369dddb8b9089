package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
)

// ErrInvalidPayload marks an image payload that cannot be decoded; retrying
// will not help.
var ErrInvalidPayload = errors.New("invalid image payload")

const defaultMimeType = "image/jpeg"

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
	"image/heif": "heif",
}

// DecodeDataURI splits a `data:<mime>;base64,<data>` string into its MIME
// type and bytes. A bare base64 string is read as JPEG.
func DecodeDataURI(payload string) (string, []byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	mimeType := defaultMimeType
	data := payload
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return "", nil, fmt.Errorf("%w: data URI without body", ErrInvalidPayload)
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, fmt.Errorf("%w: only base64 data URIs are accepted", ErrInvalidPayload)
		}
		if mt := strings.TrimSuffix(meta, ";base64"); mt != "" {
			parsed, _, err := mime.ParseMediaType(mt)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
			mimeType = parsed
		}
		data = body
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("%w: no image bytes", ErrInvalidPayload)
	}
	return mimeType, raw, nil
}

// ExtensionFor maps a MIME type to the file extension used in object paths.
func ExtensionFor(mimeType string) string {
	if ext, ok := extensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		sub = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, strings.ToLower(sub))
		if sub != "" {
			return sub
		}
	}
	return "bin"
}

// ObjectPath builds `{owner}/{role}_{unixMillis}.{ext}`.
func ObjectPath(ownerID string, role Role, unixMillis int64, mimeType string) string {
	return fmt.Sprintf("%s/%s_%d.%s", ownerID, role, unixMillis, ExtensionFor(mimeType))
}
