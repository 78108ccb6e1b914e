// image_input.go - Screenshot intake: data URL / base64 decoding and validation

package processor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrMissingImage     = errors.New("missing image: provide image_base64 or image_data_url")
	ErrInvalidDataURL   = errors.New("invalid image_data_url: expected data:image/(png|jpeg|jpg|webp);base64,...")
	ErrInvalidBase64    = errors.New("invalid base64 image payload")
	ErrUnsupportedImage = errors.New("unsupported image type: only png, jpeg and webp are accepted")
	ErrImageTooSmall    = errors.New("image too small")
	ErrImageTooLarge    = errors.New("image too large")
)

var dataURLPattern = regexp.MustCompile(`(?is)^data:image/(png|jpeg|jpg|webp);base64,(.+)$`)

// ImageInput is a decoded, validated screenshot
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// DecodeImage accepts either a raw base64 payload or a data URL.
// image_data_url wins when both are set. The stored type always comes from
// the bytes; a data URL prefix alone never makes a payload acceptable.
func DecodeImage(imageBase64, imageDataURL string) (*ImageInput, error) {
	imageDataURL = strings.TrimSpace(imageDataURL)
	imageBase64 = strings.TrimSpace(imageBase64)

	var payload string

	switch {
	case imageDataURL != "":
		m := dataURLPattern.FindStringSubmatch(imageDataURL)
		if m == nil {
			return nil, ErrInvalidDataURL
		}
		payload = m[2]
	case imageBase64 != "":
		// Some clients send a data URL in the base64 field
		if m := dataURLPattern.FindStringSubmatch(imageBase64); m != nil {
			payload = m[2]
		} else {
			payload = imageBase64
		}
	default:
		return nil, ErrMissingImage
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, ErrInvalidBase64
	}

	if len(data) < configs.MIN_IMAGE_BYTES {
		return nil, fmt.Errorf("%w: %d bytes (min %d)", ErrImageTooSmall, len(data), configs.MIN_IMAGE_BYTES)
	}
	if len(data) > configs.MAX_IMAGE_BYTES {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(data), configs.MAX_IMAGE_BYTES)
	}

	mimeType := sniffImageMIME(data)
	if mimeType == "" {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mimetype.Detect(data).String())
	}

	return &ImageInput{MIMEType: mimeType, Data: data}, nil
}

// DataURL re-encodes the image as a data URL
func (in *ImageInput) DataURL() string {
	return "data:" + in.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(in.Data)
}

// Fingerprint is the hex sha256 of the image bytes
func (in *ImageInput) Fingerprint() string {
	sum := sha256.Sum256(in.Data)
	return hex.EncodeToString(sum[:])
}

func decodeBase64(payload string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)

	if data, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
		return data, nil
	}
	// Unpadded or URL-safe payloads from mobile clients
	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "=")); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(cleaned, "="))
}

// sniffImageMIME returns the detected mime when it is an accepted image type
func sniffImageMIME(data []byte) string {
	mtype := mimetype.Detect(data)
	for _, accepted := range []string{"image/png", "image/jpeg", "image/webp"} {
		if mtype.Is(accepted) {
			return accepted
		}
	}
	return ""
}
