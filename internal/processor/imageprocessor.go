// imageprocessor.go - Image preprocessing before upload to the vision model

package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

// ErrImageTooManyPixels means the declared canvas is too large to decode safely
var ErrImageTooManyPixels = errors.New("image canvas too large to preprocess")

// PrepareForVision downscales the screenshot so its longest side is at most maxDim.
// Images already within bounds, and WebP (no encoder available), are returned unchanged.
// The header is checked against maxPixels before any pixel data is decoded.
func PrepareForVision(in *ImageInput, maxDim, maxPixels int) (*ImageInput, error) {
	if in == nil {
		return nil, ErrMissingImage
	}
	if maxDim <= 0 || in.MIMEType == "image/webp" {
		return in, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d (max %d pixels)", ErrImageTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return in, nil
	}

	img, err := imaging.Decode(bytes.NewReader(in.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = resizeLongestSide(img, maxDim)

	var buf bytes.Buffer
	mimeType := "image/jpeg"

	switch in.MIMEType {
	case "image/png":
		err = png.Encode(&buf, img)
		mimeType = "image/png"
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode processed image: %w", err)
	}

	return &ImageInput{MIMEType: mimeType, Data: buf.Bytes()}, nil
}

func resizeLongestSide(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() > bounds.Dy() {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}
