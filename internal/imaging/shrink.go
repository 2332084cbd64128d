// Package imaging keeps uploaded menu photos under the model's request size.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/menutalk/kiku/internal/errors"
)

const (
	startQuality = 85
	minQuality   = 50
	maxPasses    = 8
	minSide      = 64
)

// DetectMIME returns the declared type when it is an image type, otherwise
// sniffs the bytes.
func DetectMIME(data []byte, declared string) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return http.DetectContentType(data)
}

// Shrink returns data unchanged when it already fits in maxBytes. Larger
// images are decoded and re-encoded as JPEG, downscaling and lowering the
// quality step by step until the result fits.
func Shrink(data []byte, mimeType string, maxBytes int) ([]byte, string, error) {
	if maxBytes <= 0 || len(data) <= maxBytes {
		return data, mimeType, nil
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.NewValidationError("image could not be decoded", "INVALID_IMAGE", "Upload a JPEG, PNG or WebP photo.")
	}

	img := src
	quality := startQuality
	out := data
	for pass := 0; pass < maxPasses; pass++ {
		out, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, "", errors.NewInternalError("failed to re-encode image", "IMAGE_ENCODE_FAILED", err)
		}
		if len(out) <= maxBytes {
			slog.Debug("Image shrunk",
				"format", format,
				"from_bytes", len(data),
				"to_bytes", len(out),
				"passes", pass+1,
				"quality", quality,
			)
			return out, "image/jpeg", nil
		}

		// Pixel count scales roughly linearly with encoded size.
		ratio := math.Sqrt(float64(maxBytes)/float64(len(out))) * 0.9
		img = scale(img, ratio)
		if quality > minQuality {
			quality -= 10
		}
	}

	return nil, "", errors.NewValidationError("image is too large even after downscaling", "IMAGE_TOO_LARGE", "Take a photo with a lower resolution.")
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scale(img image.Image, ratio float64) image.Image {
	if ratio >= 1 {
		return img
	}
	if ratio < 0.1 {
		ratio = 0.1
	}

	b := img.Bounds()
	w := max(int(float64(b.Dx())*ratio), minSide)
	h := max(int(float64(b.Dy())*ratio), minSide)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
