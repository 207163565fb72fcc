package upload

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/bbrks/go-blurhash"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/talkboard/talkboard-web/internal/errors"
)

// placeholderSize is the thumbnail edge used for BlurHash computation.
const placeholderSize = 64

// allowedTypes are the photo formats accepted for profile pictures.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image describes an inspected photo.
type Image struct {
	MIME      string `json:"mime"`
	Extension string `json:"extension"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	BlurHash  string `json:"blurhash,omitempty"`
}

// Inspect sniffs, decodes and summarizes a photo. Anything that is not a
// decodable JPEG, PNG, GIF or WebP is a validation error.
func Inspect(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, errors.Validation("Please choose a photo to upload.")
	}

	mt := mimetype.Detect(data)
	mime, _, _ := strings.Cut(mt.String(), ";")
	if !allowedTypes[mime] {
		return nil, errors.Validationf("Unsupported photo type %s. Use JPEG, PNG, GIF or WebP.", mime)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "The photo could not be read.")
	}
	bounds := img.Bounds()

	out := &Image{
		MIME:      mime,
		Extension: mt.Extension(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}

	// 4 horizontal, 3 vertical components
	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}
	out.BlurHash = hash
	return out, nil
}

// thumbnail scales img down so its longer edge is placeholderSize, using
// nearest-neighbor sampling.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()
	if srcWidth <= placeholderSize && srcHeight <= placeholderSize {
		return img
	}

	dstWidth, dstHeight := placeholderSize, placeholderSize
	if srcWidth > srcHeight {
		dstHeight = max(1, srcHeight*placeholderSize/srcWidth)
	} else {
		dstWidth = max(1, srcWidth*placeholderSize/srcHeight)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := range dstHeight {
		for x := range dstWidth {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return dst
}
