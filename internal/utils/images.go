package utils

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/anthonynsimon/bild/transform"

	_ "image/gif"
	_ "image/png"
)

const (
	maxThumbnailSide  = 1000
	maxThumbnailBytes = 300 * 1024
)

// ProcessThumbnail downscales and re-encodes a preview image so the uploaded
// blob stays small. Input that cannot be decoded is returned unchanged; the
// caller uploads it as-is.
func ProcessThumbnail(input []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return input
	}

	processed, err := processThumbnailImage(img)
	if err != nil {
		return input
	}

	return processed
}

func processThumbnailImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer

	originalWidth := img.Bounds().Dx()
	originalHeight := img.Bounds().Dy()
	if originalWidth > maxThumbnailSide || originalHeight > maxThumbnailSide {
		aspectRatio := float64(originalWidth) / float64(originalHeight)
		var newWidth, newHeight int
		if originalWidth > originalHeight {
			newWidth = maxThumbnailSide
			newHeight = int(float64(newWidth) / aspectRatio)
		} else {
			newHeight = maxThumbnailSide
			newWidth = int(float64(newHeight) * aspectRatio)
		}
		img = transform.Resize(img, newWidth, newHeight, transform.Linear)
	}

	quality := 100
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	for int64(buf.Len()) > maxThumbnailBytes && quality > 10 {
		quality -= 10
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
