// Package imagefile loads compared images and checks that they hold decodable image data.
package imagefile

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/face-compare/internal/facematch"
)

// Image is a compared image: its raw bytes plus the header information read from them.
type Image struct {
	Name   string
	Data   []byte
	Format string
	Width  int
	Height int
}

// Load reads an image file from disk.
func Load(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", facematch.ErrMissingInput, err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes wraps in-memory image data. Only the header is decoded.
func FromBytes(name string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: %s is empty", facematch.ErrMissingInput, displayName(name))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %s is not a readable image: %v", facematch.ErrMissingInput, displayName(name), err)
	}

	return Image{
		Name:   name,
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Empty reports whether the image carries no data.
func (img Image) Empty() bool {
	return len(img.Data) == 0
}

// MIMEType returns the content type matching the decoded format.
func (img Image) MIMEType() string {
	switch img.Format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// JPEG returns the image encoded as JPEG, scaled down to fit within maxSize
// (width or height) while keeping aspect ratio. A maxSize of 0 disables scaling.
// JPEG input that needs no scaling is returned unchanged. The returned image
// carries the encoded dimensions, so callers can map coordinates back.
func (img Image) JPEG(maxSize int) (Image, error) {
	needsResize := maxSize > 0 && (img.Width > maxSize || img.Height > maxSize)
	if img.Format == "jpeg" && !needsResize {
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	out := src
	if needsResize {
		bounds := src.Bounds()
		width, height := bounds.Dx(), bounds.Dy()

		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(int(float64(height)*float64(maxSize)/float64(width)), 1)
		} else {
			newHeight = maxSize
			newWidth = max(int(float64(width)*float64(maxSize)/float64(height)), 1)
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), src, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 92}); err != nil {
		return Image{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return Image{
		Name:   img.Name,
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
	}, nil
}

// ScaleFrom returns the factors that map pixel coordinates in img back to
// the coordinates of src, the image it was produced from.
func (img Image) ScaleFrom(src Image) (float64, float64) {
	if img.Width <= 0 || img.Height <= 0 || src.Width <= 0 || src.Height <= 0 {
		return 1, 1
	}
	return float64(src.Width) / float64(img.Width), float64(src.Height) / float64(img.Height)
}

func displayName(name string) string {
	if name == "" {
		return "image"
	}
	return name
}
