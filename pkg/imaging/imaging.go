package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/nfnt/resize"
	"github.com/rwcarlsen/goexif/exif"
)

// The imaging package implements the image processing needed by the upload
// and thumbnail paths: decoding, aspect-preserving resize with optional
// center crop, re-encoding at a given quality and extraction of the title
// embedded in the image metadata.

// Decode an image from raw bytes, returning the decoded image and the
// detected format ("jpeg", "png" or "gif").
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("no image bytes")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return img, format, nil
}

// Scale an image to fit (or, when cropping, to cover) the provided bounding
// box, preserving the aspect ratio. Images already smaller than the box, or
// a zero-sized box, pass through untouched. When crop is requested the
// scaled image is center-cropped to exactly width x height.
func Scale(img image.Image, width, height int, crop bool) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	if width == 0 || height == 0 || (width > srcW && height > srcH) {
		return img
	}

	percentW := float64(width) / float64(srcW)
	percentH := float64(height) / float64(srcH)

	percent := percentW
	if crop {
		if percentH > percentW {
			percent = percentH
		}
	} else {
		if percentH < percentW {
			percent = percentH
		}
	}

	scaledW := uint(float64(srcW) * percent)
	scaledH := uint(float64(srcH) * percent)
	scaled := resize.Resize(scaledW, scaledH, img, resize.Lanczos3)
	if !crop {
		return scaled
	}

	// Center the scaled image into the requested box.
	cropped := image.NewRGBA(image.Rect(0, 0, width, height))
	offset := image.Pt(
		(width-scaled.Bounds().Dx())/2,
		(height-scaled.Bounds().Dy())/2,
	)
	draw.Draw(cropped, cropped.Bounds(), scaled, scaled.Bounds().Min.Sub(offset), draw.Src)
	return cropped
}

// Encode an image back into the given format. The quality setting only
// applies to JPEG output.
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("unsupported image format '%s'", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

// Title extracts the title embedded in the image metadata, looking at the
// EXIF ImageDescription and XPTitle tags. An empty string is returned when
// the image carries no usable title, callers are expected to fall back to
// the file name.
func Title(data []byte) string {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	for _, field := range []exif.FieldName{exif.ImageDescription, exif.XPTitle} {
		tag, err := meta.Get(field)
		if err != nil {
			continue
		}
		title, err := tag.StringVal()
		if err != nil {
			continue
		}
		title = strings.Trim(title, " \t\n\x00")
		if title != "" {
			return title
		}
	}
	return ""
}
