package rendering

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageFileName is the name under which an embedded image is staged
// next to the generated source.
const ImageFileName = "resume_image.png"

// NormalizeEmbeddedImage decodes a base64 image, optionally prefixed with a
// data URL header ("data:image/jpeg;base64,"), and re-encodes it as an
// opaque RGB PNG.
func NormalizeEmbeddedImage(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if _, data, found := strings.Cut(payload, ","); found {
		payload = data
	}
	if payload == "" {
		return nil, &ImageError{Message: "image data is empty"}
	}

	raw, err := decodeBase64(payload)
	if err != nil {
		return nil, &ImageError{Message: "invalid base64 image data", Cause: err}
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &ImageError{Message: "unrecognized image format", Cause: err}
	}

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, flatten(img)); err != nil {
		return nil, &ImageError{Message: "failed to encode " + format + " image as png", Cause: err}
	}
	return out.Bytes(), nil
}

// decodeBase64 accepts padded and unpadded standard encodings.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// flatten drops the alpha channel and palette, producing an opaque RGB image.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}
