// Package codec decodes uploaded images and encodes captioned results.
//
// Decoding recognises PNG, JPEG, GIF, WebP and BMP by content, never by file
// name. GIFs keep their full frame list so animations can be captioned frame
// by frame; every other format decodes to a single still image.
package codec

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/captioner/pkg/errors"
)

// Supported format names.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatWebP = "webp"
	FormatBMP  = "bmp"

	// FormatAuto keeps the input's format when it can be encoded.
	FormatAuto = "auto"
)

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 95

// Decoded is a decoded input image.
type Decoded struct {
	Format   string
	Image    image.Image // raw first sub-frame for GIFs, not composited
	GIF      *gif.GIF    // set for GIF input
	Animated bool        // GIF with more than one frame
}

// Frames is the number of frames in the input.
func (d *Decoded) Frames() int {
	if d.GIF != nil {
		return len(d.GIF.Image)
	}
	return 1
}

// Decode identifies and decodes data.
func Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeDecode, "input is empty")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "unrecognised image data")
	}

	if format == FormatGIF {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode gif")
		}
		if len(g.Image) == 0 {
			return nil, errors.New(errors.ErrCodeDecode, "gif has no frames")
		}
		return &Decoded{
			Format:   FormatGIF,
			Image:    g.Image[0],
			GIF:      g,
			Animated: len(g.Image) > 1,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode %s", format)
	}
	return &Decoded{Format: format, Image: img}, nil
}

// NormalizeFormat maps user spellings ("jpg", "PNG") to format names.
func NormalizeFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", FormatAuto:
		return FormatAuto, nil
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported output format %q (want png, jpeg, gif or auto)", s)
}

// ResolveFormat picks the output format for a still image. "auto" keeps
// PNG and JPEG inputs and falls back to PNG for everything else.
func ResolveFormat(requested, input string) string {
	if requested != "" && requested != FormatAuto {
		return requested
	}
	switch input {
	case FormatPNG, FormatJPEG:
		return input
	}
	return FormatPNG
}

// Encode writes img in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case FormatGIF:
		err = gif.Encode(w, img, &gif.Options{NumColors: 256, Quantizer: quantize.MedianCutQuantizer{}})
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "cannot encode format %q", format)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode %s", format)
	}
	return nil
}

// ContentType is the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	}
	return "application/octet-stream"
}

// Extension is the file extension for a format, with the dot.
func Extension(format string) string {
	if format == FormatJPEG {
		return ".jpg"
	}
	return "." + format
}
