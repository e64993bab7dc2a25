package scan

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoded is the text read from a label image.
type Decoded struct {
	Text   string
	Format string
	// Field is the input field the text belongs to, derived from its data identifier.
	Field string
}

// ImageDecoder reads unit and product labels from photos or scanner snapshots.
type ImageDecoder struct {
	readers []gozxing.Reader
}

// NewImageDecoder returns a decoder for the symbologies used on blood product labels.
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{
		readers: []gozxing.Reader{
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			qrcode.NewQRCodeReader(),
		},
	}
}

// DecodeBytes decodes a PNG or JPEG payload.
func (d *ImageDecoder) DecodeBytes(data []byte) (Decoded, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("decode image: %w", err)
	}
	return d.Decode(img)
}

// Decode tries each reader in turn and returns the first hit.
func (d *ImageDecoder) Decode(img image.Image) (Decoded, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Decoded{}, fmt.Errorf("create bitmap: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	for _, reader := range d.readers {
		result, decodeErr := reader.Decode(bmp, hints)
		if decodeErr != nil || result == nil {
			continue
		}
		text := result.GetText()
		field, err := Classify(text)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{
			Text:   text,
			Format: formatName(result.GetBarcodeFormat()),
			Field:  field,
		}, nil
	}
	return Decoded{}, ErrNoBarcode
}

// Classify maps label text to the input field its data identifier announces.
func Classify(text string) (string, error) {
	value := fold(text)
	switch {
	case strings.HasPrefix(value, ProductCodePrefix):
		return FieldProductCode, nil
	case strings.HasPrefix(value, UnitNumberPrefix):
		return FieldUnitNumber, nil
	default:
		return "", fmt.Errorf("classify '%s': %w", text, ErrUnsupportedBarcode)
	}
}

func formatName(format gozxing.BarcodeFormat) string {
	switch format {
	case gozxing.BarcodeFormat_CODE_128:
		return "CODE_128"
	case gozxing.BarcodeFormat_CODE_39:
		return "CODE_39"
	case gozxing.BarcodeFormat_QR_CODE:
		return "QR_CODE"
	default:
		return "UNKNOWN"
	}
}
