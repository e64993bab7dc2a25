package scan

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
)

const (
	labelModuleWidth = 3
	labelBarHeight   = 120
	// Code 128 needs ten modules of white on each side to be readable.
	labelQuietModules = 10
	DefaultQRSize     = 256
)

// LabelText returns the text a printed unit label carries, including scanner flag characters.
func LabelText(unitNumber string, flags string) string {
	return UnitNumberPrefix + unitNumber + flags
}

// ProductLabelText returns the text a printed product code label carries.
func ProductLabelText(productCode string) string {
	return ProductCodePrefix + productCode
}

// Code128Image renders text as a Code 128 symbol with a quiet zone.
func Code128Image(text string) (image.Image, error) {
	bc, err := code128.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encode code128 '%s': %w", text, err)
	}
	width := bc.Bounds().Dx() * labelModuleWidth
	scaled, err := barcode.Scale(bc, width, labelBarHeight)
	if err != nil {
		return nil, fmt.Errorf("scale code128 '%s': %w", text, err)
	}

	margin := labelQuietModules * labelModuleWidth
	canvas := image.NewGray(image.Rect(0, 0, width+2*margin, labelBarHeight+2*margin))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(margin, margin, margin+width, margin+labelBarHeight), scaled, image.Point{}, draw.Src)
	return canvas, nil
}

// Code128PNG renders text as a PNG encoded Code 128 symbol.
func Code128PNG(text string) ([]byte, error) {
	img, err := Code128Image(text)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// QRPNG renders text as a PNG encoded QR code.
func QRPNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	pngBytes, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr '%s': %w", text, err)
	}
	return pngBytes, nil
}
