// Package artifact renders the scannable image embedded in ticket
// emails and shown at the gate.
package artifact

import (
	qrcode "github.com/skip2/go-qrcode"
)

// Generator produces the scannable bytes for a ticket code.
type Generator interface {
	Generate(code string) ([]byte, error)
}

// QRGenerator encodes the ticket verification URL as a PNG QR code.
type QRGenerator struct {
	// BaseURL is the public ticket verification endpoint prefix.
	BaseURL string
	// Size is the image edge length in pixels; zero means 256.
	Size int
}

func NewQRGenerator(baseURL string) *QRGenerator {
	return &QRGenerator{BaseURL: baseURL}
}

func (g *QRGenerator) Generate(code string) ([]byte, error) {
	size := g.Size
	if size == 0 {
		size = 256
	}
	return qrcode.Encode(g.BaseURL+"/t/"+code, qrcode.Medium, size)
}
