// Package barcode derives book barcodes and school codes from record
// attributes plus a random component.
package barcode

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// BookBarcodeLength is payload plus the two checksum digits.
	BookBarcodeLength = 14
	payloadLength     = 12
	randomLength      = 6
	// SchoolCodeLength is the length of a generated school code.
	SchoolCodeLength = 6
)

// Source supplies random hexadecimal strings of at least 12 characters.
type Source interface {
	Hex() string
}

// SourceFunc adapts a function to Source.
type SourceFunc func() string

func (f SourceFunc) Hex() string { return f() }

// UUIDSource draws randomness from version 4 UUIDs.
type UUIDSource struct{}

func (UUIDSource) Hex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Generator builds codes; it never consults stored data, so callers must
// persist through a unique constraint and retry on conflict.
type Generator struct {
	src Source
}

// NewGenerator returns a generator; a nil source uses UUIDSource.
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = UUIDSource{}
	}
	return &Generator{src: src}
}

// BookBarcode returns TTYYYYRRRRRRCC where TT is the book type prefix, YYYY
// the publication year, RRRRRR random hex and CC the checksum.
func (g *Generator) BookBarcode(bookType string, publicationYear int) (string, error) {
	bookType = strings.TrimSpace(bookType)
	if len(bookType) < 2 {
		return "", fmt.Errorf("book type %q too short for barcode prefix", bookType)
	}
	if publicationYear < 1000 || publicationYear > 9999 {
		return "", fmt.Errorf("publication year %d is not four digits", publicationYear)
	}

	random, err := g.random(randomLength)
	if err != nil {
		return "", err
	}

	payload := strings.ToUpper(bookType[:2]) + fmt.Sprintf("%04d", publicationYear) + random
	return payload + Checksum(payload), nil
}

// SchoolCode returns six uppercase hex characters. No checksum is appended.
func (g *Generator) SchoolCode() (string, error) {
	return g.random(SchoolCodeLength)
}

func (g *Generator) random(n int) (string, error) {
	raw := g.src.Hex()
	if len(raw) < n {
		return "", fmt.Errorf("random source returned %d characters, need %d", len(raw), n)
	}
	return strings.ToUpper(raw[:n]), nil
}

// Checksum is the byte sum of payload mod 100, zero padded to two digits.
func Checksum(payload string) string {
	sum := 0
	for i := 0; i < len(payload); i++ {
		sum += int(payload[i])
	}
	return fmt.Sprintf("%02d", sum%100)
}

// ValidBookBarcode reports whether code has the generated shape and a
// matching checksum.
func ValidBookBarcode(code string) bool {
	if len(code) != BookBarcodeLength {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < 6; i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	for i := 6; i < payloadLength; i++ {
		c := code[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return Checksum(code[:payloadLength]) == code[payloadLength:]
}
