// Package codec provides board import and export in multiple formats.
package codec

import (
	"fmt"
	"io"
	"strings"

	"netboard/internal/domain"
)

// Importer parses a board from an external representation.
type Importer interface {
	Parse(r io.Reader) (*domain.Board, error)
	Format() string
}

// Exporter writes a board to an external representation.
type Exporter interface {
	Export(board *domain.Board, w io.Writer) error
	Format() string
}

// ForFormat returns the codec for a format name ("json" or "yaml").
func ForFormat(format string) (interface {
	Importer
	Exporter
}, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
