package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"netboard/internal/domain"
)

// JSONCodec handles JSON board import/export.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier.
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a board from JSON.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Board, error) {
	var board domain.Board
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&board); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	// Empty boards are legal documents; host validation applies once
	// there is something to validate.
	if len(board.Hosts) > 0 {
		if err := domain.ValidateHosts(board.Hosts); err != nil {
			return nil, fmt.Errorf("invalid board: %w", err)
		}
	}

	board.Meta.Monitoring = board.Meta.Monitoring.Sanitize()
	return &board, nil
}

// Export writes a board to JSON.
func (c *JSONCodec) Export(board *domain.Board, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(board); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
