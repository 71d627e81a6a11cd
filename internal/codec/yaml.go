package codec

import (
	"fmt"
	"io"

	"netboard/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML board import/export. This is the format used by
// the board file watched on disk.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier.
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a board from YAML.
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Board, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML: %w", err)
	}

	var board domain.Board
	if err := yaml.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(board.Hosts) > 0 {
		if err := domain.ValidateHosts(board.Hosts); err != nil {
			return nil, fmt.Errorf("invalid board: %w", err)
		}
	}

	board.Meta.Monitoring = board.Meta.Monitoring.Sanitize()
	return &board, nil
}

// Export writes a board to YAML.
func (c *YAMLCodec) Export(board *domain.Board, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(board); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
