package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/appraiser/internal/domain/model"
)

const (
	outputJSON  = "json"
	outputTable = "table"
)

func checkOutput(format string) error {
	switch format {
	case outputJSON, outputTable:
		return nil
	default:
		return fmt.Errorf("%w: %q (want json or table)", ErrUnknownOutput, format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func printValuation(w io.Writer, format string, res model.ValuationResult) error {
	if format == outputTable {
		renderValuation(w, res)
		return nil
	}
	return writeJSON(w, res)
}
