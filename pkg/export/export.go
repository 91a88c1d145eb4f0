// Package export writes the decoded transfer plan for operators.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kilianp07/rebalance/core/decode"
)

// WriteJSON writes the transfers to w as a JSON array.
func WriteJSON(w io.Writer, moves []decode.Transfer) error {
	if moves == nil {
		moves = []decode.Transfer{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(moves)
}

// WriteCSV writes the transfers to w with a header row.
func WriteCSV(w io.Writer, moves []decode.Transfer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cluster", "origin", "destination", "steps", "utility"}); err != nil {
		return err
	}
	for _, m := range moves {
		rec := []string{
			strconv.Itoa(m.Cluster),
			strconv.Itoa(m.Origin),
			strconv.Itoa(m.Dest),
			strconv.Itoa(m.Steps),
			strconv.FormatFloat(m.Utility, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the plan to path in the given format ("csv" or "json").
func WriteFile(path, format string, moves []decode.Transfer) (err error) {
	var write func(io.Writer, []decode.Transfer) error
	switch format {
	case "", "csv":
		write = WriteCSV
	case "json":
		write = WriteJSON
	default:
		return fmt.Errorf("unknown plan format %q", format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, moves)
}
