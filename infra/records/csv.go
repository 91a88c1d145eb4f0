// Package records provides the file and database backends of the solution
// record store.
package records

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	core "github.com/kilianp07/rebalance/core/records"
)

// CSVStore writes the flat two-column variable,value dump. One file holds
// one run: the file is truncated when the store is opened, and Query only
// honours the Prefix filter since rows carry no run id or timestamp.
type CSVStore struct {
	path string
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
}

var csvHeader = []string{"variable", "value"}

// NewCSVStore creates or truncates path and writes the header row.
func NewCSVStore(path string) (*CSVStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &CSVStore{path: path, f: f, w: w}, nil
}

func (s *CSVStore) Append(ctx context.Context, recs ...core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return fmt.Errorf("csv store %s is closed", s.path)
	}
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.w.Write([]string{r.Variable, strconv.FormatFloat(r.Value, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVStore) Query(_ context.Context, q core.Query) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	prefixOnly := core.Query{Prefix: q.Prefix}
	var res []core.Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) != 2 {
			return nil, fmt.Errorf("%s line %d: expected 2 fields, got %d", s.path, i+1, len(row))
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, i+1, err)
		}
		r := core.Record{Variable: row[0], Value: v}
		if prefixOnly.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	werr := s.w.Error()
	cerr := s.f.Close()
	s.f, s.w = nil, nil
	if werr != nil {
		return werr
	}
	return cerr
}
