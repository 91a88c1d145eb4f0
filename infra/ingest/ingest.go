// Package ingest reads the three input tables of a rebalancing run from CSV.
// Every parse failure wraps model.ErrDataShape.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/rebalance/core/model"
)

// Columns names the columns read from the station and utility tables.
type Columns struct {
	Current string `json:"current"`
	Target  string `json:"target"`
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Origin  string `json:"origin"`
	Dest    string `json:"destination"`
	Step    string `json:"step"`
	Delta   string `json:"delta"`
}

// DefaultColumns matches the column names of the published datasets.
var DefaultColumns = Columns{
	Current: "CurrentInventory",
	Target:  "Optimal Inventory",
	Lat:     "lat",
	Lon:     "lon",
	Origin:  "from_surplus",
	Dest:    "to_deficit",
	Step:    "transfers",
	Delta:   "Delta UDF",
}

// WithDefaults fills empty names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	def := DefaultColumns
	for _, p := range []struct{ dst, src *string }{
		{&c.Current, &def.Current}, {&c.Target, &def.Target},
		{&c.Lat, &def.Lat}, {&c.Lon, &def.Lon},
		{&c.Origin, &def.Origin}, {&c.Dest, &def.Dest},
		{&c.Step, &def.Step}, {&c.Delta, &def.Delta},
	} {
		if *p.dst == "" {
			*p.dst = *p.src
		}
	}
	return c
}

type table struct {
	header map[string]int
	width  int
	rows   [][]string
}

func readTable(r io.Reader, name string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrDataShape, name, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", model.ErrDataShape, name)
	}
	t := &table{header: make(map[string]int, len(all[0])), width: len(all[0]), rows: all[1:]}
	for i, h := range all[0] {
		t.header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return t, nil
}

func (t *table) column(name, table string) (int, error) {
	idx, ok := t.header[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s: missing column %q", model.ErrDataShape, table, name)
	}
	return idx, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseCount accepts "7" and "7.0" but rejects fractional values.
func parseCount(s string) (int, error) {
	v, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(v), nil
}

// ReadStations reads one station per row; SourceID is the 1-based row
// position. Lat and Lon are optional.
func ReadStations(r io.Reader, cols Columns) ([]model.Station, error) {
	cols = cols.WithDefaults()
	t, err := readTable(r, "stations")
	if err != nil {
		return nil, err
	}
	cur, err := t.column(cols.Current, "stations")
	if err != nil {
		return nil, err
	}
	tgt, err := t.column(cols.Target, "stations")
	if err != nil {
		return nil, err
	}
	lat, hasLat := t.header[cols.Lat]
	lon, hasLon := t.header[cols.Lon]
	out := make([]model.Station, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		s := model.Station{SourceID: i + 1}
		if s.Current, err = parseCount(row[cur]); err != nil {
			return nil, fmt.Errorf("%w: stations line %d: %s: %v", model.ErrDataShape, line, cols.Current, err)
		}
		if s.Target, err = parseCount(row[tgt]); err != nil {
			return nil, fmt.Errorf("%w: stations line %d: %s: %v", model.ErrDataShape, line, cols.Target, err)
		}
		if hasLat && hasLon {
			s.Lat, _ = parseFloat(row[lat])
			s.Lon, _ = parseFloat(row[lon])
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadTravelTimes reads a square matrix with a header row and an index
// column, both listing stations in station-table order.
func ReadTravelTimes(r io.Reader) (model.TravelTimes, error) {
	t, err := readTable(r, "travel times")
	if err != nil {
		return model.TravelTimes{}, err
	}
	n := len(t.rows)
	if t.width != n+1 {
		return model.TravelTimes{}, fmt.Errorf("%w: travel times: %d rows but %d value columns",
			model.ErrDataShape, n, t.width-1)
	}
	data := make([]float64, 0, n*n)
	for i, row := range t.rows {
		for j := 1; j <= n; j++ {
			v, err := parseFloat(row[j])
			if err != nil {
				return model.TravelTimes{}, fmt.Errorf("%w: travel times line %d column %d: %v",
					model.ErrDataShape, i+2, j+1, err)
			}
			data = append(data, v)
		}
	}
	return model.NewTravelTimes(n, data)
}

// ReadUtility reads the marginal-utility table. Station ids refer to rows of
// the station table.
func ReadUtility(r io.Reader, cols Columns) ([]model.UtilityRow, error) {
	cols = cols.WithDefaults()
	t, err := readTable(r, "utility")
	if err != nil {
		return nil, err
	}
	idx := make([]int, 4)
	for k, name := range []string{cols.Origin, cols.Dest, cols.Step, cols.Delta} {
		if idx[k], err = t.column(name, "utility"); err != nil {
			return nil, err
		}
	}
	out := make([]model.UtilityRow, 0, len(t.rows))
	for i, row := range t.rows {
		var u model.UtilityRow
		var errs []error
		var perr error
		u.Origin, perr = parseCount(row[idx[0]])
		errs = append(errs, perr)
		u.Dest, perr = parseCount(row[idx[1]])
		errs = append(errs, perr)
		u.Step, perr = parseCount(row[idx[2]])
		errs = append(errs, perr)
		u.Delta, perr = parseFloat(row[idx[3]])
		errs = append(errs, perr)
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("%w: utility line %d: %v", model.ErrDataShape, i+2, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// Paths locates the three input files.
type Paths struct {
	Stations string
	Travel   string
	Utility  string
}

// Tables bundles the parsed inputs.
type Tables struct {
	Stations []model.Station
	Travel   model.TravelTimes
	Utility  []model.UtilityRow
}

// LoadFiles opens and parses the three input files.
func LoadFiles(p Paths, cols Columns) (*Tables, error) {
	var out Tables
	if err := withFile(p.Stations, func(r io.Reader) (err error) {
		out.Stations, err = ReadStations(r, cols)
		return err
	}); err != nil {
		return nil, err
	}
	if err := withFile(p.Travel, func(r io.Reader) (err error) {
		out.Travel, err = ReadTravelTimes(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := withFile(p.Utility, func(r io.Reader) (err error) {
		out.Utility, err = ReadUtility(r, cols)
		return err
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func withFile(path string, fn func(io.Reader) error) error {
	if path == "" {
		return fmt.Errorf("%w: input path not configured", model.ErrConfiguration)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
