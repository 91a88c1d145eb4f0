package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rebalance/core/model"
)

const stationsCSV = `name,CurrentInventory,Optimal Inventory,lat,lon
a,10,4,48.85,2.35
b,2.0,8,48.86,2.36
c,5,5,48.87,2.37
`

const travelCSV = `,1,2,3
1,0,4.5,3
2,4.5,0,2
3,3,2,0
`

const utilityCSV = `from_surplus,to_deficit,transfers,Delta UDF
1,2,1,5
1,2,2,3.5
`

func TestReadStations(t *testing.T) {
	st, err := ReadStations(strings.NewReader(stationsCSV), Columns{})
	require.NoError(t, err)
	require.Len(t, st, 3)
	assert.Equal(t, model.Station{SourceID: 1, Current: 10, Target: 4, Lat: 48.85, Lon: 2.35}, st[0])
	assert.Equal(t, 2, st[1].Current)
	assert.Equal(t, 3, st[2].SourceID)
}

func TestReadStations_CustomColumns(t *testing.T) {
	in := "s0,sstar\n3,1\n"
	st, err := ReadStations(strings.NewReader(in), Columns{Current: "s0", Target: "sstar"})
	require.NoError(t, err)
	assert.Equal(t, []model.Station{{SourceID: 1, Current: 3, Target: 1}}, st)
}

func TestReadStations_Errors(t *testing.T) {
	cases := map[string]string{
		"missing column": "CurrentInventory\n1\n",
		"fractional":     "CurrentInventory,Optimal Inventory\n1.5,2\n",
		"negative":       "CurrentInventory,Optimal Inventory\n-1,2\n",
		"ragged":         "CurrentInventory,Optimal Inventory\n1\n",
		"empty":          "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadStations(strings.NewReader(in), Columns{})
			assert.True(t, errors.Is(err, model.ErrDataShape), "got %v", err)
		})
	}
}

func TestReadTravelTimes(t *testing.T) {
	tt, err := ReadTravelTimes(strings.NewReader(travelCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, tt.Size())
	assert.Equal(t, 4.5, tt.At(1, 2))
	assert.Equal(t, 2.0, tt.At(3, 2))
}

func TestReadTravelTimes_Errors(t *testing.T) {
	cases := map[string]string{
		"not square": ",1,2\n1,0,1\n",
		"not number": ",1\n1,x\n",
		"negative":   ",1\n1,-2\n",
		"no rows":    ",1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTravelTimes(strings.NewReader(in))
			assert.True(t, errors.Is(err, model.ErrDataShape), "got %v", err)
		})
	}
}

func TestReadUtility(t *testing.T) {
	rows, err := ReadUtility(strings.NewReader(utilityCSV), Columns{})
	require.NoError(t, err)
	assert.Equal(t, []model.UtilityRow{
		{Origin: 1, Dest: 2, Step: 1, Delta: 5},
		{Origin: 1, Dest: 2, Step: 2, Delta: 3.5},
	}, rows)

	_, err = ReadUtility(strings.NewReader("from_surplus,to_deficit,transfers,Delta UDF\n1,2,x,1\n"), Columns{})
	assert.ErrorIs(t, err, model.ErrDataShape)
	_, err = ReadUtility(strings.NewReader("from_surplus,to_deficit\n1,2\n"), Columns{})
	assert.ErrorIs(t, err, model.ErrDataShape)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}
	p := Paths{
		Stations: write("stations.csv", stationsCSV),
		Travel:   write("travel.csv", travelCSV),
		Utility:  write("utility.csv", utilityCSV),
	}
	tables, err := LoadFiles(p, Columns{})
	require.NoError(t, err)
	assert.Len(t, tables.Stations, 3)
	assert.Equal(t, 3, tables.Travel.Size())
	assert.Len(t, tables.Utility, 2)

	p.Utility = filepath.Join(dir, "missing.csv")
	_, err = LoadFiles(p, Columns{})
	assert.Error(t, err)

	p.Utility = ""
	_, err = LoadFiles(p, Columns{})
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
