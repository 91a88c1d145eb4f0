package records

import (
	"fmt"

	"github.com/kilianp07/rebalance/core/factory"
	core "github.com/kilianp07/rebalance/core/records"
)

// init registers the built-in record stores.
func init() {
	_ = core.RegisterStore("memory", func(map[string]any) (core.Store, error) {
		return &core.MemoryStore{}, nil
	})

	_ = core.RegisterStore("csv", func(conf map[string]any) (core.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "solution.csv"
		}
		return NewCSVStore(c.Path)
	})

	_ = core.RegisterStore("jsonl", func(conf map[string]any) (core.Store, error) {
		var c JSONLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("jsonl store: path is required")
		}
		return NewJSONLStore(c)
	})

	_ = core.RegisterStore("sqlite", func(conf map[string]any) (core.Store, error) {
		var c struct {
			DSN string `json:"dsn"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("sqlite store: dsn is required")
		}
		return NewSQLiteStore(c.DSN)
	})
}
