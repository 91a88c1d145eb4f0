package records

import "github.com/kilianp07/rebalance/core/factory"

var storeRegistry = factory.NewRegistry[Store]("csv")

// RegisterStore adds a record store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// NewStore creates the store described by cfg. An empty type selects csv.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	return storeRegistry.Create(cfg)
}

// StoreTypes lists the registered store types.
func StoreTypes() []string { return storeRegistry.Types() }
