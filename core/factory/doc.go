// Package factory instantiates pluggable modules (record stores, metric
// sinks) from configuration. A module is selected by a type string and
// configured by a raw settings map decoded into the module's own struct.
//
//	reg := factory.NewRegistry[records.Store]("csv")
//	reg.MustRegister("csv", func(conf map[string]any) (records.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return openCSV(c.Path)
//	})
//	store, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": "out.csv"}})
package factory
