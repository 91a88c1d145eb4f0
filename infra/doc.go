// Package infra contains technical adapters: the MILP engine, input
// readers, record stores, metric sinks, the MQTT publisher and error
// monitoring. These packages depend only on the interfaces defined in the
// core packages.
package infra
