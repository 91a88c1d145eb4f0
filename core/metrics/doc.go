package metrics

// Package metrics defines the sinks that observe rebalancing runs. Every run
// emits one RunEvent and one StageEvent per pipeline stage. Sinks like
// PromSink and InfluxSink live in infra/metrics and can be combined with
// NewMultiSink; the factory helpers build a MultiSink automatically when
// several sinks are configured.
