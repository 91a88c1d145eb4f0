// Package params turns the raw station, travel-time and marginal-utility
// tables into the index sets and parameter maps consumed by the model
// builder.
//
// Derivation is strict: the first invalid precondition aborts with an error
// wrapping model.ErrConfiguration or model.ErrDataShape so that no solver
// time is spent on an ill-posed model. When more station rows are supplied
// than the configured network size, Sample draws a reproducible stratified
// sub-network first.
package params
