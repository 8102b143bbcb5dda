// Package prog provides core primitives for model-based prognostics.
//
// The package defines the fundamental interfaces and types for simulating
// degrading systems toward failure events:
//
//   - [State], [Input], [Output]: keyed value vectors
//   - [Model]: a system with state transition, output, and event-state equations
//   - [Loader]: future-loading callback producing inputs as a function of time
//   - [Integrator]: numerical integrator for continuous models
//   - [Noise]: process and measurement noise generators
//
// Event states are normalized indicators in [0, 1] of progress toward an
// event, where 1 is healthy and 0 means the event has occurred. A model's
// threshold for an event is met when its event state reaches zero, unless
// the model overrides that by implementing [Thresholder].
//
// # Thread Safety
//
// Models and integrators are NOT safe for concurrent use. Parallel
// prediction creates one instance per goroutine.
package prog
