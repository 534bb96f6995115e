// Package postgres provides PostgreSQL implementations of the store
// interfaces. Fenced writes (progress and stage results) are conditional on
// the job still being in the processing state, which is how cooperative
// cancellation reaches a running pipeline stage.
package postgres
