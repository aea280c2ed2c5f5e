// Package ingest turns the sheets of a TMS export into the normalized
// dataset. Each expected sheet parses in isolation: a missing or broken
// sheet omits its own entity and is recorded in the Report, while the
// remaining sheets are unaffected. Only a container that cannot be opened
// at all fails the whole file, with ErrIngestion.
package ingest
