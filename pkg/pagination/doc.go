// Package pagination assembles complete catalog listings from limit/offset pages.
//
// The catalog caps a single listing request at 1000 entries while the
// creature domain is slightly larger, so a full snapshot needs more than one
// page. The fetcher requests offset 0 first, reads the reported total count,
// then fetches the remaining offsets with bounded concurrency and concatenates
// them in offset order.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(client, pagination.DefaultConfig(), logger)
//	entries, err := fetcher.FetchAll(ctx)
//
// A failure on any page fails the whole load; partial snapshots are never
// returned because callers cache them as the corpus.
package pagination
