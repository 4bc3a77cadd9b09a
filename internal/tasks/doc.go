// package tasks implements the MustApp fetch pipeline.
//
// The core abstraction is FetchEngine, which resolves a profile, fetches every list in rate-limited sequential
// batches, backfills show reviews and assembles a [models.Snapshot].
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks
