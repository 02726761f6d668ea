// Package mediacache stores downloaded media files in a flat directory keyed by
// file name. A file that exists is never fetched again.
//
// Writes go to a hidden temp file that is renamed into place, so a failed
// download leaves nothing behind and the next run retries it. An advisory
// flock on the cache directory serializes check-and-write across processes
// that share the same cache.
package mediacache
