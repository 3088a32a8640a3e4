// Package fetcher downloads release archives into the local cache.
//
// Fetch never returns an error: a failed download is logged and reported as
// false so that an archive cached by an earlier run can still be installed
// while the network is unavailable. Archives are written through go-update,
// which verifies the optional checksum before swapping the file into place.
package fetcher
