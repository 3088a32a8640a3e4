// Package extractor unpacks cached release archives into a working directory.
//
// Zip and gzip-compressed tar archives are supported. Leading path components
// can be stripped, entries that would land outside the destination are
// rejected, and file modes and symbolic links are preserved.
package extractor
