// Package content discovers Markdown pages and turns them into page.Page values.
//
// A [ContentLoader] produces the full set of pages in one call. Two sources exist:
//   - [StaticLoader]: walks a directory (or any fs.FS) for *.md files
//   - [S3Loader]: lists *.md objects under a bucket prefix
//
// Both derive URL paths with [PathFor] and share the same failure mode: one
// malformed document fails the whole load, there is no partial result.
package content
