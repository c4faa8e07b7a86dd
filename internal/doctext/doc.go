// Package doctext holds the pure text helpers used while ingesting and
// serving documentation: path to URL conversion, reference-guide detection,
// title and description extraction, keyword matching and relevance-aware
// truncation. Nothing here touches the filesystem or the index.
package doctext
