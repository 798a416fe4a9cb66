// Package db provides the embedded starter catalog used by the seed tool.
package db

import _ "embed"

// SeedBooks is a JSON array of books in the seed file format.
//
//go:embed seed/books.json
var SeedBooks []byte
