package domain

import "errors"

// ErrNotFound reports that a stored table object does not exist. Adapters
// translate their backend-specific not-found errors into this sentinel so
// the usecase can treat a missing historical file as an empty set.
var ErrNotFound = errors.New("domain: object not found")

// PageCursor is an opaque pagination token handed back by a RecordSource.
// A nil cursor on the first call starts from the beginning; a nil cursor
// in a response means the source is exhausted.
type PageCursor any

// RawRecord is one conversation record as fetched from the store, before
// normalization. The store is schema-loose, so the typed fields are kept
// to the minimum the pipeline needs and everything polymorphic stays `any`.
type RawRecord struct {
	PK string
	SK string

	// CreateTime is a millisecond epoch timestamp. The store may hand it
	// back as int64, float64 or a numeric string; nil when absent.
	CreateTime any

	// MessageMap is the embedded conversation document: either its raw
	// JSON text (string) or an already-structured value whose numeric
	// leaves have been converted to native types.
	MessageMap any

	// TotalPrice is the precomputed price stored with the record, used
	// only when the message map yields no tokens. Zero when absent.
	TotalPrice float64
}
