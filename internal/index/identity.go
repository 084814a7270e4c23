// Package index persists enrichment results as searchable documents with a
// vector field and answers nearest-neighbour queries over them. The concrete
// store is Qdrant; the interfaces keep the pipeline and HTTP layers free of
// the backend choice.
package index

import "github.com/google/uuid"

// documentNamespace seeds the name-based document IDs. It is the standard
// DNS namespace UUID; changing it would re-key every existing document, so
// it is fixed forever.
var documentNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DocumentID derives the document key for a logical resource name.
//
// It is a pure function: a version-5 (SHA-1, name-based) UUID over a fixed
// namespace, so the same name always yields the same key across processes
// and over time, with no counter or lookup involved. Re-processing a
// resource therefore overwrites its document instead of duplicating it.
func DocumentID(name string) string {
	return uuid.NewSHA1(documentNamespace, []byte(name)).String()
}
