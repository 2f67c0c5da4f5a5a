// Package simpleentity provides CRUD helpers for content entities:
// nodes with bundle-defined field schemas, taxonomy vocabularies and
// terms, paragraph child records, and field definitions together with
// their form-display configuration.
//
// It exposes a single Service interface. Persistence is delegated to a
// Repository (memory, Postgres and SQLite implementations live under
// repo/), and configuration documents such as form displays are kept in
// a BlobStore (memory, filesystem and S3 implementations live under
// storage/).
//
// # Terms
//
// ResolveTerm has find-or-create semantics: it returns the id of the
// first term matching (vocabulary, name) and creates one only when none
// exists. CreateTerm instead fails with ErrTermExists.
//
// # Bulk node updates
//
// UpdateNodes applies a field map to many nodes. Each field is applied
// through the FieldUpdater registered for its declared type; empty
// values leave the field unchanged. Paragraph reference fields delete
// the paragraphs they currently point to before taking the new value.
// A node that fails to save is reported and skipped.
package simpleentity
