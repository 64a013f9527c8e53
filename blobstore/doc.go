// Package blobstore abstracts the byte-level storage used by the blob-backed
// persistence gateway. Each cached topic maps to one small, framed record
// blob; the store only needs whole-blob get/put/delete/list semantics.
//
// Implementations: MemoryStore (tests, embedded), LocalStore (filesystem with
// atomic writes), and the minio and s3 subpackages for object storage.
package blobstore
