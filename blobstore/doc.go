// Package blobstore abstracts where a dataset's files live.
//
// A dataset is five immutable blobs: two vector buffers and three tables.
// Tables are streamed straight from the store; vector buffers must be
// memory-mapped, so Fetch materializes them on local disk first.
//
// # Built-in Implementations
//
//   - LocalStore: a local directory (mmap-backed, no copies)
//   - MemoryStore: in-memory blobs for tests
//   - s3.Store: Amazon S3, downloads with the transfer manager
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
