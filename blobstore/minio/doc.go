// Package minio implements blobstore.BlobStore for MinIO and other
// S3-compatible object storage via github.com/minio/minio-go.
package minio
