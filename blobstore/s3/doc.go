// Package s3 implements blobstore.BlobStore for AWS S3 via aws-sdk-go-v2.
package s3
