// Package minio serves dataset blobs from MinIO or any S3-compatible service.
package minio
