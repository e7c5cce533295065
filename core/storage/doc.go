// Package storage reads supplier feed files from S3-compatible object storage.
//
// The Client interface is the subset of the MinIO client the ingest feature
// needs; core/storage/mocks provides a testify mock of it.
//
//	client, err := storage.NewClient(cfg.Storage)
//	for obj := range client.ListObjects(ctx, cfg.Storage.Bucket, minio.ListObjectsOptions{Prefix: "incoming/", Recursive: true}) {
//	    ...
//	}
package storage
