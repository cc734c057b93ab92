// Package s3 serves dataset blobs from Amazon S3.
//
// Tables are streamed with ranged GetObject calls; vector buffers are
// downloaded in parallel parts by the transfer manager before being mapped.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "freebase/")
package s3
