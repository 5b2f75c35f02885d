// Package s3 provides blobstore.Store implementations backed by Amazon S3,
// optionally paired with a DynamoDB commit marker for torn-pair detection
// when an engine flush writes its two artifacts.
package s3
