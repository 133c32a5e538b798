package cloudwriter

// CloudWriter buffers run artifacts and ships them to object storage on
// Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

// CloudWriterFactory opens writers for a bucket/object pair.
type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}
