package util

const DateFormat = "2006-01-02"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const ContextUserKey = "user"

const (
	MimeHTML = "text/html; charset=utf-8"
)
