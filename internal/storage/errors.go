package storage

import "errors"

// ErrNoBucket indicates an upload was configured without a bucket name.
var ErrNoBucket = errors.New("no S3 bucket configured")

// ErrUploadFailed indicates the object store rejected an upload.
var ErrUploadFailed = errors.New("upload failed")
