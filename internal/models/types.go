package models

import (
	"time"

	"remoteops/internal/opserr"
)

type BucketInfo struct {
	BucketName     string    `json:"bucket_name"`
	Prefix         string    `json:"prefix,omitempty"`
	Region         string    `json:"region"`
	CreationDate   time.Time `json:"creation_date"`
	ObjectCount    int64     `json:"object_count"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	TotalSizeHuman string    `json:"total_size_human"`
	LastModified   time.Time `json:"last_modified"`
	APIEndpoint    string    `json:"api_endpoint,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}

// FailedItem is a single file that could not be transferred. The operation
// that produced it carried on with the next item.
type FailedItem struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Outcome is embedded in every operation result.
type Outcome struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Succeeded reports the success flag; results are checked through it by the
// command layer without knowing their concrete type.
func (o *Outcome) Succeeded() bool {
	return o.Success
}

// Fail marks the outcome as failed with err's message and kind.
func (o *Outcome) Fail(err error) {
	o.Success = false
	o.Error = err.Error()
	o.ErrorKind = opserr.KindOf(err)
}
