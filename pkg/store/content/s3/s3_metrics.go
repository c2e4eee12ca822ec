// Package s3 implements S3-based content storage.
//
// This file contains the metrics hook for observability of S3 operations.
package s3

import "time"

// S3Metrics provides observability for S3 operations.
//
// This is optional. A nil S3Metrics in the store config selects a no-op
// implementation.
type S3Metrics interface {
	// ObserveOperation records an S3 call with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes uploaded ("write") or downloaded ("read")
	RecordBytes(operation string, bytes int64)
}

// noopMetrics is the default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(operation string, bytes int64)                            {}
