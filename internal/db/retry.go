package db

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryableError decides whether a failed operation may be attempted again.
type IsRetryableError func(err error) bool

const DefaultMaxRetries = 3

// Try executes an operation, retrying transient network and timeout errors.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsTransientError)
}

// TryInsert retries an insert like Try. A retried insert that hits a duplicate on _id means
// an earlier attempt committed before its reply was lost, so it counts as success.
func TryInsert(op Operation) error {
	attempts := 0
	err := Try(func() error {
		attempts++
		return op()
	})
	if err != nil && attempts > 1 && IsDuplicateIDError(err) {
		return nil
	}
	return err
}

// WithRetries executes op up to maxRetries+1 times while isRetryable accepts the error.
func WithRetries(op Operation, maxRetries int, isRetryable IsRetryableError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !isRetryable(err) {
			break
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond) // incremental backoff
	}
	return err
}

// IsTransientError reports network errors and timeouts, which are safe to retry for single-document writes.
func IsTransientError(err error) bool {
	if err == nil || IsMongoDuplicateKeyError(err) {
		return false
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, writeError := range bwe.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

// IsDuplicateIDError reports a duplicate key error raised by the _id index rather than a secondary unique index.
func IsDuplicateIDError(err error) bool {
	var e mongo.WriteException
	if !errors.As(err, &e) {
		return false
	}
	for _, we := range e.WriteErrors {
		if we.Code == 11000 && strings.Contains(we.Message, "index: _id_ ") {
			return true
		}
	}
	return false
}
