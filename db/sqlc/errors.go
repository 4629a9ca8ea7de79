package db

import (
	"errors"

	"github.com/lib/pq"
)

const (
	DuplicateEntry       pq.ErrorCode = "23505"
	EntryTooLong         pq.ErrorCode = "22001"
	SerializationFailure pq.ErrorCode = "40001"
	DeadlockDetected     pq.ErrorCode = "40P01"
	LockNotAvailable     pq.ErrorCode = "55P03"
)

// IsRetryable reports postgres failures that usually succeed on a second
// attempt with a fresh transaction.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case SerializationFailure, DeadlockDetected, LockNotAvailable:
		return true
	}
	return false
}

// ShouldRetry passes every non-postgres failure and only the transient
// postgres ones.
func ShouldRetry(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return true
	}
	return IsRetryable(err)
}

func IsDuplicateEntry(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == DuplicateEntry
}
