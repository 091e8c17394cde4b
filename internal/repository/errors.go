package repository

import "errors"

var (
	// ErrFetchTimeout means the readiness marker did not appear in time.
	ErrFetchTimeout = errors.New("timed out waiting for page content")
	// ErrNavigationFailed means the page could not be loaded at all.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrNotFound is returned by point lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrQueueEmpty is returned by Pop on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")
)
