package repository

import "context"

// QueueRepository defines a FIFO queue of newly discovered URLs awaiting attribute extraction.
type QueueRepository interface {
	// Push adds URLs to the end of the queue.
	Push(ctx context.Context, urls ...string) error
	// Pop removes and returns a URL from the front of the queue.
	// It returns ErrQueueEmpty when nothing is pending.
	Pop(ctx context.Context) (string, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
