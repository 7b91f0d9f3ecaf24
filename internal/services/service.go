package services

import (
	"context"
	"time"
)

const defaultPageSize = 10

// Notifier delivers a text message out of band. Implementations must not block the
// caller on delivery and must not report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Option customises a service.
type Option func(*options)

type options struct {
	now      func() time.Time
	pageSize int
}

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPageSize sets the number of records per listing page.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:      func() time.Time { return time.Now().UTC() },
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
