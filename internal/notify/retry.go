package notify

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// DefaultRetries is the number of extra attempts Retry makes.
const DefaultRetries = 3

// Retry redelivers through next with exponential backoff until it succeeds,
// the retries are used up or ctx is done.
type Retry struct {
	next       Notifier
	retries    uint64
	log        *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewRetry wraps next. retries is the number of attempts after the first.
func NewRetry(next Notifier, retries uint64, log *zap.Logger) *Retry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retry{
		next:    next,
		retries: retries,
		log:     log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

func (r *Retry) Name() string {
	return r.next.Name()
}

func (r *Retry) Notify(ctx context.Context, n model.Notification) error {
	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.retries), ctx)
	return backoff.RetryNotify(
		func() error { return r.next.Notify(ctx, n) },
		b,
		func(err error, wait time.Duration) {
			r.log.Debug("Retrying notification",
				zap.String("notifier", r.next.Name()),
				zap.Int("pid", n.PID),
				zap.Duration("wait", wait),
				zap.Error(err))
		},
	)
}

// Close closes the wrapped notifier if it holds a connection.
func (r *Retry) Close() error {
	if c, ok := r.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
