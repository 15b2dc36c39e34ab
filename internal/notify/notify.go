// Package notify delivers alert notifications to the user and to other
// systems.
package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/pranshuparmar/procalert/pkg/model"
)

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks github.com/pranshuparmar/procalert/internal/notify Notifier

// Notifier delivers a single notification.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n model.Notification) error
}

// Multi fans a notification out to every notifier it holds. A failing
// notifier does not stop delivery to the others.
type Multi struct {
	notifiers []Notifier
	closers   []io.Closer
}

// NewMulti returns a fan-out over notifiers.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		m.Add(n)
	}
	return m
}

// Add registers n. If n holds a connection it is closed by Close.
func (m *Multi) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
	if c, ok := n.(io.Closer); ok {
		m.closers = append(m.closers, c)
	}
}

// Len returns the number of registered notifiers.
func (m *Multi) Len() int {
	return len(m.notifiers)
}

func (m *Multi) Name() string {
	return "multi"
}

func (m *Multi) Notify(ctx context.Context, n model.Notification) error {
	var errs *multierror.Error
	for _, target := range m.notifiers {
		if err := target.Notify(ctx, n); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", target.Name(), err))
		}
	}
	return errs.ErrorOrNil()
}

// Close releases every connection held by the registered notifiers.
func (m *Multi) Close() error {
	var errs *multierror.Error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
