// Package subscription hands values from a producer goroutine to a consumer channel
// until either side stops.
package subscription

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

// ErrBufferSize is how many errors a producer may report before the consumer reads them.
var ErrBufferSize = 8

// Subscription is the producer side. Send returns once the consumer has received the value,
// so values sent before Unsubscribe are never dropped.
type Subscription[T any] struct {
	out  chan<- T
	errs chan error

	stopOnce sync.Once
	done     chan struct{}
}

func NewSubscription[T any](out chan<- T) *Subscription[T] {
	return &Subscription[T]{
		out:  out,
		errs: make(chan error, ErrBufferSize),
		done: make(chan struct{}),
	}
}

// Send delivers a value to the consumer.
func (s *Subscription[T]) Send(ctx context.Context, value T) error {
	if s.IsClosed() {
		return errors.Wrap(errs.Closed, "subscription is closed")
	}
	select {
	case s.out <- value:
		return nil
	case <-s.done:
		return errors.Wrap(errs.Closed, "subscription is closed")
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// SendError reports a producer failure to the consumer.
func (s *Subscription[T]) SendError(ctx context.Context, err error) error {
	if s.IsClosed() {
		return errors.Wrap(errs.Closed, "subscription is closed")
	}
	select {
	case s.errs <- err:
		return nil
	case <-s.done:
		return errors.Wrap(errs.Closed, "subscription is closed")
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// Unsubscribe closes the subscription. It is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) Err() <-chan error {
	return s.errs
}

func (s *Subscription[T]) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Client returns the consumer side of the subscription.
func (s *Subscription[T]) Client() *ClientSubscription[T] {
	return &ClientSubscription[T]{s: s}
}

// ClientSubscription is the consumer side. It can stop the producer but not send.
type ClientSubscription[T any] struct {
	s *Subscription[T]
}

func (c *ClientSubscription[T]) Unsubscribe() {
	c.s.Unsubscribe()
}

func (c *ClientSubscription[T]) Done() <-chan struct{} {
	return c.s.Done()
}

func (c *ClientSubscription[T]) Err() <-chan error {
	return c.s.Err()
}

// PendingErr returns an error reported before the subscription closed, if any.
func (c *ClientSubscription[T]) PendingErr() error {
	select {
	case err := <-c.s.errs:
		return err
	default:
		return nil
	}
}

func (c *ClientSubscription[T]) IsClosed() bool {
	return c.s.IsClosed()
}
