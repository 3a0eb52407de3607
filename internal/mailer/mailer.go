// Package mailer delivers transactional email for account flows. The
// production sender talks to the Resend HTTP API; tests and local
// development use the log sender.
package mailer

import (
	"context"
	"fmt"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends transactional email and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// DeliveryErrorKind classifies a failed send at the transport boundary so
// callers can decide what to log and whether the failure is retryable.
type DeliveryErrorKind string

const (
	KindNetwork     DeliveryErrorKind = "network"
	KindAuth        DeliveryErrorKind = "auth"
	KindSender      DeliveryErrorKind = "sender"
	KindConfig      DeliveryErrorKind = "config"
	KindRateLimited DeliveryErrorKind = "rate_limited"
	KindUnknown     DeliveryErrorKind = "unknown"
)

// DeliveryError wraps a send failure with its classification.
type DeliveryError struct {
	Kind DeliveryErrorKind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
