package errs

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/withstack"
)

// PublicError carries a message that is safe to return to API clients.
// Anything not wrapped in a PublicError is reported as an internal error.
type PublicError struct {
	err     error
	message string
	code    string
}

func (p *PublicError) Error() string   { return p.err.Error() }
func (p *PublicError) Unwrap() error   { return p.err }
func (p *PublicError) Message() string { return p.message }

// Code is an optional machine readable identifier.
func (p *PublicError) Code() string { return p.code }

func NewPublicError(message string) error {
	return withstack.WithStackDepth(&PublicError{err: errors.New(message), message: message}, 1)
}

// WithPublicMessage exposes err to clients as "prefix: err", or err alone when prefix is empty.
func WithPublicMessage(err error, prefix string) error {
	return publicize(err, prefix, "")
}

// WithPublicMessageCode is WithPublicMessage with a machine readable code attached.
func WithPublicMessageCode(err error, prefix string, code string) error {
	return publicize(err, prefix, code)
}

// AsPublic returns the outermost PublicError in err's chain.
func AsPublic(err error) (*PublicError, bool) {
	var p *PublicError
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}

func publicize(err error, prefix, code string) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	if prefix != "" {
		message = prefix + ": " + message
	}
	return withstack.WithStackDepth(&PublicError{err: err, message: message, code: code}, 2)
}
