package pregel

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel is returned when a write or read names a channel
	// that is not part of the set
	ErrUnknownChannel = errors.New("unknown channel")
)

// ChannelError represents a failure while operating on a single channel
type ChannelError struct {
	// Op is the operation that failed
	Op string
	// Channel is the name of the channel involved
	Channel string
	// Err is the underlying error
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s: channel '%s': %v", e.Op, e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewChannelError creates a new ChannelError
func NewChannelError(op, channel string, err error) error {
	return &ChannelError{
		Op:      op,
		Channel: channel,
		Err:     err,
	}
}
