package oracle

import "errors"

var (
	// ErrTimeout indicates the assessment exceeded the configured deadline.
	ErrTimeout = errors.New("oracle: request timed out")

	// ErrUnavailable indicates the endpoint could not be reached or
	// answered with a non-success status.
	ErrUnavailable = errors.New("oracle: endpoint unavailable")

	// ErrBadReply indicates the endpoint answered but the reply could not
	// be parsed into a known classification.
	ErrBadReply = errors.New("oracle: unrecognised reply")
)
