package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
)

var (
	ErrCommunityNotFound = errors.New("community not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("checkout session not found")
)

// isNetworkError reports failures of the transport to the store rather than
// of the statement itself.
func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
