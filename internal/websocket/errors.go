// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrTokenBlacklisted = errors.New("token has been blacklisted")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("admin role required")
)
