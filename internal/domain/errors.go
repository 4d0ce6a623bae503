package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSubscribeFailed = errors.New("subscription failed")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrOrderRejected   = errors.New("order rejected")
)
