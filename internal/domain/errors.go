package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrFetchFailed  = errors.New("snapshot fetch failed")
	ErrWSDisconnect = errors.New("websocket disconnected")
	ErrContextDone  = errors.New("context cancelled")
)
