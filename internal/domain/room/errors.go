package room

import "errors"

var (
	// ErrUnknownRoom means a room id does not resolve against the loaded
	// graph. This is a deployment/configuration bug, not a user error.
	ErrUnknownRoom  = errors.New("room not found in graph configuration")
	ErrInvalidGraph = errors.New("invalid room graph configuration")
)
