package mqtt

import "errors"

// Errors returned by Client; match with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
	ErrInvalidQoS       = errors.New("mqtt: qos must be 0, 1, or 2")
	ErrInvalidTopic     = errors.New("mqtt: empty topic")
)
