package xray

import "errors"

var (
	ErrConfigNotFound        = errors.New("xray: config file not found")
	ErrPermissionDenied      = errors.New("xray: no permission to read config")
	ErrNoManagedInbound      = errors.New("xray: managed inbound not found")
	ErrValidationRejected    = errors.New("xray: config rejected by validation")
	ErrWriteFailed           = errors.New("xray: config write failed")
	ErrControlFailed         = errors.New("xray: service control failed")
	ErrRuntimeAPIUnavailable = errors.New("xray: runtime api unavailable")
)
