package model

import (
	"github.com/pkg/errors"
)

var (
	// ValidationError is the cause of all configuration validation failures.
	ValidationError = errors.New("validation failed")
	maskAny         = errors.WithStack
)
