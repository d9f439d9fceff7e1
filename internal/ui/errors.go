package ui

import "errors"

// ErrInterrupted is returned when the user cancels a spinner with ctrl+c.
var ErrInterrupted = errors.New("interrupted")
