package service

import "errors"

var (
	ErrNothingSelected    = errors.New("nothing selected")
	ErrEmptyInstruction   = errors.New("instruction is empty")
	ErrEditInFlight       = errors.New("an edit is already in flight")
	ErrUnknownQuickAction = errors.New("unknown quick action")
)
