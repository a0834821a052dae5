package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPosition  = errors.New("position out of bounds")
	ErrUnknownOccupant  = errors.New("unknown occupant kind")
	ErrMalformedZone    = errors.New("malformed zone status")
	ErrBadDimensions    = errors.New("bad grid dimensions")
	ErrInvalidAction    = errors.New("invalid action")
	ErrInvalidDirection = errors.New("invalid direction")
)

// ContractError reports input that violates the data contract with the game
// server. Tick is the snapshot tick the violation was found in.
type ContractError struct {
	Tick   int
	Pos    *Position
	Detail string
	Err    error
}

func (e *ContractError) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("contract violation at tick %d %s: %s: %v", e.Tick, e.Pos, e.Detail, e.Err)
	}
	return fmt.Sprintf("contract violation at tick %d: %s: %v", e.Tick, e.Detail, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// NewContractError wraps err as a contract violation
func NewContractError(tick int, pos *Position, detail string, err error) *ContractError {
	return &ContractError{Tick: tick, Pos: pos, Detail: detail, Err: err}
}

// IsContractError reports whether err is, or wraps, a contract violation
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
