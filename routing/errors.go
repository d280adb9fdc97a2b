package routing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrMalformedInput    = errors.New("malformed input")

	// Only returned by ShortestPath; FindPath reports both as an empty path.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrNoPath          = errors.New("no path")
)

// CoordinateError reports an out-of-range node coordinate met during load.
type CoordinateError struct {
	NodeID int64
	Lat    float64
	Lon    float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("node %d: %v: lat=%f lon=%f", e.NodeID, ErrInvalidCoordinate, e.Lat, e.Lon)
}

func (e *CoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

func malformed(index int, format string, args ...interface{}) error {
	return fmt.Errorf("element %d: %w: %s", index, ErrMalformedInput, fmt.Sprintf(format, args...))
}
