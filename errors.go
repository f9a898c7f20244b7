package am2301

import (
	"errors"
	"fmt"
)

// The three ways a measurement can fail. Everything the acquisition and
// decode layers produce is mapped onto one of these before it reaches
// the caller, so errors.Is is enough to tell them apart.
var (
	// ErrTimeout means the sensor did not produce an edge within the
	// bound. Usually the sensor is absent, disconnected or still in its
	// power-up warm up period.
	ErrTimeout = errors.New("am2301: timed out waiting for sensor edge")

	// ErrChecksum means a full frame was received but its checksum does
	// not match its content.
	ErrChecksum = errors.New("am2301: checksum mismatch")

	// ErrInvalidFrame means the frame could not be decoded structurally.
	// Acquisition always hands the decoder exactly 40 bits so this is
	// defensive and should not occur in practice.
	ErrInvalidFrame = errors.New("am2301: invalid frame")
)

// ChecksumError carries the computed and received checksum bytes.
// It matches ErrChecksum under errors.Is.
type ChecksumError struct {
	Want uint8 // wrapping sum of the four data fields
	Got  uint8 // checksum field as received
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("am2301: checksum mismatch: computed [0x%02X] received [0x%02X]", e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksum
}
