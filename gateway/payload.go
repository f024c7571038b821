// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
)

var (
	ErrInvalidAllZeroBytes = errors.New("payload specified invalid all zero bytes")
	ErrInvalidPadding      = errors.New("payload specified invalid padding")
	ErrInvalidEndDelimiter = errors.New("payload invalid end delimiter byte")
)

// EndByte is the delimiter byte used to signal the end of the framed payload.
const EndByte = byte(0xff)

// UnframePayload unpacks a relayer-framed payload by stripping right-padded
// zeros and the end delimiter.
func UnframePayload(padded []byte) ([]byte, error) {
	trimmed := common.TrimRightZeroes(padded)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: 0x%x", ErrInvalidAllZeroBytes, padded)
	}

	if expected := (len(trimmed) + 31) / 32 * 32; expected != len(padded) {
		return nil, fmt.Errorf("%w: got length (%d), expected length (%d)", ErrInvalidPadding, len(padded), expected)
	}

	if trimmed[len(trimmed)-1] != EndByte {
		return nil, ErrInvalidEndDelimiter
	}

	return trimmed[:len(trimmed)-1], nil
}

// FramePayload packs a payload for relayer delivery by appending the end
// delimiter and padding to a 32-byte boundary.
func FramePayload(payload []byte) []byte {
	withDelimiter := append(payload, EndByte)
	paddedLength := (len(withDelimiter) + 31) / 32 * 32
	padded := make([]byte, paddedLength)
	copy(padded, withDelimiter)
	return padded
}
