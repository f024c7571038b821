// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/batchrouter/router"
)

// CodecVersion is the wire version of the request encoding.
const CodecVersion = byte(1)

var (
	ErrInvalidVersion   = errors.New("unsupported payload codec version")
	ErrTruncated        = errors.New("truncated payload")
	ErrTrailingBytes    = errors.New("trailing bytes after payload")
	ErrOversizedRequest = errors.New("request field exceeds encoding width")
)

// Wire layout (big endian):
//
//	version          1 byte
//	refund address   20 bytes
//	partner id       32 bytes
//	asset count      2 bytes, then per asset: address(20) + amount(32)
//	fee count        2 bytes, isPercentage(1), then per fee:
//	                   appID(32) + rate(32) + asset(20) + amount(32)
//	step count       2 bytes, then per step:
//	                   target(20) + asset(20) + value(32) + mode(1) +
//	                   payload length(4) + payload

// EncodeRequest serializes [req] and [refundAddress] into the gateway wire
// format. The result is what the relayer frames and delivers.
func EncodeRequest(req *router.BatchRequest, refundAddress common.Address) ([]byte, error) {
	if req == nil {
		return nil, router.ErrNilRequest
	}
	if len(req.Assets) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d assets", ErrOversizedRequest, len(req.Assets))
	}
	if len(req.Fees.AppIDs) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d fees", ErrOversizedRequest, len(req.Fees.AppIDs))
	}
	if len(req.Steps) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d steps", ErrOversizedRequest, len(req.Steps))
	}

	out := make([]byte, 0, 256)
	out = append(out, CodecVersion)
	out = append(out, refundAddress[:]...)
	out = append(out, req.PartnerID[:]...)

	out = binary.BigEndian.AppendUint16(out, uint16(len(req.Assets)))
	for i, asset := range req.Assets {
		out = append(out, asset[:]...)
		word, err := amountWord(req.Amounts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, word[:]...)
	}

	f := &req.Fees
	out = binary.BigEndian.AppendUint16(out, uint16(len(f.AppIDs)))
	if f.IsPercentage {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	for i := range f.AppIDs {
		out = append(out, f.AppIDs[i][:]...)
		rate, err := amountWord(f.Rates[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rate[:]...)
		out = append(out, f.Assets[i][:]...)
		amount, err := amountWord(f.Amounts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, amount[:]...)
	}

	out = binary.BigEndian.AppendUint16(out, uint16(len(req.Steps)))
	for i := range req.Steps {
		step := &req.Steps[i]
		if uint64(len(step.Payload)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: step %d payload of %d bytes", ErrOversizedRequest, i, len(step.Payload))
		}
		out = append(out, step.Target[:]...)
		out = append(out, step.Asset[:]...)
		value, err := amountWord(step.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, value[:]...)
		out = append(out, byte(step.Mode))
		out = binary.BigEndian.AppendUint32(out, uint32(len(step.Payload)))
		out = append(out, step.Payload...)
	}

	return out, nil
}

// DecodeRequest parses the gateway wire format. When decoding fails after
// the refund address was read, the address is still returned so the caller
// can refund the credited asset to it.
func DecodeRequest(data []byte) (*router.BatchRequest, common.Address, error) {
	r := &payloadReader{buf: data}

	version, err := r.readByte()
	if err != nil {
		return nil, common.Address{}, err
	}
	if version != CodecVersion {
		return nil, common.Address{}, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}

	refund, err := r.readAddress()
	if err != nil {
		return nil, common.Address{}, err
	}

	req := &router.BatchRequest{}
	if err := r.readHash(&req.PartnerID); err != nil {
		return nil, refund, err
	}

	assetCount, err := r.readUint16()
	if err != nil {
		return nil, refund, err
	}
	req.Assets = make([]common.Address, assetCount)
	req.Amounts = make([]*big.Int, assetCount)
	for i := 0; i < int(assetCount); i++ {
		if req.Assets[i], err = r.readAddress(); err != nil {
			return nil, refund, err
		}
		if req.Amounts[i], err = r.readAmount(); err != nil {
			return nil, refund, err
		}
	}

	feeCount, err := r.readUint16()
	if err != nil {
		return nil, refund, err
	}
	pct, err := r.readByte()
	if err != nil {
		return nil, refund, err
	}
	req.Fees.IsPercentage = pct != 0
	req.Fees.AppIDs = make([][32]byte, feeCount)
	req.Fees.Rates = make([]*big.Int, feeCount)
	req.Fees.Assets = make([]common.Address, feeCount)
	req.Fees.Amounts = make([]*big.Int, feeCount)
	for i := 0; i < int(feeCount); i++ {
		if err = r.readHash(&req.Fees.AppIDs[i]); err != nil {
			return nil, refund, err
		}
		if req.Fees.Rates[i], err = r.readAmount(); err != nil {
			return nil, refund, err
		}
		if req.Fees.Assets[i], err = r.readAddress(); err != nil {
			return nil, refund, err
		}
		if req.Fees.Amounts[i], err = r.readAmount(); err != nil {
			return nil, refund, err
		}
	}

	stepCount, err := r.readUint16()
	if err != nil {
		return nil, refund, err
	}
	req.Steps = make([]router.Step, stepCount)
	for i := 0; i < int(stepCount); i++ {
		step := &req.Steps[i]
		if step.Target, err = r.readAddress(); err != nil {
			return nil, refund, err
		}
		if step.Asset, err = r.readAddress(); err != nil {
			return nil, refund, err
		}
		if step.Value, err = r.readAmount(); err != nil {
			return nil, refund, err
		}
		mode, err := r.readByte()
		if err != nil {
			return nil, refund, err
		}
		step.Mode = router.CallMode(mode)
		payloadLen, err := r.readUint32()
		if err != nil {
			return nil, refund, err
		}
		if step.Payload, err = r.readBytes(int(payloadLen)); err != nil {
			return nil, refund, err
		}
	}

	if r.off != len(r.buf) {
		return nil, refund, ErrTrailingBytes
	}
	return req, refund, nil
}

// amountWord encodes a non-nil amount as a 32-byte big-endian word.
func amountWord(amount *big.Int) ([32]byte, error) {
	if amount == nil {
		amount = common.Big0
	}
	word, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 {
		return [32]byte{}, router.ErrAmountOverflow
	}
	return word.Bytes32(), nil
}

type payloadReader struct {
	buf []byte
	off int
}

func (r *payloadReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, ErrTruncated
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *payloadReader) readByte() (byte, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *payloadReader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *payloadReader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *payloadReader) readAddress() (common.Address, error) {
	b, err := r.readBytes(common.AddressLength)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func (r *payloadReader) readHash(dst *[32]byte) error {
	b, err := r.readBytes(32)
	if err != nil {
		return err
	}
	copy(dst[:], b)
	return nil
}

func (r *payloadReader) readAmount() (*big.Int, error) {
	b, err := r.readBytes(32)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
