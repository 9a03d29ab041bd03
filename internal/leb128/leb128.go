// Package leb128 implements the LEB128 variable-length integer encoding
// used throughout the WebAssembly binary format: section sizes, index
// values, and immediate operands of many instructions.
package leb128

import (
	"errors"
	"io"
)

// EncodeInt32 encodes v as a signed LEB128 byte sequence.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 encodes v as a signed LEB128 byte sequence.
func EncodeInt64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// EncodeUint32 encodes v as an unsigned LEB128 byte sequence.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 encodes v as an unsigned LEB128 byte sequence.
func EncodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

var errOverflow32 = errors.New("leb128: overflows a 32-bit value")
var errOverflow33 = errors.New("leb128: overflows a 33-bit value")
var errOverflow64 = errors.New("leb128: overflows a 64-bit value")

// LoadUint32 decodes an unsigned LEB128 value from the front of buf,
// returning the value and the number of bytes consumed.
func LoadUint32(buf []byte) (result uint32, bytesRead uint64, err error) {
	const maxBytes = 5
	var shift uint32
	for i := 0; i < maxBytes && i < len(buf); i++ {
		b := buf[i]
		if i == maxBytes-1 && b&0xf0 != 0 && b&0xf0 != 0xf0 {
			return 0, 0, errOverflow32
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, errOverflow32
}

// LoadUint64 decodes an unsigned LEB128 value from the front of buf.
func LoadUint64(buf []byte) (result uint64, bytesRead uint64, err error) {
	const maxBytes = 10
	var shift uint64
	for i := 0; i < maxBytes && i < len(buf); i++ {
		b := buf[i]
		if i == maxBytes-1 && b&0xfe != 0 {
			return 0, 0, errOverflow64
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, errOverflow64
}

// LoadInt32 decodes a signed LEB128 value from the front of buf.
func LoadInt32(buf []byte) (result int32, bytesRead uint64, err error) {
	v, n, err := loadSigned(buf, 35)
	if err != nil {
		return 0, 0, errOverflow33
	}
	if n == 5 {
		// Bits 4-6 of the fifth byte lie beyond 32 bits and must repeat
		// its bit 3, the int32 sign bit.
		last := buf[4]
		if (last&0x08 == 0 && last&0x70 != 0) || (last&0x08 != 0 && last&0x70 != 0x70) {
			return 0, 0, errOverflow32
		}
	}
	return int32(v), n, nil
}

// LoadInt64 decodes a signed LEB128 value from the front of buf.
func LoadInt64(buf []byte) (result int64, bytesRead uint64, err error) {
	return loadSigned(buf, 70)
}

func loadSigned(buf []byte, maxShift uint) (int64, uint64, error) {
	var result int64
	var shift uint
	var i int
	for ; shift < maxShift && i < len(buf); i++ {
		b := buf[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, uint64(i + 1), nil
		}
	}
	return 0, 0, errOverflow64
}

// DecodeUint32 decodes an unsigned LEB128 value from r.
func DecodeUint32(r io.ByteReader) (result uint32, bytesRead uint64, err error) {
	v, n, err := DecodeUint64(r)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff {
		return 0, 0, errOverflow32
	}
	return uint32(v), n, nil
}

// DecodeUint64 decodes an unsigned LEB128 value from r.
func DecodeUint64(r io.ByteReader) (result uint64, bytesRead uint64, err error) {
	const maxBytes = 10
	var shift uint64
	for i := 0; i < maxBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		result |= uint64(b&0x7f) << shift
		bytesRead++
		if b&0x80 == 0 {
			return result, bytesRead, nil
		}
		shift += 7
	}
	return 0, 0, errOverflow64
}

// DecodeInt32 decodes a signed LEB128 value from r.
func DecodeInt32(r io.ByteReader) (result int32, bytesRead uint64, err error) {
	v, n, err := decodeSigned(r, 35)
	if err != nil {
		return 0, 0, err
	}
	return int32(v), n, nil
}

// DecodeInt64 decodes a signed LEB128 value from r.
func DecodeInt64(r io.ByteReader) (result int64, bytesRead uint64, err error) {
	return decodeSigned(r, 70)
}

// DecodeInt33AsInt64 decodes a signed 33-bit LEB128 value (the encoding
// used for block type immediates, which index either a value type or a
// function type and so need one extra sign bit over a plain i32) into
// an int64.
func DecodeInt33AsInt64(r io.ByteReader) (result int64, bytesRead uint64, err error) {
	return decodeSigned(r, 35)
}

func decodeSigned(r io.ByteReader, maxShift uint) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	for shift < maxShift {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		n++
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, n, nil
		}
	}
	return 0, 0, errOverflow64
}
