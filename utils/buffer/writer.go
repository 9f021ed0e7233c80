package buffer

import (
	"encoding/binary"
	"fmt"
	"math"
)

func reserve(w Writer, size int) (err error) {
	if w.Available() < size {
		if err = w.Flush(); err != nil {
			return
		}
		if w.Available() < size {
			return fmt.Errorf("available buffer is smaller than %d bytes even after flush", size)
		}
	}
	return
}

// WriteUint8 writes a byte into w.
func WriteUint8(w Writer, c uint8) (n int64, err error) {

	if err = reserve(w, 1); err != nil {
		return 0, fmt.Errorf("cannot WriteUint8: %w", err)
	}

	buf := w.AvailableBuffer()[:1]
	buf[0] = c

	nint, err := w.Write(buf)

	return int64(nint), err
}

// WriteUint8Slice writes a slice of bytes into w.
func WriteUint8Slice(w Writer, c []uint8) (n int64, err error) {
	nint, err := w.Write(c)
	return int64(nint), err
}

// WriteUint32 writes an uint32 into w.
func WriteUint32(w Writer, c uint32) (n int64, err error) {

	if err = reserve(w, 4); err != nil {
		return 0, fmt.Errorf("cannot WriteUint32: %w", err)
	}

	buf := w.AvailableBuffer()[:4]

	binary.LittleEndian.PutUint32(buf, c)

	nint, err := w.Write(buf)

	return int64(nint), err
}

// WriteUint64 writes an uint64 into w.
func WriteUint64(w Writer, c uint64) (n int64, err error) {

	if err = reserve(w, 8); err != nil {
		return 0, fmt.Errorf("cannot WriteUint64: %w", err)
	}

	buf := w.AvailableBuffer()[:8]

	binary.LittleEndian.PutUint64(buf, c)

	nint, err := w.Write(buf)

	return int64(nint), err
}

// WriteInt writes an int into w as an uint64.
func WriteInt(w Writer, c int) (n int64, err error) {
	return WriteUint64(w, uint64(c))
}

// WriteFloat64 writes a float64 into w as its IEEE 754 binary representation.
func WriteFloat64(w Writer, c float64) (n int64, err error) {
	return WriteUint64(w, math.Float64bits(c))
}

// WriteUint64Slice writes a slice of uint64 into w.
func WriteUint64Slice(w Writer, c []uint64) (n int64, err error) {

	for len(c) > 0 {

		// Remaining available space in the internal buffer
		available := w.Available() >> 3

		if available == 0 {
			if err = w.Flush(); err != nil {
				return
			}

			if available = w.Available() >> 3; available == 0 {
				return n, fmt.Errorf("cannot WriteUint64Slice: available buffer/8 is zero even after flush")
			}
		}

		N := len(c)
		if N > available {
			N = available
		}

		buf := w.AvailableBuffer()[:N<<3]
		for i := 0; i < N; i++ {
			binary.LittleEndian.PutUint64(buf[i<<3:], c[i])
		}

		var inc int
		if inc, err = w.Write(buf); err != nil {
			return n + int64(inc), err
		}

		n += int64(inc)
		c = c[N:]
	}

	return
}
