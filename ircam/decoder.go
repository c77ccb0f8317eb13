// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ircam

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Result is the outcome of Decoder.Next.
type Result int

// Valid values for Result.
const (
	// Incomplete means the buffer holds at most a prefix of a record. Nothing
	// was consumed.
	Incomplete Result = iota
	// Decoded means a record was extracted and its bytes consumed.
	Decoded
	// Invalid means the head of the buffer cannot start a valid record. One
	// byte was discarded.
	Invalid
)

func (r Result) String() string {
	switch r {
	case Incomplete:
		return "Incomplete"
	case Decoded:
		return "Decoded"
	case Invalid:
		return "Invalid"
	default:
		return "Result(?)"
	}
}

// maxRecordLen is the largest possible encoding of a record: an array32
// header and 34 int64/uint64 values.
const maxRecordLen = 5 + RecordFields*9

// Decoder extracts records from an accumulating byte buffer.
//
// It never blocks and never fails: malformed input is reported as Invalid
// and skipped one byte at a time until a record boundary is found.
//
// Garbage that contains a complete array header of RecordFields elements
// (dc 00 22 or dd 00 00 00 22) can borrow the bytes of the following record:
// a bogus record may then be decoded and the real one lost. The Assembler
// reports it as a sequence change or a row gap.
type Decoder struct {
	buf []byte
	r   bytes.Reader
	dec *msgpack.Decoder
}

// Feed appends data to the internal buffer.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Buffered returns the number of bytes pending.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next tries to extract one record from the head of the buffer.
func (d *Decoder) Next() (Record, Result) {
	if len(d.buf) == 0 {
		return Record{}, Incomplete
	}
	rec, n, err := d.parse()
	switch {
	case err == nil:
		d.consume(n)
		return rec, Decoded
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		if len(d.buf) < maxRecordLen {
			return Record{}, Incomplete
		}
		// A corrupted header claims more data than a record can hold.
	}
	d.consume(1)
	return Record{}, Invalid
}

// Reset drops any buffered data.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Private details.

var errShape = errors.New("ircam: record doesn't match the expected shape")

// parse decodes a record at the head of the buffer and returns the number of
// bytes it used.
func (d *Decoder) parse() (Record, int, error) {
	var rec Record
	d.r.Reset(d.buf)
	if d.dec == nil {
		d.dec = msgpack.NewDecoder(&d.r)
	} else {
		d.dec.Reset(&d.r)
	}
	n, err := d.dec.DecodeArrayLen()
	if err != nil {
		return rec, 0, err
	}
	if n != RecordFields {
		return rec, 0, errShape
	}
	seq, err := d.decodeInt(0, math.MaxUint32)
	if err != nil {
		return rec, 0, err
	}
	row, err := d.decodeInt(0, LastRow)
	if err != nil {
		return rec, 0, err
	}
	rec.Seq = uint32(seq)
	rec.Row = uint8(row)
	for i := range rec.Samples {
		v, err := d.decodeInt(math.MinInt32, math.MaxInt32)
		if err != nil {
			return rec, 0, err
		}
		rec.Samples[i] = int32(v)
	}
	return rec, len(d.buf) - d.r.Len(), nil
}

// decodeInt decodes one integer field, signed or not, and checks its range.
func (d *Decoder) decodeInt(min, max int64) (int64, error) {
	c, err := d.dec.PeekCode()
	if err != nil {
		return 0, err
	}
	if !isIntCode(c) {
		return 0, errShape
	}
	var v int64
	if c == 0xcf {
		// uint64 doesn't fit int64 past MaxInt64.
		u, err := d.dec.DecodeUint64()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, errShape
		}
		v = int64(u)
	} else if v, err = d.dec.DecodeInt64(); err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, errShape
	}
	return v, nil
}

func (d *Decoder) consume(n int) {
	d.buf = d.buf[:copy(d.buf, d.buf[n:])]
}

// isIntCode returns true for positive/negative fixint and the sized integer
// codes.
func isIntCode(c byte) bool {
	return c <= 0x7f || c >= 0xe0 || (c >= 0xcc && c <= 0xd3)
}
