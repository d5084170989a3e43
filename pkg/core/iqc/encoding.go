//
// Copyright (c) 2019 harmony-one
//
// SPDX-License-Identifier: MIT
//

package iqc

import (
	"math/big"

	"github.com/pkg/errors"
)

// encodedIntSize is the per-coefficient width in bytes for forms of the
// given discriminant: enough for any reduced coefficient plus a sign bit.
func encodedIntSize(d *big.Int) int {
	return (d.BitLen() + 16) >> 4
}

// EncodedLen returns the length of a serialized form under d.
func EncodedLen(d *big.Int) int {
	return 2 * encodedIntSize(d)
}

// Serialize encodes the reduced form as fixed-width big-endian
// two's-complement a followed by b. The width is derived from the
// discriminant, and c is omitted as it is recoverable from (a, b, d).
// The encoding is unique per canonical reduced element.
func (g *ClassGroup) Serialize() []byte {
	r := g.Reduced()
	size := encodedIntSize(g.Discriminant())

	buf := make([]byte, 2*size)
	copy(buf[:size], signExtend(twosComplement(r.a), size))
	copy(buf[size:], signExtend(twosComplement(r.b), size))
	return buf
}

// DecodeReduced parses a Serialize blob under the given discriminant.
// It rejects, with ErrMalformedEncoding, any buffer of the wrong width,
// any (a, b) without an integral third coefficient under d, and any form
// that is not already the canonical reduced representative, so decoding
// is an exact inverse of Serialize and nothing else.
func DecodeReduced(buf []byte, d *big.Int) (*ClassGroup, error) {
	if err := ValidateDiscriminant(d); err != nil {
		return nil, err
	}

	size := encodedIntSize(d)
	if len(buf) != 2*size {
		return nil, errors.Wrapf(ErrMalformedEncoding, "want %d bytes, have %d", 2*size, len(buf))
	}

	a := fromTwosComplement(buf[:size])
	b := fromTwosComplement(buf[size:])
	if a.Sign() <= 0 {
		return nil, errors.Wrap(ErrMalformedEncoding, "nonpositive leading coefficient")
	}

	// c = (b^2 - d) / 4a must be exact
	z := new(big.Int).Mul(b, b)
	z.Sub(z, d)
	c, rem := new(big.Int).QuoRem(z, new(big.Int).Lsh(a, 2), new(big.Int))
	if rem.Sign() != 0 {
		return nil, errors.Wrap(ErrMalformedEncoding, "no integral third coefficient")
	}

	g := &ClassGroup{a: a, b: b, c: c, d: new(big.Int).Set(d)}
	if !g.IsReduced() {
		return nil, errors.Wrap(ErrMalformedEncoding, "form is not canonically reduced")
	}
	return g, nil
}

func twosComplement(n *big.Int) []byte {
	if n.Sign() > 0 {
		b := n.Bytes()
		if b[0]&0x80 == 0 {
			return b
		}
		// leading sign byte to keep the value positive
		out := make([]byte, len(b)+1)
		copy(out[1:], b)
		return out
	}
	if n.Sign() == 0 {
		return []byte{0}
	}

	// invert |n|-1 bytewise; pad with 0xff if the sign bit is clear
	m := new(big.Int).Neg(n)
	m.Sub(m, bigOne)
	b := m.Bytes()
	if len(b) == 0 {
		return []byte{0xff}
	}
	for i := range b {
		b[i] ^= 0xff
	}
	if b[0]&0x80 != 0 {
		return b
	}
	out := make([]byte, len(b)+1)
	out[0] = 0xff
	copy(out[1:], b)
	return out
}

func fromTwosComplement(b []byte) *big.Int {
	if b[0]&0x80 == 0 {
		return new(big.Int).SetBytes(b)
	}
	inv := make([]byte, len(b))
	for i := range b {
		inv[i] = b[i] ^ 0xff
	}
	n := new(big.Int).SetBytes(inv)
	n.Add(n, bigOne)
	return n.Neg(n)
}

func signExtend(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	offset := size - len(b)
	if b[0]&0x80 != 0 {
		for i := 0; i < offset; i++ {
			out[i] = 0xff
		}
	}
	copy(out[offset:], b)
	return out
}
