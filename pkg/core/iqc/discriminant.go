//
// Copyright (c) 2019 harmony-one
//
// SPDX-License-Identifier: MIT
//

package iqc

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidDiscriminant marks a discriminant that is not negative or
	// not 1 mod 4. Seeing it outside of input validation indicates a bug.
	ErrInvalidDiscriminant = errors.New("class group: invalid discriminant")

	// ErrGenerationExhausted is returned when the bounded discriminant
	// search runs out of attempts. With sane parameters this is
	// astronomically unlikely; hitting it means the configuration is off.
	ErrGenerationExhausted = errors.New("class group: discriminant generation attempts exhausted")
)

// ExpandSeed stretches seed into byteCount bytes of deterministic stream
// by hashing seed with an incrementing big-endian block counter suffix.
// Discriminant generation, Miller-Rabin witness selection and
// hash-to-prime derivation all draw from this one primitive, which keeps
// the whole pipeline reproducible from the challenge alone.
func ExpandSeed(seed []byte, byteCount int) []byte {
	out := make([]byte, 0, byteCount+sha256.Size)
	block := make([]byte, len(seed)+2)
	copy(block, seed)

	for counter := uint16(0); len(out) < byteCount; counter++ {
		binary.BigEndian.PutUint16(block[len(seed):], counter)
		sum := sha256.Sum256(block)
		out = append(out, sum[:]...)
	}
	return out[:byteCount]
}

// ValidateDiscriminant checks the class group invariants: d < 0 and
// d == 1 (mod 4).
func ValidateDiscriminant(d *big.Int) error {
	if d.Sign() >= 0 {
		return errors.Wrap(ErrInvalidDiscriminant, "not negative")
	}
	if new(big.Int).Mod(d, bigFour).Cmp(bigOne) != 0 {
		return errors.Wrap(ErrInvalidDiscriminant, "not 1 mod 4")
	}
	return nil
}

// GenerateDiscriminant deterministically derives a negative discriminant
// of exactly bits bits from the challenge. Each attempt expands
// challenge with a 64-bit attempt counter, forces the top bit (exact bit
// length) and the magnitude to 7 mod 8 (so the negation is 1 mod 8 and
// the fixed base form (2, 1, .) exists), then screens the magnitude with
// Miller-Rabin. The search is bounded by maxAttempts.
func GenerateDiscriminant(challenge []byte, bits, mrRounds, maxAttempts int) (*big.Int, error) {
	if bits < 16 {
		return nil, errors.Wrapf(ErrInvalidDiscriminant, "bit length %d too small", bits)
	}

	byteCount := (bits + 7) >> 3
	seed := make([]byte, len(challenge)+8)
	copy(seed, challenge)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		binary.BigEndian.PutUint64(seed[len(challenge):], uint64(attempt))

		n := new(big.Int).SetBytes(ExpandSeed(seed, byteCount))
		if excess := byteCount*8 - bits; excess > 0 {
			n.Rsh(n, uint(excess))
		}
		n.SetBit(n, bits-1, 1)
		n.SetBit(n, 2, 1)
		n.SetBit(n, 1, 1)
		n.SetBit(n, 0, 1)

		if IsProbablePrime(n, mrRounds) {
			return n.Neg(n), nil
		}
	}

	return nil, errors.Wrapf(ErrGenerationExhausted, "%d attempts at %d bits", maxAttempts, bits)
}
