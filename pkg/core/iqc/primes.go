package iqc

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// maxPrimeAttempts bounds the hash-to-prime candidate search. The
// density of primes makes more than a handful of attempts implausible.
const maxPrimeAttempts = 1 << 16

var bigThree = big.NewInt(3)

// IsProbablePrime runs a Miller-Rabin test with the given number of
// rounds. Witnesses are drawn deterministically from n and the round
// index through ExpandSeed, so the test has no external randomness and
// two runs over the same n always agree.
func IsProbablePrime(n *big.Int, rounds int) bool {
	if n.Cmp(bigTwo) < 0 {
		return false
	}
	if n.Bit(0) == 0 {
		return n.Cmp(bigTwo) == 0
	}
	if n.Cmp(bigFour) < 0 {
		return true
	}

	// n-1 = d * 2^s with d odd
	nMinusOne := new(big.Int).Sub(n, bigOne)
	d := new(big.Int).Set(nMinusOne)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	nBytes := n.Bytes()
	seed := make([]byte, len(nBytes)+8)
	copy(seed, nBytes)
	span := new(big.Int).Sub(n, bigThree)

	x := new(big.Int)
	for round := 0; round < rounds; round++ {
		binary.BigEndian.PutUint64(seed[len(nBytes):], uint64(round))

		// witness in [2, n-2]
		w := new(big.Int).SetBytes(ExpandSeed(seed, len(nBytes)))
		w.Mod(w, span)
		w.Add(w, bigTwo)

		x.Exp(w, d, n)
		if x.Cmp(bigOne) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}

		composite := true
		for i := 0; i < s-1; i++ {
			x.Mul(x, x)
			x.Mod(x, n)
			if x.Cmp(nMinusOne) == 0 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// HashPrime deterministically maps seed onto a probable prime of exactly
// bits bits. Candidates are drawn by expanding seed with a 64-bit
// attempt counter, forcing the top bit and oddness, and screening with
// Miller-Rabin until one passes.
func HashPrime(seed []byte, bits, mrRounds int) (*big.Int, error) {
	if bits < 2 {
		return nil, errors.Errorf("hash prime: bit length %d too small", bits)
	}

	byteCount := (bits + 7) >> 3
	buf := make([]byte, len(seed)+8)
	copy(buf, seed)

	for attempt := uint64(0); attempt < maxPrimeAttempts; attempt++ {
		binary.BigEndian.PutUint64(buf[len(seed):], attempt)

		candidate := new(big.Int).SetBytes(ExpandSeed(buf, byteCount))
		if excess := byteCount*8 - bits; excess > 0 {
			candidate.Rsh(candidate, uint(excess))
		}
		candidate.SetBit(candidate, bits-1, 1)
		candidate.SetBit(candidate, 0, 1)

		if IsProbablePrime(candidate, mrRounds) {
			return candidate, nil
		}
	}

	return nil, errors.New("hash prime: candidate search exhausted")
}
