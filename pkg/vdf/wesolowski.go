//
// Copyright (c) 2019 harmony-one
//
// SPDX-License-Identifier: MIT
//

// Package vdf implements the Wesolowski verifiable delay function over
// imaginary quadratic class groups: t sequential squarings that cannot
// be parallelized, with a one-element proof verifiable in O(log t)
// group operations.
package vdf

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/aminnizamdev/Wesolowski-s-VDF-Scaffold/pkg/core/iqc"
)

// ErrAborted is returned when a stop channel cancels a computation.
// An aborted run yields no partial output.
var ErrAborted = errors.New("vdf: computation aborted")

// challengeTag domain-separates the Fiat-Shamir transcript hash.
var challengeTag = []byte("prime")

// Config carries the process-wide cryptographic parameters. It is
// passed at construction and read-only afterwards, so instances with
// different parameters can coexist.
type Config struct {
	// DiscriminantBits is the exact bit length of the class group
	// discriminant.
	DiscriminantBits int

	// MillerRabinRounds is the witness count for every primality screen
	// in the pipeline.
	MillerRabinRounds int

	// ChallengeBits is the bit length of the Fiat-Shamir challenge
	// prime, independent of the discriminant size.
	ChallengeBits int

	// MaxGenerationAttempts caps the discriminant search.
	MaxGenerationAttempts int
}

// DefaultConfig returns the production parameter set.
func DefaultConfig() Config {
	return Config{
		DiscriminantBits:      1024,
		MillerRabinRounds:     40,
		ChallengeBits:         128,
		MaxGenerationAttempts: 10000,
	}
}

// WesolowskiVDF owns the discriminant and base element derived from one
// challenge. It carries no mutable state after construction: Compute,
// Prove and Verify keep their accumulators on the stack, so a single
// instance is safe for concurrent use at different iteration counts.
type WesolowskiVDF struct {
	cfg          Config
	discriminant *big.Int
	generator    *iqc.ClassGroup
}

// NewWesolowski derives a VDF instance from the challenge with the
// default parameters.
func NewWesolowski(challenge []byte) (*WesolowskiVDF, error) {
	return NewWesolowskiWithConfig(challenge, DefaultConfig())
}

func NewWesolowskiWithConfig(challenge []byte, cfg Config) (*WesolowskiVDF, error) {
	d, err := iqc.GenerateDiscriminant(
		challenge,
		cfg.DiscriminantBits,
		cfg.MillerRabinRounds,
		cfg.MaxGenerationAttempts,
	)
	if err != nil {
		return nil, errors.Wrap(err, "new wesolowski vdf")
	}

	return &WesolowskiVDF{
		cfg:          cfg,
		discriminant: d,
		generator:    iqc.GeneratorForDiscriminant(d),
	}, nil
}

// Discriminant returns a copy of the instance discriminant.
func (v *WesolowskiVDF) Discriminant() *big.Int {
	return new(big.Int).Set(v.discriminant)
}

// Generator returns the base element g.
func (v *WesolowskiVDF) Generator() *iqc.ClassGroup {
	return v.generator
}

// Compute returns y = g^(2^t) by t sequential squarings. t = 0 returns
// g itself.
func (v *WesolowskiVDF) Compute(t uint64) (*iqc.ClassGroup, error) {
	return v.ComputeWithStop(t, nil)
}

// ComputeWithStop is Compute with a cooperative cancellation channel,
// checked once per squaring step. A nil stop never fires.
func (v *WesolowskiVDF) ComputeWithStop(t uint64, stop <-chan struct{}) (*iqc.ClassGroup, error) {
	y := v.generator
	var err error
	for i := uint64(0); i < t; i++ {
		select {
		case <-stop:
			return nil, ErrAborted
		default:
		}

		y, err = y.Square()
		if err != nil {
			return nil, errors.Wrap(err, "compute")
		}
	}
	return y, nil
}

// Prove returns y = g^(2^t) and the Wesolowski witness
// pi = g^floor(2^t / l), where l is the Fiat-Shamir challenge prime.
func (v *WesolowskiVDF) Prove(t uint64) (*iqc.ClassGroup, *iqc.ClassGroup, error) {
	return v.ProveWithStop(t, nil)
}

// ProveWithStop runs two sequential passes. The first computes y; only
// then can l be derived, as the transcript binds the final output. The
// second pass long-divides 2^t by l bit by bit alongside t more
// squarings: the remainder r doubles each step, and whenever it
// overflows l the witness picks up a factor of g. This keeps proof
// generation at a small constant multiple of the computation itself,
// holding only two accumulators at any time.
func (v *WesolowskiVDF) ProveWithStop(t uint64, stop <-chan struct{}) (*iqc.ClassGroup, *iqc.ClassGroup, error) {
	y, err := v.ComputeWithStop(t, stop)
	if err != nil {
		return nil, nil, err
	}

	l, err := v.challengePrime(y, t)
	if err != nil {
		return nil, nil, errors.Wrap(err, "prove")
	}

	pi := iqc.IdentityForDiscriminant(v.discriminant)
	r := big.NewInt(1)
	for i := uint64(0); i < t; i++ {
		select {
		case <-stop:
			return nil, nil, ErrAborted
		default:
		}

		r.Lsh(r, 1)
		pi, err = pi.Square()
		if err != nil {
			return nil, nil, errors.Wrap(err, "prove")
		}
		if r.Cmp(l) >= 0 {
			r.Sub(r, l)
			pi, err = pi.Multiply(v.generator)
			if err != nil {
				return nil, nil, errors.Wrap(err, "prove")
			}
		}
	}

	return y, pi, nil
}

// Verify checks y == pi^l * g^r with r = 2^t mod l. The remainder is a
// plain integer modexp and never touches the class group. The result is
// a boolean judgment: a proof that fails the equation, or that lives in
// a different class group than this instance, is invalid input, not an
// error.
func (v *WesolowskiVDF) Verify(y, pi *iqc.ClassGroup, t uint64) bool {
	if y == nil || pi == nil {
		return false
	}
	if y.Discriminant().Cmp(v.discriminant) != 0 ||
		pi.Discriminant().Cmp(v.discriminant) != 0 {
		return false
	}

	l, err := v.challengePrime(y, t)
	if err != nil {
		return false
	}

	r := new(big.Int).Exp(bigTwo, new(big.Int).SetUint64(t), l)

	piL, err := pi.BigPow(l)
	if err != nil {
		return false
	}
	gR, err := v.generator.BigPow(r)
	if err != nil {
		return false
	}
	z, err := piL.Multiply(gR)
	if err != nil {
		return false
	}

	return z.Equal(y)
}

// VerifyBlob strict-decodes a concatenated y || pi solution blob and
// verifies it. Malformed encodings surface as a recoverable error,
// distinct from a false verification outcome.
func (v *WesolowskiVDF) VerifyBlob(blob []byte, t uint64) (bool, error) {
	size := iqc.EncodedLen(v.discriminant)
	if len(blob) != 2*size {
		return false, errors.Wrapf(iqc.ErrMalformedEncoding, "want %d byte blob, have %d", 2*size, len(blob))
	}

	y, err := iqc.DecodeReduced(blob[:size], v.discriminant)
	if err != nil {
		return false, errors.Wrap(err, "verify blob")
	}
	pi, err := iqc.DecodeReduced(blob[size:], v.discriminant)
	if err != nil {
		return false, errors.Wrap(err, "verify blob")
	}

	return v.Verify(y, pi, t), nil
}

// challengePrime derives the Fiat-Shamir prime l from the transcript
// (g, y, t). All public parameters enter the hash, or proofs for one
// iteration count could be replayed at another.
func (v *WesolowskiVDF) challengePrime(y *iqc.ClassGroup, t uint64) (*big.Int, error) {
	seed := make([]byte, 0, len(challengeTag)+2*iqc.EncodedLen(v.discriminant)+8)
	seed = append(seed, challengeTag...)
	seed = append(seed, v.generator.Serialize()...)
	seed = append(seed, y.Serialize()...)
	seed = binary.BigEndian.AppendUint64(seed, t)

	return iqc.HashPrime(seed, v.cfg.ChallengeBits, v.cfg.MillerRabinRounds)
}

var bigTwo = big.NewInt(2)
