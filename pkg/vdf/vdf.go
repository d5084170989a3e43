//
// Copyright (c) 2019 harmony-one
// Copyright (c) 2023 Quilibrium, Inc.
//
// SPDX-License-Identifier: MIT
//

package vdf

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

// WesolowskiProver wraps the protocol behind a logging service that
// works on solution blobs: the concatenated serializations of y and pi,
// in this order. Challenges are digested with SHA3-256 before seeding
// the class group, so callers can pass input of any length.
type WesolowskiProver struct {
	logger *zap.Logger
	cfg    Config
}

func NewWesolowskiProver(logger *zap.Logger) *WesolowskiProver {
	return NewWesolowskiProverWithConfig(logger, DefaultConfig())
}

func NewWesolowskiProverWithConfig(logger *zap.Logger, cfg Config) *WesolowskiProver {
	return &WesolowskiProver{
		logger: logger,
		cfg:    cfg,
	}
}

// Solve derives the class group for the challenge, runs difficulty
// sequential squarings and returns the solution blob.
func (p *WesolowskiProver) Solve(challenge []byte, difficulty uint64) ([]byte, error) {
	return p.SolveWithStop(challenge, difficulty, nil)
}

// SolveWithStop is Solve with cooperative cancellation.
func (p *WesolowskiProver) SolveWithStop(
	challenge []byte,
	difficulty uint64,
	stop <-chan struct{},
) ([]byte, error) {
	digest := sha3.Sum256(challenge)
	v, err := NewWesolowskiWithConfig(digest[:], p.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	y, pi, err := v.ProveWithStop(difficulty, stop)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	p.logger.Debug(
		"solved vdf",
		zap.Uint64("difficulty", difficulty),
		zap.Int("discriminant_bits", p.cfg.DiscriminantBits),
	)

	return append(y.Serialize(), pi.Serialize()...), nil
}

// Verify checks a solution blob against the challenge and difficulty.
// A malformed blob is reported as an error; an invalid proof is
// (false, nil).
func (p *WesolowskiProver) Verify(
	challenge []byte,
	difficulty uint64,
	blob []byte,
) (bool, error) {
	digest := sha3.Sum256(challenge)
	v, err := NewWesolowskiWithConfig(digest[:], p.cfg)
	if err != nil {
		return false, errors.Wrap(err, "verify")
	}

	ok, err := v.VerifyBlob(blob, difficulty)
	if err != nil {
		p.logger.Debug("rejected malformed solution", zap.Error(err))
		return false, errors.Wrap(err, "verify")
	}
	return ok, nil
}

// VDF is a handle for one asynchronous solve of a fixed challenge at a
// fixed difficulty.
type VDF struct {
	prover     *WesolowskiProver
	challenge  []byte
	difficulty uint64
	output     []byte
	outputChan chan []byte
	stop       chan struct{}
	finished   bool
}

// NewRun prepares an asynchronous solve. Call Execute to start it.
func (p *WesolowskiProver) NewRun(challenge []byte, difficulty uint64) *VDF {
	return &VDF{
		prover:     p,
		challenge:  challenge,
		difficulty: difficulty,
		outputChan: make(chan []byte),
		stop:       make(chan struct{}),
	}
}

// GetOutputChannel returns the channel the solution blob is delivered on.
func (vdf *VDF) GetOutputChannel() chan []byte {
	return vdf.outputChan
}

// Execute runs the solve until finished or aborted and delivers the
// blob on the output channel.
func (vdf *VDF) Execute() error {
	vdf.finished = false

	blob, err := vdf.prover.SolveWithStop(vdf.challenge, vdf.difficulty, vdf.stop)
	if err != nil {
		vdf.prover.logger.Error(
			"vdf execution failed",
			zap.Uint64("difficulty", vdf.difficulty),
			zap.Error(err),
		)
		return errors.Wrap(err, "execute")
	}

	vdf.output = blob
	vdf.finished = true
	go func() {
		vdf.outputChan <- vdf.output
	}()
	return nil
}

// Abort cancels a running Execute at the next squaring step.
func (vdf *VDF) Abort() {
	close(vdf.stop)
}

// IsFinished reports whether Execute has completed.
func (vdf *VDF) IsFinished() bool {
	return vdf.finished
}

// GetOutput returns the solution blob, nil until finished.
func (vdf *VDF) GetOutput() []byte {
	return vdf.output
}
