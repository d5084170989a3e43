//
// Copyright (c) 2019 harmony-one
//
// SPDX-License-Identifier: MIT
//

// Package iqc implements arithmetic in the ideal class group of an
// imaginary quadratic field. Group elements are positive definite binary
// quadratic forms ax^2 + bxy + cy^2 of a shared negative discriminant
// b^2 - 4ac, kept in the unique reduced representative of their
// equivalence class.
package iqc

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrMismatchedDiscriminant is returned when two forms of different
	// discriminants are composed. This is an internal invariant violation,
	// not a recoverable input error.
	ErrMismatchedDiscriminant = errors.New("class group: mismatched discriminants")

	// ErrMalformedEncoding is returned when a byte string does not decode
	// to a canonical reduced form of the claimed discriminant.
	ErrMalformedEncoding = errors.New("class group: malformed encoding")
)

var (
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
	bigFour = big.NewInt(4)
)

// ClassGroup is a binary quadratic form (a, b, c). The discriminant is
// derived from the coefficients and cached on first use. Values are
// immutable after construction; every operation returns a fresh form.
type ClassGroup struct {
	a *big.Int
	b *big.Int
	c *big.Int
	d *big.Int
}

func NewClassGroup(a, b, c *big.Int) *ClassGroup {
	return &ClassGroup{a: a, b: b, c: c}
}

// NewClassGroupFromAbDiscriminant builds the form (a, b, (b^2-d)/4a).
// The caller is responsible for (a, b) admitting an integral third
// coefficient under d; the constructors below always do.
func NewClassGroupFromAbDiscriminant(a, b, d *big.Int) *ClassGroup {
	c := new(big.Int).Mul(b, b)
	c.Sub(c, d)
	c = floorDiv(c, new(big.Int).Mul(a, bigFour))
	return &ClassGroup{
		a: new(big.Int).Set(a),
		b: new(big.Int).Set(b),
		c: c,
		d: new(big.Int).Set(d),
	}
}

// IdentityForDiscriminant returns the principal form (1, 1, (1-d)/4),
// the neutral element of the class group of d.
func IdentityForDiscriminant(d *big.Int) *ClassGroup {
	return NewClassGroupFromAbDiscriminant(bigOne, bigOne, d)
}

// GeneratorForDiscriminant returns the distinguished base form
// (2, 1, (1-d)/8). Requires d == 1 (mod 8), which GenerateDiscriminant
// guarantees.
func GeneratorForDiscriminant(d *big.Int) *ClassGroup {
	return NewClassGroupFromAbDiscriminant(bigTwo, bigOne, d)
}

// Discriminant returns b^2 - 4ac, computing and caching it if the form
// was built from raw coefficients.
func (g *ClassGroup) Discriminant() *big.Int {
	if g.d == nil {
		d := new(big.Int).Mul(g.b, g.b)
		t := new(big.Int).Mul(g.a, g.c)
		t.Mul(t, bigFour)
		g.d = d.Sub(d, t)
	}
	return g.d
}

func (g *ClassGroup) A() *big.Int { return new(big.Int).Set(g.a) }
func (g *ClassGroup) B() *big.Int { return new(big.Int).Set(g.b) }
func (g *ClassGroup) C() *big.Int { return new(big.Int).Set(g.c) }

// normal reports -a < b <= a.
func (g *ClassGroup) normal() bool {
	negA := new(big.Int).Neg(g.a)
	return g.b.Cmp(negA) > 0 && g.b.Cmp(g.a) <= 0
}

// IsReduced reports whether the form is the canonical reduced
// representative of its class: positive definite, normal, and a < c or
// (a == c and b >= 0).
func (g *ClassGroup) IsReduced() bool {
	if g.a.Sign() <= 0 {
		return false
	}
	if !g.normal() {
		return false
	}
	switch g.a.Cmp(g.c) {
	case -1:
		return true
	case 0:
		return g.b.Sign() >= 0
	default:
		return false
	}
}

// Normalized shifts b into (-a, a] by a multiple of 2a, adjusting c to
// preserve the discriminant.
func (g *ClassGroup) Normalized() *ClassGroup {
	if g.normal() {
		return g
	}

	// r = (a - b) / 2a, floored
	r := floorDiv(new(big.Int).Sub(g.a, g.b), new(big.Int).Lsh(g.a, 1))

	// b' = b + 2ra, c' = ar^2 + br + c
	b := new(big.Int).Mul(r, g.a)
	b.Lsh(b, 1)
	b.Add(b, g.b)

	c := new(big.Int).Mul(g.a, r)
	c.Add(c, g.b)
	c.Mul(c, r)
	c.Add(c, g.c)

	return &ClassGroup{a: new(big.Int).Set(g.a), b: b, c: c, d: g.d}
}

// Reduced runs the Gaussian reduction loop until the form is the unique
// canonical representative of its class. Each pass strictly decreases a,
// so the loop terminates.
func (g *ClassGroup) Reduced() *ClassGroup {
	n := g.Normalized()
	a := new(big.Int).Set(n.a)
	b := new(big.Int).Set(n.b)
	c := new(big.Int).Set(n.c)

	// while a > c, or a == c with b < 0
	for a.Cmp(c) > 0 || (a.Cmp(c) == 0 && b.Sign() < 0) {
		// s = (c + b) / 2c, floored
		s := floorDiv(new(big.Int).Add(c, b), new(big.Int).Lsh(c, 1))

		// (a, b, c) = (c, -b + 2sc, cs^2 - bs + a)
		oldA, oldB := a, b

		b = new(big.Int).Mul(s, c)
		b.Lsh(b, 1)
		b.Sub(b, oldB)

		newC := new(big.Int).Mul(c, s)
		newC.Sub(newC, oldB)
		newC.Mul(newC, s)
		newC.Add(newC, oldA)

		a = c
		c = newC
	}

	return (&ClassGroup{a: a, b: b, c: c, d: g.d}).Normalized()
}

// Multiply composes the receiver with another form of the same
// discriminant and reduces the result. Composition uses the
// solve-and-combine construction: a GCD of the leading coefficients and
// the half-sum of the middle ones fixes the coefficients of the product
// form up to two linear congruences.
func (g *ClassGroup) Multiply(other *ClassGroup) (*ClassGroup, error) {
	if g.Discriminant().Cmp(other.Discriminant()) != 0 {
		return nil, errors.Wrap(ErrMismatchedDiscriminant, "multiply")
	}

	x := g.Reduced()
	y := other.Reduced()

	// p = (b1 + b2) / 2, q = (b2 - b1) / 2; both exact since b1 and b2
	// are odd for an odd discriminant
	p := floorDiv(new(big.Int).Add(x.b, y.b), bigTwo)
	q := floorDiv(new(big.Int).Sub(y.b, x.b), bigTwo)

	w := gcd(x.a, gcd(y.a, p))
	s := floorDiv(x.a, w)
	t := floorDiv(y.a, w)
	u := floorDiv(p, w)
	st := new(big.Int).Mul(s, t)

	// solve tu*k == qu + s*c1 (mod st)
	rhs := new(big.Int).Mul(q, u)
	rhs.Add(rhs, new(big.Int).Mul(s, x.c))
	k0, step, err := solveCongruence(new(big.Int).Mul(t, u), rhs, st)
	if err != nil {
		return nil, errors.Wrap(err, "multiply")
	}

	// refine k within its residue class: t*step*n == q - t*k0 (mod s)
	n, _, err := solveCongruence(
		new(big.Int).Mul(t, step),
		new(big.Int).Sub(q, new(big.Int).Mul(t, k0)),
		s,
	)
	if err != nil {
		return nil, errors.Wrap(err, "multiply")
	}
	k := new(big.Int).Add(k0, new(big.Int).Mul(step, n))

	l := floorDiv(new(big.Int).Sub(new(big.Int).Mul(t, k), q), s)

	m := new(big.Int).Mul(t, u)
	m.Mul(m, k)
	m.Sub(m, new(big.Int).Mul(q, u))
	m.Sub(m, new(big.Int).Mul(s, x.c))
	m = floorDiv(m, st)

	a3 := new(big.Int).Set(st)

	b3 := new(big.Int).Mul(w, u)
	b3.Sub(b3, new(big.Int).Mul(k, t))
	b3.Sub(b3, new(big.Int).Mul(l, s))

	c3 := new(big.Int).Mul(k, l)
	c3.Sub(c3, new(big.Int).Mul(w, m))

	return (&ClassGroup{a: a3, b: b3, c: c3, d: g.d}).Reduced(), nil
}

// Square composes the form with itself. The special case drops one of
// the two congruence solves of Multiply; the result is identical to
// Multiply(g, g).
func (g *ClassGroup) Square() (*ClassGroup, error) {
	// mu solves b*mu == c (mod a)
	mu, _, err := solveCongruence(g.b, g.c, g.a)
	if err != nil {
		return nil, errors.Wrap(err, "square")
	}

	a := new(big.Int).Mul(g.a, g.a)

	// b' = b - 2a*mu
	b := new(big.Int).Mul(g.a, mu)
	b.Lsh(b, 1)
	b.Sub(g.b, b)

	// c' = mu^2 - (b*mu - c)/a
	c := new(big.Int).Mul(g.b, mu)
	c.Sub(c, g.c)
	c = floorDiv(c, g.a)
	c.Sub(new(big.Int).Mul(mu, mu), c)

	return (&ClassGroup{a: a, b: b, c: c, d: g.d}).Reduced(), nil
}

// BigPow raises the form to a non-negative exponent by square-and-multiply
// over the exponent bits, most significant first. A zero exponent yields
// the principal form.
func (g *ClassGroup) BigPow(n *big.Int) (*ClassGroup, error) {
	if n.Sign() < 0 {
		return nil, errors.New("class group: negative exponent")
	}

	acc := IdentityForDiscriminant(g.Discriminant())
	var err error
	for i := n.BitLen() - 1; i >= 0; i-- {
		acc, err = acc.Square()
		if err != nil {
			return nil, err
		}
		if n.Bit(i) == 1 {
			acc, err = acc.Multiply(g)
			if err != nil {
				return nil, err
			}
		}
	}
	return acc, nil
}

// Equal reports whether the two forms reduce to the same triple.
func (g *ClassGroup) Equal(other *ClassGroup) bool {
	x := g.Reduced()
	y := other.Reduced()
	return x.a.Cmp(y.a) == 0 && x.b.Cmp(y.b) == 0 && x.c.Cmp(y.c) == 0
}

// floorDiv divides with rounding toward negative infinity, matching the
// floor semantics the reduction and composition formulas are stated in.
func floorDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if (r.Sign() == 1 && y.Sign() == -1) || (r.Sign() == -1 && y.Sign() == 1) {
		q.Sub(q, bigOne)
	}
	return q
}

// gcd accepts operands of any sign, unlike big.Int.GCD.
func gcd(a, b *big.Int) *big.Int {
	if a.Sign() == 0 {
		return new(big.Int).Abs(b)
	}
	if b.Sign() == 0 {
		return new(big.Int).Abs(a)
	}
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

// extendedGCD returns g, s, t with a*s + b*t = g = gcd(a, b) >= 0.
func extendedGCD(a, b *big.Int) (*big.Int, *big.Int, *big.Int) {
	r0, r1 := new(big.Int).Set(a), new(big.Int).Set(b)
	s0, s1 := big.NewInt(1), big.NewInt(0)
	t0, t1 := big.NewInt(0), big.NewInt(1)

	for r1.Sign() != 0 {
		q, r := new(big.Int).QuoRem(r0, r1, new(big.Int))
		r0, r1 = r1, r
		s0, s1 = s1, new(big.Int).Sub(s0, new(big.Int).Mul(q, s1))
		t0, t1 = t1, new(big.Int).Sub(t0, new(big.Int).Mul(q, t1))
	}
	if r0.Sign() < 0 {
		r0.Neg(r0)
		s0.Neg(s0)
		t0.Neg(t0)
	}
	return r0, s0, t0
}

// solveCongruence solves a*x == b (mod m) for m > 0. It returns s, t such
// that x = s + k*t over integer k enumerates all solutions.
func solveCongruence(a, b, m *big.Int) (*big.Int, *big.Int, error) {
	g, d, _ := extendedGCD(a, m)
	if g.Sign() == 0 {
		return nil, nil, errors.New("class group: degenerate congruence")
	}

	q, r := new(big.Int).QuoRem(b, g, new(big.Int))
	if r.Sign() != 0 {
		return nil, nil, errors.New("class group: congruence has no solution")
	}

	s := q.Mul(q, d)
	s.Mod(s, m)
	return s, floorDiv(m, g), nil
}
