package iqc_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aminnizamdev/Wesolowski-s-VDF-Scaffold/pkg/core/iqc"
)

func testDiscriminant(t *testing.T) *big.Int {
	t.Helper()
	d, err := iqc.GenerateDiscriminant([]byte("iqc test vector"), 128, 30, 10000)
	require.NoError(t, err)
	return d
}

func pow(t *testing.T, g *iqc.ClassGroup, n int64) *iqc.ClassGroup {
	t.Helper()
	r, err := g.BigPow(big.NewInt(n))
	require.NoError(t, err)
	return r
}

func TestIdentityLaws(t *testing.T) {
	d := testDiscriminant(t)
	id := iqc.IdentityForDiscriminant(d)
	g := iqc.GeneratorForDiscriminant(d)

	for _, x := range []*iqc.ClassGroup{g, pow(t, g, 5), pow(t, g, 1<<20)} {
		left, err := id.Multiply(x)
		require.NoError(t, err)
		require.True(t, left.Equal(x))

		right, err := x.Multiply(id)
		require.NoError(t, err)
		require.True(t, right.Equal(x))
	}

	squared, err := id.Square()
	require.NoError(t, err)
	require.True(t, squared.Equal(id))
}

func TestSquareMatchesMultiply(t *testing.T) {
	d := testDiscriminant(t)
	g := iqc.GeneratorForDiscriminant(d)

	x := g
	for i := 0; i < 16; i++ {
		viaSquare, err := x.Square()
		require.NoError(t, err)
		viaMultiply, err := x.Multiply(x)
		require.NoError(t, err)
		require.True(t, viaSquare.Equal(viaMultiply), "step %d", i)
		x = viaSquare
	}
}

func TestPowLaws(t *testing.T) {
	d := testDiscriminant(t)
	g := iqc.GeneratorForDiscriminant(d)
	id := iqc.IdentityForDiscriminant(d)

	require.True(t, pow(t, g, 0).Equal(id))
	require.True(t, pow(t, g, 1).Equal(g))

	// g^(m+n) == g^m * g^n
	m, n := int64(13), int64(29)
	prod, err := pow(t, g, m).Multiply(pow(t, g, n))
	require.NoError(t, err)
	require.True(t, pow(t, g, m+n).Equal(prod))

	// (g^m)^n == g^(mn)
	nested, err := pow(t, g, m).BigPow(big.NewInt(n))
	require.NoError(t, err)
	require.True(t, nested.Equal(pow(t, g, m*n)))
}

func TestReducedInvariants(t *testing.T) {
	d := testDiscriminant(t)
	g := iqc.GeneratorForDiscriminant(d)

	x := g
	for i := 0; i < 32; i++ {
		require.True(t, x.IsReduced(), "step %d", i)
		require.Zero(t, x.Discriminant().Cmp(d), "step %d", i)
		require.True(t, x.Reduced().Equal(x))

		var err error
		x, err = x.Square()
		require.NoError(t, err)
	}
}

func TestReduceUnreducedRepresentative(t *testing.T) {
	d := testDiscriminant(t)
	x := pow(t, iqc.GeneratorForDiscriminant(d), 1234)

	// (a, b+2a, a+b+c) is equivalent to (a, b, c) but not normal
	a := x.A()
	b := new(big.Int).Add(x.B(), new(big.Int).Lsh(a, 1))
	c := new(big.Int).Add(x.A(), x.B())
	c.Add(c, x.C())

	shifted := iqc.NewClassGroup(a, b, c)
	require.Zero(t, shifted.Discriminant().Cmp(d))
	require.False(t, shifted.IsReduced())
	require.True(t, shifted.Reduced().Equal(x))
}

func TestMismatchedDiscriminantRejected(t *testing.T) {
	d1 := testDiscriminant(t)
	d2, err := iqc.GenerateDiscriminant([]byte("a different challenge"), 128, 30, 10000)
	require.NoError(t, err)
	require.NotZero(t, d1.Cmp(d2))

	_, err = iqc.GeneratorForDiscriminant(d1).Multiply(iqc.GeneratorForDiscriminant(d2))
	require.ErrorIs(t, err, iqc.ErrMismatchedDiscriminant)
}

func TestSerializeRoundTrip(t *testing.T) {
	d := testDiscriminant(t)
	g := iqc.GeneratorForDiscriminant(d)

	for _, n := range []int64{1, 2, 3, 1000, 1 << 30} {
		x := pow(t, g, n)
		buf := x.Serialize()
		require.Len(t, buf, iqc.EncodedLen(d))

		decoded, err := iqc.DecodeReduced(buf, d)
		require.NoError(t, err)
		require.True(t, decoded.Equal(x))
		require.Equal(t, buf, decoded.Serialize())
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	d := testDiscriminant(t)
	buf := iqc.GeneratorForDiscriminant(d).Serialize()

	_, err := iqc.DecodeReduced(buf[:len(buf)-1], d)
	require.ErrorIs(t, err, iqc.ErrMalformedEncoding)

	_, err = iqc.DecodeReduced(append(buf, 0), d)
	require.ErrorIs(t, err, iqc.ErrMalformedEncoding)
}

func TestDecodeRejectsZeroLeadingCoefficient(t *testing.T) {
	d := testDiscriminant(t)
	_, err := iqc.DecodeReduced(make([]byte, iqc.EncodedLen(d)), d)
	require.ErrorIs(t, err, iqc.ErrMalformedEncoding)
}

func TestDecodeRejectsNonIntegralForm(t *testing.T) {
	d := testDiscriminant(t)
	size := iqc.EncodedLen(d) / 2

	// an even b cannot pair with an odd discriminant: (b^2 - d) is odd,
	// so no integral third coefficient exists
	buf := make([]byte, 2*size)
	buf[size-1] = 1
	buf[2*size-1] = 2
	_, err := iqc.DecodeReduced(buf, d)
	require.ErrorIs(t, err, iqc.ErrMalformedEncoding)
}

func TestDecodeRejectsNonCanonicalForm(t *testing.T) {
	d := testDiscriminant(t)
	x := pow(t, iqc.GeneratorForDiscriminant(d), 1234)
	size := iqc.EncodedLen(d) / 2

	// encode the algebraically valid but non-normal equivalent
	// (a, b+2a): same class, same discriminant, wrong representative
	a := x.A()
	b := new(big.Int).Add(x.B(), new(big.Int).Lsh(a, 1))
	require.Positive(t, b.Sign())

	buf := make([]byte, 2*size)
	a.FillBytes(buf[:size])
	b.FillBytes(buf[size:])

	_, err := iqc.DecodeReduced(buf, d)
	require.ErrorIs(t, err, iqc.ErrMalformedEncoding)
}

func TestDecodeRejectsInvalidDiscriminant(t *testing.T) {
	d := testDiscriminant(t)
	buf := iqc.GeneratorForDiscriminant(d).Serialize()

	_, err := iqc.DecodeReduced(buf, new(big.Int).Neg(d))
	require.ErrorIs(t, err, iqc.ErrInvalidDiscriminant)
}
