package rap

import (
	"math/big"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// Domain is a coset of a multiplicative subgroup {offset * generator^i : i
// in [0, length)}, always power-of-two length (spec §3 "Domains"). This
// mirrors protocols.ArithmeticDomain's shape but is built directly on
// core.Field so the rap package has no dependency on vybium-crypto's
// separate field type (see DESIGN.md).
type Domain struct {
	field     *core.Field
	Offset    *core.FieldElement
	Generator *core.FieldElement
	Length    int
}

// NaturalDomainForDegree returns the canonical trace domain of size n: no
// offset, generator = a primitive n-th root of unity.
func NaturalDomainForDegree(field *core.Field, n int) (*Domain, error) {
	if n <= 0 {
		return &Domain{field: field, Offset: field.One(), Generator: field.One(), Length: 0}, nil
	}
	if !isPow2(n) {
		return nil, newErr(ErrInvalidProofShape, "domain length %d is not a power of two", n)
	}
	gen := field.GetPrimitiveRootOfUnity(n)
	if gen == nil {
		return nil, newErr(ErrInvalidProofShape, "field has no primitive %d-th root of unity", n)
	}
	return &Domain{field: field, Offset: field.One(), Generator: gen, Length: n}, nil
}

// WithOffset returns a domain with the same generator/length shifted by
// offset — used to build the quotient domain disjoint from the trace
// domain.
func (d *Domain) WithOffset(offset *core.FieldElement) *Domain {
	return &Domain{field: d.field, Offset: offset, Generator: d.Generator, Length: d.Length}
}

// Elements returns every point of the domain, in index order.
func (d *Domain) Elements() []*core.FieldElement {
	out := make([]*core.FieldElement, d.Length)
	cur := d.Offset
	for i := 0; i < d.Length; i++ {
		out[i] = cur
		cur = cur.Mul(d.Generator)
	}
	return out
}

// Element returns the i-th point of the domain without materializing the
// whole slice.
func (d *Domain) Element(i int) *core.FieldElement {
	return d.Offset.Mul(d.Generator.Exp(big.NewInt(int64(i))))
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// QuotientDomain returns the disjoint coset of size height*quotientDegree
// used to evaluate the constraint polynomial without division (spec §3).
// The offset is core.DefaultGenerator's value (5) taken as an element of
// field, so the coset does not meet the trace domain as long as 5 lies
// outside field's subgroup of order height*quotientDegree.
func QuotientDomain(field *core.Field, height, quotientDegree int) (*Domain, error) {
	n := height * quotientDegree
	d, err := NaturalDomainForDegree(field, n)
	if err != nil {
		return nil, err
	}
	return d.WithOffset(field.NewElement(core.DefaultGenerator.Big())), nil
}

// ZerofierAt evaluates the vanishing polynomial Z_H(x) = x^Length - Offset^Length
// of this domain at x.
func (d *Domain) ZerofierAt(x *core.FieldElement) *core.FieldElement {
	return x.Exp(big.NewInt(int64(d.Length))).Sub(d.Offset.Exp(big.NewInt(int64(d.Length))))
}

// Selectors bundles the three boundary-selector evaluations the quotient
// evaluator and verifier folder both need at a point (spec §4.C8 step 2,
// §4.C10 step 3).
type Selectors struct {
	IsFirstRow   *core.FieldElement
	IsLastRow    *core.FieldElement
	IsTransition *core.FieldElement
	InvZeroifier *core.FieldElement
}

// SelectorsAtPoint evaluates L0(x), L_{n-1}(x), 1-L_{n-1}(x) and
// Z_H(x)^{-1} for this (trace) domain H at an arbitrary point x, using the
// standard closed forms for Lagrange selectors of a multiplicative coset:
//
//	L0(x)     = (Z_H(x) / Length) * Generator^0 / (x - Offset)
//	L_{n-1}(x)= (Z_H(x) / Length) * Generator^{-1} / (x - Offset*Generator^{-1})
//
// which avoid ever materializing the n Lagrange basis polynomials.
func (d *Domain) SelectorsAtPoint(x *core.FieldElement) (*Selectors, error) {
	f := d.field
	z := d.ZerofierAt(x)

	var invZ *core.FieldElement
	if z.IsZero() {
		invZ = f.Zero()
	} else {
		var err error
		invZ, err = z.Inv()
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "failed to invert zerofier")
		}
	}

	lengthInv, err := f.NewElementFromInt64(int64(d.Length)).Inv()
	if err != nil {
		return nil, wrapErr(ErrUnknown, err, "failed to invert domain length")
	}
	zOverN := z.Mul(lengthInv)

	diff0 := x.Sub(d.Offset)
	var l0 *core.FieldElement
	if diff0.IsZero() {
		l0 = f.One()
	} else {
		diff0Inv, err := diff0.Inv()
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "failed to invert selector denominator")
		}
		l0 = zOverN.Mul(diff0Inv)
	}

	genInv, err := d.Generator.Inv()
	if err != nil {
		return nil, wrapErr(ErrUnknown, err, "failed to invert domain generator")
	}
	lastPoint := d.Offset.Mul(genInv)
	diffLast := x.Sub(lastPoint)
	var lLast *core.FieldElement
	if diffLast.IsZero() {
		lLast = f.One()
	} else {
		diffLastInv, err := diffLast.Inv()
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "failed to invert selector denominator")
		}
		lLast = zOverN.Mul(genInv).Mul(diffLastInv)
	}

	return &Selectors{
		IsFirstRow:   l0,
		IsLastRow:    lLast,
		IsTransition: f.One().Sub(lLast),
		InvZeroifier: invZ,
	}, nil
}

// SelectorsExt is the Ext-valued counterpart of Selectors, for evaluating
// boundary selectors at an extension-field challenge point (spec §4.C10
// step 3).
type SelectorsExt struct {
	IsFirstRow   Ext
	IsLastRow    Ext
	IsTransition Ext
	InvZeroifier Ext
}

// SelectorsAtPointExt is SelectorsAtPoint generalized to an extension-field
// evaluation point, used by the verifier folder at the out-of-domain
// challenge zeta.
func (d *Domain) SelectorsAtPointExt(x Ext) (*SelectorsExt, error) {
	f := d.field
	offsetExt := LiftExt(f, d.Offset)
	lengthPow := LiftExt(f, d.Offset.Exp(big.NewInt(int64(d.Length))))
	z := x.Pow(d.Length).Sub(lengthPow)

	var invZ Ext
	if z.IsZero() {
		invZ = ZeroExt(f)
	} else {
		var err error
		invZ, err = z.Inv()
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "failed to invert zerofier")
		}
	}

	lengthInv, err := f.NewElementFromInt64(int64(d.Length)).Inv()
	if err != nil {
		return nil, wrapErr(ErrUnknown, err, "failed to invert domain length")
	}
	zOverN := z.MulBase(lengthInv)

	diff0 := x.Sub(offsetExt)
	var l0 Ext
	if diff0.IsZero() {
		l0 = OneExt(f)
	} else {
		diff0Inv, err := diff0.Inv()
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "failed to invert selector denominator")
		}
		l0 = zOverN.Mul(diff0Inv)
	}

	genInv, err := d.Generator.Inv()
	if err != nil {
		return nil, wrapErr(ErrUnknown, err, "failed to invert domain generator")
	}
	lastPointExt := LiftExt(f, d.Offset.Mul(genInv))
	diffLast := x.Sub(lastPointExt)
	var lLast Ext
	if diffLast.IsZero() {
		lLast = OneExt(f)
	} else {
		diffLastInv, err := diffLast.Inv()
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "failed to invert selector denominator")
		}
		lLast = zOverN.MulBase(genInv).Mul(diffLastInv)
	}

	return &SelectorsExt{
		IsFirstRow:   l0,
		IsLastRow:    lLast,
		IsTransition: OneExt(f).Sub(lLast),
		InvZeroifier: invZ,
	}, nil
}
