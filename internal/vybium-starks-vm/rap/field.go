package rap

import (
	"fmt"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// ExtDegree is the degree D of the extension field EF over the base field F.
// Three matches the cubic extensions used throughout Plonky3-style RAP
// machines (and the xfield.XFieldElement the protocols package samples via
// ProofStream.SampleScalars, whose own arithmetic surface this pack never
// exercises beyond that single call site — see DESIGN.md).
const ExtDegree = 3

// Ext is an element of F[X]/(X^3 - X - 1), the extension field EF used for
// permutation challenges, the permutation trace, and quotient chunks.
//
// Flattening an Ext to D base-field columns (and back) is the systemic
// convention spec §9 calls out: Flatten/Unflatten below are the exact
// inverse pair, used identically by the prover (committing permutation and
// quotient traces) and the verifier (reconstructing EF values from opened
// base-field rows).
type Ext struct {
	field          *core.Field
	c0, c1, c2     *core.FieldElement
}

// NewExt builds an extension element c0 + c1*X + c2*X^2.
func NewExt(field *core.Field, c0, c1, c2 *core.FieldElement) Ext {
	return Ext{field: field, c0: c0, c1: c1, c2: c2}
}

// ZeroExt returns the additive identity of EF.
func ZeroExt(field *core.Field) Ext {
	z := field.Zero()
	return Ext{field: field, c0: z, c1: z, c2: z}
}

// OneExt returns the multiplicative identity of EF.
func OneExt(field *core.Field) Ext {
	return Ext{field: field, c0: field.One(), c1: field.Zero(), c2: field.Zero()}
}

// LiftExt embeds a base-field element into EF as a constant term.
func LiftExt(field *core.Field, x *core.FieldElement) Ext {
	return Ext{field: field, c0: x, c1: field.Zero(), c2: field.Zero()}
}

// RandomExt draws a uniformly random extension element; used by tests and
// by any Challenger implementation that samples EF scalars component-wise.
func RandomExt(field *core.Field) (Ext, error) {
	c0, err := field.RandomElement()
	if err != nil {
		return Ext{}, fmt.Errorf("failed to sample extension component: %w", err)
	}
	c1, err := field.RandomElement()
	if err != nil {
		return Ext{}, fmt.Errorf("failed to sample extension component: %w", err)
	}
	c2, err := field.RandomElement()
	if err != nil {
		return Ext{}, fmt.Errorf("failed to sample extension component: %w", err)
	}
	return NewExt(field, c0, c1, c2), nil
}

func (e Ext) Field() *core.Field { return e.field }

// Components returns (c0, c1, c2) in the monomial basis {1, X, X^2}.
func (e Ext) Components() [ExtDegree]*core.FieldElement {
	return [ExtDegree]*core.FieldElement{e.c0, e.c1, e.c2}
}

// Flatten converts one EF column into ExtDegree base-field columns, in
// monomial-basis order. The inverse is Unflatten.
func Flatten(col []Ext) [ExtDegree][]*core.FieldElement {
	var out [ExtDegree][]*core.FieldElement
	for d := 0; d < ExtDegree; d++ {
		out[d] = make([]*core.FieldElement, len(col))
	}
	for i, e := range col {
		out[0][i], out[1][i], out[2][i] = e.c0, e.c1, e.c2
	}
	return out
}

// Unflatten reconstructs an EF column from its ExtDegree flattened
// base-field columns. It is the exact inverse of Flatten: for any col,
// Unflatten(field, Flatten(col)) == col.
func Unflatten(field *core.Field, parts [ExtDegree][]*core.FieldElement) ([]Ext, error) {
	n := len(parts[0])
	for d := 1; d < ExtDegree; d++ {
		if len(parts[d]) != n {
			return nil, fmt.Errorf("unflatten: component %d has length %d, expected %d", d, len(parts[d]), n)
		}
	}
	out := make([]Ext, n)
	for i := 0; i < n; i++ {
		out[i] = NewExt(field, parts[0][i], parts[1][i], parts[2][i])
	}
	return out, nil
}

func (e Ext) Add(o Ext) Ext {
	return Ext{field: e.field, c0: e.c0.Add(o.c0), c1: e.c1.Add(o.c1), c2: e.c2.Add(o.c2)}
}

func (e Ext) Sub(o Ext) Ext {
	return Ext{field: e.field, c0: e.c0.Sub(o.c0), c1: e.c1.Sub(o.c1), c2: e.c2.Sub(o.c2)}
}

func (e Ext) Neg() Ext {
	return Ext{field: e.field, c0: e.c0.Neg(), c1: e.c1.Neg(), c2: e.c2.Neg()}
}

// Mul multiplies two extension elements modulo X^3 - X - 1:
//
//	(a0+a1 X+a2 X^2)(b0+b1 X+b2 X^2) = a0 b0
//	  + (a0 b1 + a1 b0) X
//	  + (a0 b2 + a1 b1 + a2 b0) X^2
//	  + (a1 b2 + a2 b1) X^3
//	  + a2 b2 X^4
//
// with X^3 = X+1 and X^4 = X^2+X substituted back in.
func (e Ext) Mul(o Ext) Ext {
	a0, a1, a2 := e.c0, e.c1, e.c2
	b0, b1, b2 := o.c0, o.c1, o.c2

	d0 := a0.Mul(b0)
	d1 := a0.Mul(b1).Add(a1.Mul(b0))
	d2 := a0.Mul(b2).Add(a1.Mul(b1)).Add(a2.Mul(b0))
	d3 := a1.Mul(b2).Add(a2.Mul(b1))
	d4 := a2.Mul(b2)

	// X^3 -> X + 1, X^4 -> X^2 + X
	c0 := d0.Add(d3)
	c1 := d1.Add(d3).Add(d4)
	c2 := d2.Add(d4)
	return Ext{field: e.field, c0: c0, c1: c1, c2: c2}
}

// MulBase scales an extension element by a base-field constant.
func (e Ext) MulBase(x *core.FieldElement) Ext {
	return Ext{field: e.field, c0: e.c0.Mul(x), c1: e.c1.Mul(x), c2: e.c2.Mul(x)}
}

func (e Ext) IsZero() bool {
	return e.c0.IsZero() && e.c1.IsZero() && e.c2.IsZero()
}

func (e Ext) Equal(o Ext) bool {
	return e.c0.Equal(o.c0) && e.c1.Equal(o.c1) && e.c2.Equal(o.c2)
}

// Pow raises e to a small non-negative power by repeated multiplication;
// exponents here are bus indices and challenge powers, always tiny.
func (e Ext) Pow(n int) Ext {
	result := OneExt(e.field)
	base := e
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return result
}

// Inv computes the multiplicative inverse of e by solving the 3x3 linear
// system (M_e) x = e1 over F, where M_e is the matrix of "multiply by e" in
// the monomial basis. This avoids needing the base field's characteristic
// to satisfy any special form, unlike a Frobenius-norm shortcut would.
func (e Ext) Inv() (Ext, error) {
	if e.IsZero() {
		return Ext{}, fmt.Errorf("cannot invert zero extension element")
	}
	f := e.field

	// Column i of M_e holds the coefficients of e * X^i.
	basis := [ExtDegree]Ext{OneExt(f), NewExt(f, f.Zero(), f.One(), f.Zero()), NewExt(f, f.Zero(), f.Zero(), f.One())}
	var m [ExtDegree][ExtDegree]*core.FieldElement
	for i := 0; i < ExtDegree; i++ {
		col := e.Mul(basis[i])
		comps := col.Components()
		for r := 0; r < ExtDegree; r++ {
			m[r][i] = comps[r]
		}
	}

	// Augment with e1 = (1,0,0) and solve by Gauss-Jordan elimination.
	aug := [ExtDegree][ExtDegree + 1]*core.FieldElement{}
	rhs := [ExtDegree]*core.FieldElement{f.One(), f.Zero(), f.Zero()}
	for r := 0; r < ExtDegree; r++ {
		for c := 0; c < ExtDegree; c++ {
			aug[r][c] = m[r][c]
		}
		aug[r][ExtDegree] = rhs[r]
	}

	for col := 0; col < ExtDegree; col++ {
		pivot := -1
		for row := col; row < ExtDegree; row++ {
			if !aug[row][col].IsZero() {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return Ext{}, fmt.Errorf("cannot invert extension element: singular multiplication matrix")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		inv, err := aug[col][col].Inv()
		if err != nil {
			return Ext{}, fmt.Errorf("failed to invert pivot: %w", err)
		}
		for c := col; c <= ExtDegree; c++ {
			aug[col][c] = aug[col][c].Mul(inv)
		}
		for row := 0; row < ExtDegree; row++ {
			if row == col || aug[row][col].IsZero() {
				continue
			}
			factor := aug[row][col]
			for c := col; c <= ExtDegree; c++ {
				aug[row][c] = aug[row][c].Sub(factor.Mul(aug[col][c]))
			}
		}
	}

	return NewExt(f, aug[0][ExtDegree], aug[1][ExtDegree], aug[2][ExtDegree]), nil
}

func (e Ext) String() string {
	return fmt.Sprintf("(%s + %s*X + %s*X^2)", e.c0, e.c1, e.c2)
}
