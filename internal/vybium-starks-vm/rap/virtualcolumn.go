package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// ColCoeff is one term of a virtual column's affine combination: the
// coefficient applied to a single preprocessed or main column.
type ColCoeff struct {
	Column int
	Coeff  *core.FieldElement
}

// VirtualPairCol is an affine form over preprocessed and main cells with a
// constant term: c0 + sum_i a_i*preprocessed_i + sum_j b_j*main_j (spec
// §3 "Interaction (bus message)"). Coefficients are base-field constants
// known at setup time; a VirtualPairCol never depends on which ring its
// evaluation happens to run over — ApplyF evaluates it directly against raw
// field rows (used by trace generation), ApplyRowExpr evaluates it against
// whichever builder happens to be active (used by constraint checking).
type VirtualPairCol struct {
	field        *core.Field
	constant     *core.FieldElement
	preprocessed []ColCoeff
	main         []ColCoeff
}

// NewVirtualPairCol builds a virtual column from an explicit constant and
// coefficient lists.
func NewVirtualPairCol(field *core.Field, constant *core.FieldElement, preprocessed, main []ColCoeff) *VirtualPairCol {
	if constant == nil {
		constant = field.Zero()
	}
	return &VirtualPairCol{field: field, constant: constant, preprocessed: preprocessed, main: main}
}

// ConstantCol returns a virtual column that ignores the row and always
// evaluates to c.
func ConstantCol(field *core.Field, c *core.FieldElement) *VirtualPairCol {
	return NewVirtualPairCol(field, c, nil, nil)
}

// SingleMainCol returns a virtual column equal to main[col].
func SingleMainCol(field *core.Field, col int) *VirtualPairCol {
	return NewVirtualPairCol(field, field.Zero(), nil, []ColCoeff{{Column: col, Coeff: field.One()}})
}

// SinglePreprocessedCol returns a virtual column equal to preprocessed[col].
func SinglePreprocessedCol(field *core.Field, col int) *VirtualPairCol {
	return NewVirtualPairCol(field, field.Zero(), []ColCoeff{{Column: col, Coeff: field.One()}}, nil)
}

// ApplyF evaluates the virtual column directly over base-field row slices;
// used by the permutation-trace generator (C5), which works on concrete
// trace data rather than through a builder.
func (v *VirtualPairCol) ApplyF(preprocessedRow, mainRow []*core.FieldElement) *core.FieldElement {
	acc := v.constant
	for _, pc := range v.preprocessed {
		acc = acc.Add(pc.Coeff.Mul(preprocessedRow[pc.Column]))
	}
	for _, mc := range v.main {
		acc = acc.Add(mc.Coeff.Mul(mainRow[mc.Column]))
	}
	return acc
}

// ApplyRowExpr evaluates the virtual column against a builder's row view.
// Every builder implementation supplies Constant(x) to lift the F-valued
// coefficients into its own expression algebra, so the same VirtualPairCol
// can be folded by the symbolic, debug, tracking, prover and verifier
// builders alike (spec §4.C2 contract).
func (v *VirtualPairCol) ApplyRowExpr(b Builder, preprocessedRow, mainRow []FExpr) FExpr {
	acc := b.Constant(v.constant)
	for _, pc := range v.preprocessed {
		acc = acc.Add(b.Constant(pc.Coeff).Mul(preprocessedRow[pc.Column]))
	}
	for _, mc := range v.main {
		acc = acc.Add(b.Constant(mc.Coeff).Mul(mainRow[mc.Column]))
	}
	return acc
}
