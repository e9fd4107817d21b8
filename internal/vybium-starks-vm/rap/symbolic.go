package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// sdegF and sdegE are degree-only expressions: the symbolic builder never
// carries a value, only the maximum polynomial degree a term could reach.
// They are separate types (rather than one type implementing both FExpr and
// EFExpr) because Go forbids two methods named Add on the same receiver
// with different signatures — FExpr.Add(FExpr) and EFExpr.Add(EFExpr)
// collide. Both carry identical bookkeeping.
type sdegF struct{ degree int }
type sdegE struct{ degree int }

func (s sdegF) Add(o FExpr) FExpr { return sdegF{maxInt(s.degree, o.(sdegF).degree)} }
func (s sdegF) Sub(o FExpr) FExpr { return sdegF{maxInt(s.degree, o.(sdegF).degree)} }
func (s sdegF) Mul(o FExpr) FExpr { return sdegF{s.degree + o.(sdegF).degree} }
func (s sdegF) Neg() FExpr        { return s }

func (s sdegE) Add(o EFExpr) EFExpr { return sdegE{maxInt(s.degree, o.(sdegE).degree)} }
func (s sdegE) Sub(o EFExpr) EFExpr { return sdegE{maxInt(s.degree, o.(sdegE).degree)} }
func (s sdegE) Mul(o EFExpr) EFExpr { return sdegE{s.degree + o.(sdegE).degree} }
func (s sdegE) Neg() EFExpr         { return s }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SymbolicBuilder implements C3(a): it records only the maximum degree
// reached by any asserted term, over both local and permutation
// constraints (both are folded through AssertZero/AssertZeroExt against the
// same builder instance by rap.EvalAll).
type SymbolicBuilder struct {
	field     *core.Field
	maxDegree int
	numMain   int
	numPrep   int
	numPerm   int
	numPublic int
}

// NewSymbolicBuilder creates a builder for degree analysis of one chip.
// numMain/numPrep/numPerm size the row views; actual cell values are
// irrelevant to degree tracking, only their presence is.
func NewSymbolicBuilder(field *core.Field, numPrep, numMain, numPerm, numPublic int) *SymbolicBuilder {
	return &SymbolicBuilder{field: field, numMain: numMain, numPrep: numPrep, numPerm: numPerm, numPublic: numPublic}
}

func (s *SymbolicBuilder) baseField() *core.Field { return s.field }

func degreeRow(n int) []FExpr {
	row := make([]FExpr, n)
	for i := range row {
		row[i] = sdegF{1}
	}
	return row
}

func degreeRowExt(n int) []EFExpr {
	row := make([]EFExpr, n)
	for i := range row {
		row[i] = sdegE{1}
	}
	return row
}

func (s *SymbolicBuilder) Main() TwoRowView {
	return TwoRowView{Local: degreeRow(s.numMain), Next: degreeRow(s.numMain)}
}

func (s *SymbolicBuilder) Preprocessed() TwoRowView {
	return TwoRowView{Local: degreeRow(s.numPrep), Next: degreeRow(s.numPrep)}
}

func (s *SymbolicBuilder) Permutation() TwoRowViewExt {
	return TwoRowViewExt{Local: degreeRowExt(s.numPerm), Next: degreeRowExt(s.numPerm)}
}

func (s *SymbolicBuilder) PermutationRandomness() [2]EFExpr { return [2]EFExpr{sdegE{0}, sdegE{0}} }

func (s *SymbolicBuilder) PublicValues() []FExpr {
	row := make([]FExpr, s.numPublic)
	for i := range row {
		row[i] = sdegF{0}
	}
	return row
}

func (s *SymbolicBuilder) IsFirstRow() FExpr     { return sdegF{1} }
func (s *SymbolicBuilder) IsLastRow() FExpr      { return sdegF{1} }
func (s *SymbolicBuilder) IsTransition() FExpr   { return sdegF{1} }
func (s *SymbolicBuilder) CumulativeSum() EFExpr { return sdegE{0} }

func (s *SymbolicBuilder) Constant(x *core.FieldElement) FExpr { return sdegF{0} }
func (s *SymbolicBuilder) ConstantExt(x Ext) EFExpr            { return sdegE{0} }
func (s *SymbolicBuilder) LiftExt(x FExpr) EFExpr              { return sdegE{x.(sdegF).degree} }

func (s *SymbolicBuilder) AssertZero(x FExpr) {
	if d := x.(sdegF).degree; d > s.maxDegree {
		s.maxDegree = d
	}
}

func (s *SymbolicBuilder) AssertZeroExt(x EFExpr) {
	if d := x.(sdegE).degree; d > s.maxDegree {
		s.maxDegree = d
	}
}

// MaxDegree returns the highest constraint degree observed so far.
func (s *SymbolicBuilder) MaxDegree() int { return s.maxDegree }

// QuotientDegree derives the chip's quotient_degree per spec §4.C3(a):
// ceil((maxDeg-1)/1) rounded up to a power of two, with a floor of one
// chunk even for a degree-1 (already-linear) chip.
func QuotientDegree(maxDeg int) int {
	raw := maxDeg - 1
	if raw < 1 {
		raw = 1
	}
	return nextPow2(raw)
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
