package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// foldF and foldE are the prover/verifier folder's expression values. Both
// the prover folder (evaluating at a packed batch of quotient-domain
// points) and the verifier folder (evaluating at the single challenge ζ)
// are point evaluations rather than symbolic terms, so both are
// represented as Ext values under the hood: base-field cells are embedded
// via LiftExt with zero high components, which is harmless at evaluation
// time (spec §4.C3(d)/(e) — "all five share the same trait surface").
type foldF struct{ v Ext }
type foldE struct{ v Ext }

func (x foldF) Add(o FExpr) FExpr { return foldF{x.v.Add(o.(foldF).v)} }
func (x foldF) Sub(o FExpr) FExpr { return foldF{x.v.Sub(o.(foldF).v)} }
func (x foldF) Mul(o FExpr) FExpr { return foldF{x.v.Mul(o.(foldF).v)} }
func (x foldF) Neg() FExpr        { return foldF{x.v.Neg()} }

func (x foldE) Add(o EFExpr) EFExpr { return foldE{x.v.Add(o.(foldE).v)} }
func (x foldE) Sub(o EFExpr) EFExpr { return foldE{x.v.Sub(o.(foldE).v)} }
func (x foldE) Mul(o EFExpr) EFExpr { return foldE{x.v.Mul(o.(foldE).v)} }
func (x foldE) Neg() EFExpr         { return foldE{x.v.Neg()} }

// FoldBuilder folds every asserted term into a single running accumulator
// via accumulator <- accumulator*alpha + x, with one shared alpha for the
// whole chip (spec §4.C3(d)/(e)). It is shared by ProverFolder and
// VerifierFolder; the only difference between the two is how its row views
// are populated — the prover folder evaluates on a quotient-domain point
// via LDEs, the verifier folder on the single OOD challenge ζ via opened
// values.
//
// Packed-field SIMD batching (source: "packed-width batches of F or EF")
// is not modeled explicitly; this type folds one point at a time and the
// quotient evaluator parallelizes across points with goroutines instead
// (see quotient.go and DESIGN.md).
type FoldBuilder struct {
	field *core.Field
	alpha Ext

	accumulator Ext

	preprocessedLocal, preprocessedNext []Ext
	mainLocal, mainNext                 []Ext
	permLocal, permNext                 []Ext

	beta, gamma Ext
	public      []Ext

	isFirstRow, isLastRow, isTransition Ext
	cumulativeSum                       Ext
}

// NewFoldBuilder builds a folder over one evaluation point (a quotient-
// domain point for the prover, ζ for the verifier). Main/preprocessed cells
// are passed as base-field elements lifted by the caller into Ext.
func NewFoldBuilder(
	field *core.Field,
	alpha Ext,
	preprocessedLocal, preprocessedNext []Ext,
	mainLocal, mainNext []Ext,
	permLocal, permNext []Ext,
	beta, gamma Ext,
	public []Ext,
	isFirstRow, isLastRow, isTransition Ext,
	cumulativeSum Ext,
) *FoldBuilder {
	return &FoldBuilder{
		field:             field,
		alpha:             alpha,
		accumulator:       ZeroExt(field),
		preprocessedLocal: preprocessedLocal,
		preprocessedNext:  preprocessedNext,
		mainLocal:         mainLocal,
		mainNext:          mainNext,
		permLocal:         permLocal,
		permNext:          permNext,
		beta:              beta,
		gamma:             gamma,
		public:            public,
		isFirstRow:        isFirstRow,
		isLastRow:         isLastRow,
		isTransition:      isTransition,
		cumulativeSum:     cumulativeSum,
	}
}

func (f *FoldBuilder) baseField() *core.Field { return f.field }

func wrapFoldF(xs []Ext) []FExpr {
	out := make([]FExpr, len(xs))
	for i, x := range xs {
		out[i] = foldF{x}
	}
	return out
}

func wrapFoldE(xs []Ext) []EFExpr {
	out := make([]EFExpr, len(xs))
	for i, x := range xs {
		out[i] = foldE{x}
	}
	return out
}

func (f *FoldBuilder) Main() TwoRowView {
	return TwoRowView{Local: wrapFoldF(f.mainLocal), Next: wrapFoldF(f.mainNext)}
}

func (f *FoldBuilder) Preprocessed() TwoRowView {
	return TwoRowView{Local: wrapFoldF(f.preprocessedLocal), Next: wrapFoldF(f.preprocessedNext)}
}

func (f *FoldBuilder) Permutation() TwoRowViewExt {
	return TwoRowViewExt{Local: wrapFoldE(f.permLocal), Next: wrapFoldE(f.permNext)}
}

func (f *FoldBuilder) PermutationRandomness() [2]EFExpr {
	return [2]EFExpr{foldE{f.beta}, foldE{f.gamma}}
}

func (f *FoldBuilder) PublicValues() []FExpr { return wrapFoldF(f.public) }

func (f *FoldBuilder) IsFirstRow() FExpr   { return foldF{f.isFirstRow} }
func (f *FoldBuilder) IsLastRow() FExpr    { return foldF{f.isLastRow} }
func (f *FoldBuilder) IsTransition() FExpr { return foldF{f.isTransition} }

func (f *FoldBuilder) CumulativeSum() EFExpr { return foldE{f.cumulativeSum} }

func (f *FoldBuilder) Constant(x *core.FieldElement) FExpr { return foldF{LiftExt(f.field, x)} }
func (f *FoldBuilder) ConstantExt(x Ext) EFExpr            { return foldE{x} }
func (f *FoldBuilder) LiftExt(x FExpr) EFExpr              { return foldE{x.(foldF).v} }

func (f *FoldBuilder) AssertZero(x FExpr) {
	f.accumulator = f.accumulator.Mul(f.alpha).Add(x.(foldF).v)
}

func (f *FoldBuilder) AssertZeroExt(x EFExpr) {
	f.accumulator = f.accumulator.Mul(f.alpha).Add(x.(foldE).v)
}

// Accumulator returns the folded constraint value accumulated so far.
func (f *FoldBuilder) Accumulator() Ext { return f.accumulator }

// ProverFolder and VerifierFolder are naming aliases for FoldBuilder,
// matching spec §4.C3(d)/(e)'s two named roles over the one shared
// implementation.
type ProverFolder = FoldBuilder
type VerifierFolder = FoldBuilder

// NewProverFolder and NewVerifierFolder forward to NewFoldBuilder under
// their spec-facing names.
func NewProverFolder(
	field *core.Field, alpha Ext,
	preprocessedLocal, preprocessedNext, mainLocal, mainNext, permLocal, permNext []Ext,
	beta, gamma Ext, public []Ext,
	isFirstRow, isLastRow, isTransition, cumulativeSum Ext,
) *ProverFolder {
	return NewFoldBuilder(field, alpha, preprocessedLocal, preprocessedNext, mainLocal, mainNext, permLocal, permNext, beta, gamma, public, isFirstRow, isLastRow, isTransition, cumulativeSum)
}

func NewVerifierFolder(
	field *core.Field, alpha Ext,
	preprocessedLocal, preprocessedNext, mainLocal, mainNext, permLocal, permNext []Ext,
	beta, gamma Ext, public []Ext,
	isFirstRow, isLastRow, isTransition, cumulativeSum Ext,
) *VerifierFolder {
	return NewFoldBuilder(field, alpha, preprocessedLocal, preprocessedNext, mainLocal, mainNext, permLocal, permNext, beta, gamma, public, isFirstRow, isLastRow, isTransition, cumulativeSum)
}
