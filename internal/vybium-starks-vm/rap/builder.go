package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// FExpr is a base-field-valued expression produced by a builder. Each
// concrete builder (symbolic, debug, tracking, and the fold builder shared
// by the prover and verifier folders) has its own FExpr implementation;
// chip code never
// inspects the concrete type, only composes FExpr values through Add/Sub/
// Mul/Neg.
type FExpr interface {
	Add(FExpr) FExpr
	Sub(FExpr) FExpr
	Mul(FExpr) FExpr
	Neg() FExpr
}

// EFExpr is the extension-field-valued counterpart of FExpr, used for
// permutation-argument quantities (challenges, the permutation trace, the
// running sum).
type EFExpr interface {
	Add(EFExpr) EFExpr
	Sub(EFExpr) EFExpr
	Mul(EFExpr) EFExpr
	Neg() EFExpr
}

// TwoRowView is the "local row i / next row i+1 with wraparound" access
// pattern every builder exposes for main and preprocessed cells (spec
// §4.C2).
type TwoRowView struct {
	Local []FExpr
	Next  []FExpr
}

// TwoRowViewExt is the permutation-trace analogue of TwoRowView: its cells
// are extension-field valued.
type TwoRowViewExt struct {
	Local []EFExpr
	Next  []EFExpr
}

// Builder is the single interface chip code is written against (spec
// §4.C2). Every chip implementation must, given any Builder, call
// AssertZero for each local constraint; EvalAll additionally invokes the
// permutation-constraint evaluator (C6) against the same builder. Chips
// must never branch on concrete values, only on structural constants known
// at setup — a rule the type system does not enforce but every builder
// implementation here relies on.
type Builder interface {
	Main() TwoRowView
	Preprocessed() TwoRowView
	Permutation() TwoRowViewExt

	// PermutationRandomness returns [beta, gamma], the two challenges used
	// to fold interaction fields (beta) and tag buses (gamma).
	PermutationRandomness() [2]EFExpr

	PublicValues() []FExpr

	IsFirstRow() FExpr
	IsLastRow() FExpr
	IsTransition() FExpr

	// CumulativeSum returns this chip's running-sum terminal, supplied to
	// the builder as a known EF scalar (prover: the value it computed in
	// C5; verifier: the value read from the proof).
	CumulativeSum() EFExpr

	// Constant lifts a base-field constant into this builder's FExpr
	// algebra; ConstantExt does the same for an EF constant.
	Constant(x *core.FieldElement) FExpr
	ConstantExt(x Ext) EFExpr

	// LiftExt embeds an FExpr produced by this same builder into EFExpr,
	// used by the permutation-constraint evaluator to combine interaction
	// field/count evaluations (base-field valued) with EF challenges.
	LiftExt(FExpr) EFExpr

	AssertZero(x FExpr)
	AssertZeroExt(x EFExpr)
}

// AssertEq asserts x == y.
func AssertEq(b Builder, x, y FExpr) { b.AssertZero(x.Sub(y)) }

// AssertOne asserts x == 1.
func AssertOne(b Builder, x FExpr) { b.AssertZero(x.Sub(b.Constant(oneOf(b)))) }

// AssertBool asserts x * (x - 1) == 0, i.e. x is 0 or 1.
func AssertBool(b Builder, x FExpr) { b.AssertZero(x.Mul(x.Sub(b.Constant(oneOf(b))))) }

// AssertEqExt asserts x == y in EF.
func AssertEqExt(b Builder, x, y EFExpr) { b.AssertZeroExt(x.Sub(y)) }

// AssertOneExt asserts x == 1 in EF.
func AssertOneExt(b Builder, x EFExpr) {
	b.AssertZeroExt(x.Sub(b.ConstantExt(OneExt(fieldOf(b)))))
}

// fieldOf/oneOf recover the ambient base field from a builder so the free
// helper functions above don't need it threaded through separately. Every
// concrete builder stores it; fieldAccessor narrows the interface so the
// helpers stay generic over all five implementations.
type fieldAccessor interface {
	baseField() *core.Field
}

func fieldOf(b Builder) *core.Field {
	if fa, ok := b.(fieldAccessor); ok {
		return fa.baseField()
	}
	if w, ok := b.(*whenBuilder); ok {
		return fieldOf(w.inner)
	}
	panic("rap: builder does not expose its base field")
}

func oneOf(b Builder) *core.FieldElement {
	return fieldOf(b).One()
}

// whenBuilder scales every subsequent assertion by a selector, implementing
// spec §4.C2's "sub-builders from when(selector) multiply subsequent
// assertions by the selector". It delegates every read accessor to the
// wrapped builder untouched.
type whenBuilder struct {
	inner Builder
	sel   FExpr
	selEx EFExpr
}

// When returns a sub-builder whose AssertZero/AssertZeroExt multiply by
// sel before delegating to b.
func When(b Builder, sel FExpr) Builder {
	return &whenBuilder{inner: b, sel: sel, selEx: b.LiftExt(sel)}
}

// WhenFirstRow, WhenLastRow and WhenTransition are the three selectors
// spec §4.C6 names explicitly.
func WhenFirstRow(b Builder) Builder  { return When(b, b.IsFirstRow()) }
func WhenLastRow(b Builder) Builder   { return When(b, b.IsLastRow()) }
func WhenTransition(b Builder) Builder { return When(b, b.IsTransition()) }

func (w *whenBuilder) Main() TwoRowView                      { return w.inner.Main() }
func (w *whenBuilder) Preprocessed() TwoRowView               { return w.inner.Preprocessed() }
func (w *whenBuilder) Permutation() TwoRowViewExt             { return w.inner.Permutation() }
func (w *whenBuilder) PermutationRandomness() [2]EFExpr       { return w.inner.PermutationRandomness() }
func (w *whenBuilder) PublicValues() []FExpr                  { return w.inner.PublicValues() }
func (w *whenBuilder) IsFirstRow() FExpr                      { return w.inner.IsFirstRow() }
func (w *whenBuilder) IsLastRow() FExpr                       { return w.inner.IsLastRow() }
func (w *whenBuilder) IsTransition() FExpr                    { return w.inner.IsTransition() }
func (w *whenBuilder) CumulativeSum() EFExpr                  { return w.inner.CumulativeSum() }
func (w *whenBuilder) Constant(x *core.FieldElement) FExpr    { return w.inner.Constant(x) }
func (w *whenBuilder) ConstantExt(x Ext) EFExpr               { return w.inner.ConstantExt(x) }
func (w *whenBuilder) LiftExt(x FExpr) EFExpr                 { return w.inner.LiftExt(x) }

func (w *whenBuilder) AssertZero(x FExpr) {
	w.inner.AssertZero(w.sel.Mul(x))
}

func (w *whenBuilder) AssertZeroExt(x EFExpr) {
	w.inner.AssertZeroExt(w.selEx.Mul(x))
}
