package rap

import (
	"fmt"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// tfval and teval are concrete values carrying a provenance tag: the set of
// Entry cells that fed into them. Arithmetic unions the tags, per spec
// §4.C3(c).
type tfval struct {
	v       *core.FieldElement
	entries []Entry
}

type teval struct {
	v       Ext
	entries []Entry
}

func unionEntries(a, b []Entry) []Entry {
	seen := make(map[Entry]bool, len(a)+len(b))
	out := make([]Entry, 0, len(a)+len(b))
	for _, e := range a {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	for _, e := range b {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

func (x tfval) Add(o FExpr) FExpr {
	y := o.(tfval)
	return tfval{x.v.Add(y.v), unionEntries(x.entries, y.entries)}
}
func (x tfval) Sub(o FExpr) FExpr {
	y := o.(tfval)
	return tfval{x.v.Sub(y.v), unionEntries(x.entries, y.entries)}
}
func (x tfval) Mul(o FExpr) FExpr {
	y := o.(tfval)
	return tfval{x.v.Mul(y.v), unionEntries(x.entries, y.entries)}
}
func (x tfval) Neg() FExpr { return tfval{x.v.Neg(), x.entries} }

func (x teval) Add(o EFExpr) EFExpr {
	y := o.(teval)
	return teval{x.v.Add(y.v), unionEntries(x.entries, y.entries)}
}
func (x teval) Sub(o EFExpr) EFExpr {
	y := o.(teval)
	return teval{x.v.Sub(y.v), unionEntries(x.entries, y.entries)}
}
func (x teval) Mul(o EFExpr) EFExpr {
	y := o.(teval)
	return teval{x.v.Mul(y.v), unionEntries(x.entries, y.entries)}
}
func (x teval) Neg() EFExpr { return teval{x.v.Neg(), x.entries} }

// TrackingBuilder is the diagnostic counterpart of DebugBuilder: every cell
// value is tagged with the Entry that produced it, so an assertion failure
// names every contributing cell instead of only the failing row (spec
// §4.C3(c)).
type TrackingBuilder struct {
	field *core.Field

	row, nextRow, lastRow int

	preprocessedLocal, preprocessedNext []*core.FieldElement
	mainLocal, mainNext                 []*core.FieldElement
	permLocal, permNext                 []Ext

	beta, gamma   Ext
	public        []*core.FieldElement
	cumulativeSum Ext

	Violations []*ConstraintViolation
}

func NewTrackingBuilder(
	field *core.Field,
	row, nextRow, lastRow int,
	preprocessedLocal, preprocessedNext []*core.FieldElement,
	mainLocal, mainNext []*core.FieldElement,
	permLocal, permNext []Ext,
	beta, gamma Ext,
	public []*core.FieldElement,
	cumulativeSum Ext,
) *TrackingBuilder {
	return &TrackingBuilder{
		field:             field,
		row:               row,
		nextRow:           nextRow,
		lastRow:           lastRow,
		preprocessedLocal: preprocessedLocal,
		preprocessedNext:  preprocessedNext,
		mainLocal:         mainLocal,
		mainNext:          mainNext,
		permLocal:         permLocal,
		permNext:          permNext,
		beta:              beta,
		gamma:             gamma,
		public:            public,
		cumulativeSum:     cumulativeSum,
	}
}

func (t *TrackingBuilder) baseField() *core.Field { return t.field }

func taggedF(row []*core.FieldElement, rowIdx int, kind EntryKind) []FExpr {
	out := make([]FExpr, len(row))
	for i, x := range row {
		out[i] = tfval{x, []Entry{{Kind: kind, Row: rowIdx, Col: i}}}
	}
	return out
}

func taggedE(row []Ext, rowIdx int, kind EntryKind) []EFExpr {
	out := make([]EFExpr, len(row))
	for i, x := range row {
		out[i] = teval{x, []Entry{{Kind: kind, Row: rowIdx, Col: i}}}
	}
	return out
}

func (t *TrackingBuilder) Main() TwoRowView {
	return TwoRowView{
		Local: taggedF(t.mainLocal, t.row, EntryMain),
		Next:  taggedF(t.mainNext, t.nextRow, EntryMain),
	}
}

func (t *TrackingBuilder) Preprocessed() TwoRowView {
	return TwoRowView{
		Local: taggedF(t.preprocessedLocal, t.row, EntryPreprocessed),
		Next:  taggedF(t.preprocessedNext, t.nextRow, EntryPreprocessed),
	}
}

func (t *TrackingBuilder) Permutation() TwoRowViewExt {
	return TwoRowViewExt{
		Local: taggedE(t.permLocal, t.row, EntryPermutation),
		Next:  taggedE(t.permNext, t.nextRow, EntryPermutation),
	}
}

func (t *TrackingBuilder) PermutationRandomness() [2]EFExpr {
	return [2]EFExpr{teval{t.beta, nil}, teval{t.gamma, nil}}
}

func (t *TrackingBuilder) PublicValues() []FExpr {
	out := make([]FExpr, len(t.public))
	for i, x := range t.public {
		out[i] = tfval{x, []Entry{{Kind: EntryPublic, Col: i}}}
	}
	return out
}

func (t *TrackingBuilder) IsFirstRow() FExpr {
	if t.row == 0 {
		return tfval{t.field.One(), nil}
	}
	return tfval{t.field.Zero(), nil}
}

func (t *TrackingBuilder) IsLastRow() FExpr {
	if t.row == t.lastRow {
		return tfval{t.field.One(), nil}
	}
	return tfval{t.field.Zero(), nil}
}

func (t *TrackingBuilder) IsTransition() FExpr {
	if t.row == t.lastRow {
		return tfval{t.field.Zero(), nil}
	}
	return tfval{t.field.One(), nil}
}

func (t *TrackingBuilder) CumulativeSum() EFExpr { return teval{t.cumulativeSum, nil} }

func (t *TrackingBuilder) Constant(x *core.FieldElement) FExpr { return tfval{x, nil} }
func (t *TrackingBuilder) ConstantExt(x Ext) EFExpr            { return teval{x, nil} }
func (t *TrackingBuilder) LiftExt(x FExpr) EFExpr {
	y := x.(tfval)
	return teval{LiftExt(t.field, y.v), y.entries}
}

func (t *TrackingBuilder) AssertZero(x FExpr) {
	y := x.(tfval)
	if !y.v.IsZero() {
		t.Violations = append(t.Violations, &ConstraintViolation{
			Row:          t.row,
			Constraint:   fmt.Sprintf("assert_zero(%s)", y.v),
			Contributing: y.entries,
		})
	}
}

func (t *TrackingBuilder) AssertZeroExt(x EFExpr) {
	y := x.(teval)
	if !y.v.IsZero() {
		t.Violations = append(t.Violations, &ConstraintViolation{
			Row:          t.row,
			Constraint:   fmt.Sprintf("assert_zero_ext(%s)", y.v),
			Contributing: y.entries,
		})
	}
}
