package rap

import (
	"fmt"
	"sync"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// fval and eval wrap concrete field/extension values so they can satisfy
// FExpr and EFExpr without colliding on method names (see symbolic.go).
type fval struct{ v *core.FieldElement }
type eval struct{ v Ext }

func (x fval) Add(o FExpr) FExpr { return fval{x.v.Add(o.(fval).v)} }
func (x fval) Sub(o FExpr) FExpr { return fval{x.v.Sub(o.(fval).v)} }
func (x fval) Mul(o FExpr) FExpr { return fval{x.v.Mul(o.(fval).v)} }
func (x fval) Neg() FExpr        { return fval{x.v.Neg()} }

func (x eval) Add(o EFExpr) EFExpr { return eval{x.v.Add(o.(eval).v)} }
func (x eval) Sub(o EFExpr) EFExpr { return eval{x.v.Sub(o.(eval).v)} }
func (x eval) Mul(o EFExpr) EFExpr { return eval{x.v.Mul(o.(eval).v)} }
func (x eval) Neg() EFExpr         { return eval{x.v.Neg()} }

// DebugBuilder evaluates a chip's constraints against one concrete row pair
// of a real trace (spec §4.C3(b)). AssertZero/AssertZeroExt do not panic —
// they append a ConstraintViolation to Violations, which CheckConstraints
// collects across every row in parallel (spec §5).
type DebugBuilder struct {
	field *core.Field

	row, nextRow int
	lastRow      int

	preprocessedLocal, preprocessedNext []*core.FieldElement
	mainLocal, mainNext                 []*core.FieldElement
	permLocal, permNext                 []Ext

	beta, gamma  Ext
	public       []*core.FieldElement
	cumulativeSum Ext

	Violations []*ConstraintViolation
}

// NewDebugBuilder builds a debug builder for one (local, next) row pair.
// row/lastRow give is_first_row/is_last_row/is_transition their concrete
// 0/1 values for this row.
func NewDebugBuilder(
	field *core.Field,
	row, nextRow, lastRow int,
	preprocessedLocal, preprocessedNext []*core.FieldElement,
	mainLocal, mainNext []*core.FieldElement,
	permLocal, permNext []Ext,
	beta, gamma Ext,
	public []*core.FieldElement,
	cumulativeSum Ext,
) *DebugBuilder {
	return &DebugBuilder{
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

func (d *DebugBuilder) baseField() *core.Field { return d.field }

func wrapF(row []*core.FieldElement) []FExpr {
	out := make([]FExpr, len(row))
	for i, x := range row {
		out[i] = fval{x}
	}
	return out
}

func wrapE(row []Ext) []EFExpr {
	out := make([]EFExpr, len(row))
	for i, x := range row {
		out[i] = eval{x}
	}
	return out
}

func (d *DebugBuilder) Main() TwoRowView {
	return TwoRowView{Local: wrapF(d.mainLocal), Next: wrapF(d.mainNext)}
}

func (d *DebugBuilder) Preprocessed() TwoRowView {
	return TwoRowView{Local: wrapF(d.preprocessedLocal), Next: wrapF(d.preprocessedNext)}
}

func (d *DebugBuilder) Permutation() TwoRowViewExt {
	return TwoRowViewExt{Local: wrapE(d.permLocal), Next: wrapE(d.permNext)}
}

func (d *DebugBuilder) PermutationRandomness() [2]EFExpr {
	return [2]EFExpr{eval{d.beta}, eval{d.gamma}}
}

func (d *DebugBuilder) PublicValues() []FExpr { return wrapF(d.public) }

func (d *DebugBuilder) IsFirstRow() FExpr {
	if d.row == 0 {
		return fval{d.field.One()}
	}
	return fval{d.field.Zero()}
}

func (d *DebugBuilder) IsLastRow() FExpr {
	if d.row == d.lastRow {
		return fval{d.field.One()}
	}
	return fval{d.field.Zero()}
}

func (d *DebugBuilder) IsTransition() FExpr {
	if d.row == d.lastRow {
		return fval{d.field.Zero()}
	}
	return fval{d.field.One()}
}

func (d *DebugBuilder) CumulativeSum() EFExpr { return eval{d.cumulativeSum} }

func (d *DebugBuilder) Constant(x *core.FieldElement) FExpr { return fval{x} }
func (d *DebugBuilder) ConstantExt(x Ext) EFExpr            { return eval{x} }
func (d *DebugBuilder) LiftExt(x FExpr) EFExpr              { return eval{LiftExt(d.field, x.(fval).v)} }

func (d *DebugBuilder) AssertZero(x FExpr) {
	if !x.(fval).v.IsZero() {
		d.Violations = append(d.Violations, &ConstraintViolation{Row: d.row, Constraint: fmt.Sprintf("assert_zero(%s)", x.(fval).v)})
	}
}

func (d *DebugBuilder) AssertZeroExt(x EFExpr) {
	if !x.(eval).v.IsZero() {
		d.Violations = append(d.Violations, &ConstraintViolation{Row: d.row, Constraint: fmt.Sprintf("assert_zero_ext(%s)", x.(eval).v)})
	}
}

// CheckCumulativeSums asserts, for a full set of chips' generated traces,
// that every bus's running sum vanishes individually and not merely in
// aggregate: for each interaction, each row n contributes
// signedMult(row_n) * perm[n][col] to its bus's running total, and every
// bus must land on zero, in addition to the grand total over every chip's
// final cumulative sum. A machine can pass the single global check while
// silently routing value between two buses that should have balanced on
// their own; this is a stronger, per-bus version of that same check run
// during debug trace generation, not part of the succinct proof itself
// (the verifier only ever sees each chip's single scalar CumulativeSum).
func CheckCumulativeSums(field *core.Field, chips []Rap, preprocessed, mains []*Matrix, perms []*ExtMatrix) error {
	busSums := make(map[int]Ext)
	globalSum := ZeroExt(field)

	for i, chip := range chips {
		perm := perms[i]
		if perm == nil {
			continue
		}
		interactions := AllInteractions(chip.Sends(), chip.Receives())

		for n := 0; n < perm.Height; n++ {
			var preprocRow, mainRow []*core.FieldElement
			if preprocessed[i] != nil {
				preprocRow = preprocessed[i].Row(n)
			}
			if mains[i] != nil {
				mainRow = mains[i].Row(n)
			}
			permRow := perm.Row(n)
			for j, it := range interactions {
				val := signedMult(field, it, preprocRow, mainRow).Mul(permRow[j])
				if cur, ok := busSums[it.BusID]; ok {
					busSums[it.BusID] = cur.Add(val)
				} else {
					busSums[it.BusID] = val
				}
			}
		}

		lastRow := perm.Row(perm.Height - 1)
		globalSum = globalSum.Add(lastRow[len(lastRow)-1])
	}

	for busID, sum := range busSums {
		if !sum.IsZero() {
			return newErr(ErrNonZeroCumulativeSum, "bus %d cumulative sum is not zero", busID)
		}
	}
	if !globalSum.IsZero() {
		return newErr(ErrNonZeroCumulativeSum, "global cumulative sum over all chips is nonzero")
	}
	return nil
}

// CheckConstraints runs eval against a fresh DebugBuilder for every row of
// a chip's trace (local/next with wraparound), in parallel per spec §5, and
// merges the resulting violations. rowBuilder constructs the builder for
// one row index; it must be safe to call concurrently.
func CheckConstraints(height int, rowBuilder func(row int) *DebugBuilder, eval func(b Builder)) []*ConstraintViolation {
	if height == 0 {
		return nil
	}
	results := make([][]*ConstraintViolation, height)
	var wg sync.WaitGroup
	wg.Add(height)
	for row := 0; row < height; row++ {
		row := row
		go func() {
			defer wg.Done()
			b := rowBuilder(row)
			eval(b)
			results[row] = b.Violations
		}()
	}
	wg.Wait()

	var all []*ConstraintViolation
	for _, v := range results {
		all = append(all, v...)
	}
	return all
}
