package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// busTag returns gamma^(busID+1), the per-bus tag spec §4.C5 step 1 calls
// "alphas[argument_index]" (precomputed as gamma.powers().skip(1)).
func busTag(gamma Ext, busID int) Ext {
	return gamma.Pow(busID + 1)
}

// rlc evaluates the random linear combination for one interaction at one
// row: busTag(bus_id) + sum_j beta^j * fields[j].apply(row).
func rlc(field *core.Field, it Interaction, beta, gamma Ext, preprocRow, mainRow []*core.FieldElement) Ext {
	acc := busTag(gamma, it.BusID)
	betaPow := OneExt(field)
	for _, fcol := range it.Fields {
		term := LiftExt(field, fcol.ApplyF(preprocRow, mainRow)).Mul(betaPow)
		acc = acc.Add(term)
		betaPow = betaPow.Mul(beta)
	}
	return acc
}

func signedMult(field *core.Field, it Interaction, preprocRow, mainRow []*core.FieldElement) Ext {
	mult := it.Count.ApplyF(preprocRow, mainRow)
	ext := LiftExt(field, mult)
	if it.Kind == Receive {
		return ext.Neg()
	}
	return ext
}

// emptyRow returns a zero-length slice standing in for an absent
// preprocessed/main matrix, so ApplyF never needs a nil check (spec §8
// boundary: "Chip with no preprocessed: all preprocessed_* row slices
// treated as empty").
func emptyRow() []*core.FieldElement { return nil }

// GeneratePermutationTrace builds the permutation trace for one chip (spec
// §4.C5). preprocessed may be nil. main must have at least one row unless
// the chip is empty, in which case callers should skip trace generation
// entirely (height 0).
func GeneratePermutationTrace(
	field *core.Field,
	preprocessed *Matrix,
	main *Matrix,
	interactions []Interaction,
	beta, gamma Ext,
) (*ExtMatrix, Ext, error) {
	height := main.Height
	k := len(interactions)
	width := k + 1

	rlcs := make([][]Ext, height)
	signedMults := make([][]Ext, height)
	for n := 0; n < height; n++ {
		var preprocRow []*core.FieldElement
		if preprocessed != nil {
			preprocRow = preprocessed.Row(n)
		} else {
			preprocRow = emptyRow()
		}
		mainRow := main.Row(n)

		rowRlcs := make([]Ext, k)
		rowSigned := make([]Ext, k)
		for m, it := range interactions {
			rowRlcs[m] = rlc(field, it, beta, gamma, preprocRow, mainRow)
			rowSigned[m] = signedMult(field, it, preprocRow, mainRow)
		}
		rlcs[n] = rowRlcs
		signedMults[n] = rowSigned
	}

	// Flatten to one slice for a single batched inverse call (spec §9
	// "batch_multiplicative_inverse_allowing_zero").
	flatRlcs := make([]Ext, 0, height*k)
	for n := 0; n < height; n++ {
		flatRlcs = append(flatRlcs, rlcs[n]...)
	}
	flatPerm, err := BatchInvertExtAllowingZero(field, flatRlcs)
	if err != nil {
		return nil, Ext{}, wrapErr(ErrUnknown, err, "permutation trace: batch inverse failed")
	}

	rows := make([][]Ext, height)
	phi := ZeroExt(field)
	for n := 0; n < height; n++ {
		row := make([]Ext, width)
		copy(row, flatPerm[n*k:(n+1)*k])

		rowSum := ZeroExt(field)
		for m := 0; m < k; m++ {
			rowSum = rowSum.Add(signedMults[n][m].Mul(row[m]))
		}
		phi = phi.Add(rowSum)
		row[k] = phi
		rows[n] = row
	}

	perm := NewExtMatrix(width, rows)
	cumulativeSum := phi
	if height == 0 {
		cumulativeSum = ZeroExt(field)
	}
	return perm, cumulativeSum, nil
}

// EvalPermutationConstraints emits the RAP constraints tying the
// permutation trace to the main/preprocessed rows already exposed by b
// (spec §4.C6). It is builder-polymorphic: called identically from the
// debug, tracking, prover-folder and verifier-folder evaluation paths via
// rap.EvalAll.
func EvalPermutationConstraints(b Builder, interactions []Interaction) {
	k := len(interactions)
	prep := b.Preprocessed()
	main := b.Main()
	perm := b.Permutation()
	randomness := b.PermutationRandomness()
	beta, gamma := randomness[0], randomness[1]

	rlcExpr := func(it Interaction, preprocRow, mainRow []FExpr) EFExpr {
		acc := busTagExpr(b, gamma, it.BusID)
		betaPow := b.ConstantExt(OneExt(fieldOf(b)))
		for _, fcol := range it.Fields {
			term := fcol.ApplyRowExpr(b, preprocRow, mainRow)
			acc = acc.Add(b.LiftExt(term).Mul(betaPow))
			betaPow = betaPow.Mul(beta)
		}
		return acc
	}

	signedMultExpr := func(it Interaction, preprocRow, mainRow []FExpr) EFExpr {
		mult := it.Count.ApplyRowExpr(b, preprocRow, mainRow)
		ext := b.LiftExt(mult)
		if it.Kind == Receive {
			return ext.Neg()
		}
		return ext
	}

	// Reciprocal constraints (one per interaction, current row only).
	for m, it := range interactions {
		r := rlcExpr(it, prep.Local, main.Local)
		AssertOneExt(b, r.Mul(perm.Local[m]))
	}

	sumLocal := func() EFExpr {
		acc := b.ConstantExt(ZeroExt(fieldOf(b)))
		for m, it := range interactions {
			acc = acc.Add(signedMultExpr(it, prep.Local, main.Local).Mul(perm.Local[m]))
		}
		return acc
	}
	sumNext := func() EFExpr {
		acc := b.ConstantExt(ZeroExt(fieldOf(b)))
		for m, it := range interactions {
			acc = acc.Add(signedMultExpr(it, prep.Next, main.Next).Mul(perm.Next[m]))
		}
		return acc
	}

	phiLocal := perm.Local[k]
	phiNext := perm.Next[k]

	wt := WhenTransition(b)
	AssertEqExt(wt, phiNext.Sub(phiLocal), sumNext())

	wf := WhenFirstRow(b)
	AssertEqExt(wf, phiLocal, sumLocal())

	wl := WhenLastRow(b)
	AssertEqExt(wl, phiLocal, b.CumulativeSum())
}

// busTagExpr computes gamma^(busID+1) entirely within the builder's own
// expression algebra (square-and-multiply over EFExpr.Mul), so it works
// identically for every builder including the symbolic one — bus ids are
// structural constants known at setup, but gamma itself is not a concrete
// value the symbolic builder ever holds.
func busTagExpr(b Builder, gamma EFExpr, busID int) EFExpr {
	n := busID + 1
	result := b.ConstantExt(OneExt(fieldOf(b)))
	base := gamma
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return result
}
