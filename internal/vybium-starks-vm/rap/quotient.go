package rap

import (
	"sync"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// EvaluateQuotient implements C8 for one chip: evaluates the folded
// constraint polynomial over the quotient domain and splits the result
// into quotientDegree equal-height chunks. Evaluation at each point is
// independent, so the loop is parallelized with goroutines (spec §5:
// "Quotient evaluation (C8): parallel over packed batches of the quotient
// domain" — here one goroutine per point rather than a SIMD packed batch,
// see DESIGN.md).
func EvaluateQuotient(
	field *core.Field,
	t *ChipTrace,
	pcs Pcs,
	preprocessedData, mainData, permutationData *ProverData,
	beta, gamma, alpha Ext,
	publicValues []*core.FieldElement,
	quotientDegree int,
) (*QuotientChunks, error) {
	height := t.Height()
	traceDomain, err := NaturalDomainForDegree(field, height)
	if err != nil {
		return nil, err
	}
	quotientDomain, err := QuotientDomain(field, height, quotientDegree)
	if err != nil {
		return nil, err
	}

	var preprocessedLDE, mainLDE, permLDE *Matrix
	if t.HasPreprocessedOpening {
		preprocessedLDE, err = pcs.GetEvaluationsOnDomain(preprocessedData, t.PreprocessedOpeningIndex, quotientDomain)
		if err != nil {
			return nil, err
		}
	}
	if t.HasMainOpening {
		mainLDE, err = pcs.GetEvaluationsOnDomain(mainData, t.MainOpeningIndex, quotientDomain)
		if err != nil {
			return nil, err
		}
	}
	if t.HasPermutationOpening {
		permLDE, err = pcs.GetEvaluationsOnDomain(permutationData, t.PermutationOpeningIndex, quotientDomain)
		if err != nil {
			return nil, err
		}
	}

	n := quotientDomain.Length
	qVals := make([]Ext, n)
	errs := make([]error, n)

	publicExt := make([]Ext, len(publicValues))
	for i, x := range publicValues {
		publicExt[i] = LiftExt(field, x)
	}

	var cumSum Ext
	if t.CumulativeSum != nil {
		cumSum = *t.CumulativeSum
	} else {
		cumSum = ZeroExt(field)
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			v, err := evalQuotientPoint(field, t.Chip, quotientDomain, traceDomain, i, quotientDegree,
				preprocessedLDE, mainLDE, permLDE, beta, gamma, alpha, publicExt, cumSum)
			if err != nil {
				errs[i] = err
				return
			}
			qVals[i] = v
		}()
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}

	// Chunk c is the strided subsequence {c, c+quotientDegree, c+2*quotientDegree, ...}:
	// stepping by quotientDegree multiplies a quotient-domain point by
	// generator^quotientDegree, an order-height element, so each chunk's
	// indices form their own genuine height-sized coset (its own
	// sub-domain, matching the "next row" shift already used above).
	chunks := make([]*Matrix, quotientDegree)
	for c := 0; c < quotientDegree; c++ {
		col := make([]Ext, height)
		for j := 0; j < height; j++ {
			col[j] = qVals[c+j*quotientDegree]
		}
		parts := Flatten(col)
		rows := make([][]*core.FieldElement, height)
		for r := 0; r < height; r++ {
			rows[r] = []*core.FieldElement{parts[0][r], parts[1][r], parts[2][r]}
		}
		chunks[c] = NewMatrix(ExtDegree, rows)
	}
	return &QuotientChunks{Chunks: chunks}, nil
}

func evalQuotientPoint(
	field *core.Field,
	chip Rap,
	quotientDomain, traceDomain *Domain,
	i, quotientDegree int,
	preprocessedLDE, mainLDE, permLDE *Matrix,
	beta, gamma, alpha Ext,
	publicExt []Ext,
	cumSum Ext,
) (Ext, error) {
	n := quotientDomain.Length
	nextIdx := (i + quotientDegree) % n
	y := quotientDomain.Element(i)

	liftRow := func(m *Matrix, idx int) []Ext {
		if m == nil {
			return nil
		}
		row := m.Rows[idx]
		out := make([]Ext, len(row))
		for c, x := range row {
			out[c] = LiftExt(field, x)
		}
		return out
	}

	unflattenRow := func(m *Matrix, idx int) []Ext {
		if m == nil {
			return nil
		}
		row := m.Rows[idx]
		width := len(row) / ExtDegree
		out := make([]Ext, width)
		for g := 0; g < width; g++ {
			out[g] = NewExt(field, row[g*ExtDegree], row[g*ExtDegree+1], row[g*ExtDegree+2])
		}
		return out
	}

	preprocessedLocal := liftRow(preprocessedLDE, i)
	preprocessedNext := liftRow(preprocessedLDE, nextIdx)
	mainLocal := liftRow(mainLDE, i)
	mainNext := liftRow(mainLDE, nextIdx)
	permLocal := unflattenRow(permLDE, i)
	permNext := unflattenRow(permLDE, nextIdx)

	sels, err := traceDomain.SelectorsAtPoint(y)
	if err != nil {
		return Ext{}, err
	}

	folder := NewProverFolder(
		field, alpha,
		preprocessedLocal, preprocessedNext,
		mainLocal, mainNext,
		permLocal, permNext,
		beta, gamma, publicExt,
		LiftExt(field, sels.IsFirstRow), LiftExt(field, sels.IsLastRow), LiftExt(field, sels.IsTransition),
		cumSum,
	)
	EvalAll(chip, folder)

	return folder.Accumulator().Mul(LiftExt(field, sels.InvZeroifier)), nil
}
