package rap

import (
	"math/big"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// xExt is the extension generator X, used to reassemble an EF value from
// its D flattened (and separately opened) monomial components.
func xExt(field *core.Field) Ext { return NewExt(field, field.Zero(), field.One(), field.Zero()) }

// reassembleExt rebuilds an EF value from components opened independently
// at an extension-field point: Σ_e components[e] * X^e (spec §4.C10 step 1
// "monomial(e) is the e-th EF basis element").
func reassembleExt(field *core.Field, components []Ext) Ext {
	acc := ZeroExt(field)
	x := xExt(field)
	pow := OneExt(field)
	for _, c := range components {
		acc = acc.Add(c.Mul(pow))
		pow = pow.Mul(x)
	}
	return acc
}

// chunkSubDomain returns chunk i's own sub-domain of quotientDomain: the
// strided coset {offset*g^i, offset*g^i*g^q, ...} of size height, matching
// how EvaluateQuotient actually splits the evaluation vector.
func chunkSubDomain(field *core.Field, quotientDomain *Domain, quotientDegree, i int) *Domain {
	offset := quotientDomain.Offset.Mul(quotientDomain.Generator.Exp(big.NewInt(int64(i))))
	generator := quotientDomain.Generator.Exp(big.NewInt(int64(quotientDegree)))
	height := quotientDomain.Length / quotientDegree
	return &Domain{field: field, Offset: offset, Generator: generator, Length: height}
}

// zerofierAtExt evaluates d's vanishing polynomial Z_d(x) = x^Length -
// Offset^Length at an extension-field point x.
func zerofierAtExt(field *core.Field, d *Domain, x Ext) Ext {
	lengthPow := LiftExt(field, d.Offset.Exp(big.NewInt(int64(d.Length))))
	return x.Pow(d.Length).Sub(lengthPow)
}

// recomposeQuotientAtZeta implements spec §4.C10 step 1: rebuilds the
// quotient polynomial's value at zeta from its quotientDegree opened
// chunks, weighting chunk i by zps[i] = Π_{j≠i} Z_Dj(zeta) / Z_Dj(offset_i)
// (the standard CRT-style reassembly of a function known on disjoint
// cosets whose union is the full quotient domain).
func recomposeQuotientAtZeta(field *core.Field, quotientDomain *Domain, quotientDegree int, chunks [][]Ext, zeta Ext) (Ext, error) {
	subDomains := make([]*Domain, quotientDegree)
	for i := 0; i < quotientDegree; i++ {
		subDomains[i] = chunkSubDomain(field, quotientDomain, quotientDegree, i)
	}

	zAtZeta := make([]Ext, quotientDegree)
	for i, d := range subDomains {
		zAtZeta[i] = zerofierAtExt(field, d, zeta)
	}

	zps := make([]Ext, quotientDegree)
	for i := range subDomains {
		acc := OneExt(field)
		for j := range subDomains {
			if i == j {
				continue
			}
			denom := zerofierAtExt(field, subDomains[j], LiftExt(field, subDomains[i].Offset))
			denomInv, err := denom.Inv()
			if err != nil {
				return Ext{}, wrapErr(ErrOodEvaluationMismatch, err, "chunk %d sub-domain zerofiers collide", i)
			}
			acc = acc.Mul(zAtZeta[j]).Mul(denomInv)
		}
		zps[i] = acc
	}

	result := ZeroExt(field)
	for i, chunk := range chunks {
		result = result.Add(zps[i].Mul(reassembleExt(field, chunk)))
	}
	return result, nil
}

// Verify runs the verifier driver (spec §4.C10). It re-derives every
// challenge in the same order Prove used them and checks, per chip, that
// the quotient recomposed from its opened chunks matches the folded
// constraints at zeta; globally, that all chips' cumulative sums vanish.
func Verify(field *core.Field, vk *VerifyingKey, chips []Rap, publicValues []*core.FieldElement, proof *Proof, challenger Challenger) error {
	if len(chips) != len(proof.ChipProofs) {
		return newErr(ErrInvalidProofShape, "chip count %d does not match proof %d", len(chips), len(proof.ChipProofs))
	}

	if proof.Commitments.Preprocessed != nil {
		challenger.ObserveBytes(proof.Commitments.Preprocessed)
	}
	for i, cp := range proof.ChipProofs {
		if vk != nil && i < len(vk.Degrees) && vk.Degrees[i] != (1<<uint(cp.LogDegree)) {
			return newErr(ErrInvalidProofShape, "chip %d degree mismatch: verifying key says %d, proof says %d", i, vk.Degrees[i], 1<<uint(cp.LogDegree))
		}
		challenger.ObserveBytes([]byte{byte(cp.LogDegree)})
	}

	if proof.Commitments.Main != nil {
		challenger.ObserveBytes(proof.Commitments.Main)
	}

	beta, err := challenger.Sample()
	if err != nil {
		return err
	}
	gamma, err := challenger.Sample()
	if err != nil {
		return err
	}

	if proof.Commitments.Permutation != nil {
		challenger.ObserveBytes(proof.Commitments.Permutation)
	}

	globalCumSum := ZeroExt(field)
	for _, cp := range proof.ChipProofs {
		if cp.CumulativeSum != nil {
			for _, c := range cp.CumulativeSum.Components() {
				challenger.ObserveElement(c)
			}
			globalCumSum = globalCumSum.Add(*cp.CumulativeSum)
		}
	}

	alpha, err := challenger.Sample()
	if err != nil {
		return err
	}

	if proof.Commitments.Quotient != nil {
		challenger.ObserveBytes(proof.Commitments.Quotient)
	}

	zeta, err := challenger.Sample()
	if err != nil {
		return err
	}

	publicExt := make([]Ext, len(publicValues))
	for j, x := range publicValues {
		publicExt[j] = LiftExt(field, x)
	}

	for i, chip := range chips {
		cp := proof.ChipProofs[i]
		height := 1 << uint(cp.LogDegree)

		if cp.Opened.Main == nil && cp.Opened.Preprocessed == nil && cp.Opened.Permutation == nil && len(cp.Opened.QuotientChunks) == 0 {
			// Empty chip (spec §8 boundary): contributes nothing beyond its
			// already-observed (possibly absent) cumulative sum.
			continue
		}

		if chip.PreprocessedTrace() != nil && cp.Opened.Preprocessed == nil {
			return wrapErr(ErrMissingProofData, nil, "chip %d missing preprocessed opening", i)
		}
		if cp.Opened.Main == nil {
			return wrapErr(ErrMissingProofData, nil, "chip %d missing main opening", i)
		}

		quotientDegree := len(cp.Opened.QuotientChunks)
		if quotientDegree == 0 {
			return wrapErr(ErrMissingProofData, nil, "chip %d has a trace but no quotient chunks", i)
		}

		traceDomain, err := NaturalDomainForDegree(field, height)
		if err != nil {
			return err
		}
		quotientDomain, err := QuotientDomain(field, height, quotientDegree)
		if err != nil {
			return err
		}

		quotientAtZeta, err := recomposeQuotientAtZeta(field, quotientDomain, quotientDegree, cp.Opened.QuotientChunks, zeta)
		if err != nil {
			return err
		}

		pairOrNil := func(p *OpenedPair) ([]Ext, []Ext) {
			if p == nil {
				return nil, nil
			}
			return p.Local, p.Next
		}
		prepLocal, prepNext := pairOrNil(cp.Opened.Preprocessed)
		mainLocal, mainNext := pairOrNil(cp.Opened.Main)
		permLocal, permNext := pairOrNil(cp.Opened.Permutation)
		// Permutation columns were committed flattened: ExtDegree adjacent
		// base columns per EF column, so rebuild each EF value here.
		unflatten := func(flat []Ext) []Ext {
			out := make([]Ext, len(flat)/ExtDegree)
			for c := range out {
				out[c] = reassembleExt(field, flat[c*ExtDegree:(c+1)*ExtDegree])
			}
			return out
		}
		permLocal, permNext = unflatten(permLocal), unflatten(permNext)

		sels, err := traceDomain.SelectorsAtPointExt(zeta)
		if err != nil {
			return err
		}

		var cumSum Ext
		if cp.CumulativeSum != nil {
			cumSum = *cp.CumulativeSum
		} else {
			cumSum = ZeroExt(field)
		}

		folder := NewVerifierFolder(
			field, alpha,
			prepLocal, prepNext,
			mainLocal, mainNext,
			permLocal, permNext,
			beta, gamma, publicExt,
			sels.IsFirstRow, sels.IsLastRow, sels.IsTransition,
			cumSum,
		)
		EvalAll(chip, folder)

		lhs := folder.Accumulator().Mul(sels.InvZeroifier)
		if !lhs.Equal(quotientAtZeta) {
			return newErr(ErrOodEvaluationMismatch, "chip %d: folded constraints at zeta do not match recomposed quotient", i)
		}
	}

	if !globalCumSum.IsZero() {
		return newErr(ErrNonZeroCumulativeSum, "global cumulative sum over all chips is nonzero")
	}
	return nil
}
