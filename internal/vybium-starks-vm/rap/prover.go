package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// Prove runs the prover driver (spec §4.C9) over the given chips and their
// witness main traces. The Fiat-Shamir order below must match Verify
// exactly.
func Prove(field *core.Field, pcs Pcs, chips []Rap, mains map[Rap]*Matrix, publicValues []*core.FieldElement, challenger Challenger) (*Proof, error) {
	trace := NewMachineTrace(field, chips)
	state := NewPipelineState(trace, pcs)

	if err := state.LoadPreprocessed(); err != nil {
		return nil, err
	}
	if err := state.CommitPreprocessed(); err != nil {
		return nil, err
	}

	if err := state.LoadMain(mains); err != nil {
		return nil, err
	}

	// 1. Observe preprocessed commitment (if any) and all trace degrees.
	if state.PreprocessedCommitment != nil {
		challenger.ObserveBytes(state.PreprocessedCommitment)
	}
	for _, t := range trace.Traces {
		challenger.ObserveBytes([]byte{byte(log2Ceil(t.Height()))})
	}

	if err := state.CommitMain(); err != nil {
		return nil, err
	}

	// 2. Commit main; observe commitment.
	if state.MainCommitment != nil {
		challenger.ObserveBytes(state.MainCommitment)
	}

	// 3. Sample [beta, gamma].
	beta, err := challenger.Sample()
	if err != nil {
		return nil, err
	}
	gamma, err := challenger.Sample()
	if err != nil {
		return nil, err
	}

	// 4. Generate+commit permutation; observe commitment.
	if err := state.GeneratePermutation(field, beta, gamma); err != nil {
		return nil, err
	}
	if err := state.CommitPermutation(field); err != nil {
		return nil, err
	}
	if state.PermutationCommitment != nil {
		challenger.ObserveBytes(state.PermutationCommitment)
	}

	if err := checkTraceCumulativeSums(field, trace); err != nil {
		return nil, err
	}

	// 5. For each chip, observe cumulative_sum.
	for _, t := range trace.Traces {
		if t.CumulativeSum != nil {
			for _, c := range t.CumulativeSum.Components() {
				challenger.ObserveElement(c)
			}
		}
	}

	// 6. Sample alpha.
	alpha, err := challenger.Sample()
	if err != nil {
		return nil, err
	}
	state.Alpha = alpha

	// 7. Compute+commit quotient chunks; observe commitment.
	if err := state.GenerateQuotient(field, len(publicValues), publicValues); err != nil {
		return nil, err
	}
	if err := state.CommitQuotient(field); err != nil {
		return nil, err
	}
	if state.QuotientCommitment != nil {
		challenger.ObserveBytes(state.QuotientCommitment)
	}

	// 8. Sample zeta.
	zeta, err := challenger.Sample()
	if err != nil {
		return nil, err
	}

	// 9-10. Open all committed matrices at zeta (and zeta*g_H where
	// applicable) and assemble the proof.
	pm, ok := pcs.(*PcsMerkle)
	if !ok {
		return nil, newErr(ErrUnknown, "prover requires a concrete PcsMerkle instance")
	}

	chipProofs := make([]ChipProof, len(trace.Traces))
	for i, t := range trace.Traces {
		height := t.Height()
		cp := ChipProof{LogDegree: log2Ceil(height), CumulativeSum: t.CumulativeSum}

		if t.HasPreprocessedOpening {
			local, next, err := pm.OpenRowExt(state.PreprocessedData, t.PreprocessedOpeningIndex, zeta)
			if err != nil {
				return nil, err
			}
			cp.Opened.Preprocessed = &OpenedPair{Local: local, Next: next}
		}
		if t.HasMainOpening {
			local, next, err := pm.OpenRowExt(state.MainData, t.MainOpeningIndex, zeta)
			if err != nil {
				return nil, err
			}
			cp.Opened.Main = &OpenedPair{Local: local, Next: next}
		}
		if t.HasPermutationOpening {
			local, next, err := pm.OpenRowExt(state.PermutationData, t.PermutationOpeningIndex, zeta)
			if err != nil {
				return nil, err
			}
			cp.Opened.Permutation = &OpenedPair{Local: local, Next: next}
		}
		if t.HasQuotientOpening {
			cp.Opened.QuotientChunks = make([][]Ext, len(t.Quotient.Chunks))
			for c := range t.Quotient.Chunks {
				local, _, err := pm.OpenRowExt(state.QuotientData, t.QuotientOpeningIndex+c, zeta)
				if err != nil {
					return nil, err
				}
				cp.Opened.QuotientChunks[c] = local
			}
		}
		chipProofs[i] = cp
	}

	return &Proof{
		Commitments: Commitments{
			Preprocessed: state.PreprocessedCommitment,
			Main:         state.MainCommitment,
			Permutation:  state.PermutationCommitment,
			Quotient:     state.QuotientCommitment,
		},
		ChipProofs: chipProofs,
	}, nil
}

// checkTraceCumulativeSums runs the per-bus cumulative-sum check (spec §9)
// against the witness the prover just generated, before any folding or
// commitment opening happens. A bus imbalance caught here is a bug in the
// chip set itself (mismatched sends/receives), not a malicious witness, so
// the prover fails closed rather than producing a proof Verify would later
// reject with a less specific error.
func checkTraceCumulativeSums(field *core.Field, trace *MachineTrace) error {
	chips := make([]Rap, len(trace.Traces))
	preprocessed := make([]*Matrix, len(trace.Traces))
	mains := make([]*Matrix, len(trace.Traces))
	perms := make([]*ExtMatrix, len(trace.Traces))
	for i, t := range trace.Traces {
		chips[i] = t.Chip
		preprocessed[i] = t.Preprocessed
		mains[i] = t.Main
		perms[i] = t.Permutation
	}
	return CheckCumulativeSums(field, chips, preprocessed, mains, perms)
}

func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}
	bits := 0
	v := n - 1
	for v > 0 {
		v >>= 1
		bits++
	}
	return bits
}
