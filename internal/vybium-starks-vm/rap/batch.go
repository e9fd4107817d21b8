package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// BatchInvertExtAllowingZero inverts every nonzero element of values using
// Montgomery's batched-inversion trick (the same accumulate/invert/
// back-substitute shape as core.Field.BatchInversion) and leaves zero
// entries as zero.
//
// GeneratePermutationTrace uses it rather than a plain batch inverse so that
// a random linear combination that happens to vanish on some row does not
// abort trace generation: that cell is stored as perm[n,m] = 0, and the
// reciprocal constraint rlc*perm = 1 does not hold there (spec §4.C5 step 2).
func BatchInvertExtAllowingZero(field *core.Field, values []Ext) ([]Ext, error) {
	n := len(values)
	out := make([]Ext, n)

	nonzeroIdx := make([]int, 0, n)
	nonzero := make([]Ext, 0, n)
	for i, v := range values {
		if v.IsZero() {
			out[i] = ZeroExt(field)
			continue
		}
		nonzeroIdx = append(nonzeroIdx, i)
		nonzero = append(nonzero, v)
	}
	if len(nonzero) == 0 {
		return out, nil
	}

	// Phase 1: accumulate products.
	acc := make([]Ext, len(nonzero))
	acc[0] = nonzero[0]
	for i := 1; i < len(nonzero); i++ {
		acc[i] = acc[i-1].Mul(nonzero[i])
	}

	// Phase 2: invert the final accumulator once.
	accInv, err := acc[len(acc)-1].Inv()
	if err != nil {
		return nil, err
	}

	// Phase 3: back-substitute.
	inverses := make([]Ext, len(nonzero))
	for i := len(nonzero) - 1; i > 0; i-- {
		inverses[i] = accInv.Mul(acc[i-1])
		accInv = accInv.Mul(nonzero[i])
	}
	inverses[0] = accInv

	for k, i := range nonzeroIdx {
		out[i] = inverses[k]
	}
	return out, nil
}
