package rap

// OpenedPair is the {local, next} opening of one committed matrix at ζ and
// ζ·g_H (spec §6 "Proof wire layout").
type OpenedPair struct {
	Local []Ext
	Next  []Ext
}

// ChipOpenedValues is one chip's slice of the opening proof.
type ChipOpenedValues struct {
	Preprocessed   *OpenedPair
	Main           *OpenedPair
	Permutation    *OpenedPair
	QuotientChunks [][]Ext // quotientDegree entries, each ExtDegree wide
}

// ChipProof is one chip's contribution to the machine proof.
type ChipProof struct {
	LogDegree     int
	CumulativeSum *Ext
	Opened        ChipOpenedValues
}

// Commitments bundles the four round commitments, any of which may be nil
// if no chip produced a trace for that round.
type Commitments struct {
	Preprocessed Commitment
	Main         Commitment
	Permutation  Commitment
	Quotient     Commitment
}

// Proof is the proof struct this core emits and consumes (spec §6).
type Proof struct {
	Commitments Commitments
	ChipProofs  []ChipProof
}

// VerifyingKey records what the verifier needs to know ahead of time:
// the preprocessed commitment (if any chip has preprocessed data) and the
// expected height of each chip's trace domain (spec §6).
type VerifyingKey struct {
	PreprocessedCommitment Commitment
	Degrees                []int
}
