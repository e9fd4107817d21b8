package rap

import (
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// Challenger is the Fiat-Shamir transcript contract (spec §6): observe
// field elements and commitments, sample challenges. The concrete
// SpongeChallenger below is grounded on utils.Channel's
// hash-state/transcript pattern, using sha3 directly rather than Channel's
// string-tagged proof log (the rap core needs byte-level observe/sample,
// not a human-readable trace).
type Challenger interface {
	ObserveElement(x *core.FieldElement)
	ObserveBytes(b []byte)
	Sample() (Ext, error)
	SampleBits(n int) (uint64, error)
}

// SpongeChallenger is a sha3-256 duplex-style transcript: every observe
// folds its input into the running state by hashing state||input; every
// sample derives output bytes from the state and then ratchets the state
// forward, so no challenge can be replayed.
type SpongeChallenger struct {
	field *core.Field
	state [32]byte
}

// NewSpongeChallenger starts a transcript from a fixed all-zero state, the
// same convention utils.Channel uses ([]byte{0}).
func NewSpongeChallenger(field *core.Field) *SpongeChallenger {
	return &SpongeChallenger{field: field}
}

func (s *SpongeChallenger) ObserveBytes(b []byte) {
	buf := append(append([]byte(nil), s.state[:]...), b...)
	s.state = sha3.Sum256(buf)
}

func (s *SpongeChallenger) ObserveElement(x *core.FieldElement) {
	s.ObserveBytes(x.Bytes())
}

// ObserveCommitment folds a PCS commitment's bytes into the transcript.
func (s *SpongeChallenger) ObserveCommitment(c []byte) { s.ObserveBytes(c) }

func (s *SpongeChallenger) draw() *core.FieldElement {
	out := new(big.Int).SetBytes(s.state[:])
	s.state = sha3.Sum256(s.state[:])
	return s.field.NewElement(out)
}

func (s *SpongeChallenger) Sample() (Ext, error) {
	c0, c1, c2 := s.draw(), s.draw(), s.draw()
	return NewExt(s.field, c0, c1, c2), nil
}

func (s *SpongeChallenger) SampleBits(n int) (uint64, error) {
	v := s.draw().Big()
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(n)), big.NewInt(1))
	return v.And(v, mask).Uint64(), nil
}

// Commitment is an opaque PCS commitment, carried verbatim in the proof and
// fed to the Challenger.
type Commitment []byte

// OpenedRow is one row-pair opening for a committed matrix: values at the
// out-of-domain point and its "next row" shift.
type OpenedRow struct {
	Local []Ext
	Next  []Ext
}

// Pcs is the polynomial commitment scheme contract (spec §6), abstracted
// away from the core exactly as the spec requires. PcsMerkle below is a
// concrete, non-succinct stand-in used by tests: it "opens" by revealing
// the evaluated rows in the clear, with no Merkle proof of inclusion and no
// real low-degree test — sufficient to exercise every RAP
// component's wiring without depending on an external FRI implementation
// this pack never shows source for (see DESIGN.md).
type Pcs interface {
	NaturalDomainForDegree(n int) (*Domain, error)
	Commit(matrices []*Matrix, domains []*Domain) (Commitment, *ProverData, error)
	GetEvaluationsOnDomain(data *ProverData, openingIndex int, target *Domain) (*Matrix, error)
	Open(points []*core.FieldElement, data []*ProverData, challenger Challenger) (*OpeningProof, error)
	Verify(commitments []Commitment, claims []OpeningClaim, proof *OpeningProof, challenger Challenger) error
}

// ProverData is the private state a Pcs.Commit returns and later
// Pcs.Open/GetEvaluationsOnDomain calls consume.
type ProverData struct {
	Matrices []*Matrix
	Domains  []*Domain
	Trees    []*core.MerkleTree
}

// OpeningProof bundles whatever a concrete Pcs needs the verifier to check
// an opening; PcsMerkle fills Rows with the evaluated rows and leaves
// Proofs empty.
type OpeningProof struct {
	Rows   [][]*core.FieldElement
	Proofs [][]core.ProofNode
}

// OpeningClaim is one (commitment-relative index, domain, claimed row)
// triple the verifier checks against an OpeningProof.
type OpeningClaim struct {
	MatrixIndex int
	RowIndex    int
	Row         []*core.FieldElement
}
