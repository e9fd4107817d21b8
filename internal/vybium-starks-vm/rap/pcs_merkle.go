package rap

import (
	"encoding/binary"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
)

// PcsMerkle is a concrete Pcs used by tests and the example chips: it
// commits each matrix's rows with a core.MerkleTree and answers openings by
// interpolating each column with core.InterpolateLagrange and evaluating
// the result at the requested point (grounded on
// core/polynomial_extended.go:InterpolateLagrange and core/merkle.go). Its
// opening proof carries the evaluated rows in the clear, with no Merkle
// inclusion proofs and no real low-degree test, so it is not succinct or zero-knowledge — the spec
// scopes the PCS as an external collaborator, interface-only, and this is
// the minimal concrete instance needed to exercise the rest of the core
// (see DESIGN.md).
type PcsMerkle struct {
	field *core.Field
}

func NewPcsMerkle(field *core.Field) *PcsMerkle { return &PcsMerkle{field: field} }

func (p *PcsMerkle) NaturalDomainForDegree(n int) (*Domain, error) {
	return NaturalDomainForDegree(p.field, n)
}

func rowsToLeaves(m *Matrix) [][]byte {
	leaves := make([][]byte, m.Height)
	for i, row := range m.Rows {
		buf := make([]byte, 0, m.Width*8)
		for _, c := range row {
			v := c.Big().Uint64()
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], v)
			buf = append(buf, b[:]...)
		}
		leaves[i] = buf
	}
	return leaves
}

func (p *PcsMerkle) Commit(matrices []*Matrix, domains []*Domain) (Commitment, *ProverData, error) {
	trees := make([]*core.MerkleTree, len(matrices))
	var commitBuf []byte
	for i, m := range matrices {
		if m == nil || m.Height == 0 {
			continue
		}
		tree, err := core.NewMerkleTree(rowsToLeaves(m))
		if err != nil {
			return nil, nil, wrapErr(ErrUnknown, err, "pcs: failed to commit matrix %d", i)
		}
		trees[i] = tree
		commitBuf = append(commitBuf, tree.Root()...)
	}
	if len(commitBuf) == 0 {
		return nil, &ProverData{Matrices: matrices, Domains: domains, Trees: trees}, nil
	}
	root, err := core.MerkleRoot(splitInto32(commitBuf))
	if err != nil {
		return nil, nil, wrapErr(ErrUnknown, err, "pcs: failed to combine matrix roots")
	}
	return Commitment(root), &ProverData{Matrices: matrices, Domains: domains, Trees: trees}, nil
}

func splitInto32(buf []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(buf); i += 32 {
		end := i + 32
		if end > len(buf) {
			end = len(buf)
		}
		out = append(out, buf[i:end])
	}
	return out
}

// interpolateColumn builds the polynomial for column c of matrix
// data.Matrices[idx] over its natural domain.
func (p *PcsMerkle) interpolateColumn(data *ProverData, idx, col int) (*core.PolynomialExtended, error) {
	m := data.Matrices[idx]
	d := data.Domains[idx]
	points := d.Elements()
	values := make([]*core.FieldElement, m.Height)
	for i := 0; i < m.Height; i++ {
		values[i] = m.Rows[i][col]
	}
	return core.InterpolateLagrange(p.field, points, values)
}

func (p *PcsMerkle) GetEvaluationsOnDomain(data *ProverData, openingIndex int, target *Domain) (*Matrix, error) {
	m := data.Matrices[openingIndex]
	if m == nil || m.Height == 0 {
		return &Matrix{Width: 0, Height: target.Length}, nil
	}
	targetPoints := target.Elements()
	rows := make([][]*core.FieldElement, target.Length)
	for i := range rows {
		rows[i] = make([]*core.FieldElement, m.Width)
	}
	for c := 0; c < m.Width; c++ {
		poly, err := p.interpolateColumn(data, openingIndex, c)
		if err != nil {
			return nil, wrapErr(ErrUnknown, err, "pcs: failed to interpolate column %d", c)
		}
		for i, x := range targetPoints {
			v, err := poly.EvaluateMultiple([]*core.FieldElement{x})
			if err != nil {
				return nil, wrapErr(ErrUnknown, err, "pcs: failed to evaluate column %d", c)
			}
			rows[i][c] = v
		}
	}
	return &Matrix{Width: m.Width, Height: target.Length, Rows: rows}, nil
}

// OpenRow evaluates matrix openingIndex's columns at point and at
// point*generator (the "next row" shift), returning both as plain
// base-field rows. The generator is the matrix's own natural-domain
// generator.
func (p *PcsMerkle) OpenRow(data *ProverData, openingIndex int, point *core.FieldElement) (local, next []*core.FieldElement, err error) {
	m := data.Matrices[openingIndex]
	d := data.Domains[openingIndex]
	if m == nil || m.Height == 0 {
		return nil, nil, nil
	}
	local = make([]*core.FieldElement, m.Width)
	next = make([]*core.FieldElement, m.Width)
	shifted := point.Mul(d.Generator)
	for c := 0; c < m.Width; c++ {
		poly, err := p.interpolateColumn(data, openingIndex, c)
		if err != nil {
			return nil, nil, wrapErr(ErrUnknown, err, "pcs: failed to interpolate column %d", c)
		}
		lv, err := poly.EvaluateMultiple([]*core.FieldElement{point})
		if err != nil {
			return nil, nil, err
		}
		nv, err := poly.EvaluateMultiple([]*core.FieldElement{shifted})
		if err != nil {
			return nil, nil, err
		}
		local[c], next[c] = lv, nv
	}
	return local, next, nil
}

func (p *PcsMerkle) Open(points []*core.FieldElement, data []*ProverData, challenger Challenger) (*OpeningProof, error) {
	var rows [][]*core.FieldElement
	for _, d := range data {
		for idx, m := range d.Matrices {
			if m == nil || m.Height == 0 {
				continue
			}
			for _, pt := range points {
				local, _, err := p.OpenRow(d, idx, pt)
				if err != nil {
					return nil, err
				}
				rows = append(rows, local)
			}
		}
	}
	return &OpeningProof{Rows: rows}, nil
}

// evaluateColumnAtExt evaluates a base-field-interpolated column's
// polynomial at an extension-field point via Horner's method lifted into
// EF, since core.Polynomial.Eval only accepts base-field arguments.
func (p *PcsMerkle) evaluateColumnAtExt(data *ProverData, idx, col int, point Ext) (Ext, error) {
	poly, err := p.interpolateColumn(data, idx, col)
	if err != nil {
		return Ext{}, err
	}
	coeffs := poly.Coefficients()
	acc := ZeroExt(p.field)
	for d := len(coeffs) - 1; d >= 0; d-- {
		acc = acc.Mul(point).Add(LiftExt(p.field, coeffs[d]))
	}
	return acc, nil
}

// OpenRowExt is OpenRow's out-of-domain counterpart: point is an extension-
// field challenge (ζ), not necessarily a domain member. Used by the
// prover/verifier drivers to open committed matrices at ζ and ζ·g_H.
func (p *PcsMerkle) OpenRowExt(data *ProverData, openingIndex int, point Ext) (local, next []Ext, err error) {
	m := data.Matrices[openingIndex]
	d := data.Domains[openingIndex]
	if m == nil || m.Height == 0 {
		return nil, nil, nil
	}
	local = make([]Ext, m.Width)
	next = make([]Ext, m.Width)
	shifted := point.MulBase(d.Generator)
	for c := 0; c < m.Width; c++ {
		lv, err := p.evaluateColumnAtExt(data, openingIndex, c, point)
		if err != nil {
			return nil, nil, err
		}
		nv, err := p.evaluateColumnAtExt(data, openingIndex, c, shifted)
		if err != nil {
			return nil, nil, err
		}
		local[c], next[c] = lv, nv
	}
	return local, next, nil
}

// Verify compares each claim's row with the proof row at the same index.
// It does not check the rows against the committed Merkle roots, so it is
// only as strong as the caller's trust in the revealed rows — a real PCS
// would instead run a low-degree test against the commitment alone.
func (p *PcsMerkle) Verify(commitments []Commitment, claims []OpeningClaim, proof *OpeningProof, challenger Challenger) error {
	if len(proof.Rows) < len(claims) {
		return newErr(ErrInvalidProofShape, "opening proof has %d rows, expected at least %d", len(proof.Rows), len(claims))
	}
	for i, claim := range claims {
		revealed := proof.Rows[i]
		if len(revealed) != len(claim.Row) {
			return newErr(ErrInvalidOpeningArgument, "opened row %d width mismatch", i)
		}
		for j := range revealed {
			if !revealed[j].Equal(claim.Row[j]) {
				return newErr(ErrInvalidOpeningArgument, "opened row %d column %d mismatch", i, j)
			}
		}
	}
	return nil
}
