package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// Matrix is a trace over the base field: a fixed-width sequence of rows,
// stored row-major. Height is always a power of two; an empty chip has
// height 0 (spec §3).
type Matrix struct {
	Width  int
	Height int
	Rows   [][]*core.FieldElement
}

// NewMatrix builds a Matrix from explicit rows, validating uniform width.
func NewMatrix(width int, rows [][]*core.FieldElement) *Matrix {
	for _, r := range rows {
		if len(r) != width {
			panic("rap: matrix row width mismatch")
		}
	}
	return &Matrix{Width: width, Height: len(rows), Rows: rows}
}

// Row returns row i, wrapping around at the boundary — used to build the
// "next row" half of a two-row view at the last row (spec §4.C2).
func (m *Matrix) Row(i int) []*core.FieldElement {
	return m.Rows[i%m.Height]
}

// ExtMatrix is the extension-field analogue of Matrix, used for the
// permutation trace (spec §3).
type ExtMatrix struct {
	Width  int
	Height int
	Rows   [][]Ext
}

func NewExtMatrix(width int, rows [][]Ext) *ExtMatrix {
	for _, r := range rows {
		if len(r) != width {
			panic("rap: ext matrix row width mismatch")
		}
	}
	return &ExtMatrix{Width: width, Height: len(rows), Rows: rows}
}

func (m *ExtMatrix) Row(i int) []Ext {
	return m.Rows[i%m.Height]
}

// QuotientChunks is a chip's quotient, split into quotient_degree
// equal-height base-field matrices (spec §3).
type QuotientChunks struct {
	Chunks []*Matrix
}

// ChipTrace is one chip's trace bundle as it moves through the machine
// pipeline (spec §3 "Trace bundle per chip"). Fields are populated
// stage-by-stage by MachineTrace; nil means "not yet produced" or "this
// chip has no such component".
type ChipTrace struct {
	Chip Rap

	Preprocessed *Matrix
	Main         *Matrix
	Permutation  *ExtMatrix
	CumulativeSum *Ext
	Quotient     *QuotientChunks

	PreprocessedOpeningIndex int
	MainOpeningIndex         int
	PermutationOpeningIndex  int
	QuotientOpeningIndex     int

	HasPreprocessedOpening bool
	HasMainOpening         bool
	HasPermutationOpening  bool
	HasQuotientOpening     bool

	QuotientDegree int
}

// Height returns the chip's trace domain height: the max of whichever of
// preprocessed/main/permutation are present, 0 if none are (spec §3
// invariant 1).
func (t *ChipTrace) Height() int {
	h := 0
	if t.Preprocessed != nil && t.Preprocessed.Height > h {
		h = t.Preprocessed.Height
	}
	if t.Main != nil && t.Main.Height > h {
		h = t.Main.Height
	}
	if t.Permutation != nil && t.Permutation.Height > h {
		h = t.Permutation.Height
	}
	return h
}

// MachineTrace is the ordered collection of every chip's trace bundle,
// threaded through the staged pipeline in pipeline.go.
type MachineTrace struct {
	Field  *core.Field
	Traces []*ChipTrace
}

// NewMachineTrace seeds one ChipTrace slot per chip, in the fixed chip
// order the caller supplies (this order determines chip_proofs ordering in
// the final proof).
func NewMachineTrace(field *core.Field, chips []Rap) *MachineTrace {
	traces := make([]*ChipTrace, len(chips))
	for i, c := range chips {
		traces[i] = &ChipTrace{Chip: c}
	}
	return &MachineTrace{Field: field, Traces: traces}
}
