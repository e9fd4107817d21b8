package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// Rap is the chip contract (spec §6). Every chip in a machine implements
// this and nothing more; the builder machinery in this package is the only
// thing that ever calls into it.
type Rap interface {
	Width() int
	PreprocessedTrace() *Matrix
	Sends() []Interaction
	Receives() []Interaction

	// Eval asserts the chip's own local constraints against b. It must not
	// branch on concrete cell values, only on structural constants known
	// at setup (spec §4.C2 contract).
	Eval(b Builder)
}

// EvalAll runs a chip's local constraints followed by the permutation-
// constraint evaluator against the same builder (spec §6: "eval_all = eval
// + permutation-constraint evaluator").
func EvalAll(chip Rap, b Builder) {
	chip.Eval(b)
	EvalPermutationConstraints(b, AllInteractions(chip.Sends(), chip.Receives()))
}

// SymbolicMaxDegree runs a chip's full evaluation against a SymbolicBuilder
// sized from its preprocessed/main/interaction widths and returns the
// maximum constraint degree observed.
func SymbolicMaxDegree(field *core.Field, chip Rap, numPublic int) int {
	numPrep := 0
	if pt := chip.PreprocessedTrace(); pt != nil {
		numPrep = pt.Width
	}
	interactions := AllInteractions(chip.Sends(), chip.Receives())
	numPerm := len(interactions) + 1

	b := NewSymbolicBuilder(field, numPrep, chip.Width(), numPerm, numPublic)
	EvalAll(chip, b)
	return b.MaxDegree()
}
