// Package chips holds example Rap implementations exercising the RAP core
// in internal/vybium-starks-vm/rap.
package chips

import (
	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/rap"
)

// FibonacciChip is a two-column chip with no cross-table interactions: its
// main trace holds columns (a, b) with a_0 = firstA, b_0 = firstB and the
// transition a' = b, b' = a + b. It exercises the boundary-constrained,
// interaction-free corner of the chip contract (single-chip, no bus).
type FibonacciChip struct {
	field  *core.Field
	firstA *core.FieldElement
	firstB *core.FieldElement
}

// NewFibonacciChip builds a chip asserting the given starting pair.
func NewFibonacciChip(field *core.Field, firstA, firstB *core.FieldElement) *FibonacciChip {
	return &FibonacciChip{field: field, firstA: firstA, firstB: firstB}
}

func (c *FibonacciChip) Width() int                     { return 2 }
func (c *FibonacciChip) PreprocessedTrace() *rap.Matrix  { return nil }
func (c *FibonacciChip) Sends() []rap.Interaction        { return nil }
func (c *FibonacciChip) Receives() []rap.Interaction     { return nil }

// Eval asserts the boundary pair on the first row and the recurrence on
// every transition.
func (c *FibonacciChip) Eval(b rap.Builder) {
	main := b.Main()
	a, bb := main.Local[0], main.Local[1]
	aNext, bNext := main.Next[0], main.Next[1]

	first := rap.WhenFirstRow(b)
	rap.AssertEq(first, a, b.Constant(c.firstA))
	rap.AssertEq(first, bb, b.Constant(c.firstB))

	trans := rap.WhenTransition(b)
	rap.AssertEq(trans, aNext, bb)
	rap.AssertEq(trans, bNext, a.Add(bb))
}

// GenerateTrace computes the concrete (a, b) witness of the given height
// (must be a power of two) starting from firstA/firstB.
func (c *FibonacciChip) GenerateTrace(height int) *rap.Matrix {
	rows := make([][]*core.FieldElement, height)
	a, bb := c.firstA, c.firstB
	for i := 0; i < height; i++ {
		rows[i] = []*core.FieldElement{a, bb}
		a, bb = bb, a.Add(bb)
	}
	return rap.NewMatrix(2, rows)
}
