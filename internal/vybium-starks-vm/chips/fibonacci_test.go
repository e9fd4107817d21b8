package chips

import (
	"math/big"
	"testing"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/rap"
)

// testField is the 64-bit Goldilocks prime field: large enough that an
// 8-row Fibonacci trace never wraps.
func testField(t *testing.T) *core.Field {
	t.Helper()
	modulus, ok := new(big.Int).SetString("18446744069414584321", 10)
	if !ok {
		t.Fatalf("failed to parse test modulus")
	}
	field, err := core.NewField(modulus)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return field
}

func TestFibonacciChipProvesAndVerifies(t *testing.T) {
	field := testField(t)
	chip := NewFibonacciChip(field, field.One(), field.One())

	const height = 8
	main := chip.GenerateTrace(height)

	pcs := rap.NewPcsMerkle(field)
	chips := []rap.Rap{chip}
	mains := map[rap.Rap]*rap.Matrix{chip: main}

	proof, err := rap.Prove(field, pcs, chips, mains, nil, rap.NewSpongeChallenger(field))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	vk := &rap.VerifyingKey{Degrees: []int{height}}
	if err := rap.Verify(field, vk, chips, nil, proof, rap.NewSpongeChallenger(field)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestFibonacciChipDebugBuilderCatchesBrokenTrace(t *testing.T) {
	field := testField(t)
	chip := NewFibonacciChip(field, field.One(), field.One())

	const height = 8
	main := chip.GenerateTrace(height)
	// Corrupt one transition so the recurrence fails at row 2.
	main.Rows[2][0] = main.Rows[2][0].Add(field.One())

	violations := rap.CheckConstraints(height, func(row int) *rap.DebugBuilder {
		nextRow := (row + 1) % height
		return rap.NewDebugBuilder(
			field,
			row, nextRow, height-1,
			nil, nil,
			main.Rows[row], main.Rows[nextRow],
			[]rap.Ext{rap.ZeroExt(field)}, []rap.Ext{rap.ZeroExt(field)},
			rap.ZeroExt(field), rap.ZeroExt(field),
			nil,
			rap.ZeroExt(field),
		)
	}, func(b rap.Builder) {
		rap.EvalAll(chip, b)
	})

	if len(violations) == 0 {
		t.Fatalf("expected at least one constraint violation on a corrupted trace")
	}
}
