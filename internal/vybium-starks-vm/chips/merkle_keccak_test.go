package chips

import (
	"testing"

	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/rap"
)

func TestMerkleTreeAndHashChipMatchVerifies(t *testing.T) {
	field := testField(t)
	const busPermuteInput = 11
	const busDigestOutput = 12

	merkle := NewMerkleTreeChip(field, busPermuteInput, busDigestOutput)
	hashChip := NewHashChip(field, busPermuteInput, busDigestOutput)
	hash := core.NewPoseidonHash(field)

	inputs := []MerkleLayerInput{
		{Left: field.NewElementFromInt64(1), Right: field.NewElementFromInt64(2), IsReal: true},
		{Left: field.NewElementFromInt64(3), Right: field.NewElementFromInt64(4), IsReal: true},
		{Left: field.NewElementFromInt64(5), Right: field.NewElementFromInt64(6), IsReal: true},
		{Left: field.Zero(), Right: field.Zero(), IsReal: false},
	}

	merkleTrace, err := merkle.GenerateTrace(inputs, hash)
	if err != nil {
		t.Fatalf("merkle GenerateTrace: %v", err)
	}
	hashTrace, err := hashChip.GenerateTrace(inputs, hash)
	if err != nil {
		t.Fatalf("hash GenerateTrace: %v", err)
	}

	pcs := rap.NewPcsMerkle(field)
	chipsList := []rap.Rap{merkle, hashChip}
	mains := map[rap.Rap]*rap.Matrix{merkle: merkleTrace, hashChip: hashTrace}

	proof, err := rap.Prove(field, pcs, chipsList, mains, nil, rap.NewSpongeChallenger(field))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	vk := &rap.VerifyingKey{Degrees: []int{len(inputs), len(inputs)}}
	if err := rap.Verify(field, vk, chipsList, nil, proof, rap.NewSpongeChallenger(field)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestMerkleTreeAndHashChipMismatchFailsProve(t *testing.T) {
	field := testField(t)
	const busPermuteInput = 11
	const busDigestOutput = 12

	merkle := NewMerkleTreeChip(field, busPermuteInput, busDigestOutput)
	hashChip := NewHashChip(field, busPermuteInput, busDigestOutput)
	hash := core.NewPoseidonHash(field)

	inputs := []MerkleLayerInput{
		{Left: field.NewElementFromInt64(1), Right: field.NewElementFromInt64(2), IsReal: true},
		{Left: field.NewElementFromInt64(3), Right: field.NewElementFromInt64(4), IsReal: true},
	}

	merkleTrace, err := merkle.GenerateTrace(inputs, hash)
	if err != nil {
		t.Fatalf("merkle GenerateTrace: %v", err)
	}

	// The hash chip's row 1 claims a different sibling pair than the Merkle
	// chip actually sent, so the two chips' shared buses no longer balance.
	tamperedInputs := []MerkleLayerInput{
		inputs[0],
		{Left: field.NewElementFromInt64(30), Right: field.NewElementFromInt64(40), IsReal: true},
	}
	hashTrace, err := hashChip.GenerateTrace(tamperedInputs, hash)
	if err != nil {
		t.Fatalf("hash GenerateTrace: %v", err)
	}

	pcs := rap.NewPcsMerkle(field)
	chipsList := []rap.Rap{merkle, hashChip}
	mains := map[rap.Rap]*rap.Matrix{merkle: merkleTrace, hashChip: hashTrace}

	if _, err := rap.Prove(field, pcs, chipsList, mains, nil, rap.NewSpongeChallenger(field)); err == nil {
		t.Fatalf("expected Prove to fail when the hash chip's witness diverges from the Merkle chip's, got nil error")
	}
}
