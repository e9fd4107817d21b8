package chips

import (
	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"
	"github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/rap"
)

// SenderChip has a single main column, value, and sends it once per row on
// busID with multiplicity 1. Paired with ReceiverChip it exercises a
// matched cross-table bus argument with no preprocessed trace on either
// side (spec §8 S2).
type SenderChip struct {
	field *core.Field
	busID int
}

func NewSenderChip(field *core.Field, busID int) *SenderChip {
	return &SenderChip{field: field, busID: busID}
}

func (c *SenderChip) Width() int                    { return 1 }
func (c *SenderChip) PreprocessedTrace() *rap.Matrix { return nil }

func (c *SenderChip) Sends() []rap.Interaction {
	return []rap.Interaction{{
		Fields: []*rap.VirtualPairCol{rap.SingleMainCol(c.field, 0)},
		Count:  rap.ConstantCol(c.field, c.field.One()),
		BusID:  c.busID,
		Kind:   rap.Send,
	}}
}

func (c *SenderChip) Receives() []rap.Interaction { return nil }

// Eval has no local constraints: every row's value is free, only
// cross-checked against ReceiverChip's matching rows via the bus.
func (c *SenderChip) Eval(b rap.Builder) {}

// GenerateTrace emits the given values as the sole main column.
func (c *SenderChip) GenerateTrace(values []*core.FieldElement) *rap.Matrix {
	rows := make([][]*core.FieldElement, len(values))
	for i, v := range values {
		rows[i] = []*core.FieldElement{v}
	}
	return rap.NewMatrix(1, rows)
}

// ReceiverChip mirrors SenderChip: one main column, received once per row
// on the same busID.
type ReceiverChip struct {
	field *core.Field
	busID int
}

func NewReceiverChip(field *core.Field, busID int) *ReceiverChip {
	return &ReceiverChip{field: field, busID: busID}
}

func (c *ReceiverChip) Width() int                    { return 1 }
func (c *ReceiverChip) PreprocessedTrace() *rap.Matrix { return nil }

func (c *ReceiverChip) Sends() []rap.Interaction { return nil }

func (c *ReceiverChip) Receives() []rap.Interaction {
	return []rap.Interaction{{
		Fields: []*rap.VirtualPairCol{rap.SingleMainCol(c.field, 0)},
		Count:  rap.ConstantCol(c.field, c.field.One()),
		BusID:  c.busID,
		Kind:   rap.Receive,
	}}
}

func (c *ReceiverChip) Eval(b rap.Builder) {}

func (c *ReceiverChip) GenerateTrace(values []*core.FieldElement) *rap.Matrix {
	rows := make([][]*core.FieldElement, len(values))
	for i, v := range values {
		rows[i] = []*core.FieldElement{v}
	}
	return rap.NewMatrix(1, rows)
}
