package rap

// InteractionKind distinguishes a bus Send from a bus Receive (spec §3).
type InteractionKind int

const (
	Send InteractionKind = iota
	Receive
)

func (k InteractionKind) String() string {
	if k == Send {
		return "Send"
	}
	return "Receive"
}

// sign returns +1 for Send, -1 for Receive, the coefficient applied to this
// interaction's contribution to the running sum (spec §4.C5 step 3).
func (k InteractionKind) sign() int64 {
	if k == Send {
		return 1
	}
	return -1
}

// Interaction is one bus message: a vector of field expressions, a
// multiplicity expression, and a bus id (spec §3).
type Interaction struct {
	Fields []*VirtualPairCol
	Count  *VirtualPairCol
	BusID  int
	Kind   InteractionKind
}

// AllInteractions concatenates sends then receives, in that fixed order —
// this order defines column indices in the permutation trace (spec §4.C4).
func AllInteractions(sends, receives []Interaction) []Interaction {
	out := make([]Interaction, 0, len(sends)+len(receives))
	out = append(out, sends...)
	out = append(out, receives...)
	return out
}

// MaxBusID returns the largest bus id referenced by interactions, or -1 if
// interactions is empty. Used to size the gamma-power table (spec §4.C5
// step 1).
func MaxBusID(interactions []Interaction) int {
	max := -1
	for _, it := range interactions {
		if it.BusID > max {
			max = it.BusID
		}
	}
	return max
}
