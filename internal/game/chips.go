package game

// Chips is a chip amount in fixed-point minor units. All engine and pot
// arithmetic happens in minor units; conversion to whole chips is a
// display/boundary concern.
type Chips int64

// MinorUnitsPerChip is the fixed-point scale: 100 minor units per chip.
const MinorUnitsPerChip = 100

// FromWhole converts a whole-chip amount (as configured) to minor units.
func FromWhole(chips int64) Chips {
	return Chips(chips * MinorUnitsPerChip)
}

func minChips(a, b Chips) Chips {
	if a < b {
		return a
	}
	return b
}
