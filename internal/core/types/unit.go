package types

// UnitType identifies which of the two independent stock records of a
// medicine a quantity refers to. A medicine may track strips, individual
// pieces, or both at the same time.
type UnitType string

const (
	UnitStrip      UnitType = "strip"
	UnitIndividual UnitType = "individual"
)

// IsValid reports whether the unit type is one of the known values.
func (u UnitType) IsValid() bool {
	return u == UnitStrip || u == UnitIndividual
}

func (u UnitType) String() string { return string(u) }

// AllUnitTypes returns both tracked unit types.
func AllUnitTypes() []UnitType {
	return []UnitType{UnitStrip, UnitIndividual}
}
