// Package cells defines the cell sub-types a cluster can be composed of and
// the immutable per-type coefficient table every derived stat is built from.
package cells

import "fmt"

// Type identifies a cell sub-type. The numeric values are part of the wire
// protocol and must not be reordered.
type Type uint8

const (
	RedBlood Type = iota
	Platelet
	BigSilo
	BigTank
	SmallHybrid
	MediumHybrid
	BigHybrid
	WhiteBlood

	// NumTypes counts every type including WhiteBlood.
	NumTypes = int(WhiteBlood) + 1
	// NumSubTypes counts the types a virus cluster's composition tracks.
	NumSubTypes = int(BigHybrid) + 1
)

var typeNames = [NumTypes]string{
	RedBlood:     "red_blood",
	Platelet:     "platelet",
	BigSilo:      "silo",
	BigTank:      "tank",
	SmallHybrid:  "small_hybrid",
	MediumHybrid: "medium_hybrid",
	BigHybrid:    "big_hybrid",
	WhiteBlood:   "white_blood",
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("cell_type(%d)", uint8(t))
}

// ParseType resolves a type from its String form.
func ParseType(name string) (Type, bool) {
	for i, candidate := range typeNames {
		if candidate == name {
			return Type(i), true
		}
	}
	return 0, false
}

func (t Type) Valid() bool { return int(t) < NumTypes }

// SubType reports whether t can appear in a virus cluster composition.
func (t Type) SubType() bool { return int(t) < NumSubTypes }

// Hybrid reports whether t is one of the three hybrid tiers.
func (t Type) Hybrid() bool { return t == SmallHybrid || t == MediumHybrid || t == BigHybrid }

// Small reports whether t is a small-tier source type.
func (t Type) Small() bool { return t == RedBlood || t == Platelet }

// Big reports whether t is a big-tier source type.
func (t Type) Big() bool { return t == BigTank || t == BigSilo }

// Medicatable reports whether a medication purge can target t.
func (t Type) Medicatable() bool { return t.Small() || t.Big() }

// MedicationOrder is the evaluation order used to pick the purge target;
// the first type holding the maximum total wins ties.
var MedicationOrder = [4]Type{RedBlood, Platelet, BigTank, BigSilo}

// CullOrder is the order in which battle damage removes cells from the
// winning cluster. Host and replicas must agree on it exactly.
var CullOrder = [NumSubTypes]Type{RedBlood, Platelet, SmallHybrid, MediumHybrid, BigTank, BigHybrid, BigSilo}

// HybridOf returns the hybrid tier produced by fusing a and b. Both must be
// distinct non-hybrid source types; the rule is symmetric in its arguments.
func HybridOf(a, b Type) (Type, bool) {
	if a == b || !a.Medicatable() || !b.Medicatable() {
		return 0, false
	}
	switch {
	case a.Small() && b.Small():
		return SmallHybrid, true
	case a.Big() && b.Big():
		return BigHybrid, true
	default:
		return MediumHybrid, true
	}
}
