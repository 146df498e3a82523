package cells

import "testing"

func TestHybridOfTierSelection(t *testing.T) {
	cases := []struct {
		a, b Type
		want Type
	}{
		{RedBlood, Platelet, SmallHybrid},
		{RedBlood, BigTank, MediumHybrid},
		{Platelet, BigSilo, MediumHybrid},
		{BigTank, BigSilo, BigHybrid},
	}
	for _, tc := range cases {
		got, ok := HybridOf(tc.a, tc.b)
		if !ok || got != tc.want {
			t.Fatalf("HybridOf(%s, %s) = %s, %v; want %s", tc.a, tc.b, got, ok, tc.want)
		}
	}
}

func TestHybridOfIsSymmetric(t *testing.T) {
	for a := 0; a < NumTypes; a++ {
		for b := 0; b < NumTypes; b++ {
			ab, okAB := HybridOf(Type(a), Type(b))
			ba, okBA := HybridOf(Type(b), Type(a))
			if ab != ba || okAB != okBA {
				t.Fatalf("HybridOf not symmetric for %s/%s", Type(a), Type(b))
			}
		}
	}
}

func TestHybridOfRejectsInvalidSources(t *testing.T) {
	invalid := [][2]Type{
		{RedBlood, RedBlood},
		{SmallHybrid, RedBlood},
		{BigHybrid, BigTank},
		{WhiteBlood, Platelet},
	}
	for _, pair := range invalid {
		if _, ok := HybridOf(pair[0], pair[1]); ok {
			t.Fatalf("expected %s/%s to be rejected", pair[0], pair[1])
		}
	}
}

func TestCullOrderCoversEverySubTypeOnce(t *testing.T) {
	seen := make(map[Type]bool)
	for _, typ := range CullOrder {
		if !typ.SubType() || seen[typ] {
			t.Fatalf("unexpected cull entry %s", typ)
		}
		seen[typ] = true
	}
	if len(seen) != NumSubTypes {
		t.Fatalf("expected %d cull entries, got %d", NumSubTypes, len(seen))
	}
}

func TestParseTypeRoundTrip(t *testing.T) {
	for i := 0; i < NumTypes; i++ {
		typ := Type(i)
		parsed, ok := ParseType(typ.String())
		if !ok || parsed != typ {
			t.Fatalf("round trip failed for %s", typ)
		}
	}
}

func TestDefaultTableValidates(t *testing.T) {
	if err := DefaultTable().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	broken := DefaultTable()
	broken[BigTank].MaxHealth = 0
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected zero max health to be rejected")
	}
}
