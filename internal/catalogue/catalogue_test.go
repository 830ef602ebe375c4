package catalogue

import "testing"

func TestUnitCostExactMatch(t *testing.T) {
	c := NewStatic()
	c.Add("A100", 2, 4.0)
	c.Add("A100", 4, 7.0)

	got, ok := c.UnitCost("A100", 4)
	if !ok || got != 7.0 {
		t.Fatalf("UnitCost(A100,4) = (%v,%v), want (7.0,true)", got, ok)
	}
}

func TestUnitCostFallsBackToLowerCount(t *testing.T) {
	c := NewStatic()
	c.Add("A100", 2, 4.0)

	got, ok := c.UnitCost("A100", 3)
	if !ok || got != 4.0 {
		t.Fatalf("UnitCost(A100,3) = (%v,%v), want fallback to count=2 row (4.0,true)", got, ok)
	}
}

func TestUnitCostUnknownType(t *testing.T) {
	c := NewStatic()
	if _, ok := c.UnitCost("V100", 1); ok {
		t.Fatal("expected miss for unknown GPU type")
	}
}
