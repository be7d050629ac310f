package mathx

import "testing"

func TestRoundDiv(t *testing.T) {
	if got := RoundDiv(uint32(1126400), 310); got != 3634 {
		t.Fatalf("RoundDiv = %d", got)
	}
	if got := RoundDiv(uint32(10), 4); got != 3 { // 2.5 rounds up
		t.Fatalf("RoundDiv(10,4) = %d", got)
	}
	if got := RoundDiv(uint32(9), 4); got != 2 { // 2.25 rounds down
		t.Fatalf("RoundDiv(9,4) = %d", got)
	}
	if got := RoundDiv(uint32(5), 0); got != 0 {
		t.Fatalf("RoundDiv(5,0) = %d", got)
	}
}

func TestBetweenMinMax(t *testing.T) {
	if !Between(900, 900, 1100) || !Between(1100, 900, 1100) {
		t.Fatal("bounds not inclusive")
	}
	if Between(899, 900, 1100) {
		t.Fatal("below lower bound accepted")
	}
	if !Between(5, 10, 1) {
		t.Fatal("swapped bounds not handled")
	}
	if Min(3, 7) != 3 || Max(3, 7) != 7 {
		t.Fatal("min/max wrong")
	}
}
