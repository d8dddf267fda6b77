package sim

import "testing"

func TestIntAdd_PromotesOnOverflow(t *testing.T) {
	a := Int(1 << 62)
	b := Int(1 << 62)

	sum, err := IntAdd(a, b)
	if err != nil {
		t.Fatalf("IntAdd: %v", err)
	}
	if sum.Rep != RepBig {
		t.Errorf("expected overflow to promote to RepBig, got %v", sum.Rep)
	}

	c, err := IntCmp(sum, a)
	if err != nil {
		t.Fatalf("IntCmp: %v", err)
	}
	if c <= 0 {
		t.Errorf("promoted sum should compare greater than either addend")
	}
}

func TestIntAdd_StaysMachineWhenSimplifiable(t *testing.T) {
	sum, err := IntAdd(Int(2), Int(3))
	if err != nil {
		t.Fatalf("IntAdd: %v", err)
	}
	if sum.Rep != RepInt || sum.I != 5 {
		t.Errorf("IntAdd(2,3) = %+v, want machine-int 5", sum)
	}
}

func TestIntDivMod_DivisionByZero(t *testing.T) {
	_, _, err := IntDivMod(Int(4), Int(0), false)
	se, ok := AsSimError(err)
	if !ok || se.Sub != "DivZero" {
		t.Fatalf("expected <DivZero>, got %v", err)
	}
}

func TestIntDivMod_FloorVsTruncation(t *testing.T) {
	// -7 mod 2 floors to 1; -7 % 2 truncates to -1.
	_, floorRem, err := IntDivMod(Int(-7), Int(2), true)
	if err != nil {
		t.Fatalf("IntDivMod floor: %v", err)
	}
	if floorRem.I != 1 {
		t.Errorf("floor mod(-7,2) = %d, want 1", floorRem.I)
	}

	_, truncRem, err := IntDivMod(Int(-7), Int(2), false)
	if err != nil {
		t.Fatalf("IntDivMod trunc: %v", err)
	}
	if truncRem.I != -1 {
		t.Errorf("trunc rem(-7,2) = %d, want -1", truncRem.I)
	}
}

func TestIntExp_NegativeExponentIsBadExp(t *testing.T) {
	_, err := IntExp(Int(2), Int(-1))
	se, ok := AsSimError(err)
	if !ok || se.Sub != "BadExp" {
		t.Fatalf("expected <BadExp>, got %v", err)
	}
}

func TestIntCmp_TotalOrderAcrossRepresentations(t *testing.T) {
	small := Int(5)
	big, _ := IntAdd(Int(1<<62), Int(1<<62))

	c, err := IntCmp(small, big)
	if err != nil {
		t.Fatalf("IntCmp: %v", err)
	}
	if c >= 0 {
		t.Errorf("IntCmp(machine-int, big-int) = %d, want negative", c)
	}
}

func TestIntLog2(t *testing.T) {
	tests := []struct {
		x    int64
		want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{7, 3},
	}
	for _, tc := range tests {
		got, err := IntLog2(Int(tc.x))
		if err != nil {
			t.Fatalf("IntLog2(%d): %v", tc.x, err)
		}
		if got != tc.want {
			t.Errorf("IntLog2(%d) = %d, want %d", tc.x, got, tc.want)
		}
	}
}
