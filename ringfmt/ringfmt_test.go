package ringfmt

import "testing"

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[uint32]bool{
		0: false, 1: true, 2: true, 3: false, 4: true,
		4095: false, 4096: true, 1 << 28: true, (1 << 28) + 1: false,
	}
	for x, want := range cases {
		if got := IsPowerOfTwo(x); got != want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", x, got, want)
		}
	}
}

func TestAlignUp8(t *testing.T) {
	cases := map[uint32]uint32{
		0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 24: 24, 27: 32,
	}
	for x, want := range cases {
		if got := AlignUp8(x); got != want {
			t.Errorf("AlignUp8(%d) = %d, want %d", x, got, want)
		}
	}
}

func TestOffset(t *testing.T) {
	const capacity = 4096
	cases := []struct {
		counter uint64
		want    uint32
	}{
		{0, 0},
		{4095, 4095},
		{4096, 0},
		{4097, 1},
		{8192, 0},
		{1<<40 + 10, 10},
	}
	for _, c := range cases {
		if got := Offset(capacity, c.counter); got != c.want {
			t.Errorf("Offset(%d, %d) = %d, want %d", capacity, c.counter, got, c.want)
		}
	}
}

func TestValidCapacity(t *testing.T) {
	if !ValidCapacity(MinCapacity) {
		t.Error("MinCapacity should be valid")
	}
	if !ValidCapacity(MaxCapacity) {
		t.Error("MaxCapacity should be valid")
	}
	if ValidCapacity(MinCapacity / 2) {
		t.Error("below MinCapacity should be invalid")
	}
	if ValidCapacity(MaxCapacity * 2) {
		t.Error("above MaxCapacity should be invalid")
	}
	if ValidCapacity(MinCapacity + 1) {
		t.Error("non-power-of-two should be invalid")
	}
}
