package alphacode

import "testing"

func TestIsValid(t *testing.T) {
	cases := []struct {
		name string
		code Code
		want bool
	}{
		{"stop always valid", Stop(), true},
		{"write_delta with no change flags is invalid", Code{Op: WRITE_DELTA, Duration: 1}, false},
		{"write_delta with zero duration is invalid", WriteDelta(CHANGE, 1, NOOP, 0, NOOP, 0, 0), false},
		{"write_delta with one change and duration is valid", WriteDelta(NOOP, 0, NOOP, 0, CHANGE, 5, 1), true},
		{"pause with zero duration is invalid", Pause(0), false},
		{"pause with positive duration is valid", Pause(3), true},
		{"sustain with zero duration is invalid", Sustain(0), false},
		{"branch point is always valid", BranchPoint(), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.code.IsValid(); got != c.want {
				t.Errorf("IsValid() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestShape(t *testing.T) {
	stop := Stop().Shape()
	jump := Jump(0).Shape()
	if stop == jump {
		t.Fatalf("STOP and JUMP must not collide: both shaped %d", stop)
	}

	cOnly := WriteDelta(CHANGE, 1, NOOP, 0, NOOP, 0, 1).Shape()
	fOnly := WriteDelta(NOOP, 0, CHANGE, 1, NOOP, 0, 1).Shape()
	if cOnly == fOnly {
		t.Errorf("control-only and frequency-only deltas must have distinct shapes")
	}

	all := WriteDelta(CHANGE, 1, CHANGE, 1, CHANGE, 1, 1).Shape()
	allAgain := WriteDelta(CHANGE, 2, CHANGE, 2, CHANGE, 2, 9).Shape()
	if all != allAgain {
		t.Errorf("Shape must depend only on the change-flag mask, not on operand values or duration")
	}
}

func TestBuildAlphabetDeterministic(t *testing.T) {
	seq := []Code{Stop(), Pause(1), Stop(), Sustain(2), Pause(1)}
	a := BuildAlphabet(seq)

	if a.Size() != 3 {
		t.Fatalf("Size() = %d, want 3 distinct codes", a.Size())
	}

	stopChar, ok := a.CharOf(Stop())
	if !ok || stopChar != 0 {
		t.Errorf("first-occurrence code should get AlphaChar 0, got %d ok=%v", stopChar, ok)
	}

	chars := a.Encode(seq)
	if chars[0] != chars[2] {
		t.Errorf("identical codes must map to the same AlphaChar: %v vs %v", chars[0], chars[2])
	}
	if a.CodeOf(chars[1]) != Pause(1) {
		t.Errorf("CodeOf(Encode(x)) must round-trip to x")
	}
}
