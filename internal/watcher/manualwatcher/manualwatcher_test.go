package manualwatcher

import "testing"

func TestInjectForwardsToCallback(t *testing.T) {
	var got []string
	w := New(func(batch []string) { got = batch })

	w.Inject([]string{"/a", "/b"})
	if len(got) != 2 {
		t.Fatalf("got = %v, want 2 elements", got)
	}
}

func TestInjectAfterCloseIsNoOp(t *testing.T) {
	calls := 0
	w := New(func(batch []string) { calls++ })
	w.Close()
	w.Inject([]string{"/a"})
	if calls != 0 {
		t.Fatalf("calls = %d after Close, want 0", calls)
	}
}
