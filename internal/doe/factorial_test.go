package doe

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFullFactorialSize(t *testing.T) {
	ps, _ := NewParameterSet([]Parameter{
		{ID: "a", Values: []string{"1", "2", "3"}},
		{ID: "b", Values: []string{"1", "2"}},
		{ID: "c", Values: []string{"1", "2", "3", "4"}},
	})
	if got := FullFactorialSize(ps); got != 24 {
		t.Errorf("FullFactorialSize = %d, want 24", got)
	}
}

func TestGenerateFullFactorial_OrderAndSize(t *testing.T) {
	ps, _ := NewParameterSet([]Parameter{
		{ID: "a", Values: []string{"a0", "a1"}},
		{ID: "b", Values: []string{"b0", "b1", "b2"}},
	})

	d, err := GenerateFullFactorial(context.Background(), ps, DefaultLimits())
	if err != nil {
		t.Fatalf("GenerateFullFactorial failed: %v", err)
	}
	if len(d.Scenarios) != 6 {
		t.Fatalf("got %d scenarios, want 6", len(d.Scenarios))
	}

	// First parameter varies slowest, last fastest (odometer order).
	want := [][2]string{
		{"a0", "b0"}, {"a0", "b1"}, {"a0", "b2"},
		{"a1", "b0"}, {"a1", "b1"}, {"a1", "b2"},
	}
	for i, s := range d.Scenarios {
		if s.Assignments[0].Value != want[i][0] || s.Assignments[1].Value != want[i][1] {
			t.Errorf("scenario %d = %v/%v, want %v", i, s.Assignments[0].Value, s.Assignments[1].Value, want[i])
		}
	}
}

func TestGenerateFullFactorial_Deterministic(t *testing.T) {
	ps, _ := NewParameterSet(validParams())
	d1, err := GenerateFullFactorial(context.Background(), ps, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	d2, err := GenerateFullFactorial(context.Background(), ps, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d1, d2); diff != "" {
		t.Errorf("designs differ between runs (-first +second):\n%s", diff)
	}

	f1, _ := d1.Fingerprint()
	f2, _ := d2.Fingerprint()
	if f1 != f2 {
		t.Errorf("fingerprints differ: %s vs %s", f1, f2)
	}
}

func TestGenerateFullFactorial_Ceiling(t *testing.T) {
	ps, _ := NewParameterSet(validParams()) // 2*2*2 = 8 rows

	_, err := GenerateFullFactorial(context.Background(), ps, Limits{MaxFullFactorialRows: 7})
	if !errors.Is(err, ErrDesignTooLarge) {
		t.Fatalf("err = %v, want ErrDesignTooLarge", err)
	}
	var se *SizeError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SizeError", err)
	}
	if se.Rows != 8 || se.Ceiling != 7 {
		t.Errorf("SizeError = %d/%d, want 8/7", se.Rows, se.Ceiling)
	}

	// At the ceiling exactly, generation proceeds.
	if _, err := GenerateFullFactorial(context.Background(), ps, Limits{MaxFullFactorialRows: 8}); err != nil {
		t.Errorf("generation at the ceiling failed: %v", err)
	}
}

func TestEnumerateFullFactorial_Cancellation(t *testing.T) {
	ps, _ := NewParameterSet([]Parameter{
		{ID: "a", Values: []string{"1", "2", "3", "4", "5", "6", "7", "8"}},
		{ID: "b", Values: []string{"1", "2", "3", "4", "5", "6", "7", "8"}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	emitted := 0
	err := EnumerateFullFactorial(ctx, ps, func(Scenario) error {
		emitted++
		if emitted == 5 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if emitted != 5 {
		t.Errorf("emitted %d rows after cancellation, want 5", emitted)
	}
}

func TestEnumerateFullFactorial_Restartable(t *testing.T) {
	ps, _ := NewParameterSet(validParams())

	collect := func() []Scenario {
		var out []Scenario
		if err := EnumerateFullFactorial(context.Background(), ps, func(s Scenario) error {
			out = append(out, s)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		return out
	}

	if diff := cmp.Diff(collect(), collect()); diff != "" {
		t.Errorf("two walks over the same set differ:\n%s", diff)
	}
}

func TestGenerateFullFactorial_CoversAllPairs(t *testing.T) {
	ps, _ := NewParameterSet(validParams())
	d, err := GenerateFullFactorial(context.Background(), ps, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	res, err := Verify(d, ps)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Verified {
		t.Errorf("full factorial failed verification: %+v", res)
	}
}
