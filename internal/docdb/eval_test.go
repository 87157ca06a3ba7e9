package docdb

import "testing"

// TestNeOverAbsentPathIsFalse pins spec.md's explicit, non-guessable
// resolution for Ne over a path with no extracted leaf at all: false,
// never true. A prior version of Eval's NodeNe case fell through its
// empty comparison loop to "return true", vacuously matching every
// document missing the path.
func TestNeOverAbsentPathIsFalse(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"other":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	q := Ne("status", Str("banned"), LitString)
	if Eval(q, doc) {
		t.Fatalf("Eval(Ne) over absent path = true, want false")
	}
}

func TestNeOverPresentNonMatchingPathIsTrue(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"status":"active"}`))
	if err != nil {
		t.Fatal(err)
	}
	q := Ne("status", Str("banned"), LitString)
	if !Eval(q, doc) {
		t.Fatalf("Eval(Ne) over non-matching present path = false, want true")
	}
}
