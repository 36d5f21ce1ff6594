package checksum

import "testing"

func TestSumKnownValue(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestOfChangesWithContent(t *testing.T) {
	a, err := Of(map[string]string{"title": "a"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Of(map[string]string{"title": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("different values should have different checksums")
	}
	again, _ := Of(map[string]string{"title": "a"})
	if a != again {
		t.Error("checksum should be deterministic")
	}
}
