package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("") is well known.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different content should differ")
	}
}

func TestETagRoundTrip(t *testing.T) {
	sum := Sum([]byte("thoughts: []\n"))
	tests := map[string]string{
		ETag(sum):        sum,
		"W/" + ETag(sum): sum,
		" " + sum + " ":  sum,
		"*":              "",
		"":               "",
	}
	for in, want := range tests {
		if got := ParseETag(in); got != want {
			t.Errorf("ParseETag(%q) = %q, want %q", in, got, want)
		}
	}
}
