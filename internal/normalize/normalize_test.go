package normalize

import "testing"

func TestTextStripsVietnameseDiacritics(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hà Nội", "ha noi"},
		{"ha noi", "ha noi"},
		{"Đào Phở", "dao pho"},
		{"MỘT HAI BA", "mot hai ba"},
		{"Tây Du Ký", "tay du ky"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTextIsIdempotent(t *testing.T) {
	inputs := []string{"Hà Nội", "Đường Đời", "Action Movie 2024", "phở đặc biệt"}
	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)
		if once != twice {
			t.Fatalf("Text not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestTextMatchesCaseAndAccentVariants(t *testing.T) {
	if Text("Hà Nội") != Text("HA NOI") {
		t.Fatalf("expected accent/case variants to fold to the same string")
	}
}

func TestContains(t *testing.T) {
	if !Contains("Một Ngày Mới", "mot") {
		t.Fatalf("expected accent-insensitive substring match")
	}
	if Contains("Hai Ba", "mot") {
		t.Fatalf("unexpected match")
	}
	if Contains("anything", "") {
		t.Fatalf("blank needle must not match")
	}
	if Contains("anything", "   ") {
		t.Fatalf("whitespace needle must not match")
	}
}
