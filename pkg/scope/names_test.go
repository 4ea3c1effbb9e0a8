package scope

import "testing"

func TestSuffix36(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "a"},
		{1, "b"},
		{25, "z"},
		{26, "0"},
		{35, "9"},
		{36, "ba"},
		{37, "bb"},
	}
	for _, c := range cases {
		if got := suffix36(c.n); got != c.want {
			t.Errorf("suffix36(%d): expected %q, got %q", c.n, c.want, got)
		}
	}
}

func TestCandidatesRawFirst(t *testing.T) {
	c := candidates{raw: "x"}
	want := []string{"x", "x_a", "x_b", "x_c"}
	for _, w := range want {
		if got := c.next(); got != w {
			t.Fatalf("expected %q, got %q", w, got)
		}
	}
}

func TestCandidatesEmptyRaw(t *testing.T) {
	c := candidates{}
	want := []string{"__dummy_a", "__dummy_b", "__dummy_c"}
	for _, w := range want {
		if got := c.next(); got != w {
			t.Fatalf("expected %q, got %q", w, got)
		}
	}
}

func TestIsReserved(t *testing.T) {
	for _, name := range []string{"lambda", "print", "ctypes", "helpers", "g", "type"} {
		if !IsReserved(name) {
			t.Errorf("expected %q to be reserved", name)
		}
	}
	if IsReserved("counter") {
		t.Errorf("expected %q to be free", "counter")
	}
}