package mss

import "testing"

func testParamsRoundTrip(p Params, t *testing.T) {
	buf, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %s", err)
	}
	var p2 Params
	if err := p2.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %s", err)
	}
	if p2 != p {
		t.Fatalf("round trip mismatch: %v != %v", p2, p)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	for _, entry := range registry {
		testParamsRoundTrip(entry.params, t)
	}
}

func TestParamsFromName(t *testing.T) {
	for _, entry := range registry {
		p := ParamsFromName(entry.name)
		if p == nil {
			t.Fatalf("ParamsFromName(%s) returned nil", entry.name)
		}
		if *p != entry.params {
			t.Fatalf("ParamsFromName(%s) = %v, want %v", entry.name, *p, entry.params)
		}
	}
	if ParamsFromName("does-not-exist") != nil {
		t.Fatal("expected nil for unknown name")
	}
}

func TestParamsFromName2(t *testing.T) {
	p, err := ParamsFromName2("MSS-SHA2_10_4_256")
	if err != nil {
		t.Fatalf("ParamsFromName2: %s", err)
	}
	want := Params{SHA2, 32, 10, 4, 16}
	if *p != want {
		t.Fatalf("got %v, want %v", *p, want)
	}
}

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		p  Params
		ok bool
	}{
		{Params{SHA2, 32, 10, 4, 16}, true},
		{Params{SHA2, 48, 10, 4, 16}, false},  // bad N
		{Params{SHA2, 32, 10, 9, 16}, false},  // H-K odd
		{Params{SHA2, 32, 10, 20, 16}, false}, // K > H-2
		{Params{SHA2, 32, 10, 4, 3}, false},   // bad W
	}
	for _, c := range cases {
		err := c.p.Validate()
		if (err == nil) != c.ok {
			t.Errorf("Validate(%v) = %v, want ok=%v", c.p, err, c.ok)
		}
	}
}

func TestWotsLengths(t *testing.T) {
	p := Params{SHA2, 32, 10, 4, 16}
	if p.WotsLogW() != 4 {
		t.Fatalf("WotsLogW() = %d, want 4", p.WotsLogW())
	}
	if p.WotsLen1() != 64 {
		t.Fatalf("WotsLen1() = %d, want 64", p.WotsLen1())
	}
	l := p.WotsLen()
	if l != p.WotsLen1()+p.WotsLen2() {
		t.Fatalf("WotsLen() inconsistent")
	}
	if p.WotsSignatureSize() != l*p.N {
		t.Fatalf("WotsSignatureSize() inconsistent")
	}
}
