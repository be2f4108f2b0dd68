package models

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10.50", 10_500_000, false},
		{"0.50", 500_000, false},
		{"5", 5_000_000, false},
		{"0.000001", 1, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"0.0000001", 0, true}, // more than 6 decimals
		{"abc", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) = %d, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(10_500_000); got != "10.500000" {
		t.Errorf("FormatAmount = %q, want \"10.500000\"", got)
	}
	if got := FormatAmount(1); got != "0.000001" {
		t.Errorf("FormatAmount = %q, want \"0.000001\"", got)
	}
}

func TestValidDuration(t *testing.T) {
	for _, d := range []int64{Duration24H, Duration3D, Duration7D, Duration14D} {
		if !ValidDuration(d) {
			t.Errorf("duration %d rejected", d)
		}
	}
	for _, d := range []int64{0, 3600, -86400, 86401} {
		if ValidDuration(d) {
			t.Errorf("duration %d accepted", d)
		}
	}
}
