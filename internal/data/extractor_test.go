package data

import (
	"fmt"
	"testing"
)

func TestTimeParser_Permissive(t *testing.T) {
	parser := NewTimeParser(ProfilePermissive)

	testCases := []struct {
		input    string
		expected string
		found    bool
	}{
		{input: "14 37", expected: "14:37", found: true},
		{input: "1437", expected: "14:37", found: true},
		{input: "14:37", expected: "14:37", found: true},
		{input: "9.05", expected: "09:05", found: true},
		{input: "7-45", expected: "07:45", found: true},
		{input: "2359", expected: "23:59", found: true},
		{input: "noise 08:15 then 16:40", expected: "08:15", found: true},
		{input: "abcxyz", found: false},
		{input: "", found: false},
		{input: "9", found: false},
		{input: "12:7", found: false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("input=%q", tc.input), func(t *testing.T) {
			// Act
			got, ok := parser.Parse(tc.input)

			// Assert
			if ok != tc.found {
				t.Fatalf("expected found=%v, got %v (%v)", tc.found, ok, got)
			}
			if ok && got.String() != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestTimeParser_Strict(t *testing.T) {
	parser := NewTimeParser(ProfileStrict)

	testCases := []struct {
		input    string
		expected string
		found    bool
	}{
		{input: "14:37", expected: "14:37", found: true},
		{input: "8:05", expected: "08:05", found: true},
		{input: "1437", found: false},
		{input: "14 37", found: false},
		{input: "14.37", found: false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("input=%q", tc.input), func(t *testing.T) {
			got, ok := parser.Parse(tc.input)
			if ok != tc.found {
				t.Fatalf("expected found=%v, got %v (%v)", tc.found, ok, got)
			}
			if ok && got.String() != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestTimeParser_CanonicalOutputIsIdempotent(t *testing.T) {
	for _, profile := range []Profile{ProfilePermissive, ProfileStrict} {
		parser := NewTimeParser(profile)
		for h := 0; h < 24; h++ {
			for m := 0; m < 60; m++ {
				input := fmt.Sprintf("%d:%02d", h, m)
				first, ok := parser.Parse(input)
				if !ok {
					t.Fatalf("%s: expected %q to parse", profile, input)
				}
				if first.Hour != h || first.Minute != m {
					t.Fatalf("%s: %q parsed as %s", profile, input, first)
				}
				second, ok := parser.Parse(first.String())
				if !ok || second != first {
					t.Fatalf("%s: re-parse of %s gave %s (ok=%v)", profile, first, second, ok)
				}
			}
		}
	}
}

func TestTimeParser_Filter(t *testing.T) {
	testCases := []struct {
		profile  Profile
		input    string
		expected string
	}{
		{profile: ProfilePermissive, input: "1a4 :37\n x", expected: "14 :37"},
		{profile: ProfileStrict, input: "14.37 15:00", expected: "1437 15:00"},
		{profile: ProfilePermissive, input: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(string(tc.profile)+"/"+tc.input, func(t *testing.T) {
			if got := NewTimeParser(tc.profile).Filter(tc.input); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestParseProfile(t *testing.T) {
	if p, err := ParseProfile(""); err != nil || p != ProfilePermissive {
		t.Errorf("expected permissive default, got %q (%v)", p, err)
	}
	if p, err := ParseProfile("STRICT"); err != nil || p != ProfileStrict {
		t.Errorf("expected strict, got %q (%v)", p, err)
	}
	if _, err := ParseProfile("lenient"); err == nil {
		t.Errorf("expected error for unknown profile")
	}
	if ProfileStrict.Allowlist() != "0123456789:" {
		t.Errorf("unexpected strict allowlist %q", ProfileStrict.Allowlist())
	}
}

func TestParseClock(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain", input: "14:37", expected: "14:37"},
		{name: "single digit hour", input: "7:05", expected: "07:05"},
		{name: "seconds ignored", input: "9:05:12", expected: "09:05"},
		{name: "date prefix", input: "2024-05-01 14:37", expected: "14:37"},
		{name: "surrounding spaces", input: " 23:59 ", expected: "23:59"},
		{name: "hour 24", input: "24:10", wantErr: true},
		{name: "hour 25", input: "25:30", wantErr: true},
		{name: "three digit minute", input: "14:375", wantErr: true},
		{name: "minute 60", input: "12:60", wantErr: true},
		{name: "no colon", input: "1437", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			tv, err := ParseClock(tc.input)

			// Assert
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseClock(%q) = %s, expected error", tc.input, tv)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error = %v", tc.input, err)
			}
			if tv.String() != tc.expected {
				t.Errorf("ParseClock(%q) = %s, expected %s", tc.input, tv, tc.expected)
			}
		})
	}
}
