package handler

import "testing"

func TestValidTriggerTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"08:30", "08:30:00", true},
		{"08:30:59", "08:30:59", true},
		{"00:00:00", "00:00:00", true},
		{"23:59:59", "23:59:59", true},
		{" 12:00 ", "12:00:00", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"12:00:60", "", false},
		{"8:30", "", false},
		{"12", "", false},
		{"12:00:00:00", "", false},
		{"ab:cd", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := validTriggerTime(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("validTriggerTime(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
