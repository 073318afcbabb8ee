package validate

import "testing"

func TestEmail(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"shop@example.com", true},
		{"first.last@sub.example.co", true},
		{"name-1@shop-mail.io", true},
		{"shop@@example", false},
		{"shop@example", false},
		{"no-at-sign.com", false},
		{"@example.com", false},
		{"shop@.com", false},
		{"", false},
		{"shop example@mail.com", false},
	}
	for _, tc := range cases {
		if got := Email(tc.in); got != tc.want {
			t.Errorf("Email(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"+2348012345678", true},
		{"08012345678", true},
		{"1234567", true},
		{"123456789012345", true},
		{"12345", false},
		{"1234567890123456", false},
		{"+", false},
		{"", false},
		{"+234 801 234 5678", false},
		{"phone", false},
	}
	for _, tc := range cases {
		if got := Phone(tc.in); got != tc.want {
			t.Errorf("Phone(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
