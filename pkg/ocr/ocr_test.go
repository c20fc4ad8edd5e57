package ocr

import "testing"

func TestExpandWhitelist(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0-9", "0123456789"},
		{"a-cX", "abcX"},
		{"-a", "-a"},
		{"a-", "a-"},
		{".:/$ ", ".:/$ "},
		{"z-a", "z-a"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ExpandWhitelist(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestApplyWhitelist(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		whitelist string
		want      string
	}{
		{"keeps lines", "Pizza 250.00\nTea 1.50", "0-9A-Za-z. ", "Pizza 250.00\nTea 1.50"},
		{"drops symbols", "Café* 3,50€", "0-9A-Za-z. ", "Caf 350"},
		{"empty whitelist", "any#thing", "", "any#thing"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ApplyWhitelist(tc.text, tc.whitelist); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
