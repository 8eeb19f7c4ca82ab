package util

import (
	"path/filepath"
	"testing"
)

func TestMaskSensitiveQuery(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "untouched", raw: "period=month&page=2", want: "period=month&page=2"},
		{name: "token", raw: "access_token=abcdefghijkl&page=1", want: "access_token=abcd...ijkl&page=1"},
		{name: "email", raw: "customer_email=ada%40example.com", want: "customer_email=ada%40....com"},
		{name: "pickup code", raw: "code=482913", want: "code=48...13"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskSensitiveQuery(tc.raw); got != tc.want {
				t.Fatalf("MaskSensitiveQuery(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestHideSecret(t *testing.T) {
	if got := HideSecret("ab"); got != "ab" {
		t.Fatalf("short secret changed: %q", got)
	}
	if got := HideSecret("whsec_1234567890"); got != "whse...7890" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestResolveWritable(t *testing.T) {
	t.Setenv("WRITABLE_PATH", "/var/lib/rewards")
	t.Setenv("writable_path", "")
	if got := ResolveWritable("logs/app.log"); got != filepath.Join("/var/lib/rewards", "logs/app.log") {
		t.Fatalf("unexpected path %q", got)
	}
	if got := ResolveWritable("/tmp/app.log"); got != "/tmp/app.log" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
