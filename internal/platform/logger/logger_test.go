package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  interface{}
		want func(got interface{}) bool
	}{
		{
			name: "content_redacted",
			key:  "content",
			val:  "我想你了",
			want: func(got interface{}) bool { return got == "[REDACTED]" },
		},
		{
			name: "api_key_redacted",
			key:  "openai_api_key",
			val:  "sk-123",
			want: func(got interface{}) bool { return got == "[REDACTED]" },
		},
		{
			name: "user_id_hashed",
			key:  "user_id",
			val:  "u1",
			want: func(got interface{}) bool {
				s, ok := got.(string)
				return ok && strings.HasPrefix(s, "hash:") && len(s) == len("hash:")+12
			},
		},
		{
			name: "count_untouched",
			key:  "count",
			val:  3,
			want: func(got interface{}) bool { return got == 3 },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeValue(tc.key, tc.val)
			if !tc.want(got) {
				t.Fatalf("sanitizeValue(%q, %v)=%v", tc.key, tc.val, got)
			}
		})
	}
}

func TestHashValueIsStable(t *testing.T) {
	a := hashValue("u1")
	b := hashValue("u1")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if hashValue("u2") == a {
		t.Fatalf("distinct ids hashed to the same value")
	}
	if hashValue("") != "" {
		t.Fatalf("empty value should hash to empty")
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	l, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hello", "user_id", "u1")
	l.With("service", "x").Warn("still quiet")
}
