package worker

import (
	"strings"
	"testing"
)

func TestCompareOutputsTokens(t *testing.T) {
	cases := []struct {
		name  string
		got   string
		want  string
		match bool
		diag  string
	}{
		{"identical", "1 2 3", "1 2 3", true, ""},
		{"spacing ignored", "1  2\n3\n", "1 2 3", true, ""},
		{"trailing newline ignored", "ok\n", "ok", true, ""},
		{"first mismatch reported", "1 2 9", "1 2 3", false, "token 3"},
		{"missing tokens", "1 2", "1 2 3", false, "expected 3 tokens, got 2"},
		{"extra tokens", "1 2 3 4", "1 2 3", false, "expected 3 tokens, got 4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			match, diag := compareOutputs(PolicyTokens, tc.got, tc.want)
			if match != tc.match {
				t.Fatalf("expected match=%v, got %v (%s)", tc.match, match, diag)
			}
			if tc.diag != "" && !strings.Contains(diag, tc.diag) {
				t.Fatalf("expected diagnostic containing %q, got %q", tc.diag, diag)
			}
		})
	}
}

func TestCompareOutputsExact(t *testing.T) {
	if match, _ := compareOutputs(PolicyExact, "a b\n", "a b"); !match {
		t.Fatal("exact policy should trim outer whitespace")
	}
	if match, _ := compareOutputs(PolicyExact, "a  b", "a b"); match {
		t.Fatal("exact policy must not ignore inner spacing")
	}
}

func TestSnapshotTruncation(t *testing.T) {
	long := strings.Repeat("x", snapshotLimit+50)
	got := snapshot(long)
	if len(got) != snapshotLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated snapshot, got len=%d", len(got))
	}
	if snapshot(" short \n") != "short" {
		t.Fatal("expected snapshot to trim whitespace")
	}
}
