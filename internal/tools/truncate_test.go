package tools

import (
	"strings"
	"testing"
)

func TestTruncateResultLeavesShortResultsUntouched(t *testing.T) {
	short := "all good"
	if got := TruncateResult(short); got != short {
		t.Fatalf("expected short result unchanged, got %q", got)
	}
}

func TestTruncateResultDoesNotSplitAMultiByteRune(t *testing.T) {
	result := strings.Repeat("a", ToolResultMaxChars-1) + "€€€€"
	got := TruncateResult(result)
	if !strings.HasPrefix(got, strings.Repeat("a", ToolResultMaxChars-1)+"€") {
		t.Fatal("expected the boundary rune kept whole")
	}
	if strings.Contains(got, "�") {
		t.Fatalf("expected no replacement character from a split rune, got %q", got)
	}
}
