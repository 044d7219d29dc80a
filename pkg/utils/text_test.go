package utils

import (
	"strings"
	"testing"
)

func TestNormalizeDigits(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "۱۲۳", expected: "123"},
		{input: "٤٥", expected: "45"},
		{input: "42", expected: "42"},
	}

	for _, tt := range tests {
		if got := NormalizeDigits(tt.input); got != tt.expected {
			t.Errorf("NormalizeDigits(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	if got := SplitMessage("", 10); got != nil {
		t.Errorf("SplitMessage(\"\") = %v, want nil", got)
	}

	short := SplitMessage("hello", 10)
	if len(short) != 1 || short[0] != "hello" {
		t.Errorf("SplitMessage(short) = %v", short)
	}

	text := "line one\nline two\nline three\n"
	chunks := SplitMessage(text, 12)
	for _, c := range chunks {
		if len(c) > 12 {
			t.Errorf("chunk %q longer than limit", c)
		}
	}
	if strings.Join(chunks, "\n") != strings.TrimRight(text, "\n") {
		t.Errorf("SplitMessage() lost content: %q", chunks)
	}
}

func TestSplitMessage_LongLine(t *testing.T) {
	line := strings.Repeat("ab", 15)
	chunks := SplitMessage(line, 8)
	if len(chunks) != 4 {
		t.Fatalf("chunk count = %d, want 4", len(chunks))
	}
	if strings.Join(chunks, "") != line {
		t.Errorf("SplitMessage() lost content: %q", chunks)
	}
}

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID(8)
	if len(id) != 8 {
		t.Errorf("GenerateRandomID(8) length = %d", len(id))
	}
	if !strings.HasPrefix(BabyName(), "baby_") {
		t.Error("BabyName() should start with baby_")
	}
}
