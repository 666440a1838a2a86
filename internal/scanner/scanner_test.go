package scanner

import "testing"

func TestParseMakeRuleSingleLine(t *testing.T) {
	rule := "main.o: main.c main.h common.h\n"
	headers := parseMakeRule(rule, "main.c")
	want := map[string]bool{"main.h": true, "common.h": true}
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", headers)
	}
	for _, h := range headers {
		if !want[h] {
			t.Fatalf("unexpected header %q in %v", h, headers)
		}
	}
}

func TestParseMakeRuleContinuationLines(t *testing.T) {
	rule := "main.o: main.c \\\n  main.h \\\n  /usr/include/stdio.h\n"
	headers := parseMakeRule(rule, "main.c")
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers after joining continuations, got %v", headers)
	}
}

func TestParseMakeRuleExcludesSourceItself(t *testing.T) {
	rule := "main.o: main.c main.h\n"
	headers := parseMakeRule(rule, "main.c")
	for _, h := range headers {
		if h == "main.c" {
			t.Fatal("source file itself should not appear in header list")
		}
	}
}

func TestParseMakeRuleNoColonReturnsNil(t *testing.T) {
	if headers := parseMakeRule("garbage output with no colon", "main.c"); headers != nil {
		t.Fatalf("expected nil for malformed rule, got %v", headers)
	}
}
