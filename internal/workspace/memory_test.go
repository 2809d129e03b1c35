package workspace

import (
	"fmt"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir(), "ws1")
	if err := s.EnsureStructure(); err != nil {
		t.Fatalf("ensure structure: %v", err)
	}
	return s
}

func TestRememberFactDedupesCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	at := time.Now().UTC()

	if err := s.RememberFact(MemoryFact{Fact: "Our target is 10 customers", Category: MemoryGeneral, Timestamp: at}); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := s.RememberFact(MemoryFact{Fact: "our TARGET is 10 customers", Category: MemoryGeneral, Timestamp: at.Add(time.Minute)}); err != nil {
		t.Fatalf("remember: %v", err)
	}

	facts, err := s.ReadSessionMemory()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected duplicate fact to collapse to one entry, got %d", len(facts))
	}
}

func TestRememberFactEvictsOldestPastLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < maxSessionMemoryFacts+5; i++ {
		fact := MemoryFact{Fact: fmt.Sprintf("fact number %d", i), Category: MemoryGeneral, Timestamp: time.Now().UTC()}
		if err := s.RememberFact(fact); err != nil {
			t.Fatalf("remember %d: %v", i, err)
		}
	}

	facts, err := s.ReadSessionMemory()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(facts) != maxSessionMemoryFacts {
		t.Fatalf("expected session memory capped at %d, got %d", maxSessionMemoryFacts, len(facts))
	}
}

func TestShouldRememberMessage(t *testing.T) {
	cases := map[string]bool{
		"remember that we ship on Fridays":    true,
		"from now on ping #eng for incidents": true,
		"what's the weather like":             false,
		"lol nice":                            false,
	}
	for msg, want := range cases {
		if got := ShouldRememberMessage(msg); got != want {
			t.Errorf("ShouldRememberMessage(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestClassifyMemoryCategory(t *testing.T) {
	if got := ClassifyMemoryCategory("our company is based in Austin"); got != MemoryCompany {
		t.Errorf("expected company category, got %v", got)
	}
	if got := ClassifyMemoryCategory("my role is head of sales"); got != MemoryTeam {
		t.Errorf("expected team category, got %v", got)
	}
	if got := ClassifyMemoryCategory("remember to follow up tomorrow"); got != MemoryGeneral {
		t.Errorf("expected general category, got %v", got)
	}
}
