package workspace

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
)

const sessionMemoryFile = "data/session_memory.json"

// maxSessionMemoryFacts bounds session memory; the oldest fact is evicted
// once a write would exceed it.
const maxSessionMemoryFacts = 50

// MemoryCategory classifies where a remembered fact belongs.
type MemoryCategory string

const (
	MemoryCompany MemoryCategory = "company"
	MemoryTeam    MemoryCategory = "team"
	MemoryGeneral MemoryCategory = "general"
)

// MemoryFact is one session-memory entry: a fact extracted from
// conversation, bridging ephemeral thread history and permanent skill
// knowledge.
type MemoryFact struct {
	Fact      string         `json:"fact"`
	Source    string         `json:"source"`
	Category  MemoryCategory `json:"category"`
	Timestamp time.Time      `json:"timestamp"`
}

// rememberRe flags a message as containing something worth remembering
// across threads: explicit asks ("remember", "note that"), standing
// preferences ("from now on", "always"/"never"), and self-reported facts
// about identity, role, or targets.
var rememberRe = regexp.MustCompile(`(?i)\b(?:` +
	`remember|note that|keep in mind|fyi|for your reference|` +
	`going forward|from now on|always|never|our (?:target|goal|kpi)|` +
	`my (?:name|role|email|timezone|preference)|` +
	`we use|we switched to|our stack|we're moving to|` +
	`(?:new|updated?) (?:target|goal|deadline|process)|` +
	`i(?:'m| am) (?:the|a|responsible for)|` +
	`(?:my|our) (?:mrr|revenue|arr|budget|runway) is` +
	`)\b`)

var companySignalRe = regexp.MustCompile(`(?i)\b(?:` +
	`our company|we(?:'re| are) (?:a|an)|our product|our service|` +
	`our (?:mrr|arr|revenue|valuation|headcount|team size)|` +
	`we use|our stack|we(?:'re| are) (?:based|located)|` +
	`our (?:clients?|customers?)|(?:founded|started) in` +
	`)\b`)

var teamSignalRe = regexp.MustCompile(`(?i)\b(?:` +
	`(?:i|my) (?:name|role|title|email|timezone|tz)|` +
	`i(?:'m| am) (?:the|a|an|responsible)|` +
	`(?:he|she|they)(?:'s| is| are) (?:the|our|a)|` +
	`(?:works?|working) on|reports? to|` +
	`new (?:hire|team member|employee)|` +
	`(?:joined|leaving|left) (?:the )?(?:team|company)` +
	`)\b`)

// ShouldRememberMessage reports whether message contains a signal worth
// persisting to session memory.
func ShouldRememberMessage(message string) bool {
	return rememberRe.MatchString(message)
}

// ClassifyMemoryCategory decides which bucket a remembered fact belongs to.
// Company signals are checked before team signals since a message can match
// both ("our team uses...") and the company-wide reading is the safer
// default.
func ClassifyMemoryCategory(message string) MemoryCategory {
	switch {
	case companySignalRe.MatchString(message):
		return MemoryCompany
	case teamSignalRe.MatchString(message):
		return MemoryTeam
	default:
		return MemoryGeneral
	}
}

// ReadSessionMemory loads the workspace's session memory, returning an empty
// slice if the file does not yet exist or is blank, and an io_error if it
// fails to parse.
func (s *Store) ReadSessionMemory() ([]MemoryFact, error) {
	raw, ok, err := s.Read(sessionMemoryFile)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var facts []MemoryFact
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return nil, errkind.Wrap(errkind.IOError, "parse session memory", err)
	}
	return facts, nil
}

// RememberFact inserts fact into session memory, deduplicating by
// case-insensitive fact-text equality (a repeated fact replaces the prior
// entry and moves to the end) and evicting the oldest entries past
// maxSessionMemoryFacts. The file is overwritten whole, matching the single
// JSON document session memory is specified to persist as.
func (s *Store) RememberFact(fact MemoryFact) error {
	existing, err := s.ReadSessionMemory()
	if err != nil {
		return err
	}

	lower := strings.ToLower(strings.TrimSpace(fact.Fact))
	deduped := make([]MemoryFact, 0, len(existing)+1)
	for _, f := range existing {
		if strings.ToLower(strings.TrimSpace(f.Fact)) == lower {
			continue
		}
		deduped = append(deduped, f)
	}
	deduped = append(deduped, fact)

	if len(deduped) > maxSessionMemoryFacts {
		deduped = deduped[len(deduped)-maxSessionMemoryFacts:]
	}

	data, err := json.MarshalIndent(deduped, "", "  ")
	if err != nil {
		return errkind.Wrap(errkind.IOError, "encode session memory", err)
	}
	return s.Write(sessionMemoryFile, string(data))
}
