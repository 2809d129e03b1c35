// Package prompt composes the system prompt sent to the model router from
// independently testable sections: persona, instructions, relevant skills,
// workspace knowledge, session memory, and environment context.
package prompt

import (
	"sort"
	"strings"

	"github.com/ojashyadav101/lucy/internal/workspace"
)

// maxSkillBodyBytes caps the total size of injected skill bodies; content
// beyond this is truncated with a visible marker rather than silently
// dropped.
const maxSkillBodyBytes = 20 * 1024

// Input carries every section's raw material. Builder never reads from disk
// itself; callers (which do have workspace access) populate this struct
// fresh on every call so persona and template text is never cached across
// requests.
type Input struct {
	PersonaBody         string
	InstructionsTemplate string // contains the literal placeholder "{available_skills}"
	AvailableSkills     []workspace.Skill
	UserMessage         string
	MatchingSkillBodies []MatchingSkill
	TeamSkill           *workspace.Skill
	CompanySkill        *workspace.Skill
	SessionMemory       []string
	ConnectedServices   []string
	CustomIntegrations  []Integration
}

// MatchingSkill is a skill whose trigger pattern matched the current user
// message, selected by the caller before building the prompt.
type MatchingSkill struct {
	Name string
	Body string
}

// Integration describes one custom (non-built-in) integration and whether
// it is ready to use.
type Integration struct {
	Name  string
	Ready bool
}

// Build composes the final system prompt as the ordered concatenation of
// sections 1 through 7. Sections that have no content to contribute are
// omitted entirely rather than emitted empty.
func Build(in Input) string {
	var sb strings.Builder

	// 1. Persona.
	sb.WriteString(strings.TrimRight(in.PersonaBody, "\n"))
	sb.WriteString("\n\n")

	// 2. Instructions template with {available_skills} substituted.
	sb.WriteString(strings.Replace(in.InstructionsTemplate, "{available_skills}", renderSkillList(in.AvailableSkills), 1))
	sb.WriteString("\n\n")

	// 3. Relevant skill bodies, capped at 20kB total.
	if in.UserMessage != "" && len(in.MatchingSkillBodies) > 0 {
		sb.WriteString(renderMatchingSkills(in.MatchingSkillBodies))
	}

	// 4. Team / company knowledge.
	if in.TeamSkill != nil || in.CompanySkill != nil {
		sb.WriteString("## knowledge\n")
		if in.CompanySkill != nil {
			sb.WriteString(in.CompanySkill.Body)
			sb.WriteString("\n\n")
		}
		if in.TeamSkill != nil {
			sb.WriteString(in.TeamSkill.Body)
			sb.WriteString("\n\n")
		}
	}

	// 5. Session memory.
	if len(in.SessionMemory) > 0 {
		sb.WriteString("## session_memory\n")
		for _, m := range in.SessionMemory {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// 6. Current environment. Slack is always connected and must never be
	// offered as something to reconnect.
	if len(in.ConnectedServices) > 0 {
		sb.WriteString("## current_environment\n")
		sb.WriteString("- slack: connected (do not ask to reconnect)\n")
		for _, svc := range in.ConnectedServices {
			if strings.EqualFold(svc, "slack") {
				continue
			}
			sb.WriteString("- " + svc + ": connected\n")
		}
		sb.WriteString("\n")
	}

	// 7. Custom integrations.
	if len(in.CustomIntegrations) > 0 {
		sb.WriteString("## custom_integrations\n")
		for _, ci := range in.CustomIntegrations {
			status := "not ready"
			if ci.Ready {
				status = "ready"
			}
			sb.WriteString("- " + ci.Name + ": " + status + "\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderSkillList(skills []workspace.Skill) string {
	sorted := make([]workspace.Skill, len(skills))
	copy(sorted, skills)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var sb strings.Builder
	for i, s := range sorted {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + s.Name + ": " + s.Description)
	}
	return sb.String()
}

func renderMatchingSkills(skills []MatchingSkill) string {
	limited := skills
	if len(limited) > 3 {
		limited = limited[:3]
	}

	var sb strings.Builder
	sb.WriteString("## relevant_skills\n")
	budget := maxSkillBodyBytes
	truncated := false
	for _, s := range limited {
		block := "### " + s.Name + "\n" + s.Body + "\n\n"
		if len(block) > budget {
			if budget > 0 {
				sb.WriteString(block[:budget])
			}
			truncated = true
			budget = 0
			break
		}
		sb.WriteString(block)
		budget -= len(block)
	}
	if truncated {
		sb.WriteString("\n[... skill content truncated at 20KB ...]\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
