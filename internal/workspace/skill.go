package workspace

import (
	"path/filepath"
	"strings"

	"github.com/ojashyadav101/lucy/internal/errkind"
	"gopkg.in/yaml.v3"
)

// Skill is a named behavior file: skills/{name}/SKILL.md, plus the two
// well-known singletons company/SKILL.md and team/SKILL.md.
type Skill struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Body        string `yaml:"-"`
}

// frontMatterDelim is the standard "---" fence used by Markdown front matter.
const frontMatterDelim = "---"

func parseSkillFile(raw string) (Skill, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return Skill{Body: raw}, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			end = i
			break
		}
	}
	if end < 0 {
		return Skill{Body: raw}, nil
	}
	var skill Skill
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &skill); err != nil {
		return Skill{}, errkind.Wrap(errkind.IOError, "parse skill front matter", err)
	}
	skill.Body = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
	return skill, nil
}

// ReadSkill loads skills/{name}/SKILL.md.
func (s *Store) ReadSkill(name string) (Skill, bool, error) {
	raw, ok, err := s.Read(filepath.Join("skills", name, "SKILL.md"))
	if err != nil || !ok {
		return Skill{}, ok, err
	}
	skill, err := parseSkillFile(raw)
	if err != nil {
		return Skill{}, false, err
	}
	if skill.Name == "" {
		skill.Name = name
	}
	return skill, true, nil
}

// ReadCompanySkill loads the well-known company/SKILL.md singleton.
func (s *Store) ReadCompanySkill() (Skill, bool, error) {
	return s.readSingletonSkill("company")
}

// ReadTeamSkill loads the well-known team/SKILL.md singleton.
func (s *Store) ReadTeamSkill() (Skill, bool, error) {
	return s.readSingletonSkill("team")
}

func (s *Store) readSingletonSkill(dir string) (Skill, bool, error) {
	raw, ok, err := s.Read(filepath.Join(dir, "SKILL.md"))
	if err != nil || !ok {
		return Skill{}, ok, err
	}
	skill, err := parseSkillFile(raw)
	if err != nil {
		return Skill{}, false, err
	}
	if skill.Name == "" {
		skill.Name = dir
	}
	return skill, true, nil
}

// ListSkills returns every named skill under skills/, read-through from
// disk on each call; skills have no write-ordering requirements relative to
// one another.
func (s *Store) ListSkills() ([]Skill, error) {
	names, err := s.List("skills")
	if err != nil {
		return nil, err
	}
	skills := make([]Skill, 0, len(names))
	for _, name := range names {
		skill, ok, err := s.ReadSkill(name)
		if err != nil {
			return nil, err
		}
		if ok {
			skills = append(skills, skill)
		}
	}
	return skills, nil
}
