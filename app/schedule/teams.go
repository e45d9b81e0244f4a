package schedule

import (
	_ "embed"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed teams.yml
var teamsYAML []byte

var (
	matchupPattern = regexp.MustCompile(`(?i)\b(?:vs|v|at)\b|(?:^|\s)@(?:\s|$)`)

	dashPattern       = regexp.MustCompile("[–—]")
	atSignPattern     = regexp.MustCompile(`\s+@\s+`)
	versusPattern     = regexp.MustCompile(`(?i)\s+vs\.?\s+`)
	shortVsPattern    = regexp.MustCompile(`(?i)\s+v\.?\s+`)
	atWordPattern     = regexp.MustCompile(`(?i)\s+at\s+`)
	spacedDashPattern = regexp.MustCompile(`\s+-\s+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	splitPattern      = regexp.MustCompile(`(?i)\s(?:vs|at|@)\s`)
	parenPattern      = regexp.MustCompile(`\([^)]*\)`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9\s]`)
)

type teamsFile map[Category]struct {
	Folder string `yaml:"folder"`
	League string `yaml:"league"`
	Teams  []struct {
		File    string   `yaml:"file"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"teams"`
}

type league struct {
	logo    string
	aliases map[string]string
}

// TeamEntry is one side of a matchup. Logo is empty when no alias matched.
type TeamEntry struct {
	TeamName       string `json:"teamName"`
	NormalizedName string `json:"normalizedName"`
	Logo           string `json:"logo,omitempty"`
}

type MatchResult struct {
	Teams        []string
	Entries      []TeamEntry
	MatchedTeams []TeamEntry
	HasMatchup   bool
	LeagueLogo   *string
}

// TeamMatcher resolves free-text titles against immutable per-category alias tables.
type TeamMatcher struct {
	leagues map[Category]*league
}

func NewTeamMatcher(logoBasePath string, data []byte) (*TeamMatcher, error) {
	var raw teamsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse team aliases: %w", err)
	}

	base := strings.TrimRight(logoBasePath, "/")
	leagues := make(map[Category]*league, len(raw))
	for category, def := range raw {
		if !category.Valid() {
			return nil, fmt.Errorf("unknown category %q in team aliases", category)
		}
		l := &league{
			logo:    base + "/" + path.Join(def.Folder, def.League),
			aliases: make(map[string]string),
		}
		for _, team := range def.Teams {
			logo := base + "/" + path.Join(def.Folder, team.File)
			for _, alias := range team.Aliases {
				key := NormalizeTeamName(alias)
				if _, taken := l.aliases[key]; key != "" && !taken {
					l.aliases[key] = logo
				}
			}
		}
		leagues[category] = l
	}

	return &TeamMatcher{leagues: leagues}, nil
}

// NewDefaultTeamMatcher uses the built-in alias tables.
func NewDefaultTeamMatcher(logoBasePath string) *TeamMatcher {
	m, err := NewTeamMatcher(logoBasePath, teamsYAML)
	if err != nil {
		panic(err)
	}
	return m
}

func NormalizeTeamName(name string) string {
	if name == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	s := strings.ToLower(folded)
	s = strings.ReplaceAll(s, "&", " and ")
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func HasMatchupSeparator(title string) bool {
	return matchupPattern.MatchString(title)
}

func stripSourceLabel(raw string) string {
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	return strings.TrimSpace(raw)
}

func splitTeams(name string) []string {
	s := dashPattern.ReplaceAllString(name, "-")
	s = atSignPattern.ReplaceAllString(s, " @ ")
	s = versusPattern.ReplaceAllString(s, " vs ")
	s = shortVsPattern.ReplaceAllString(s, " vs ")
	s = atWordPattern.ReplaceAllString(s, " at ")
	s = spacedDashPattern.ReplaceAllString(s, " - ")
	s = whitespacePattern.ReplaceAllString(s, " ")

	var teams []string
	for _, part := range splitPattern.Split(s, -1) {
		part = parenPattern.ReplaceAllString(part, "")
		part, _, _ = strings.Cut(part, " - ")
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		teams = append(teams, part)
		if len(teams) == 2 {
			break
		}
	}
	return teams
}

// MatchTeams is best effort: an event may match 0, 1 or 2 teams even when
// the title reads as a matchup.
func (m *TeamMatcher) MatchTeams(category Category, rawTitle string) MatchResult {
	result := MatchResult{Teams: []string{}, Entries: []TeamEntry{}, MatchedTeams: []TeamEntry{}}

	l := m.leagues[category]
	if l != nil {
		result.LeagueLogo = StringPtr(l.logo)
	}

	name := stripSourceLabel(rawTitle)
	if name == "" || !HasMatchupSeparator(name) {
		return result
	}
	result.HasMatchup = true

	teams := splitTeams(name)
	if len(teams) == 0 {
		return result
	}
	result.Teams = teams

	for _, team := range teams {
		entry := TeamEntry{TeamName: team, NormalizedName: NormalizeTeamName(team)}
		if l != nil {
			entry.Logo = l.aliases[entry.NormalizedName]
		}
		result.Entries = append(result.Entries, entry)
		if entry.Logo != "" {
			result.MatchedTeams = append(result.MatchedTeams, entry)
		}
	}

	return result
}

// InferCategory returns the first category in order where the title matches a known team.
func (m *TeamMatcher) InferCategory(rawTitle string, order []Category) (Category, bool) {
	for _, c := range order {
		if len(m.MatchTeams(c, rawTitle).MatchedTeams) > 0 {
			return c, true
		}
	}
	return "", false
}

// Branding derives display logos. Unmatched sides fall back to the league logo.
func (m *TeamMatcher) Branding(category Category, rawTitle string) TeamBranding {
	l := m.leagues[category]
	if l == nil {
		return TeamBranding{Logos: []string{}, TeamNames: []string{}}
	}

	match := m.MatchTeams(category, rawTitle)
	branding := TeamBranding{
		Logos:            []string{l.logo},
		TeamNames:        match.Teams,
		LeagueLogo:       StringPtr(l.logo),
		HasMatchup:       match.HasMatchup,
		MatchedTeamCount: len(match.MatchedTeams),
	}

	if !match.HasMatchup || len(match.Entries) == 0 {
		return branding
	}

	branding.Logos = make([]string, 0, len(match.Entries))
	for _, entry := range match.Entries {
		if entry.Logo != "" {
			branding.Logos = append(branding.Logos, entry.Logo)
		} else {
			branding.Logos = append(branding.Logos, l.logo)
		}
	}
	return branding
}
