package manuscript

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/plume/internal/model"
)

//go:embed themes.yaml
var themesYAML []byte

// fallback synonym table used when themes.yaml is missing or invalid
var fallbackThemes = map[string][]string{
	"enfance":  {"enfance", "enfant", "école", "petit", "naissance", "jeune"},
	"voyages":  {"voyage", "monde", "pays", "vacances", "étranger", "visite", "tourisme"},
	"famille":  {"famille", "parent", "mère", "père", "frère", "soeur", "enfant", "mari", "femme"},
	"carriere": {"travail", "boulot", "carrière", "métier", "entreprise", "bureau", "collègue"},
	"passions": {"passion", "hobby", "sport", "art", "musique", "lecture"},
}

type themeFile struct {
	Themes map[string][]string `yaml:"themes"`
}

var (
	themesOnce  sync.Once
	themeTable  map[string][]string
	themesError error
)

func parseThemes(data []byte) (map[string][]string, error) {
	var f themeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode themes: %w", err)
	}
	if len(f.Themes) == 0 {
		return nil, fmt.Errorf("decode themes: no themes defined")
	}
	out := make(map[string][]string, len(f.Themes))
	for name, terms := range f.Themes {
		key := strings.ToLower(strings.TrimSpace(name))
		for _, t := range terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				out[key] = append(out[key], t)
			}
		}
	}
	return out, nil
}

func themes() map[string][]string {
	themesOnce.Do(func() {
		themeTable, themesError = parseThemes(themesYAML)
	})
	if themesError != nil {
		return fallbackThemes
	}
	return themeTable
}

// Themes lists the known theme keywords, sorted.
func Themes() []string {
	t := themes()
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Synonyms returns the search terms for theme. An unknown theme is its
// own only synonym.
func Synonyms(theme string) []string {
	key := strings.ToLower(strings.TrimSpace(theme))
	if terms, ok := themes()[key]; ok {
		return terms
	}
	if key == "" {
		return nil
	}
	return []string{key}
}

// FilterByTheme keeps the memories whose tags, title or body contain any
// synonym of theme, ignoring case. Order is preserved.
func FilterByTheme(memories []model.Memory, theme string) []model.Memory {
	terms := Synonyms(theme)
	if len(terms) == 0 {
		return memories
	}
	var out []model.Memory
	for _, m := range memories {
		if matches(m, terms) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m model.Memory, terms []string) bool {
	title := strings.ToLower(m.Title)
	body := strings.ToLower(m.Content)
	for _, term := range terms {
		if strings.Contains(title, term) || strings.Contains(body, term) {
			return true
		}
		for _, tag := range m.Metadata.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				return true
			}
		}
	}
	return false
}
