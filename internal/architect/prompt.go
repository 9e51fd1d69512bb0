package architect

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rcliao/plume/internal/llm"
	"github.com/rcliao/plume/internal/model"
)

// DefaultPromptBudget caps the serialized memory summaries, in bytes
// (roughly 4 bytes per token).
const DefaultPromptBudget = 120_000

// modeSettings holds the per-mode generation knobs.
type modeSettings struct {
	temperature   float32
	topP          float32
	excerpt       int
	dates         bool
	tags          bool
	characters    bool
	fallbackTitle string
}

var settings = map[model.Mode]modeSettings{
	model.ModeChronological: {temperature: 0.7, excerpt: 200, dates: true, fallbackTitle: "Mon Histoire"},
	model.ModeThematic:      {temperature: 0.8, excerpt: 200, tags: true, fallbackTitle: "Mosaïque de Vie"},
	model.ModeExpert: {temperature: 0.9, topP: 0.95, excerpt: 300, dates: true, tags: true, characters: true,
		fallbackTitle: "Une Vie Extraordinaire"},
}

// summary is the per-memory view sent to the model.
type summary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Dates      []string `json:"dates,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
}

// summarize builds the model-facing summaries for memories, oldest first,
// packed greedily into budget bytes. A memory that does not fit is sent
// without its excerpt; packing stops once even that does not fit.
// Returns the summaries and the number of memories left out.
func summarize(memories []model.Memory, mode model.Mode, budget int) ([]summary, int) {
	st := settings[mode]
	if budget <= 0 {
		budget = DefaultPromptBudget
	}

	out := make([]summary, 0, len(memories))
	used := 0
	for i, m := range memories {
		s := summary{ID: m.ID, Title: m.Title, Excerpt: truncate(m.Content, st.excerpt)}
		if st.dates {
			s.Dates = m.Metadata.Dates
		}
		if st.tags {
			s.Tags = m.Metadata.Tags
		}
		if st.characters {
			s.Characters = m.Metadata.Characters
		}

		size := encodedLen(s)
		if used+size > budget {
			s.Excerpt = ""
			size = encodedLen(s)
			if used+size > budget {
				return out, len(memories) - i
			}
		}
		out = append(out, s)
		used += size
	}
	return out, 0
}

func encodedLen(v any) int {
	b, _ := json.Marshal(v)
	return len(b) + 1
}

// truncate returns the first n runes of s, trimmed.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

var yearRe = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)

// BirthYear extracts a four digit year from a free-form birth date.
func BirthYear(birthDate string) string {
	return yearRe.FindString(birthDate)
}

// Draft builds the generation request for mode. It does not call the model.
func Draft(memories []model.Memory, mode model.Mode, profile model.Profile, budget int) (llm.Request, int, error) {
	st, ok := settings[mode]
	if !ok {
		return llm.Request{}, 0, fmt.Errorf("unknown mode %q", mode)
	}
	sums, omitted := summarize(memories, mode, budget)
	listing, err := json.MarshalIndent(sums, "", "  ")
	if err != nil {
		return llm.Request{}, 0, fmt.Errorf("encode summaries: %w", err)
	}

	var b strings.Builder
	b.WriteString(intro[mode])
	b.WriteString("\n\nAUTEUR\n")
	if y := BirthYear(profile.BirthDate); y != "" {
		fmt.Fprintf(&b, "- Né(e) en %s\n", y)
	} else {
		b.WriteString("- Année de naissance inconnue\n")
	}
	if profile.FirstName != "" {
		fmt.Fprintf(&b, "- Prénom : %s\n", profile.FirstName)
	}
	fmt.Fprintf(&b, "- %d souvenirs publiés\n", len(memories))
	b.WriteString("\nSOUVENIRS\n")
	b.Write(listing)
	b.WriteString("\n\nCONSIGNES\n")
	b.WriteString(steps[mode])
	b.WriteString("\n\nFORMAT\nRéponds uniquement avec un objet JSON de cette forme :\n")
	b.WriteString(shape(mode))
	b.WriteString("\nN'utilise que les identifiants de souvenirs fournis ci-dessus.\n")

	return llm.Request{Prompt: b.String(), Temperature: st.temperature, TopP: st.topP}, omitted, nil
}

var intro = map[model.Mode]string{
	model.ModeChronological: "Tu es biographe. Organise les souvenirs ci-dessous en un livre CHRONOLOGIQUE, découpé en grandes périodes de vie.",
	model.ModeThematic:      "Tu es biographe. Organise les souvenirs ci-dessous en un livre THÉMATIQUE, un chapitre par grand thème de vie.",
	model.ModeExpert: "Tu es un biographe reconnu et un dramaturge. Propose la structure de livre la plus forte possible pour cette autobiographie, " +
		"avec une entière liberté de construction.",
}

var steps = map[model.Mode]string{
	model.ModeChronological: `1. Repère les dates et les périodes évoquées.
2. Déduis les grandes étapes de vie (enfance, jeunesse, vie adulte...) avec leurs bornes en années.
3. Crée un chapitre par étape, du plus ancien au plus récent.
4. Range chaque souvenir dans le chapitre de sa période.
5. Donne un titre évocateur au livre.
6. Estime les pages de chaque chapitre (environ 3 pages par souvenir).`,
	model.ModeThematic: `1. Repère les thèmes qui reviennent (famille, voyages, carrière, passions, épreuves...).
2. Regroupe les souvenirs par thème, chacun dans le thème le plus juste.
3. Ordonne les chapitres pour que la lecture soit fluide, pas par ordre alphabétique.
4. Donne un titre évocateur au livre.
5. Estime les pages de chaque chapitre (environ 3 pages par souvenir).`,
	model.ModeExpert: `1. Cherche la dramaturgie de cette vie : arcs, tournants, échos entre souvenirs.
2. Raconte une histoire plutôt qu'une chronologie ; tu peux ouvrir sur un moment fort, utiliser des retours en arrière ou des chapitres en miroir.
3. Donne à chaque chapitre un titre littéraire et une description qui en dit l'enjeu.
4. Tous les souvenirs doivent trouver leur place.
5. Estime les pages de chaque chapitre (environ 3 pages par souvenir).
6. Explique tes choix dans "rationale".`,
}

func shape(mode model.Mode) string {
	label := `"period": "1950-1962"`
	switch mode {
	case model.ModeThematic:
		label = `"theme": "Famille"`
	case model.ModeExpert:
		label = `"theme": "Le départ"`
	}
	return `{
  "title": "Titre du livre",
  "subtitle": "Sous-titre facultatif",
  "chapters": [
    {
      "id": "chapter-1",
      "title": "Titre du chapitre",
      "description": "Une ou deux phrases",
      "memoryIds": ["<id>", "<id>"],
      "order": 1,
      "estimatedPages": 12,
      ` + label + `
    }
  ],
  "rationale": "Deux ou trois phrases sur la structure choisie"
}`
}
