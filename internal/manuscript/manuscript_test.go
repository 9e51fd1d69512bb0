package manuscript

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/plume/internal/model"
)

func at(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func lifeMemories() []model.Memory {
	return []model.Memory{
		{ID: "m1990", Title: "Naissance", Content: "corps 1990", CreatedAt: at(1),
			Metadata: model.Metadata{Dates: []string{"1990"}, Photos: []string{"p1.jpg"}}},
		{ID: "m1995", Title: "École", Content: "corps 1995", CreatedAt: at(2),
			Metadata: model.Metadata{Dates: []string{"1995", "1990"}, Photos: []string{"p2.jpg", "p1.jpg"}}},
		{ID: "m2020", Title: "Mariage", Content: "corps 2020", CreatedAt: at(3),
			Metadata: model.Metadata{Dates: []string{"2020"}}},
	}
}

func lifeStructure() *model.BookStructure {
	return &model.BookStructure{
		Mode:  model.ModeChronological,
		Title: "Ma vie",
		Chapters: []model.Chapter{
			{ID: "B", Title: "Plus tard", MemoryIDs: []string{"m2020"}, Order: 2, Period: "2020"},
			{ID: "A", Title: "Les débuts", MemoryIDs: []string{"m1990", "m1995"}, Order: 1, Period: "1990-1999"},
		},
	}
}

func TestAssemble_LifeScenario(t *testing.T) {
	got := Assemble(lifeStructure(), lifeMemories())
	if len(got) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(got))
	}
	a, b := got[0], got[1]
	if a.ChapterID != "A" || b.ChapterID != "B" {
		t.Fatalf("expected A then B, got %s then %s", a.ChapterID, b.ChapterID)
	}
	if a.Body != "corps 1990"+Separator+"corps 1995" {
		t.Errorf("unexpected body for A: %q", a.Body)
	}
	if b.Body != "corps 2020" {
		t.Errorf("unexpected body for B: %q", b.Body)
	}
	if !reflect.DeepEqual(a.Photos, []string{"p1.jpg", "p2.jpg"}) {
		t.Errorf("expected de-duplicated photos, got %v", a.Photos)
	}
	if !reflect.DeepEqual(a.Dates, []string{"1990", "1995"}) {
		t.Errorf("expected de-duplicated dates, got %v", a.Dates)
	}
	if len(a.Sections) != 2 || a.Sections[1].MemoryID != "m1995" {
		t.Errorf("unexpected sections %+v", a.Sections)
	}
	if !reflect.DeepEqual(a.Tags, []string{"1990-1999"}) {
		t.Errorf("expected period tag, got %v", a.Tags)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	s, mems := lifeStructure(), lifeMemories()
	first := Assemble(s, mems)
	second := Assemble(s, mems)
	if !reflect.DeepEqual(first, second) {
		t.Error("assembling twice gave different results")
	}
	if s.Chapters[0].ID != "B" {
		t.Error("assembly must not reorder the input structure")
	}
}

func TestAssemble_PreservesIDOrder(t *testing.T) {
	s := &model.BookStructure{Chapters: []model.Chapter{
		{ID: "x", Title: "X", MemoryIDs: []string{"m2020", "ghost", "m1990"}, Order: 1},
	}}
	got := Assemble(s, lifeMemories())
	if len(got) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(got))
	}
	if got[0].Body != "corps 2020"+Separator+"corps 1990" {
		t.Errorf("body should follow id order: %q", got[0].Body)
	}
}

func TestAssemble_SkipsEmptyChapters(t *testing.T) {
	s := lifeStructure()
	s.Chapters = append(s.Chapters, model.Chapter{ID: "C", Title: "Vide", MemoryIDs: []string{"ghost"}, Order: 3})
	if got := Assemble(s, lifeMemories()); len(got) != 2 {
		t.Errorf("expected empty chapter omitted, got %d chapters", len(got))
	}
}

func TestAssemble_Fallback(t *testing.T) {
	mems := lifeMemories()
	// Shuffle insertion order; fallback sorts oldest first.
	shuffled := []model.Memory{mems[2], mems[0], mems[1]}

	tests := []struct {
		name string
		s    *model.BookStructure
	}{
		{"nil structure", nil},
		{"no chapters", &model.BookStructure{}},
		{"nothing resolves", &model.BookStructure{Chapters: []model.Chapter{{ID: "c", MemoryIDs: []string{"ghost"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assemble(tt.s, shuffled)
			var ids []string
			for _, c := range got {
				ids = append(ids, c.ChapterID)
			}
			if strings.Join(ids, ",") != "m1990,m1995,m2020" {
				t.Errorf("expected oldest first, got %v", ids)
			}
		})
	}

	if got := Assemble(nil, nil); len(got) != 0 {
		t.Errorf("expected nothing for no memories, got %d", len(got))
	}
}

func TestBuild_Titles(t *testing.T) {
	mems := lifeMemories()
	tests := []struct {
		name  string
		s     *model.BookStructure
		theme string
		want  string
	}{
		{"structure", lifeStructure(), "", "Ma vie"},
		{"structure wins over theme", lifeStructure(), "enfance", "Ma vie"},
		{"theme", nil, "enfance", "Enfance"},
		{"accented theme", nil, "école", "École"},
		{"default", nil, "", "Mémoires"},
	}
	for _, tt := range tests {
		if got := Build(tt.s, mems, View{Theme: tt.theme}).Title; got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBuild_ThemeBypassesStructure(t *testing.T) {
	ms := Build(lifeStructure(), lifeMemories(), View{Theme: "enfance"})
	// "Naissance" and "École" match; the structure's chapters are ignored.
	if len(ms.Chapters) != 2 || ms.Chapters[0].ChapterID != "m1990" || ms.Chapters[1].ChapterID != "m1995" {
		t.Fatalf("expected one chapter per childhood memory, got %+v", ms.Chapters)
	}
}

func TestFilterByTheme(t *testing.T) {
	mems := []model.Memory{
		{ID: "tag", Title: "Été", Content: "Rien.", Metadata: model.Metadata{Tags: []string{"Vacances"}}},
		{ID: "title", Title: "Mon PÈRE", Content: "Rien."},
		{ID: "body", Title: "Dimanche", Content: "Une visite au musée."},
		{ID: "none", Title: "Dimanche", Content: "Pluie."},
	}
	tests := []struct {
		theme string
		want  []string
	}{
		{"voyages", []string{"tag", "body"}},
		{"famille", []string{"title"}},
		{"Pluie", []string{"none"}},
		{"inconnu", nil},
	}
	for _, tt := range tests {
		var got []string
		for _, m := range FilterByTheme(mems, tt.theme) {
			got = append(got, m.ID)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("theme %q: got %v, want %v", tt.theme, got, tt.want)
		}
	}
}

func TestThemesTable(t *testing.T) {
	table, err := parseThemes(themesYAML)
	if err != nil {
		t.Fatalf("embedded themes: %v", err)
	}
	if !reflect.DeepEqual(table, fallbackThemes) {
		t.Error("embedded themes and fallback table differ")
	}
	if _, err := parseThemes([]byte("themes: [")); err == nil {
		t.Error("expected error for invalid yaml")
	}
	if got := Themes(); len(got) != 5 || got[0] != "carriere" {
		t.Errorf("unexpected themes %v", got)
	}
}
