package store

import (
	"context"
	"strings"
	"testing"

	"github.com/rcliao/plume/internal/model"
)

func TestSearch_Basic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	putPublished(t, s, "u1", "Vacances en Bretagne", "La mer était froide cet été-là.", model.Metadata{})
	putPublished(t, s, "u1", "Premier emploi", "Le bureau donnait sur la mer du Nord.", model.Metadata{})
	putPublished(t, s, "u2", "Autre", "La mer, encore.", model.Metadata{})

	results, err := s.Search(ctx, SearchParams{UserID: "u1", Query: "mer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Search by title
	results, _ = s.Search(ctx, SearchParams{UserID: "u1", Query: "Bretagne"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	results, _ = s.Search(ctx, SearchParams{UserID: "u1", Query: "javascript"})
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestSearch_PunctuationSkipsFTS(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	putPublished(t, s, "u1", "t", `Il a dit "au revoir" - puis rien.`, model.Metadata{})

	results, err := s.Search(ctx, SearchParams{UserID: "u1", Query: `"au revoir" -`})
	if err != nil {
		t.Fatalf("search with punctuation should not reach FTS: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected substring match, got %d", len(results))
	}
}

func TestSearch_MatchChunk(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	para := strings.Repeat("Une phrase ordinaire sans rien. ", 14)
	content := para + "\n\n" + para + "\n\nLe chat s'appelait Pompon."
	putPublished(t, s, "u1", "Long", content, model.Metadata{})

	results, err := s.Search(ctx, SearchParams{UserID: "u1", Query: "Pompon"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].MatchChunk == nil || !strings.Contains(results[0].MatchChunk.Text, "Pompon") {
		t.Errorf("expected matching chunk, got %+v", results[0].MatchChunk)
	}
}

func TestSearch_Limit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		putPublished(t, s, "u1", "souvenir", "école", model.Metadata{})
	}
	results, _ := s.Search(ctx, SearchParams{UserID: "u1", Query: "école", Limit: 3})
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}
