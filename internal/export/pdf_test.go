package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/rcliao/plume/internal/manuscript"
	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
)

type textOp struct {
	page int
	x, y float64
	txt  string
}

type imageOp struct {
	page       int
	x, y, w, h float64
}

// recorder is a Surface that records what is drawn on which page.
type recorder struct {
	pages    int
	page     int
	fontSize float64
	texts    []textOp
	images   []imageOp
	err      error

	failRegister bool
}

func (r *recorder) AddPage()                       { r.pages++; r.page = r.pages }
func (r *recorder) PageNo() int                    { return r.page }
func (r *recorder) PageCount() int                 { return r.pages }
func (r *recorder) SetPage(n int)                  { r.page = n }
func (r *recorder) SetFont(_, _ string, size float64) { r.fontSize = size }
func (r *recorder) SetTextColor(_, _, _ int)       {}
func (r *recorder) SetDrawColor(_, _, _ int)       {}
func (r *recorder) SetFillColor(_, _, _ int)       {}
func (r *recorder) SetLineWidth(float64)           {}
func (r *recorder) Rect(_, _, _, _ float64, _ string) {}
func (r *recorder) Line(_, _, _, _ float64)        {}
func (r *recorder) Text(x, y float64, txt string) {
	r.texts = append(r.texts, textOp{page: r.page, x: x, y: y, txt: txt})
}
func (r *recorder) GetStringWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * r.fontSize * 0.2
}
func (r *recorder) RegisterImageOptionsReader(_ string, _ fpdf.ImageOptions, _ io.Reader) *fpdf.ImageInfoType {
	if r.failRegister {
		r.err = errors.New("unsupported image")
	}
	return nil
}
func (r *recorder) ImageOptions(_ string, x, y, w, h float64, _ bool, _ fpdf.ImageOptions, _ int, _ string) {
	r.images = append(r.images, imageOp{page: r.page, x: x, y: y, w: w, h: h})
}
func (r *recorder) Ok() bool     { return r.err == nil }
func (r *recorder) Error() error { return r.err }
func (r *recorder) ClearError()  { r.err = nil }

func (r *recorder) find(sub string) []textOp {
	var out []textOp
	for _, t := range r.texts {
		if strings.Contains(t.txt, sub) {
			out = append(out, t)
		}
	}
	return out
}

type mapSource map[string][]byte

func (m mapSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	if b, ok := m[ref]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no photo %s", ref)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func longManuscript() manuscript.Manuscript {
	para := strings.Repeat("Le vent soufflait sur la lande et les moutons rentraient. ", 12)
	body := strings.Repeat(para+"\n\n", 15)
	return manuscript.Manuscript{
		Title: "Une vie",
		Chapters: []model.AssembledChapter{
			{ChapterID: "a", Title: "Enfance", Description: "Les premières années.", Sections: []model.Section{
				{MemoryID: "m1", Title: "La ferme", Body: body, Photos: []string{"tall.png"}},
				{MemoryID: "m2", Title: "L'école", Body: body},
			}},
			{ChapterID: "b", Title: "Voyages", Sections: []model.Section{
				{MemoryID: "m3", Title: "Sardaigne", Body: "Court."},
			}},
		},
	}
}

func renderFake(t *testing.T, e *Exporter, ms manuscript.Manuscript) (*recorder, *layout) {
	t.Helper()
	r := &recorder{}
	l := e.newLayout(r, nil)
	if err := l.render(context.Background(), ms, Options{Date: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("render: %v", err)
	}
	return r, l
}

func TestEnsure_BreaksBeforeDrawing(t *testing.T) {
	r := &recorder{}
	l := (&Exporter{}).newLayout(r, nil)
	l.newPage()
	r.SetFont(serif, "", 12)

	l.y = PageHeight - Margin - 5
	l.line("dernière ligne", LineHeight, 'L')

	if r.pages != 2 {
		t.Fatalf("expected a page break, got %d pages", r.pages)
	}
	got := r.texts[0]
	if got.page != 2 {
		t.Errorf("line drawn on page %d, want 2", got.page)
	}
	if got.y > Margin+LineHeight {
		t.Errorf("line drawn at %.1f, expected near the top margin", got.y)
	}
	if l.y != Margin+LineHeight {
		t.Errorf("cursor at %.1f, want %.1f", l.y, Margin+LineHeight)
	}

	// A block that fits exactly does not break.
	l.y = PageHeight - Margin - LineHeight
	l.line("juste", LineHeight, 'L')
	if r.pages != 2 {
		t.Errorf("exact fit should not break, got %d pages", r.pages)
	}
}

func TestRender_NothingBelowMargin(t *testing.T) {
	e := &Exporter{Images: mapSource{"tall.png": pngBytes(t, 60, 200)}, MaxEdge: 400}
	r, l := renderFake(t, e, longManuscript())

	if r.pages < 5 {
		t.Fatalf("expected long body to span pages, got %d", r.pages)
	}
	for _, op := range r.texts {
		if op.page == 1 || strings.HasPrefix(op.txt, "Page ") || op.y == 12 {
			continue
		}
		if op.y > PageHeight-Margin {
			t.Errorf("text %q drawn below the margin at %.1f on page %d", op.txt, op.y, op.page)
		}
	}
	if len(r.images) != 1 {
		t.Fatalf("expected one image, got %d", len(r.images))
	}
	img := r.images[0]
	if img.h > PageHeight/2+0.001 {
		t.Errorf("image height %.1f exceeds half a page", img.h)
	}
	if img.y+img.h > PageHeight-Margin {
		t.Errorf("image crosses the bottom margin")
	}
	if want := img.h * 60 / 200; img.w < want-0.01 || img.w > want+0.01 {
		t.Errorf("aspect ratio lost: %.2fx%.2f", img.w, img.h)
	}
	if l.res.Images != 1 || l.res.SkippedImages != 0 {
		t.Errorf("unexpected result %+v", l.res)
	}
}

func TestRender_ChaptersStartOnFreshPages(t *testing.T) {
	r, _ := renderFake(t, &Exporter{}, longManuscript())

	c1 := r.find("CHAPITRE 1")
	c2 := r.find("CHAPITRE 2")
	if len(c1) != 1 || len(c2) != 1 {
		t.Fatalf("expected one heading per chapter, got %d and %d", len(c1), len(c2))
	}
	if c1[0].page != 3 {
		t.Errorf("first chapter on page %d, want 3 (after cover and contents)", c1[0].page)
	}
	for _, op := range r.texts {
		if op.page == c2[0].page && op.y < c2[0].y && op.y != 12 {
			t.Errorf("%q drawn above the chapter heading on its page", op.txt)
		}
	}
	if toc := r.find("Table des Matières"); len(toc) != 1 || toc[0].page != 2 {
		t.Errorf("expected contents on page 2, got %+v", toc)
	}
	if len(r.find("2. Voyages")) != 1 {
		t.Error("contents should list the second chapter")
	}
	if len(r.find("•")) != 1 {
		t.Error("expected one separator between the two sections of chapter 1")
	}
}

func TestRender_FootersAndHeaders(t *testing.T) {
	r, _ := renderFake(t, &Exporter{}, longManuscript())

	total := r.pages
	for n := 1; n <= total; n++ {
		footer := fmt.Sprintf("Page %d sur %d", n, total)
		got := r.find(footer)
		if n == 1 {
			if len(got) != 0 {
				t.Error("cover must not be numbered")
			}
			continue
		}
		if len(got) != 1 || got[0].page != n {
			t.Errorf("page %d: expected footer %q, got %+v", n, footer, got)
		}
	}
	fin := r.find("Fin")
	if len(fin) != 1 || fin[0].page != total {
		t.Errorf("expected the closing page last, got %+v", fin)
	}
	if last := r.find("Page " + fmt.Sprint(total) + " sur"); len(last) != 1 || last[0].page != total {
		t.Error("closing page must be numbered")
	}
	if len(r.find("fragment d'éternité")) == 0 || len(r.find("Créé avec PLUME")) != 1 {
		t.Error("closing page should carry the epilogue and the signature")
	}
	if headers := r.find("UNE VIE"); len(headers) != total {
		// cover title plus one header per other page
		t.Errorf("expected %d title occurrences, got %d", total, len(headers))
	}
}

func TestRender_SkipsBadPhotos(t *testing.T) {
	ms := longManuscript()
	ms.Chapters[1].Sections[0].Photos = []string{"missing.png", "garbage.png"}
	e := &Exporter{Images: mapSource{"tall.png": pngBytes(t, 10, 10), "garbage.png": []byte("not an image")}}

	r, l := renderFake(t, e, ms)
	if l.res.Images != 1 || l.res.SkippedImages != 2 {
		t.Errorf("expected 1 embedded and 2 skipped, got %+v", l.res)
	}
	if len(r.find("Sardaigne")) == 0 || len(r.find("Court.")) == 0 {
		t.Error("section text must survive failed photos")
	}
}

func TestRender_ClearsSurfaceErrorOnPhotoFailure(t *testing.T) {
	r := &recorder{failRegister: true}
	e := &Exporter{Images: mapSource{"tall.png": pngBytes(t, 10, 10)}}
	l := e.newLayout(r, nil)
	if err := l.render(context.Background(), longManuscript(), Options{Date: time.Now()}); err != nil {
		t.Fatalf("photo failure should not abort: %v", err)
	}
	if !r.Ok() || l.res.SkippedImages != 1 || len(r.images) != 0 {
		t.Errorf("expected skipped photo and cleared error, got %+v", l.res)
	}
}

func TestWrap(t *testing.T) {
	r := &recorder{fontSize: 10} // 2mm per rune
	l := (&Exporter{}).newLayout(r, nil)

	lines := l.wrap("un deux trois quatre", 20)
	if strings.Join(lines, "|") != "un deux|trois|quatre" {
		t.Errorf("unexpected wrap %q", lines)
	}
	long := l.wrap("anticonstitutionnellement", 20)
	for _, ln := range long {
		if l.width(ln) > 20 {
			t.Errorf("line %q wider than the column", ln)
		}
	}
	if strings.Join(long, "") != "anticonstitutionnellement" {
		t.Errorf("long word lost characters: %q", long)
	}
	if got := l.wrap("   ", 20); len(got) != 0 {
		t.Errorf("blank text should give no lines, got %q", got)
	}
}

func TestFrenchMonthYear(t *testing.T) {
	if got := frenchMonthYear(time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)); got != "février 2025" {
		t.Errorf("got %q", got)
	}
}

func TestWrite_MissingImageStillExports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ms := manuscript.Manuscript{
		Title: "Souvenirs de Bretagne",
		Chapters: []model.AssembledChapter{{
			ChapterID: "c1",
			Title:     "Le port de Camaret",
			Sections: []model.Section{{
				MemoryID: "m1",
				Title:    "Retour de peche",
				Body:     "Les chalutiers rentraient au port avant la nuit.",
				Photos:   []string{srv.URL + "/missing.jpg"},
			}},
		}},
	}

	e := &Exporter{Images: NewFetcher(2 * time.Second)}
	var buf bytes.Buffer
	res, err := e.Write(context.Background(), ms, Options{Author: "Jeanne", Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}, &buf)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.SkippedImages != 1 || res.Images != 0 {
		t.Errorf("expected the missing photo skipped, got %+v", res)
	}
	if res.Pages != 4 {
		t.Errorf("expected cover, contents, one chapter page and the closing page, got %d", res.Pages)
	}

	path := filepath.Join(t.TempDir(), "book.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Pages != 4 {
		t.Errorf("read back %d pages, want 4", info.Pages)
	}
	for _, want := range []string{"CHAPITRE 1", "Le port de Camaret", "Retour de peche", "chalutiers", "Fin", "Jeanne", "Page 4 sur 4"} {
		if !strings.Contains(info.Text, want) {
			t.Errorf("exported text missing %q", want)
		}
	}
}

func TestWrite_EmbedsPhoto(t *testing.T) {
	dir := t.TempDir()
	photoPath := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(photoPath, pngBytes(t, 40, 30), 0o644); err != nil {
		t.Fatal(err)
	}
	ms := manuscript.Manuscript{
		Title: "Album",
		Chapters: []model.AssembledChapter{{
			ChapterID: "c1", Title: "Photos",
			Sections: []model.Section{{Title: "Plage", Body: "Du sable.", Photos: []string{"file://" + photoPath}}},
		}},
	}
	var buf bytes.Buffer
	res, err := (&Exporter{Images: NewFetcher(0)}).Write(context.Background(), ms, Options{}, &buf)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.Images != 1 {
		t.Errorf("expected photo embedded, got %+v", res)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestWrite_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Exporter{}).Write(ctx, longManuscript(), Options{}, io.Discard)
	if !plumeerr.Is(err, plumeerr.ExportFailed) {
		t.Errorf("expected export_failed, got %v", err)
	}
}
