// Package export lays a manuscript out as an A4 PDF book.
//
// Layout is a single pass driven by a vertical cursor: before any block
// is drawn the exporter checks that it fits above the bottom margin and
// starts a new page otherwise. A second pass adds running headers and
// "Page N sur TOTAL" footers once the page count is known.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/rcliao/plume/internal/chunker"
	"github.com/rcliao/plume/internal/logger"
	"github.com/rcliao/plume/internal/manuscript"
	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
)

// Page geometry in millimetres.
const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	Margin       = 25.0
	ContentWidth = PageWidth - 2*Margin
	LineHeight   = 7.0
)

const serif = "Times"

// Surface is the subset of *fpdf.Fpdf the exporter draws with.
type Surface interface {
	AddPage()
	PageNo() int
	PageCount() int
	SetPage(n int)
	SetFont(family, style string, size float64)
	SetTextColor(r, g, b int)
	SetDrawColor(r, g, b int)
	SetFillColor(r, g, b int)
	SetLineWidth(w float64)
	Rect(x, y, w, h float64, style string)
	Line(x1, y1, x2, y2 float64)
	Text(x, y float64, txt string)
	GetStringWidth(s string) float64
	RegisterImageOptionsReader(name string, opts fpdf.ImageOptions, r io.Reader) *fpdf.ImageInfoType
	ImageOptions(name string, x, y, w, h float64, flow bool, opts fpdf.ImageOptions, link int, linkStr string)
	Ok() bool
	Error() error
	ClearError()
}

// Options control a single export.
type Options struct {
	Author string
	// Date is printed on the cover and used as the PDF creation date.
	// Zero means now.
	Date time.Time
}

// Result summarises a finished export.
type Result struct {
	Pages         int `json:"pages"`
	Chapters      int `json:"chapters"`
	Images        int `json:"images"`
	SkippedImages int `json:"skipped_images"`
}

// Exporter writes manuscripts as PDF.
type Exporter struct {
	Images  ImageSource // nil skips photos
	MaxEdge int         // longest photo edge in pixels, 0 for the default
	Log     *logger.Logger
}

// Write renders ms as PDF into w. Photos that cannot be fetched or
// decoded are skipped; any failure of the PDF writer is ExportFailed.
func (e *Exporter) Write(ctx context.Context, ms manuscript.Manuscript, opts Options, w io.Writer) (*Result, error) {
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetCreationDate(opts.Date)
	pdf.SetModificationDate(opts.Date)
	pdf.SetTitle(ms.Title, true)
	pdf.SetCreator("PLUME", true)
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}

	l := e.newLayout(pdf, pdf.UnicodeTranslatorFromDescriptor(""))
	if err := l.render(ctx, ms, opts); err != nil {
		return nil, err
	}
	if !pdf.Ok() {
		return nil, plumeerr.New(plumeerr.ExportFailed, pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return nil, plumeerr.New(plumeerr.ExportFailed, err)
	}
	l.res.Pages = pdf.PageCount()
	l.log.Info("pdf exported", "title", ms.Title, "pages", l.res.Pages,
		"images", l.res.Images, "skipped_images", l.res.SkippedImages)
	return l.res, nil
}

type layout struct {
	s       Surface
	tr      func(string) string
	images  ImageSource
	maxEdge int
	log     *logger.Logger

	y   float64
	seq int
	res *Result
}

func (e *Exporter) newLayout(s Surface, tr func(string) string) *layout {
	log := e.Log
	if log == nil {
		log = logger.Nop()
	}
	if tr == nil {
		tr = func(s string) string { return s }
	}
	return &layout{s: s, tr: tr, images: e.Images, maxEdge: e.MaxEdge, log: log, res: &Result{}}
}

func (l *layout) render(ctx context.Context, ms manuscript.Manuscript, opts Options) error {
	l.cover(ms, opts)
	l.contents(ms.Chapters)
	for i, ch := range ms.Chapters {
		if err := ctx.Err(); err != nil {
			return plumeerr.New(plumeerr.ExportFailed, err)
		}
		l.chapter(ctx, i+1, ch)
		if !l.s.Ok() {
			return plumeerr.New(plumeerr.ExportFailed, l.s.Error())
		}
	}
	l.res.Chapters = len(ms.Chapters)
	l.closing(opts)
	l.decorate(ms.Title)
	return nil
}

// ensure starts a new page when a block of height h would cross the
// bottom margin. It reports whether a break happened.
func (l *layout) ensure(h float64) bool {
	if l.y+h <= PageHeight-Margin {
		return false
	}
	l.newPage()
	return true
}

func (l *layout) newPage() {
	l.s.AddPage()
	l.y = Margin
}

// line draws one line of text as a block of height h at the cursor.
func (l *layout) line(txt string, h float64, align byte) {
	l.ensure(h)
	l.text(txt, l.y+h*0.72, align)
	l.y += h
}

// text draws txt on the given baseline without moving the cursor.
func (l *layout) text(txt string, baseline float64, align byte) {
	enc := l.tr(txt)
	x := Margin
	switch align {
	case 'C':
		x = (PageWidth - l.s.GetStringWidth(enc)) / 2
	case 'R':
		x = PageWidth - Margin - l.s.GetStringWidth(enc)
	}
	l.s.Text(x, baseline, enc)
}

// wrap splits txt into lines no wider than width in the current font.
func (l *layout) wrap(txt string, width float64) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(txt) {
		cand := word
		if cur != "" {
			cand = cur + " " + word
		}
		if l.width(cand) <= width {
			cur = cand
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		// A single word wider than the line is cut by runes.
		cur = ""
		for _, r := range word {
			if cur != "" && l.width(cur+string(r)) > width {
				lines = append(lines, cur)
				cur = ""
			}
			cur += string(r)
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func (l *layout) width(s string) float64 {
	return l.s.GetStringWidth(l.tr(s))
}

func (l *layout) cover(ms manuscript.Manuscript, opts Options) {
	s := l.s
	s.AddPage()
	s.SetFillColor(250, 248, 245)
	s.Rect(0, 0, PageWidth, PageHeight, "F")

	s.SetDrawColor(60, 60, 60)
	s.SetLineWidth(1)
	s.Rect(15, 15, PageWidth-30, PageHeight-30, "D")
	s.SetLineWidth(0.5)
	s.Rect(18, 18, PageWidth-36, PageHeight-36, "D")

	y := PageHeight / 3
	s.SetTextColor(20, 20, 20)
	s.SetFont(serif, "B", 40)
	for _, ln := range l.wrap(strings.ToUpper(ms.Title), PageWidth-60) {
		l.text(ln, y, 'C')
		y += 16
	}
	if ms.Subtitle != "" {
		y += 4
		s.SetFont(serif, "I", 20)
		s.SetTextColor(80, 80, 80)
		for _, ln := range l.wrap(ms.Subtitle, PageWidth-60) {
			l.text(ln, y, 'C')
			y += 9
		}
	}

	s.SetDrawColor(180, 83, 9)
	s.SetLineWidth(1.5)
	s.Line(PageWidth/2-20, PageHeight/2+20, PageWidth/2+20, PageHeight/2+20)

	s.SetFont(serif, "", 12)
	s.SetTextColor(100, 100, 100)
	l.text("Écrit avec PLUME", PageHeight-50, 'C')
	if opts.Author != "" {
		l.text("par "+opts.Author, PageHeight-40, 'C')
	}
	l.text(frenchMonthYear(opts.Date), PageHeight-30, 'C')
}

func (l *layout) contents(chapters []model.AssembledChapter) {
	l.newPage()
	l.y = 40
	l.s.SetFont(serif, "B", 24)
	l.s.SetTextColor(0, 0, 0)
	l.line("Table des Matières", 12, 'C')
	l.y += 15

	l.s.SetFont(serif, "", 14)
	for i, ch := range chapters {
		for _, ln := range l.wrap(fmt.Sprintf("%d. %s", i+1, ch.Title), ContentWidth) {
			l.line(ln, 10, 'L')
		}
		l.y += 3
	}
}

func (l *layout) chapter(ctx context.Context, n int, ch model.AssembledChapter) {
	s := l.s
	l.newPage()
	l.y = PageHeight / 4

	s.SetFont(serif, "B", 16)
	s.SetTextColor(150, 150, 150)
	l.line(fmt.Sprintf("CHAPITRE %d", n), 10, 'C')
	l.y += 6

	s.SetFont(serif, "B", 28)
	s.SetTextColor(0, 0, 0)
	for _, ln := range l.wrap(ch.Title, ContentWidth) {
		l.line(ln, 12, 'C')
	}
	l.y += 8

	if ch.Description != "" {
		s.SetFont(serif, "I", 14)
		s.SetTextColor(100, 100, 100)
		for _, ln := range l.wrap(ch.Description, ContentWidth-40) {
			l.line(ln, 8, 'C')
		}
	}
	l.y += 16
	if l.y > PageHeight-100 {
		l.newPage()
	}

	sections := ch.Sections
	if len(sections) == 0 {
		sections = []model.Section{{Body: ch.Body, Photos: ch.Photos}}
	}
	for i, sec := range sections {
		if i > 0 {
			l.separator()
		}
		l.section(ctx, sec)
	}
}

func (l *layout) section(ctx context.Context, sec model.Section) {
	s := l.s
	if sec.Title != "" {
		s.SetFont(serif, "B", 18)
		s.SetTextColor(30, 30, 30)
		lines := l.wrap(sec.Title, ContentWidth)
		// Keep the title with the first body line.
		l.ensure(float64(len(lines))*9 + LineHeight)
		for _, ln := range lines {
			l.line(ln, 9, 'L')
		}
		l.y += 4
	}

	for _, ref := range sec.Photos {
		l.photo(ctx, ref)
	}

	s.SetFont(serif, "", 12)
	s.SetTextColor(0, 0, 0)
	for _, para := range chunker.Paragraphs(sec.Body) {
		for _, ln := range l.wrap(para, ContentWidth) {
			l.line(ln, LineHeight, 'L')
		}
		l.y += 3
	}
}

func (l *layout) separator() {
	l.y += 4
	l.s.SetFont(serif, "", 14)
	l.s.SetTextColor(200, 200, 200)
	l.line("•", 12, 'C')
	l.y += 4
}

func (l *layout) photo(ctx context.Context, ref string) {
	if l.images == nil {
		return
	}
	skip := func(err error) {
		l.res.SkippedImages++
		l.log.Warn("photo skipped", "photo", ref, "error", plumeerr.New(plumeerr.ImageEmbedFailed, err))
	}

	raw, err := l.images.Fetch(ctx, ref)
	if err != nil {
		skip(err)
		return
	}
	p, err := preparePhoto(raw, l.maxEdge)
	if err != nil {
		skip(err)
		return
	}

	l.seq++
	name := fmt.Sprintf("photo-%d", l.seq)
	imgOpts := fpdf.ImageOptions{ImageType: "JPEG"}
	l.s.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(p.data))
	if !l.s.Ok() {
		err := l.s.Error()
		l.s.ClearError()
		skip(err)
		return
	}

	w := ContentWidth
	h := w * float64(p.height) / float64(p.width)
	if h > PageHeight/2 {
		h = PageHeight / 2
		w = h * float64(p.width) / float64(p.height)
	}
	l.ensure(h + 5)
	l.s.ImageOptions(name, Margin+(ContentWidth-w)/2, l.y, w, h, false, imgOpts, 0, "")
	if !l.s.Ok() {
		err := l.s.Error()
		l.s.ClearError()
		skip(err)
		return
	}
	l.y += h + 5
	l.res.Images++
}

// Epilogue closes every book.
const Epilogue = "Chaque page de ce livre est un fragment d'éternité. Merci d'avoir partagé votre histoire avec PLUME."

func (l *layout) closing(opts Options) {
	s := l.s
	l.newPage()
	s.SetFillColor(180, 83, 9)
	s.Rect(0, 0, PageWidth, 60, "F")

	s.SetFont(serif, "B", 28)
	s.SetTextColor(255, 255, 255)
	l.text("Fin", 35, 'C')

	s.SetFont(serif, "I", 12)
	s.SetTextColor(68, 64, 60)
	y := 90.0
	for _, ln := range l.wrap(Epilogue, ContentWidth-20) {
		l.text(ln, y, 'C')
		y += LineHeight
	}

	if opts.Author != "" {
		s.SetFont(serif, "", 10)
		s.SetTextColor(150, 150, 150)
		l.text("— "+opts.Author, y+23, 'C')
	}

	s.SetFont(serif, "", 8)
	s.SetTextColor(180, 83, 9)
	l.text("Créé avec PLUME", PageHeight-25, 'C')
}

// decorate adds the running header and the page footer to every page
// but the cover.
func (l *layout) decorate(title string) {
	s := l.s
	total := s.PageCount()
	header := strings.ToUpper(title)

	// fpdf does not re-emit the current font after SetPage, so header and
	// footer use different fonts and every SetFont below is a change.
	s.SetFont(serif, "", 10)
	for n := 2; n <= total; n++ {
		s.SetPage(n)
		s.SetFont(serif, "I", 9)
		s.SetTextColor(180, 180, 180)
		l.text(header, 12, 'C')

		s.SetFont(serif, "", 10)
		s.SetTextColor(150, 150, 150)
		l.text(fmt.Sprintf("Page %d sur %d", n, total), PageHeight-15, 'C')
	}
	if total > 0 {
		s.SetPage(total)
	}
}

var frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre"}

func frenchMonthYear(t time.Time) string {
	return fmt.Sprintf("%s %d", frenchMonths[t.Month()-1], t.Year())
}
