package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
	"github.com/KaramelBytes/officeloom/internal/utils"
)

// Deck layout limits.
const (
	MaxTitleRunes      = 90
	MaxBulletRunes     = 300
	MaxDeckPoints      = 8
	MaxSectionSlides   = 8
	ParagraphsPerSlide = 4
	MaxDeckParagraphs  = 24
)

const (
	coverSubtitle  = "Auto-generated from uploaded document"
	noKeywords     = "No keywords extracted"
	noPoints       = "No key points extracted"
	snapshotTitle  = "Executive Snapshot"
	keyPointsTitle = "AI Key Points"
)

// DeckInput is the content RenderDeck lays out.
type DeckInput struct {
	Source     string
	Keywords   []string
	Points     []string
	Paragraphs []string
	// Created stamps the package properties; zero omits it.
	Created time.Time
}

// DeckSummary is the record produced once per document run.
type DeckSummary struct {
	RunID              string   `json:"run_id,omitempty"`
	SourceName         string   `json:"source_name"`
	SlidesGenerated    int      `json:"slides_generated"`
	ParagraphsAnalyzed int      `json:"paragraphs_analyzed"`
	TopKeywords        []string `json:"top_keywords"`
	SemanticPoints     []string `json:"semantic_points"`
	KeypointStrategy   string   `json:"keypoint_strategy"`
	GeneratedAt        string   `json:"generated_at"`
}

// Markdown renders the deck summary for terminals.
func (s DeckSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DECK SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Source: %s\n", s.SourceName))
	b.WriteString(fmt.Sprintf("Slides: %d (from %d paragraphs)\n", s.SlidesGenerated, s.ParagraphsAnalyzed))
	if len(s.TopKeywords) > 0 {
		b.WriteString(fmt.Sprintf("Keywords: %s\n", strings.Join(s.TopKeywords, ", ")))
	}
	if len(s.SemanticPoints) > 0 {
		b.WriteString(fmt.Sprintf("\n[KEY POINTS: %s]\n", s.KeypointStrategy))
		for _, p := range s.SemanticPoints {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	return b.String()
}

type slide struct {
	title   string
	bullets []string
	cover   bool
}

// deckSlides orders the slides: cover, keywords, key points, then up to
// MaxSectionSlides sections of consecutive paragraphs.
func deckSlides(in DeckInput) []slide {
	slides := []slide{{title: "Report Deck: " + in.Source, bullets: []string{coverSubtitle}, cover: true}}

	kw := in.Keywords
	if len(kw) == 0 {
		kw = []string{noKeywords}
	}
	slides = append(slides, slide{title: snapshotTitle, bullets: kw})

	pts := in.Points
	if len(pts) > MaxDeckPoints {
		pts = pts[:MaxDeckPoints]
	}
	if len(pts) == 0 {
		pts = []string{noPoints}
	}
	slides = append(slides, slide{title: keyPointsTitle, bullets: pts})

	paras := in.Paragraphs
	if len(paras) > MaxDeckParagraphs {
		paras = paras[:MaxDeckParagraphs]
	}
	for i := 0; i < len(paras) && i/ParagraphsPerSlide < MaxSectionSlides; i += ParagraphsPerSlide {
		end := min(i+ParagraphsPerSlide, len(paras))
		slides = append(slides, slide{
			title:   fmt.Sprintf("Section %d", i/ParagraphsPerSlide+1),
			bullets: paras[i:end],
		})
	}
	for i := range slides {
		slides[i].title = utils.TruncateRunes(slides[i].title, MaxTitleRunes)
		bullets := make([]string, len(slides[i].bullets))
		for j, b := range slides[i].bullets {
			bullets[j] = utils.TruncateRunes(b, MaxBulletRunes)
		}
		slides[i].bullets = bullets
	}
	return slides
}

// RenderDeck writes a PresentationML deck. Parts holds the slide titles,
// cover first.
func RenderDeck(in DeckInput) (*Artifact, error) {
	slides := deckSlides(in)
	var buf bytes.Buffer
	pw := &pkgWriter{zw: zip.NewWriter(&buf)}

	pw.add("[Content_Types].xml", contentTypesXML(len(slides)))
	pw.add("_rels/.rels", rootRelsXML)
	pw.add("docProps/core.xml", corePropsXML(slides[0].title, in.Created))
	pw.add("docProps/app.xml", appPropsXML(len(slides)))
	pw.add("ppt/presentation.xml", presentationXML(len(slides)))
	pw.add("ppt/_rels/presentation.xml.rels", presentationRelsXML(len(slides)))
	pw.add("ppt/slideMasters/slideMaster1.xml", slideMasterXML)
	pw.add("ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML)
	pw.add("ppt/slideLayouts/slideLayout1.xml", slideLayoutXML("title", "Title Slide"))
	pw.add("ppt/slideLayouts/slideLayout2.xml", slideLayoutXML("obj", "Title and Content"))
	pw.add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", layoutRelsXML)
	pw.add("ppt/slideLayouts/_rels/slideLayout2.xml.rels", layoutRelsXML)
	pw.add("ppt/theme/theme1.xml", themeXML)

	parts := make([]string, len(slides))
	for i, s := range slides {
		parts[i] = s.title
		layout := 2
		if s.cover {
			layout = 1
		}
		pw.add(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), slideXML(s))
		pw.add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), slideRelsXML(layout))
	}
	if pw.err == nil {
		pw.err = pw.zw.Close()
	}
	if pw.err != nil {
		return nil, apperrors.Render("deck", pw.err)
	}
	return &Artifact{Data: buf.Bytes(), Format: FormatPPTX, Label: "deck", Parts: parts}, nil
}

// pkgWriter adds deflated parts and keeps the first error.
type pkgWriter struct {
	zw  *zip.Writer
	err error
}

func (p *pkgWriter) add(name, content string) {
	if p.err != nil {
		return
	}
	w, err := p.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		p.err = fmt.Errorf("create %s: %w", name, err)
		return
	}
	if _, err := w.Write([]byte(content)); err != nil {
		p.err = fmt.Errorf("write %s: %w", name, err)
	}
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
