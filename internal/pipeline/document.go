package pipeline

import (
	"context"
	"path/filepath"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
	"github.com/KaramelBytes/officeloom/internal/keypoints"
	"github.com/KaramelBytes/officeloom/internal/parser"
	"github.com/KaramelBytes/officeloom/internal/report"
)

// BuildDeck extracts a document's text, picks keywords and key points and
// renders the slide deck. A document without readable paragraphs is an
// extraction error.
func (p *Pipeline) BuildDeck(ctx context.Context, data []byte, filename string) (report.DeckSummary, *report.Artifact, error) {
	r := p.begin(ctx, KindDocument, filename)
	source := filepath.Base(filename)
	s := report.DeckSummary{RunID: r.id, SourceName: source}
	var (
		text  string
		paras []string
		kp    keypoints.Result
		art   *report.Artifact
	)

	err := r.stage("extract_text", func(context.Context) error {
		var err error
		text, err = parser.Extract(data, filename)
		if err != nil {
			return err
		}
		paras = report.Paragraphs(text)
		if len(paras) == 0 {
			return &apperrors.ExtractionError{Source: source, Reason: "no readable paragraphs"}
		}
		return nil
	})
	if err == nil {
		err = r.stage("keypoints", func(ctx context.Context) error {
			s.TopKeywords = report.Keywords(text, report.MaxKeywords)
			kp = p.keypoints.Extract(ctx, text, p.cfg.KeypointsMax)
			if p.embedder != nil && kp.Strategy == keypoints.StrategyFrequency {
				p.log.WarnContext(ctx, "embedding ranking degraded to word frequency", "embedder", p.embedder.Name())
			}
			p.metrics.KeypointStrategy(kp.Strategy)
			return nil
		})
	}
	if err == nil {
		err = r.stage("render_deck", func(context.Context) error {
			var err error
			art, err = report.RenderDeck(report.DeckInput{
				Source:     source,
				Keywords:   s.TopKeywords,
				Points:     kp.Points,
				Paragraphs: paras,
				Created:    p.now(),
			})
			return err
		})
	}
	r.finish(err)
	if err != nil {
		return report.DeckSummary{}, nil, err
	}
	s.SlidesGenerated = len(art.Parts)
	s.ParagraphsAnalyzed = len(paras)
	s.SemanticPoints = kp.Points
	if s.SemanticPoints == nil {
		s.SemanticPoints = []string{}
	}
	if s.TopKeywords == nil {
		s.TopKeywords = []string{}
	}
	s.KeypointStrategy = kp.Strategy
	s.GeneratedAt = p.stamp()
	return s, art, nil
}
