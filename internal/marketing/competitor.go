package marketing

import (
	"context"
	"fmt"
	"strings"

	"github.com/copyforge/copyforge/internal/normalize"
	"github.com/copyforge/copyforge/internal/pipeline"
)

// CompetitorAnalysis is a market strategy breakdown of one competitor.
type CompetitorAnalysis struct {
	ProductName        string             `json:"product_name"`
	ProductAnalysis    CompetitorProduct  `json:"product_analysis"`
	CustomerFocus      CustomerFocus      `json:"customer_focus"`
	MarketingStrategy  MarketingStrategy  `json:"marketing_strategy"`
	DistributionMarket DistributionMarket `json:"distribution_market"`
}

// CompetitorProduct covers what the competitor sells and how it is priced.
type CompetitorProduct struct {
	USPs            []string `json:"usps"`
	KeySpecs        string   `json:"key_specs"`
	QualityFeedback string   `json:"quality_feedback"`
	PricingStrategy string   `json:"pricing_strategy"`
}

// CustomerFocus describes who the competitor targets and who it misses.
type CustomerFocus struct {
	TargetPersona   string   `json:"target_persona"`
	MissedSegments  string   `json:"missed_segments"`
	PainPoints      []string `json:"pain_points"`
	CustomerJourney string   `json:"customer_journey"`
}

// MarketingStrategy summarizes the competitor's channels and messaging.
type MarketingStrategy struct {
	KeyChannels     string `json:"key_channels"`
	CoreMessaging   string `json:"core_messaging"`
	ContentCreative string `json:"content_creative"`
}

// DistributionMarket covers where the competitor sells and its estimated share.
type DistributionMarket struct {
	DistributionChannels string `json:"distribution_channels"`
	MarketShareEstimate  string `json:"market_share_estimate"`
}

var competitorSchema = normalize.Schema{
	{Name: "product_name", Shape: normalize.Text},
	{Name: "product_analysis.usps", Shape: normalize.ListOfStrings},
	{Name: "product_analysis.key_specs", Shape: normalize.Text},
	{Name: "product_analysis.quality_feedback", Shape: normalize.Text},
	{Name: "product_analysis.pricing_strategy", Shape: normalize.Text},
	{Name: "customer_focus.target_persona", Shape: normalize.Text},
	{Name: "customer_focus.missed_segments", Shape: normalize.Text},
	{Name: "customer_focus.pain_points", Shape: normalize.ListOfStrings},
	{Name: "customer_focus.customer_journey", Shape: normalize.Text},
	{Name: "marketing_strategy.key_channels", Shape: normalize.Text},
	{Name: "marketing_strategy.core_messaging", Shape: normalize.Text},
	{Name: "marketing_strategy.content_creative", Shape: normalize.Text},
	{Name: "distribution_market.distribution_channels", Shape: normalize.Text},
	{Name: "distribution_market.market_share_estimate", Shape: normalize.Text},
}

// AnalyzeCompetitor researches a competitor's product, customers, marketing
// and distribution.
func (s *Service) AnalyzeCompetitor(ctx context.Context, competitorName string) (*CompetitorAnalysis, error) {
	competitorName = strings.TrimSpace(competitorName)
	if competitorName == "" {
		return nil, fmt.Errorf("%w: competitor_name is required", ErrInvalidInput)
	}

	prompt, err := render(competitorTemplate, struct {
		CompetitorName string
		Language       string
	}{competitorName, languageName(s.language)})
	if err != nil {
		return nil, err
	}

	req := s.request(prompt, s.variants.Competitor)
	req.Schema = competitorSchema
	out, err := s.gen.GenerateStructured(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyze competitor %q: %w", competitorName, err)
	}
	rec := out.Record
	s.logger.Info("competitor analyzed", "competitor", competitorName, "variant", out.Variant.String())

	name := rec.Text("product_name")
	if name == pipeline.TextPlaceholder(s.language) {
		name = competitorName
	}
	return &CompetitorAnalysis{
		ProductName: name,
		ProductAnalysis: CompetitorProduct{
			USPs:            rec.List("product_analysis.usps"),
			KeySpecs:        rec.Text("product_analysis.key_specs"),
			QualityFeedback: rec.Text("product_analysis.quality_feedback"),
			PricingStrategy: rec.Text("product_analysis.pricing_strategy"),
		},
		CustomerFocus: CustomerFocus{
			TargetPersona:   rec.Text("customer_focus.target_persona"),
			MissedSegments:  rec.Text("customer_focus.missed_segments"),
			PainPoints:      rec.List("customer_focus.pain_points"),
			CustomerJourney: rec.Text("customer_focus.customer_journey"),
		},
		MarketingStrategy: MarketingStrategy{
			KeyChannels:     rec.Text("marketing_strategy.key_channels"),
			CoreMessaging:   rec.Text("marketing_strategy.core_messaging"),
			ContentCreative: rec.Text("marketing_strategy.content_creative"),
		},
		DistributionMarket: DistributionMarket{
			DistributionChannels: rec.Text("distribution_market.distribution_channels"),
			MarketShareEstimate:  rec.Text("distribution_market.market_share_estimate"),
		},
	}, nil
}
