package endpoints

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/marketing"
)

// AnalyzeCompetitorRequest is the body of POST /api/analyze_competitor.
type AnalyzeCompetitorRequest struct {
	CompetitorName string `json:"competitor_name"`
}

// AnalyzeCompetitorEndpoint handles POST /api/analyze_competitor.
type AnalyzeCompetitorEndpoint struct{}

var _ api.Endpoint = (*AnalyzeCompetitorEndpoint)(nil)

func (e *AnalyzeCompetitorEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze_competitor", e.handler
}

func (e *AnalyzeCompetitorEndpoint) RequiresInit() bool { return true }

func (e *AnalyzeCompetitorEndpoint) Group() (string, string) {
	return "competitor", "Competitor research"
}

// handler godoc
//
//	@Summary		Analyze a competitor
//	@Description	Break down a competitor's product, customers, marketing and distribution
//	@Tags			marketing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AnalyzeCompetitorRequest	true	"Competitor to analyze"
//	@Success		200		{object}	marketing.CompetitorAnalysis
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/analyze_competitor [post]
func (e *AnalyzeCompetitorEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeCompetitorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc := marketingService(w, r)
	if svc == nil {
		return
	}

	ctx, cancel := generationContext(r)
	defer cancel()

	result, err := svc.AnalyzeCompetitor(ctx, req.CompetitorName)
	if err != nil {
		writeGenerationError(w, r, "analyze_competitor", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *AnalyzeCompetitorEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <competitor name>",
		Short: "Analyze a competitor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp marketing.CompetitorAnalysis
			req := AnalyzeCompetitorRequest{CompetitorName: strings.Join(args, " ")}
			if err := client.Post(cmd.Context(), "/api/analyze_competitor", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
