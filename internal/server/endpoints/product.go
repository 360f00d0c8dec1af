package endpoints

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/marketing"
)

// AnalyzeProductRequest is the body of POST /api/analyze_product.
type AnalyzeProductRequest struct {
	ProductName string `json:"product_name"`
}

// AnalyzeProductEndpoint handles POST /api/analyze_product.
type AnalyzeProductEndpoint struct{}

var _ api.Endpoint = (*AnalyzeProductEndpoint)(nil)

func (e *AnalyzeProductEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze_product", e.handler
}

func (e *AnalyzeProductEndpoint) RequiresInit() bool { return true }

func (e *AnalyzeProductEndpoint) Group() (string, string) {
	return "product", "Product research"
}

// handler godoc
//
//	@Summary		Analyze a product
//	@Description	Research a product's USPs, pain points, target persona and notes
//	@Tags			marketing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AnalyzeProductRequest	true	"Product to analyze"
//	@Success		200		{object}	marketing.ProductAnalysis
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/analyze_product [post]
func (e *AnalyzeProductEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc := marketingService(w, r)
	if svc == nil {
		return
	}

	ctx, cancel := generationContext(r)
	defer cancel()

	result, err := svc.AnalyzeProduct(ctx, req.ProductName)
	if err != nil {
		writeGenerationError(w, r, "analyze_product", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *AnalyzeProductEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <product name>",
		Short: "Analyze a product",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp marketing.ProductAnalysis
			req := AnalyzeProductRequest{ProductName: strings.Join(args, " ")}
			if err := client.Post(cmd.Context(), "/api/analyze_product", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
