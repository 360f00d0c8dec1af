package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/marketing"
)

// GenerateContentEndpoint handles POST /api/generate_content.
type GenerateContentEndpoint struct{}

var _ api.Endpoint = (*GenerateContentEndpoint)(nil)

func (e *GenerateContentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate_content", e.handler
}

func (e *GenerateContentEndpoint) RequiresInit() bool { return true }

func (e *GenerateContentEndpoint) Group() (string, string) {
	return "content", "Marketing copy"
}

// handler godoc
//
//	@Summary		Generate marketing copy
//	@Description	Write copy for a product in the selected tone and format, held to the format's word window
//	@Tags			marketing
//	@Accept			json
//	@Produce		json
//	@Param			request	body		marketing.ContentRequest	true	"Content request"
//	@Success		200		{object}	marketing.GeneratedContent
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/generate_content [post]
func (e *GenerateContentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req marketing.ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc := marketingService(w, r)
	if svc == nil {
		return
	}

	ctx, cancel := generationContext(r)
	defer cancel()

	result, err := svc.GenerateContent(ctx, req)
	if err != nil {
		writeGenerationError(w, r, "generate_content", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *GenerateContentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req marketing.ContentRequest
	var tone, format string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate marketing copy for a product",
		Long: fmt.Sprintf(`Generate marketing copy for a product.

Tones:   %s
Formats: %s`, joinTones(), joinFormats()),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Tone = marketing.Tone(tone)
			req.Format = marketing.Format(format)
			client := api.NewClient(getServerURL())
			var resp marketing.GeneratedContent
			if err := client.Post(cmd.Context(), "/api/generate_content", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.ProductName, "product", "", "Product name (required)")
	cmd.Flags().StringVar(&req.TargetPersona, "persona", "", "Target persona")
	cmd.Flags().StringSliceVar(&req.SelectedUSPs, "usp", nil, "Selling point to feature (repeatable)")
	cmd.Flags().StringVar(&req.Infor, "infor", "", "Extra product information")
	cmd.Flags().StringVar(&tone, "tone", string(marketing.ToneProfessional), "Tone of voice")
	cmd.Flags().StringVar(&format, "format", string(marketing.FormatFacebookPost), "Content format: "+joinFormats())
	cmd.MarkFlagRequired("product")
	return cmd
}

func joinTones() string {
	names := make([]string, 0, len(marketing.Tones()))
	for _, t := range marketing.Tones() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func joinFormats() string {
	names := make([]string, 0, len(marketing.Formats()))
	for _, f := range marketing.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
