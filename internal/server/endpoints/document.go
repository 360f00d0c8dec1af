package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/svcctx"
)

// defaultMaxUploadMB applies when no config is attached to the request.
const defaultMaxUploadMB = 20

// upload is a document read from a multipart request.
type upload struct {
	filename    string
	data        []byte
	productName string
}

// readUpload reads the "file" part and the optional product_name field.
// It writes the error response itself and returns false on failure.
func readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	maxMB := defaultMaxUploadMB
	if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil && cfg.Server.MaxUploadMB > 0 {
		maxMB = cfg.Server.MaxUploadMB
	}
	limit := int64(maxMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", maxMB))
			return upload{}, false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return upload{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return upload{}, false
	}

	return upload{
		filename:    header.Filename,
		data:        data,
		productName: r.FormValue("product_name"),
	}, true
}

// AnalyzeDocumentEndpoint handles POST /api/analyze_document.
type AnalyzeDocumentEndpoint struct{}

var _ api.Endpoint = (*AnalyzeDocumentEndpoint)(nil)

func (e *AnalyzeDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze_document", e.handler
}

func (e *AnalyzeDocumentEndpoint) RequiresInit() bool { return true }

func (e *AnalyzeDocumentEndpoint) Group() (string, string) {
	return "document", "Work from uploaded documents"
}

// handler godoc
//
//	@Summary		Analyze a product document
//	@Description	Extract product USPs, pain points and persona from an uploaded TXT, PDF or DOCX file
//	@Tags			marketing
//	@Accept			mpfd
//	@Produce		json
//	@Param			file			formData	file	true	"Document (.txt, .pdf, .docx)"
//	@Param			product_name	formData	string	false	"Product name (guessed from the document if empty)"
//	@Success		200				{object}	marketing.ProductAnalysis
//	@Failure		400				{object}	ErrorResponse
//	@Failure		413				{object}	ErrorResponse
//	@Failure		502				{object}	ErrorResponse
//	@Failure		503				{object}	ErrorResponse
//	@Router			/api/analyze_document [post]
func (e *AnalyzeDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := marketingService(w, r)
	if svc == nil {
		return
	}
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	ctx, cancel := generationContext(r)
	defer cancel()

	result, err := svc.AnalyzeDocument(ctx, up.productName, up.filename, up.data)
	if err != nil {
		writeGenerationError(w, r, "analyze_document", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *AnalyzeDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var productName string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a product document (.txt, .pdf, .docx)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp marketing.ProductAnalysis
			if err := postDocument(cmd, getServerURL(), "/api/analyze_document", args[0], productName, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&productName, "product", "", "Product name (guessed from the document if empty)")
	return cmd
}

// GenerateFromDocumentEndpoint handles POST /api/generate_from_document.
type GenerateFromDocumentEndpoint struct{}

var _ api.Endpoint = (*GenerateFromDocumentEndpoint)(nil)

func (e *GenerateFromDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate_from_document", e.handler
}

func (e *GenerateFromDocumentEndpoint) RequiresInit() bool { return true }

func (e *GenerateFromDocumentEndpoint) Group() (string, string) {
	return "document", "Work from uploaded documents"
}

// handler godoc
//
//	@Summary		Generate copy from a document
//	@Description	Write marketing copy grounded only in an uploaded TXT, PDF or DOCX file
//	@Tags			marketing
//	@Accept			mpfd
//	@Produce		json
//	@Param			file			formData	file	true	"Document (.txt, .pdf, .docx)"
//	@Param			product_name	formData	string	true	"Product name"
//	@Success		200				{object}	marketing.GeneratedContent
//	@Failure		400				{object}	ErrorResponse
//	@Failure		413				{object}	ErrorResponse
//	@Failure		502				{object}	ErrorResponse
//	@Failure		503				{object}	ErrorResponse
//	@Router			/api/generate_from_document [post]
func (e *GenerateFromDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := marketingService(w, r)
	if svc == nil {
		return
	}
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	ctx, cancel := generationContext(r)
	defer cancel()

	result, err := svc.GenerateFromDocument(ctx, up.productName, up.filename, up.data)
	if err != nil {
		writeGenerationError(w, r, "generate_from_document", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *GenerateFromDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var productName string
	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate marketing copy from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp marketing.GeneratedContent
			if err := postDocument(cmd, getServerURL(), "/api/generate_from_document", args[0], productName, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&productName, "product", "", "Product name (required)")
	cmd.MarkFlagRequired("product")
	return cmd
}

func postDocument(cmd *cobra.Command, serverURL, path, filename, productName string, result any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	fields := map[string]string{}
	if productName != "" {
		fields["product_name"] = productName
	}
	client := api.NewClient(serverURL)
	return client.PostMultipart(cmd.Context(), path, fields,
		api.Upload{Field: "file", Filename: filename, Data: data}, result)
}
