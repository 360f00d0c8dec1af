package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/home"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/providers"
	"github.com/copyforge/copyforge/internal/server"
	"github.com/copyforge/copyforge/internal/svcctx"
)

var (
	generateMock bool
	generateSave bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a generation locally without a server",
	Long: `Generate runs analyses and copy generation in-process using the
configured providers. Results print in the --output format; --save also
writes them as JSON under the home directory's outputs/ folder.

Examples:
  copyforge generate product "Serum Vitamin C"
  copyforge generate content --product "Serum Vitamin C" --tone urgent --format ad_copy
  copyforge generate competitor "The Ordinary" --save
  copyforge generate document brochure.pdf --product "Serum Vitamin C"`,
}

// runLocal builds the generation stack, runs fn and prints or saves its result.
func runLocal(cmd *cobra.Command, kind, subject string, fn func(*svcctx.Services) (any, error)) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	h, err := home.New(homeDir)
	if err != nil {
		return err
	}
	cm, err := loadConfig(h, logger)
	if err != nil {
		return err
	}

	cfg := server.ServicesConfig{ConfigManager: cm, Home: h, Logger: logger}
	if generateMock {
		cfg.Registry = mockRegistry()
		cfg.DefaultProvider = providers.MockClientName
	}
	services, err := server.BuildServices(cfg)
	if err != nil {
		return err
	}
	if len(services.Registry.List()) == 0 {
		return errors.New("no model provider configured: set an API key or use --mock")
	}

	result, err := fn(services)
	if err != nil {
		return err
	}

	if generateSave {
		if err := h.EnsureExists(); err != nil {
			return err
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		path, err := h.SaveOutput(kind, subject, time.Now(), data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", path)
	}
	return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), result)
}

var generateProductCmd = &cobra.Command{
	Use:   "product <product name>",
	Short: "Analyze a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd, "product", args[0], func(s *svcctx.Services) (any, error) {
			return s.Marketing.AnalyzeProduct(cmd.Context(), args[0])
		})
	},
}

var generateCompetitorCmd = &cobra.Command{
	Use:   "competitor <competitor name>",
	Short: "Analyze a competitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd, "competitor", args[0], func(s *svcctx.Services) (any, error) {
			return s.Marketing.AnalyzeCompetitor(cmd.Context(), args[0])
		})
	},
}

var contentReq marketing.ContentRequest

var generateContentCmd = &cobra.Command{
	Use:   "content",
	Short: "Write marketing copy for a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd, "content", contentReq.ProductName, func(s *svcctx.Services) (any, error) {
			return s.Marketing.GenerateContent(cmd.Context(), contentReq)
		})
	},
}

var (
	documentProduct string
	documentAnalyze bool
)

var generateDocumentCmd = &cobra.Command{
	Use:   "document <file>",
	Short: "Write copy grounded in a TXT, PDF or DOCX file",
	Long: `Write marketing copy using only the facts in a document.
With --analyze the document is analyzed instead, and --product may be
left empty to let the model name the product.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		subject := documentProduct
		if subject == "" {
			subject = args[0]
		}
		if documentAnalyze {
			return runLocal(cmd, "document-analysis", subject, func(s *svcctx.Services) (any, error) {
				return s.Marketing.AnalyzeDocument(cmd.Context(), documentProduct, args[0], data)
			})
		}
		return runLocal(cmd, "document-content", subject, func(s *svcctx.Services) (any, error) {
			return s.Marketing.GenerateFromDocument(cmd.Context(), documentProduct, args[0], data)
		})
	},
}

func init() {
	generateCmd.PersistentFlags().BoolVar(&generateMock, "mock", false, "Use the offline mock model instead of real providers")
	generateCmd.PersistentFlags().BoolVar(&generateSave, "save", false, "Also save the result under the home outputs directory")

	f := generateContentCmd.Flags()
	f.StringVar(&contentReq.ProductName, "product", "", "Product name (required)")
	f.StringVar(&contentReq.TargetPersona, "persona", "", "Target persona")
	f.StringSliceVar(&contentReq.SelectedUSPs, "usp", nil, "Selling point to feature (repeatable)")
	f.StringVar(&contentReq.Infor, "infor", "", "Extra product information")
	f.StringVar((*string)(&contentReq.Tone), "tone", string(marketing.ToneProfessional), fmt.Sprintf("Tone: %v", marketing.Tones()))
	f.StringVar((*string)(&contentReq.Format), "format", string(marketing.FormatFacebookPost), fmt.Sprintf("Format: %v", marketing.Formats()))
	generateContentCmd.MarkFlagRequired("product")

	generateDocumentCmd.Flags().StringVar(&documentProduct, "product", "", "Product name")
	generateDocumentCmd.Flags().BoolVar(&documentAnalyze, "analyze", false, "Analyze the document instead of writing copy")

	generateCmd.AddCommand(generateProductCmd, generateContentCmd, generateCompetitorCmd, generateDocumentCmd)
	rootCmd.AddCommand(generateCmd)
}
