package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doctext/internal/common"
)

var (
	cfg *common.Config

	flagLang        string
	flagWhitelist   string
	flagResizeWidth int
	flagThreshold   int
	flagWorkers     int
	flagStrictPDF   bool
)

var rootCmd = &cobra.Command{
	Use:   "doctext",
	Short: "Extract plain text from images and PDFs",
	Long: `doctext classifies a document, reads the embedded text layer of text PDFs and runs
OCR on images and scanned PDFs, page by page.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = common.LoadConfig()
		applyFlags(cmd, cfg)
		return cfg.Validate()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagLang, "lang", "l", "", "OCR language, e.g. eng or eng+deu (default from OCR_LANG)")
	pf.StringVar(&flagWhitelist, "whitelist", "", "restrict OCR to these characters")
	pf.IntVar(&flagResizeWidth, "resize-width", 0, "width pages are scaled to before OCR")
	pf.IntVar(&flagThreshold, "threshold", 0, "binarisation threshold (0-255)")
	pf.IntVarP(&flagWorkers, "workers", "w", 0, "pages processed in parallel")
	pf.BoolVar(&flagStrictPDF, "strict-pdf", false, "fail on PDFs whose text layer cannot be read instead of falling back to OCR")
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, c *common.Config) {
	f := cmd.Flags()
	if f.Changed("lang") {
		c.OCR.Language = flagLang
	}
	if f.Changed("whitelist") {
		c.OCR.Whitelist = flagWhitelist
	}
	if f.Changed("resize-width") {
		c.Preprocess.ResizeWidth = flagResizeWidth
	}
	if f.Changed("threshold") {
		c.Preprocess.Threshold = flagThreshold
	}
	if f.Changed("workers") {
		c.Pipeline.Workers = flagWorkers
	}
	if f.Changed("strict-pdf") {
		c.Pipeline.FailOnUnreadablePDF = flagStrictPDF
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
