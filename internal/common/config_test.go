package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OCR_LANG", "")
	t.Setenv("PREPROCESS_THRESHOLD", "")

	cfg := LoadConfig()
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 1200, cfg.Preprocess.ResizeWidth)
	assert.Equal(t, 200, cfg.Preprocess.Threshold)
	assert.Equal(t, "pdftotext", cfg.PDF.TextReader)
	assert.Equal(t, "pdftoppm", cfg.PDF.Rasterizer)
	assert.False(t, cfg.Pipeline.FailOnUnreadablePDF)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OCR_LANG", "deu")
	t.Setenv("OCR_WHITELIST", "0123456789")
	t.Setenv("PAGE_WORKERS", "3")
	t.Setenv("PAGE_TIMEOUT", "15s")
	t.Setenv("FAIL_ON_UNREADABLE_PDF", "true")
	t.Setenv("PDF_TEXT_READER", "native")

	cfg := LoadConfig()
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, "0123456789", cfg.OCR.Whitelist)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.PageTimeout)
	assert.True(t, cfg.Pipeline.FailOnUnreadablePDF)
	assert.Equal(t, "native", cfg.PDF.TextReader)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad threshold", func(c *Config) { c.Preprocess.Threshold = 300 }},
		{"bad width", func(c *Config) { c.Preprocess.ResizeWidth = 0 }},
		{"no workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"bad reader", func(c *Config) { c.PDF.TextReader = "acrobat" }},
		{"bad rasterizer", func(c *Config) { c.PDF.Rasterizer = "ghostscript" }},
		{"bad engine", func(c *Config) { c.OCR.Engine = "cloud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, CodeConfig, CodeOf(err))
		})
	}
}
