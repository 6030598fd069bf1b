package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
)

func TestNewAppUsesConfig(t *testing.T) {
	t.Setenv("WORK_ROOT", t.TempDir())
	t.Setenv("OCR_LANG", "deu")
	t.Setenv("PREPROCESS_RESIZE_WIDTH", "800")
	t.Setenv("PDF_TEXT_READER", "native")
	t.Setenv("PDF_RASTERIZER", "fitz")
	c := common.LoadConfig()
	require.NoError(t, c.Validate())

	a, err := newApp(c, newLogger(c.Log, &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, "deu", a.defaults.Language)
	assert.Equal(t, 800, a.defaults.Preprocess.ResizeWidth)
	assert.Equal(t, 200, a.defaults.Preprocess.Threshold)
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	c := common.LoadConfig()
	require.NoError(t, rootCmd.ParseFlags([]string{"--lang", "fra", "--strict-pdf"}))

	applyFlags(rootCmd, c)
	assert.Equal(t, "fra", c.OCR.Language)
	assert.True(t, c.Pipeline.FailOnUnreadablePDF)
}

func TestWriteResultPerPage(t *testing.T) {
	res := pipeline.Result{
		FullText: "a\n\f\nc",
		PerPage: []pipeline.PageOutcome{
			{Index: 0, Text: "a"},
			{Index: 1, Err: common.NewAppError(common.CodeRecognitionFailure, "text recognition failed", errors.New("x"))},
			{Index: 2, Text: "c"},
		},
	}

	var full bytes.Buffer
	writeResult(&full, res, false)
	assert.Equal(t, "a\n\f\nc\n", full.String())

	var pages bytes.Buffer
	writeResult(&pages, res, true)
	assert.Equal(t, "--- page 0 ---\na\n--- page 1 (failed: RECOGNITION_FAILURE: text recognition failed) ---\n--- page 2 ---\nc\n", pages.String())
}
