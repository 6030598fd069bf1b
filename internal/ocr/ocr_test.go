package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	args []string
	out  string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	if f.err != nil {
		return nil, []byte("Error opening data file"), f.err
	}
	return []byte(f.out), nil, nil
}

func TestTesseractArgs(t *testing.T) {
	r := &fakeRunner{out: "Hello\n-----\nWorld\n"}
	e := NewTesseractCLI(r, EngineConfig{TessdataDir: "/td", PSM: 6})

	text, err := e.Recognize(context.Background(), "/w/page-0-normalized.png", Options{Language: "deu", Whitelist: "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, "Hello\n\nWorld\n", text)
	assert.Equal(t, []string{
		"tesseract", "/w/page-0-normalized.png", "stdout", "-l", "deu",
		"--tessdata-dir", "/td", "--psm", "6",
		"-c", "tessedit_char_whitelist=ABC123",
	}, r.args)
}

func TestTesseractDefaultsToEnglish(t *testing.T) {
	r := &fakeRunner{out: "x"}
	_, err := NewTesseractCLI(r, EngineConfig{}).Recognize(context.Background(), "a.png", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"tesseract", "a.png", "stdout", "-l", "eng"}, r.args)
}

func TestTesseractFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	_, err := NewTesseractCLI(r, EngineConfig{}).Recognize(context.Background(), "a.png", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(EngineConfig{Engine: "tesseract"}, &fakeRunner{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tesseract", e.Name())

	_, err = NewEngine(EngineConfig{Engine: "cloud"}, &fakeRunner{}, nil)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := "Invoice\t\tNo  42   \r\n\r\n\r\n\r\nTotal:   10.00  \n"
	assert.Equal(t, "Invoice No 42\n\nTotal: 10.00", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
