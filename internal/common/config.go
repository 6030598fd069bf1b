package common

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig
	Server     ServerConfig
	OCR        OCRConfig
	PDF        PDFConfig
	Preprocess PreprocessConfig
	Pipeline   PipelineConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string // empty disables the gRPC health endpoint
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string // tesseract | gosseract
	Tesseract   string // binary name or absolute path
	Language    string
	Whitelist   string
	TessdataDir string
	PSM         int
	OEM         int
}

// PDFConfig holds text-layer and rasterisation configuration
type PDFConfig struct {
	TextReader string // pdftotext | native
	Rasterizer string // pdftoppm | fitz
	Pdftotext  string
	Pdftoppm   string
	DPI        int
	MaxPages   int // 0 = no limit
}

// PreprocessConfig holds the image normalisation recipe
type PreprocessConfig struct {
	ResizeWidth int
	Threshold   int
}

// PipelineConfig holds job scheduling configuration
type PipelineConfig struct {
	WorkRoot            string
	Workers             int
	CommandTimeout      time.Duration
	PageTimeout         time.Duration
	JobTimeout          time.Duration
	FailOnUnreadablePDF bool
	QueueWorkers        int
	QueueSize           int
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":3000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ""),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Minute),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "tesseract"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Language:    getEnv("OCR_LANG", "eng"),
			Whitelist:   getEnv("OCR_WHITELIST", ""),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
		},
		PDF: PDFConfig{
			TextReader: getEnv("PDF_TEXT_READER", "pdftotext"),
			Rasterizer: getEnv("PDF_RASTERIZER", "pdftoppm"),
			Pdftotext:  getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:   getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:        getEnvAsInt("PDF_DPI", 300),
			MaxPages:   getEnvAsInt("PDF_MAX_PAGES", 0),
		},
		Preprocess: PreprocessConfig{
			ResizeWidth: getEnvAsInt("PREPROCESS_RESIZE_WIDTH", 1200),
			Threshold:   getEnvAsInt("PREPROCESS_THRESHOLD", 200),
		},
		Pipeline: PipelineConfig{
			WorkRoot:            getEnv("WORK_ROOT", os.TempDir()),
			Workers:             getEnvAsInt("PAGE_WORKERS", runtime.NumCPU()),
			CommandTimeout:      getEnvAsDuration("COMMAND_TIMEOUT", 2*time.Minute),
			PageTimeout:         getEnvAsDuration("PAGE_TIMEOUT", 2*time.Minute),
			JobTimeout:          getEnvAsDuration("JOB_TIMEOUT", 10*time.Minute),
			FailOnUnreadablePDF: getEnvAsBool("FAIL_ON_UNREADABLE_PDF", false),
			QueueWorkers:        getEnvAsInt("QUEUE_WORKERS", 2),
			QueueSize:           getEnvAsInt("QUEUE_SIZE", 64),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.Language == "" {
		return NewAppError(CodeConfig, "OCR_LANG is required", nil)
	}
	if c.Preprocess.ResizeWidth <= 0 {
		return NewAppError(CodeConfig, "PREPROCESS_RESIZE_WIDTH must be positive", nil)
	}
	if c.Preprocess.Threshold < 0 || c.Preprocess.Threshold > 255 {
		return NewAppError(CodeConfig, "PREPROCESS_THRESHOLD must be within 0..255", nil)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError(CodeConfig, "PAGE_WORKERS must be positive", nil)
	}
	switch strings.ToLower(c.PDF.TextReader) {
	case "pdftotext", "native":
	default:
		return NewAppError(CodeConfig, "PDF_TEXT_READER must be pdftotext or native", nil)
	}
	switch strings.ToLower(c.PDF.Rasterizer) {
	case "pdftoppm", "fitz":
	default:
		return NewAppError(CodeConfig, "PDF_RASTERIZER must be pdftoppm or fitz", nil)
	}
	switch strings.ToLower(c.OCR.Engine) {
	case "tesseract", "gosseract":
	default:
		return NewAppError(CodeConfig, "OCR_ENGINE must be tesseract or gosseract", nil)
	}
	return nil
}
