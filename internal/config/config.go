package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"delivery-audit/internal/data"
	"delivery-audit/internal/image"
	"delivery-audit/internal/raster"
	"delivery-audit/internal/reconcile"
)

var DefaultAnchors = []string{"driver name", "שם הנהג"}

// DefaultRecognitionPSM is Tesseract's sparse text mode.
const DefaultRecognitionPSM = 11

type Config struct {
	Input     InputConfig     `yaml:"input"`
	Raster    RasterConfig    `yaml:"raster"`
	OCR       OCRConfig       `yaml:"ocr"`
	Anchors   []string        `yaml:"anchors"`
	ROI       ROIConfig       `yaml:"roi"`
	Time      TimeConfig      `yaml:"time"`
	Reference ReferenceConfig `yaml:"reference"`
	Output    OutputConfig    `yaml:"output"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Workers   int             `yaml:"workers"`
}

type BridgeConfig struct {
	Addr string `yaml:"addr"`
}

type InputConfig struct {
	Dir         string `yaml:"dir"`
	MinIOPrefix string `yaml:"minio_prefix"`
	WorkDir     string `yaml:"work_dir"`
}

type RasterConfig struct {
	DPI      int    `yaml:"dpi"`
	Pdftoppm string `yaml:"pdftoppm"`
}

type OCRConfig struct {
	Engine            string   `yaml:"engine"`
	Languages         []string `yaml:"languages"`
	FallbackLanguages []string `yaml:"fallback_languages"`
	RecognitionPSM    int      `yaml:"recognition_psm"`
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
}

type ROIConfig struct {
	Radius    int  `yaml:"radius"`
	MinWidth  int  `yaml:"min_width"`
	MinHeight int  `yaml:"min_height"`
	Enhance   bool `yaml:"enhance"`
}

type TimeConfig struct {
	Profile          string `yaml:"profile"`
	ToleranceMinutes int    `yaml:"tolerance_minutes"`
}

type ReferenceConfig struct {
	CSV         string `yaml:"csv"`
	RedisURL    string `yaml:"redis_url"`
	RedisKey    string `yaml:"redis_key"`
	PostgresURL string `yaml:"postgres_url"`
}

type OutputConfig struct {
	CSV              string `yaml:"csv"`
	JSON             string `yaml:"json"`
	PostgresURL      string `yaml:"postgres_url"`
	DebugDir         string `yaml:"debug_dir"`
	DebugMinIOPrefix string `yaml:"debug_minio_prefix"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func Default() *Config {
	return &Config{
		Raster: RasterConfig{DPI: raster.DefaultDPI, Pdftoppm: "pdftoppm"},
		OCR: OCRConfig{
			Engine:            "tesseract",
			Languages:         []string{"heb", "eng"},
			FallbackLanguages: []string{"eng"},
			RecognitionPSM:    DefaultRecognitionPSM,
			TimeoutSeconds:    60,
		},
		Anchors: append([]string(nil), DefaultAnchors...),
		ROI: ROIConfig{
			Radius:    300,
			MinWidth:  image.DefaultMinWidth,
			MinHeight: image.DefaultMinHeight,
		},
		Time: TimeConfig{
			Profile:          string(data.ProfilePermissive),
			ToleranceMinutes: reconcile.DefaultToleranceMinutes,
		},
		Input:   InputConfig{WorkDir: os.TempDir()},
		Output:  OutputConfig{CSV: "results.csv"},
		Bridge:  BridgeConfig{Addr: ":8085"},
		Workers: 1,
	}
}

// Load is Read followed by Validate.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads .env (if present), then the YAML file at path (if non-empty),
// then environment overrides. The result is not validated so callers can
// apply flags first.
func Read(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setList := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	setString("AUDIT_INPUT_DIR", &c.Input.Dir)
	setString("AUDIT_OCR_ENGINE", &c.OCR.Engine)
	setList("AUDIT_OCR_LANGUAGES", &c.OCR.Languages)
	setList("AUDIT_OCR_FALLBACK_LANGUAGES", &c.OCR.FallbackLanguages)
	setList("AUDIT_ANCHORS", &c.Anchors)
	setString("AUDIT_TIME_PROFILE", &c.Time.Profile)
	setString("AUDIT_REFERENCE_CSV", &c.Reference.CSV)
	setString("REDIS_URL", &c.Reference.RedisURL)
	setString("DATABASE_URL", &c.Reference.PostgresURL)
	setString("DATABASE_URL", &c.Output.PostgresURL)
	setString("AUDIT_OUTPUT_CSV", &c.Output.CSV)
	setString("AUDIT_OUTPUT_JSON", &c.Output.JSON)
	setString("AUDIT_DEBUG_DIR", &c.Output.DebugDir)
	setString("MINIO_ENDPOINT", &c.MinIO.Endpoint)
	setString("MINIO_ACCESS_KEY", &c.MinIO.AccessKey)
	setString("MINIO_SECRET_KEY", &c.MinIO.SecretKey)
	setString("MINIO_BUCKET", &c.MinIO.Bucket)
	setString("BRIDGE_ADDR", &c.Bridge.Addr)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.MinIO.UseSSL = v == "true" || v == "1"
	}

	for key, dst := range map[string]*int{
		"AUDIT_WORKERS":           &c.Workers,
		"AUDIT_TOLERANCE_MINUTES": &c.Time.ToleranceMinutes,
		"AUDIT_ROI_RADIUS":        &c.ROI.Radius,
		"AUDIT_OCR_TIMEOUT":       &c.OCR.TimeoutSeconds,
		"AUDIT_DPI":               &c.Raster.DPI,
		"AUDIT_OCR_PSM":           &c.OCR.RecognitionPSM,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	if len(c.Anchors) == 0 {
		problems = append(problems, "anchors must not be empty")
	}
	if len(c.OCR.Languages) == 0 {
		problems = append(problems, "ocr.languages must not be empty")
	}
	if c.ROI.Radius <= 0 {
		problems = append(problems, "roi.radius must be positive")
	}
	if c.ROI.MinWidth <= 0 || c.ROI.MinHeight <= 0 {
		problems = append(problems, "roi.min_width and roi.min_height must be positive")
	}
	if c.Raster.DPI <= 0 {
		problems = append(problems, "raster.dpi must be positive")
	}
	if c.Time.ToleranceMinutes < 0 {
		problems = append(problems, "time.tolerance_minutes must not be negative")
	}
	if _, err := data.ParseProfile(c.Time.Profile); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.OCR.RecognitionPSM < 3 || c.OCR.RecognitionPSM > 13 {
		problems = append(problems, "ocr.recognition_psm must be a recognising mode between 3 and 13")
	}
	if c.OCR.TimeoutSeconds < 0 {
		problems = append(problems, "ocr.timeout_seconds must not be negative")
	}
	if c.Input.Dir == "" && c.MinIO.Bucket == "" {
		problems = append(problems, "an input directory or MinIO bucket is required")
	}
	if (c.UsesMinIOInput() || c.Output.DebugMinIOPrefix != "") && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		problems = append(problems, "minio.endpoint is required when MinIO is used")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateBridge checks what the reference bridge needs.
func (c *Config) ValidateBridge() error {
	if c.Reference.RedisURL == "" {
		return fmt.Errorf("invalid configuration: reference.redis_url is required")
	}
	if c.Bridge.Addr == "" {
		return fmt.Errorf("invalid configuration: bridge.addr is required")
	}
	return nil
}

// OCRTimeout is zero when no per-call limit applies.
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCR.TimeoutSeconds) * time.Second
}

// UsesMinIOInput reports whether documents come from object storage rather
// than the input directory.
func (c *Config) UsesMinIOInput() bool {
	return c.Input.Dir == "" && c.MinIO.Bucket != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
