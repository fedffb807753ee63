package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"time"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"sbadm/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	RetryConfig struct {
		Attempts     int           `yaml:"attempts" validate:"min=1,max=10"`
		InitialDelay time.Duration `yaml:"initial_delay" validate:"gt=0"`
		MaxDelay     time.Duration `yaml:"max_delay" validate:"gtefield=InitialDelay"`
	}

	APIConfig struct {
		BaseURL          string        `yaml:"base_url" validate:"required,url"`
		Token            SecretString  `yaml:"token,omitempty"`
		Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
		MaxResponseBytes int64         `yaml:"max_response_bytes" validate:"min=1024"`
		// MaxAttempts is only shown next to generation attempts, API never
		// enforces it on our side.
		MaxAttempts int         `yaml:"max_attempts" validate:"min=1"`
		Retry       RetryConfig `yaml:"retry"`
	}

	StreamConfig struct {
		Path            string        `yaml:"path" validate:"required,startswith=/"`
		ReconnectDelay  time.Duration `yaml:"reconnect_delay" validate:"gt=0"`
		RefreshDebounce time.Duration `yaml:"refresh_debounce" validate:"gte=0"`
	}

	ListsConfig struct {
		SearchDebounce    time.Duration `yaml:"search_debounce" validate:"gte=0"`
		DefaultLimit      int           `yaml:"default_limit" validate:"min=1"`
		AllowedLimits     []int         `yaml:"allowed_limits" validate:"required,dive,min=1"`
		ArrayFields       []string      `yaml:"array_fields" validate:"dive,required"`
		GenerationsRetain int           `yaml:"generations_retain" validate:"gte=0"`
	}

	FontConfig struct {
		Path       string  `yaml:"path,omitempty" sanitize:"assure_file_access"`
		Size       float64 `yaml:"size" validate:"gt=0"`
		TitleSize  float64 `yaml:"title_size" validate:"gt=0"`
		QuoteSize  float64 `yaml:"quote_size" validate:"gt=0"`
		LineHeight float64 `yaml:"line_height" validate:"gte=1"`
	}

	BlurConfig struct {
		Iterations int `yaml:"iterations" validate:"min=1,max=32"`
		Radius     int `yaml:"radius" validate:"min=1,max=64"`
		Downscale  int `yaml:"downscale" validate:"min=1,max=16"`
	}

	DedicationConfig struct {
		Width  int `yaml:"width" validate:"min=1"`
		Height int `yaml:"height" validate:"min=1"`
	}

	RenderConfig struct {
		Width         int              `yaml:"width" validate:"min=100"`
		Height        int              `yaml:"height" validate:"min=100"`
		Margin        float64          `yaml:"margin" validate:"gte=0"`
		Padding       float64          `yaml:"padding" validate:"gte=0"`
		PanelOpacity  float64          `yaml:"panel_opacity" validate:"gte=0,lte=1"`
		CoverMaxWidth float64          `yaml:"cover_max_width" validate:"gt=0"`
		UppercaseName bool             `yaml:"uppercase_name"`
		Font          FontConfig       `yaml:"font"`
		Blur          BlurConfig       `yaml:"blur"`
		Dedication    DedicationConfig `yaml:"dedication"`
		// replace built-in placeholder and quote decoration when set
		PlaceholderPath string `yaml:"placeholder_path,omitempty" sanitize:"assure_file_access"`
		OrnamentPath    string `yaml:"ornament_path,omitempty" sanitize:"assure_file_access"`
	}

	ExportConfig struct {
		SettleDelay           time.Duration      `yaml:"settle_delay" validate:"gt=0"`
		FetchTimeout          time.Duration      `yaml:"fetch_timeout" validate:"gt=0"`
		Format                common.FrameFormat `yaml:"format"`
		JPEGQuality           int                `yaml:"jpeg_quality" validate:"min=40,max=100"`
		OutputNameTemplate    string             `yaml:"output_name_template"`
		FileNameTransliterate bool               `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		API       APIConfig      `yaml:"api"`
		Stream    StreamConfig   `yaml:"stream"`
		Lists     ListsConfig    `yaml:"lists"`
		Render    RenderConfig   `yaml:"render"`
		Export    ExportConfig   `yaml:"export"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// crossChecks validates relations validator tags cannot express.
func crossChecks(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if !slices.Contains(cfg.Lists.AllowedLimits, cfg.Lists.DefaultLimit) {
		sl.ReportError(cfg.Lists.DefaultLimit, "DefaultLimit", "default_limit", "oneof_allowed_limits", "")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are allowed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(crossChecks)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
