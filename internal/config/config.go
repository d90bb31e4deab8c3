package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultEndpoint = "https://app.cryptolens.io/api/key/Activate"

// activationFields are only required by commands that contact the service.
var activationFields = []string{"AccessToken", "ProductID"}

// ErrNoPublicKey is returned when neither public_key nor public_key_path is set.
var ErrNoPublicKey = errors.New("no public key configured (set public_key or public_key_path)")

// Config holds all configuration values
type Config struct {
	Addr         string        `yaml:"addr" validate:"required"`
	DBPath       string        `yaml:"db_path" validate:"required"`
	APIKey       string        `yaml:"api_key"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" validate:"gt=0"`

	AccessToken     string        `yaml:"access_token" validate:"required"`
	ProductID       uint64        `yaml:"product_id" validate:"required"`
	PublicKey       string        `yaml:"public_key"`
	PublicKeyPath   string        `yaml:"public_key_path"`
	Endpoint        string        `yaml:"endpoint" validate:"required,url"`
	MachineCode     string        `yaml:"machine_code"`
	FriendlyName    string        `yaml:"friendly_name"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
	ActivationRate  float64       `yaml:"activation_rate" validate:"gte=0"` // per second, 0 = unlimited
	ActivationBurst int           `yaml:"activation_burst" validate:"gte=1"`

	DBPathSource string `yaml:"-"` // where DBPath was set from: "default", "yaml file", or "env var"
}

// Load loads configuration from YAML file and overrides with env vars if present
func Load(path string) (*Config, error) {
	// Defaults
	cfg := &Config{
		Addr:            "127.0.0.1:8087",
		DBPath:          "./licenseagent.db",
		DBPathSource:    "default",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    40 * time.Second,
		IdleTimeout:     120 * time.Second,
		Endpoint:        DefaultEndpoint,
		RequestTimeout:  30 * time.Second,
		ActivationRate:  1,
		ActivationBurst: 3,
	}

	// Load from YAML if file exists
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		prevDBPath := cfg.DBPath
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if cfg.DBPath != prevDBPath {
			cfg.DBPathSource = "yaml file"
		}
	}

	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
		cfg.DBPathSource = "env var"
	}
	if v := os.Getenv("AGENT_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN"); v != "" {
		cfg.AccessToken = v
	}
	if v := os.Getenv("PRODUCT_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PRODUCT_ID: %w", err)
		}
		cfg.ProductID = id
	}
	if v := os.Getenv("PUBLIC_KEY_PATH"); v != "" {
		cfg.PublicKeyPath = v
	}
	if v := os.Getenv("ACTIVATION_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("MACHINE_CODE"); v != "" {
		cfg.MachineCode = v
	}

	return cfg, nil
}

// Validate checks everything except the activation credentials.
func (c *Config) Validate() error {
	return describe(newValidator().StructExcept(c, activationFields...))
}

// ValidateActivation checks the fields needed to call the activation service.
func (c *Config) ValidateActivation() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return describe(newValidator().StructPartial(c, activationFields...))
}

// PublicKeyXML returns the RSAKeyValue document, inline or from public_key_path.
func (c *Config) PublicKeyXML() ([]byte, error) {
	if c.PublicKey != "" {
		return []byte(c.PublicKey), nil
	}
	if c.PublicKeyPath == "" {
		return nil, ErrNoPublicKey
	}
	b, err := os.ReadFile(c.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return b, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use yaml tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
