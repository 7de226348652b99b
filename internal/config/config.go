// Package config loads the defaults a carrier protocol binds into a
// sasl.CarrierParams: preferred mechanisms, framing, result codes, and the
// optional GSSAPI key material. Load applies GOSASL_* environment
// variables over a config file over built-in defaults; CLI flags are not
// read here and are left for the caller to apply on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/AtelierNeon/gosasl/pkg/sasl"
)

// LoggingConfig controls the internal/logger output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// KerberosConfig carries the GSSAPI key material, mirroring
// sasl.GssapiConfig but sourced from viper so it can come from a file or
// environment rather than being wired by the calling program.
type KerberosConfig struct {
	Krb5ConfPath string `mapstructure:"krb5_conf_path" yaml:"krb5_conf_path"`
	KeytabPath   string `mapstructure:"keytab_path" yaml:"keytab_path"`
}

// Config is the static configuration for one carrier's SASL negotiation
// defaults. Dynamic, per-connection state (server-offered mechanisms,
// credentials) is never part of this struct; it belongs to a
// sasl.SaslSession.
type Config struct {
	// Service is the textual service identifier handed to GSSAPI/NTLM,
	// e.g. "imap", "smtp", "pop3", "ldap".
	Service string `mapstructure:"service" yaml:"service" validate:"required"`

	// DefaultMechanisms is the preferred-mechanism list in registry order,
	// e.g. ["SCRAM-SHA-256", "CRAM-MD5", "PLAIN"]. Validated against the
	// registry at Load time.
	DefaultMechanisms []string `mapstructure:"default_mechanisms" yaml:"default_mechanisms" validate:"required,min=1,dive,required"`

	// MaxIRLen caps the combined mechanism-name + encoded-initial-response
	// length; 0 means no limit.
	MaxIRLen int `mapstructure:"max_ir_len" yaml:"max_ir_len" validate:"gte=0"`

	// ContinuationCode and SuccessCode are the carrier's result codes for
	// "send another turn" and "authentication succeeded".
	ContinuationCode int `mapstructure:"continuation_code" yaml:"continuation_code"`
	SuccessCode      int `mapstructure:"success_code" yaml:"success_code"`

	// Base64Framing selects sasl.FlagBase64; carriers transporting raw
	// binary (some LDAP SASL binds) leave this false.
	Base64Framing bool `mapstructure:"base64_framing" yaml:"base64_framing"`

	// ForceInitialResponse makes the driver compute an initial response
	// even for mechanisms the carrier would not normally precompute one
	// for, so long as it fits within MaxIRLen.
	ForceInitialResponse bool `mapstructure:"force_initial_response" yaml:"force_initial_response"`

	// MutualAuth requests GSSAPI mutual authentication.
	MutualAuth bool `mapstructure:"mutual_auth" yaml:"mutual_auth"`

	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Kerberos KerberosConfig `mapstructure:"kerberos" yaml:"kerberos"`
}

// DefaultConfig returns the built-in defaults: PLAIN/LOGIN preferred, IMAP
// continuation codes (RFC 3501 "+"/"OK" map to 0/1 here since the engine
// is carrier-agnostic), base64 framing, text logging to stdout.
func DefaultConfig() *Config {
	return &Config{
		Service:           "imap",
		DefaultMechanisms: []string{"PLAIN", "LOGIN"},
		MaxIRLen:          0,
		ContinuationCode:  0,
		SuccessCode:       1,
		Base64Framing:     true,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads configuration from configPath (if it exists), then
// GOSASL_*-prefixed environment variables, falling back to DefaultConfig
// for anything unset, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GOSASL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("gosasl: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("gosasl: unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("gosasl: invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("service", def.Service)
	v.SetDefault("default_mechanisms", def.DefaultMechanisms)
	v.SetDefault("max_ir_len", def.MaxIRLen)
	v.SetDefault("continuation_code", def.ContinuationCode)
	v.SetDefault("success_code", def.SuccessCode)
	v.SetDefault("base64_framing", def.Base64Framing)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
}

// Validate runs struct-tag validation and then the registry-aware checks
// the tags cannot express: every entry of DefaultMechanisms must decode to
// exactly one known mechanism name.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	for _, name := range cfg.DefaultMechanisms {
		if bit, consumed := sasl.Decode(name, len(name)); bit == sasl.MechNone || consumed != len(name) {
			return fmt.Errorf("unrecognized mechanism in default_mechanisms: %q", name)
		}
	}
	return nil
}

// DefaultMechBitmap folds DefaultMechanisms into a sasl.Mech bitmap, for
// handing to sasl.CarrierParams.DefMechs.
func (c *Config) DefaultMechBitmap() sasl.Mech {
	var bits sasl.Mech
	for _, name := range c.DefaultMechanisms {
		bit, _ := sasl.Decode(name, len(name))
		bits |= bit
	}
	return bits
}

// ConfigDir returns $XDG_CONFIG_HOME/gosasl, or $HOME/.config/gosasl if
// XDG_CONFIG_HOME is unset.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gosasl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gosasl"
	}
	return filepath.Join(home, ".config", "gosasl")
}
