// Package output renders the effective configuration for the CLI.
package output

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/notiwin/internal/config"
)

// Formatter writes a configuration to w.
type Formatter interface {
	Format(w io.Writer, cfg *config.Config) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatTOML FormatType = "toml"
	FormatYAML FormatType = "yaml"
	FormatJSON FormatType = "json"
)

// ValidFormats returns every supported format.
func ValidFormats() []FormatType {
	return []FormatType{FormatTOML, FormatYAML, FormatJSON}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatTOML, "":
		return TOMLFormatter{}, nil
	case FormatYAML:
		return YAMLFormatter{}, nil
	case FormatJSON:
		return JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: %v)", format, ValidFormats())
	}
}

// TOMLFormatter writes the same format the config file uses.
type TOMLFormatter struct{}

func (TOMLFormatter) Format(w io.Writer, cfg *config.Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// YAMLFormatter writes YAML.
type YAMLFormatter struct{}

func (YAMLFormatter) Format(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
