package config

import (
	"bytes"
	"fmt"
	"os"

	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/wxjsx/internal/errors"
)

const fileHeader = "# wxjsx configuration. Every key can be overridden with a WXJSX_ environment\n# variable, e.g. WXJSX_COMPILER_CONDITIONAL_IF=true.\n"

// ValidateFile decodes the YAML file at path strictly, rejecting unknown and
// duplicate keys, then validates the result on top of the defaults.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.CodeReadFailed, "failed to read config file "+path)
	}

	config := Default()
	if err := yamlv2.UnmarshalStrict(data, config); err != nil {
		return nil, errors.WrapConfig(err, "invalid config file "+path).WithFile(path)
	}

	return ValidateConfigWithDetails(config), nil
}

// Marshal renders config as YAML with two-space indentation.
func Marshal(config *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.NewConfigError(fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
	}

	data, err := Marshal(Default())
	if err != nil {
		return errors.WrapConfig(err, "failed to render default config")
	}

	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o644); err != nil {
		return errors.WrapIO(err, errors.CodeWriteFailed, "failed to write "+path)
	}
	return nil
}
