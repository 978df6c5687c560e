package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/validation"
)

// Output formats accepted by the -o flag of list and check.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var outputFormats = []string{formatTable, formatJSON, formatYAML}

// AddFlagValidation wraps the value of the named flag so that invalid input
// is rejected while the command line is parsed.
func AddFlagValidation(flags *pflag.FlagSet, name string, validator func(string) error) {
	flag := flags.Lookup(name)
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 1-65535.
func ValidatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", s)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateWorkers accepts a positive worker count.
func ValidateWorkers(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("workers must be a positive number, got %s", s)
	}
	return nil
}

// ValidateLogLevel accepts the level names understood by the logger.
func ValidateLogLevel(s string) error {
	if _, ok := logging.ParseLevel(s); !ok {
		return fmt.Errorf("invalid log level %q (debug, info, warn, error)", s)
	}
	return nil
}

// ValidateFormat accepts one of outputFormats.
func ValidateFormat(s string) error {
	for _, f := range outputFormats {
		if s == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q, must be one of: %s", s, strings.Join(outputFormats, ", "))
}

// ValidateHostFlag accepts host names and IP addresses.
func ValidateHostFlag(s string) error {
	if s == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return validation.ValidateHost(s)
}
