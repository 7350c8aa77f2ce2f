package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// outputFormats are the formats accepted by --output.
var outputFormats = []string{"table", "json", "yaml"}

// addOutputFlag adds a validated --output/-o flag to cmd.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "table", "Output format ("+strings.Join(outputFormats, "|")+")")
	AddFlagValidation(cmd, "output", func(format string) error {
		return validateChoice(format, outputFormats)
	})
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// validateChoice accepts value if it is one of allowed, case-insensitively,
// and suggests the closest choice otherwise.
func validateChoice(value string, allowed []string) error {
	lower := strings.ToLower(value)
	for _, choice := range allowed {
		if lower == choice {
			return nil
		}
	}
	for _, choice := range allowed {
		if lower != "" && (strings.HasPrefix(choice, lower) || strings.HasPrefix(lower, choice)) {
			return fmt.Errorf("invalid value %q, did you mean %q?", value, choice)
		}
	}
	return fmt.Errorf("invalid value %q, must be one of: %s", value, strings.Join(allowed, ", "))
}
