package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover the declarative checks; backend-specific sections are
// free-form maps, so their required fields are checked here.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Storage.Type {
	case "filesystem":
		if stringOption(cfg.Storage.Filesystem, "root") == "" {
			return fmt.Errorf("storage.filesystem: root is required")
		}
	case "badger":
		if stringOption(cfg.Storage.Badger, "path") == "" {
			return fmt.Errorf("storage.badger: path is required")
		}
	case "s3":
		if stringOption(cfg.Storage.S3, "bucket") == "" {
			return fmt.Errorf("storage.s3: bucket is required")
		}
		if stringOption(cfg.Storage.S3, "region") == "" {
			return fmt.Errorf("storage.s3: region is required")
		}
	}

	// A sweeper enabled on a non-filesystem backend is not an error:
	// the factory simply never starts it.

	return nil
}

// stringOption reads a string value from a backend option map.
func stringOption(options map[string]any, key string) string {
	if options == nil {
		return ""
	}
	if value, ok := options[key].(string); ok {
		return value
	}
	return ""
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
