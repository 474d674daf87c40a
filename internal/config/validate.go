package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMissingAPIKey 未配置 API key
var ErrMissingAPIKey = errors.New("no API key configured: set LUMINA_API_KEY (or GEMINI_API_KEY / OPENAI_API_KEY) or provider.api_key in ~/.lumina/config.json")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置并在缺少 API key 时快速失败
// Validate checks field constraints and fails fast when no API key is configured.
func (c Config) Validate() error {
	if err := c.ValidateFields(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateFields 只做字段约束校验（导入等离线命令不需要 API key）
// ValidateFields checks field constraints only; offline commands such as import
// do not need an API key.
func (c Config) ValidateFields() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %q)", field, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range (%s %s)", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
