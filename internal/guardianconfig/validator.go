package guardianconfig

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates Config using struct tags, returning an aggregated,
// actionable error on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("config validation failed: %w", err)
		}

		var msgs []string
		for _, fe := range validationErrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
	}

	if _, _, ok := splitGuardProfileRef(c.GuardProfile); !ok {
		return fmt.Errorf("config validation failed: guard_profile %q must be \"namespace.profile_name\"", c.GuardProfile)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation %q", fe.Namespace(), fe.Tag())
	}
}

// splitGuardProfileRef splits a "{namespace}.{profile_name}" reference.
// The profile name may not itself contain a dot; the namespace may not
// be empty.
func splitGuardProfileRef(ref string) (namespace, name string, ok bool) {
	return ParseGuardProfileRef(ref)
}

// ParseGuardProfileRef splits a "{namespace}.{profile_name}" guard
// profile reference into its two components.
func ParseGuardProfileRef(ref string) (namespace, name string, ok bool) {
	idx := strings.LastIndex(ref, ".")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", false
	}
	return ref[:idx], ref[idx+1:], true
}
