// Package guardprofile translates a declarative guard-profile JSON
// document into a compiled interceptor tree, and manages the
// on-disk/embedded catalog of named profiles.
package guardprofile

import "encoding/json"

// CoreNamespace is reserved for built-in profiles shipped in the binary.
// It may not be mutated (saved into or deleted from) by callers.
const CoreNamespace = "mcp-guardian"

// Document is the top-level guard-profile document.
type Document struct {
	PrimaryMessageInterceptor InterceptorConfig `json:"primary_message_interceptor"`
}

// InterceptorConfig is a tagged union over the four interceptor kinds.
// Type selects which of the kind-specific fields is populated; unknown
// kind tags are a ConfigurationError at compile time.
type InterceptorConfig struct {
	Type string `json:"type"`

	// Chain fields.
	Chain []InterceptorConfig `json:"chain,omitempty"`

	// Filter fields.
	FilterLogic    *FilterLogicConfig  `json:"filter_logic,omitempty"`
	MatchAction    *FilterActionConfig `json:"match_action,omitempty"`
	NonMatchAction *FilterActionConfig `json:"non_match_action,omitempty"`

	// MessageLog fields.
	LogLevel string `json:"log_level,omitempty"`

	// ManualApproval has no kind-specific fields.
}

// FilterActionConfig is the tagged union for a Filter's match/non-match
// action: "send", "drop", or {"intercept": <InterceptorConfig>}.
type FilterActionConfig struct {
	Literal   string             `json:"-"`
	Intercept *InterceptorConfig `json:"intercept,omitempty"`
}

// UnmarshalJSON accepts either a bare string ("send"/"drop") or an
// object {"intercept": {...}}.
func (a *FilterActionConfig) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		a.Literal = literal
		a.Intercept = nil
		return nil
	}

	var obj struct {
		Intercept *InterceptorConfig `json:"intercept"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Intercept = obj.Intercept
	return nil
}

// MarshalJSON mirrors UnmarshalJSON's accepted shapes.
func (a FilterActionConfig) MarshalJSON() ([]byte, error) {
	if a.Intercept != nil {
		return json.Marshal(struct {
			Intercept *InterceptorConfig `json:"intercept"`
		}{a.Intercept})
	}
	return json.Marshal(a.Literal)
}

// FilterLogicConfig is the tagged union for FilterLogic.
type FilterLogicConfig struct {
	Type string `json:"type"`

	Direction string `json:"direction,omitempty"`

	MessageType string `json:"message_type,omitempty"`

	RequestMethod string `json:"request_method,omitempty"`

	Children []FilterLogicConfig `json:"children,omitempty"`

	Child *FilterLogicConfig `json:"child,omitempty"`

	// CEL is the Expression variant, a CEL boolean expression evaluated
	// against the message's direction, kind, method, and params.
	CEL string `json:"cel,omitempty"`
}

// NamedDocument pairs a Document with the namespace/name it was loaded
// from or will be saved under.
type NamedDocument struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"profile_name"`
	Document  Document `json:"guard_profile"`
}
