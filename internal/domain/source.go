package domain

// AuthMode names how a remote source authenticates requests.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBearer AuthMode = "bearer"
	AuthAPIKey AuthMode = "apiKey"
	AuthBasic  AuthMode = "basic"
)

// Credentials carry the secrets for an authenticated feed.
type Credentials struct {
	Mode     AuthMode `json:"mode,omitempty" yaml:"mode"`
	Token    string   `json:"-" yaml:"token"`
	Header   string   `json:"header,omitempty" yaml:"header"`
	Username string   `json:"-" yaml:"username"`
	Password string   `json:"-" yaml:"password"`
}

// Detection is the Source Detector verdict for a locator.
type Detection struct {
	Type             SourceType        `json:"type"`
	Platform         string            `json:"platform"`
	Confidence       int               `json:"confidence"`
	SuggestedMapping map[string]string `json:"suggestedMapping,omitempty"`
	AuthMode         AuthMode          `json:"authenticationMode"`
}
