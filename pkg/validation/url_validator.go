package validation

import (
	"net"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/artwork-matcher/internal/errors"
)

// URLValidator handles URL validation logic
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	blockPrivate   bool
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewUploadURLValidator is used for caller supplied image URLs. Literal
// loopback, private and link-local addresses are rejected. When hosts is
// non-empty only those hosts are accepted.
func NewUploadURLValidator(hosts ...string) *URLValidator {
	v := NewURLValidator()
	v.allowedHosts = hosts
	v.blockPrivate = true
	return v
}

// Parse validates rawURL and returns the parsed form.
func (v *URLValidator) Parse(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Hostname() == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Hostname()) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}

	if v.blockPrivate && isPrivateHost(parsedURL.Hostname()) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}

	return parsedURL, nil
}

// ValidateImageURL validates if the provided URL is acceptable for image retrieval
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	_, err := v.Parse(imageURL)
	return err
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
