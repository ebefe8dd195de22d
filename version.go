package sfvalidator

// Version is the library version.
const Version = "0.3.0"

// APIVersion represents a Salesforce REST API version the schema provider
// may speak.
type APIVersion string

// Known Salesforce API versions.
const (
	// V59 is Salesforce API v59.0 (Winter '24)
	V59 APIVersion = "59.0"
	// V60 is Salesforce API v60.0 (Spring '24)
	V60 APIVersion = "60.0"
	// V61 is Salesforce API v61.0 (Summer '24)
	V61 APIVersion = "61.0"
)

// String returns the version string.
func (v APIVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported API version.
func (v APIVersion) IsValid() bool {
	switch v {
	case V59, V60, V61:
		return true
	default:
		return false
	}
}
