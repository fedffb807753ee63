package config

// SecretStringValue must be exported - used in tests.
const SecretStringValue = "<secret>"

// SecretString holds values which must never show up in logs, dumps or debug
// reports, API token for example.
type SecretString string

// Value returns actual secret, the only way to get it out.
func (s SecretString) Value() string {
	return string(s)
}

// String masks the value for fmt and zap.Stringer.
func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}

// MarshalJSON marshals SecretString to JSON making sure that actual value is not visible.
func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

// MarshalYAML marshals SecretString to YAML making sure that actual value is not visible.
func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}
