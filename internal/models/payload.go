package models

// Payload is a decoded JSON object from the backend before normalization.
type Payload map[string]interface{}

// Object returns the nested object stored under key, or nil.
func (p Payload) Object(key string) Payload {
	if p == nil {
		return nil
	}
	switch v := p[key].(type) {
	case map[string]interface{}:
		return Payload(v)
	case Payload:
		return v
	}
	return nil
}

// Has reports whether key is present with a non-nil value.
func (p Payload) Has(key string) bool {
	if p == nil {
		return false
	}
	v, ok := p[key]
	return ok && v != nil
}
