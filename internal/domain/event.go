package domain

// InboundEvent is a CRM webhook payload as decoded from JSON. No schema is
// enforced: missing keys are absent, never errors.
type InboundEvent map[string]any

// Fields returns the nested data.FIELDS object, or an empty field set when the
// payload does not carry one.
func (e InboundEvent) Fields() map[string]any {
	data, ok := e["data"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	fields, ok := data["FIELDS"].(map[string]any)
	if !ok || fields == nil {
		return map[string]any{}
	}
	return fields
}
