package audit

import "github.com/google/uuid"

// WithOrganization scopes the entry to an organization.
func WithOrganization(id uuid.UUID) EntryOption {
	return func(e *Entry) {
		e.OrganizationID = &id
	}
}

// WithMetadata adds a metadata key. Values pass through the trail's Redactor.
func WithMetadata(key string, value any) EntryOption {
	return func(e *Entry) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithRequest overrides the request metadata taken from context.
func WithRequest(ip, userAgent, requestID string) EntryOption {
	return func(e *Entry) {
		e.IP = ip
		e.UserAgent = userAgent
		e.RequestID = requestID
	}
}
