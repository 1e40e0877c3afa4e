package crm

import "errors"

var (
	// ErrSchemaUnavailable is returned when a lead must be written but no
	// field mapping could be resolved for the configured pipe.
	ErrSchemaUnavailable = errors.New("crm: field mapping unavailable")

	// ErrUpstream is returned when the CRM provider fails at the transport
	// or GraphQL level.
	ErrUpstream = errors.New("crm: upstream request failed")

	// ErrMissingEmail is returned when an upsert is attempted without an email.
	ErrMissingEmail = errors.New("crm: lead email is required")
)
