package endpoints

import (
	"github.com/credable-eng/fieldsift/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Schema endpoint
		&SchemaEndpoint{},

		// Extraction endpoint
		&ExtractEndpoint{},
	}
}
