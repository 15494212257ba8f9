package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/credable-eng/fieldsift/internal/api"
	"github.com/credable-eng/fieldsift/internal/schema"
	"github.com/credable-eng/fieldsift/internal/svcctx"
)

// SchemaResponse describes the active extraction field schema.
type SchemaResponse struct {
	Fields   []schema.Field `json:"fields"`
	Warnings []string       `json:"warnings,omitempty"`
}

// SchemaEndpoint handles GET /api/schema.
type SchemaEndpoint struct{}

var _ api.Endpoint = (*SchemaEndpoint)(nil)

func (e *SchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schema", e.handler
}

func (e *SchemaEndpoint) RequiresInit() bool { return false }

func (e *SchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.SchemaFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "schema not initialized")
		return
	}

	writeJSON(w, http.StatusOK, SchemaResponse{
		Fields:   s.Fields(),
		Warnings: s.Validate(),
	})
}

func (e *SchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the extraction field schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SchemaResponse
			if err := client.Get(cmd.Context(), "/api/schema", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
