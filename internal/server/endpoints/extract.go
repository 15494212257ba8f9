package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/credable-eng/fieldsift/internal/api"
	"github.com/credable-eng/fieldsift/internal/llm"
	"github.com/credable-eng/fieldsift/internal/pipeline"
	"github.com/credable-eng/fieldsift/internal/svcctx"
)

// ExtractEndpoint handles POST /api/extract-fields with multipart uploads.
// Documents are processed in upload order; the optional "priority" form
// value names the document whose values win field conflicts.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract-fields", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form with 100MB max memory
	const maxMemory = 100 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	priority := r.FormValue("priority")

	p := svcctx.PipelineFrom(r.Context())
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	// Read uploads in form order so the reconciliation fold order matches
	// the upload order.
	docs := make([]pipeline.InputDocument, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to open %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s: %v", fh.Filename, err))
			return
		}
		docs = append(docs, pipeline.InputDocument{Name: fh.Filename, Data: data})
	}

	result, err := p.Run(r.Context(), docs, priority)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "extract <file> [file...]",
		Short: "Extract fields from documents",
		Long: `Upload documents to the running server and print the reconciled
field map. Use --priority to name the document whose values win conflicts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			fields := map[string]string{}
			if priority != "" {
				fields["priority"] = priority
			}

			var result pipeline.Result
			if err := client.PostFiles(cmd.Context(), "/api/extract-fields", args, fields, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "document name whose values win conflicts")
	return cmd
}
