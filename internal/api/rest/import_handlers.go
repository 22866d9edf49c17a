package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fortuna/syndicate/internal/importer"
	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/ingest/channel"
	"github.com/fortuna/syndicate/internal/ingest/telegram"
)

// maxExportBytes caps uploaded chat exports
const maxExportBytes = 32 << 20

type importRequest struct {
	Text string `json:"text"`
}

type importResponse struct {
	Success bool `json:"success"`
	*importer.Report
	Failed  int    `json:"failed"`
	Message string `json:"message"`
}

// PreviewImport parses pasted text without saving it
func (h *Handler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	results, err := h.importer.Preview(text)
	if err != nil {
		respondServiceError(w, err, "Failed to parse text")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// Import parses pasted text and saves every result
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	report, err := h.importer.ImportText(r.Context(), text)
	respondImport(w, report, err)
}

// ImportExport imports a Telegram Desktop HTML export, uploaded as the "file"
// form field or as the raw body. With ?preview=true nothing is saved.
func (h *Handler) ImportExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExportBytes)

	var (
		src  io.Reader = r.Body
		chat           = r.URL.Query().Get("chat")
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Missing export file", err)
			return
		}
		defer file.Close()
		src = file
		if c := r.FormValue("chat"); c != "" {
			chat = c
		}
	}
	if chat == "" {
		chat = "export"
	}

	posts, err := channel.ParseExport(src, chat)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid export file", err)
		return
	}

	h.previewOrImport(w, r, posts)
}

// TelegramUpdates shows recent channel posts that contain results
func (h *Handler) TelegramUpdates(w http.ResponseWriter, r *http.Request) {
	posts, ok := h.fetchTelegram(w, r)
	if !ok {
		return
	}

	previews := h.ingester.Preview(posts)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": previews,
		"count":    len(previews),
	})
}

// TelegramImport saves the results of recent channel posts
func (h *Handler) TelegramImport(w http.ResponseWriter, r *http.Request) {
	posts, ok := h.fetchTelegram(w, r)
	if !ok {
		return
	}

	report, err := h.ingester.Import(r.Context(), posts)
	respondImport(w, report, err)
}

// TelegramImportManual saves the results of one pasted channel message. The
// text may come from the "text" query parameter or a JSON body.
func (h *Handler) TelegramImportManual(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		var ok bool
		if text, ok = h.readText(w, r); !ok {
			return
		}
	}

	report, err := h.importer.WithLeague(importer.LeagueImported).ImportText(r.Context(), text)
	respondImport(w, report, err)
}

func (h *Handler) previewOrImport(w http.ResponseWriter, r *http.Request, posts []ingest.Post) {
	if r.URL.Query().Get("preview") == "true" {
		previews := h.ingester.Preview(posts)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"messages": previews,
			"count":    len(previews),
		})
		return
	}

	report, err := h.ingester.Import(r.Context(), posts)
	respondImport(w, report, err)
}

func (h *Handler) fetchTelegram(w http.ResponseWriter, r *http.Request) ([]ingest.Post, bool) {
	if h.telegram == nil {
		respondServiceError(w, telegram.ErrNotConfigured, "")
		return nil, false
	}

	posts, err := h.telegram.FetchPosts(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to fetch Telegram updates")
		return nil, false
	}
	return posts, true
}

// readText decodes {"text": ...} and rejects empty text
func (h *Handler) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "No text provided", nil)
		return "", false
	}
	return req.Text, true
}

func respondImport(w http.ResponseWriter, report *importer.Report, err error) {
	var partial *importer.PartialFailureError
	switch {
	case errors.As(err, &partial):
		respondJSON(w, http.StatusOK, importResponse{
			Success: false,
			Report:  report,
			Failed:  partial.Failed,
			Message: fmt.Sprintf("Imported %d of %d results, %d failed", partial.Imported, partial.Total, partial.Failed),
		})
	case err != nil:
		respondServiceError(w, err, "Failed to import results")
	default:
		respondJSON(w, http.StatusOK, importResponse{
			Success: true,
			Report:  report,
			Message: fmt.Sprintf("Imported %d results, skipped %d duplicates", report.Imported, report.Skipped),
		})
	}
}
