package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"docq/internal/errs"
)

type handlers struct {
	ingestor Ingestor
	asker    Asker
	log      *slog.Logger
}

type submitRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type submitResponse struct {
	DocumentID string `json:"documentId"`
}

func (h *handlers) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	docID, err := h.ingestor.Submit(r.Context(), req.Title, req.Content)
	if err != nil {
		h.writeError(w, "submit document", err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{DocumentID: docID})
}

type statusResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

func (h *handlers) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	run, err := h.ingestor.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, "document status", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		DocumentID: run.DocumentID,
		Status:     string(run.Status),
		Error:      run.Error,
	})
}

type chatRequest struct {
	Question string `json:"question"`
}

func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	answer, err := h.asker.Ask(r.Context(), req.Question)
	if err != nil {
		h.writeError(w, "chat", err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// writeError maps the error taxonomy onto HTTP statuses: invalid input is
// the client's fault, missing records are 404, transient upstream trouble
// is 502, everything else is 500.
func (h *handlers) writeError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op+" failed", "error", err)

	status := http.StatusInternalServerError
	switch {
	case errs.IsInvalid(err):
		status = http.StatusBadRequest
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsTransient(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
