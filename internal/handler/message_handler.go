package handler

import (
	"io"
	"net/http"

	"page-reader/internal/domain"
	"page-reader/internal/protocol"
)

// MessageHandler accepts the tagged extension messages on a single endpoint.
type MessageHandler struct {
	dispatcher *protocol.Dispatcher
	logger     domain.Logger
}

func NewMessageHandler(dispatcher *protocol.Dispatcher, logger domain.Logger) *MessageHandler {
	return &MessageHandler{dispatcher: dispatcher, logger: logger}
}

// Handle handles POST /messages
func (h *MessageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.dispatcher.Handle(r.Context(), body)
	if err != nil {
		writeAppError(w, h.logger, "Failed to handle message", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
