package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"ghostink/pkg/domain"
	"ghostink/svc/svc"
	"ghostink/svc/util"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"
)

type Hdl struct {
	paste *svc.Paste
}

// createReq mirrors domain.CreatePasteRequest with a pointer content so a
// missing field can be told apart from an empty one.
type createReq struct {
	Content   *string `json:"content"`
	ExpiresAt *string `json:"expires_at"`
}

func (h *Hdl) CreatePaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		log.Warn().
			Str("content_type", contentType).
			Str("request_id", requestID).
			Msg("invalid Content-Type header")
		w.WriteHeader(http.StatusUnsupportedMediaType)
		json.NewEncoder(w).Encode(map[string]string{
			"error":      "expected Content-Type: application/json",
			"request_id": requestID,
		})
		return
	}
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			log.Warn().Msg("empty request body")
		} else {
			log.Warn().Err(err).Msg("invalid request")
		}
		writeErr(w, domain.ErrInvalidRequest, requestID)
		return
	}
	if req.Content == nil {
		log.Warn().Msg("missing content")
		writeErr(w, domain.ErrInvalidRequest, requestID)
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			log.Warn().Err(err).Str("expires_at", *req.ExpiresAt).Msg("failed to parse expiration timestamp")
			writeErr(w, domain.ErrInvalidExpiry, requestID)
			return
		}
		expiresAt = &t
	}
	paste, err := h.paste.Put(r.Context(), *req.Content, expiresAt)
	if err != nil {
		log.Error().Err(err).Msg("failed to create paste")
		writeErr(w, err, requestID)
		return
	}
	log.Info().
		Str("paste_id", paste.ID).
		Time("expires_at", paste.ExpiresAt).
		Int("size", len(paste.Content)).
		Msg("paste created")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(domain.CreatePasteResponse{UUID: paste.ID})
}

func (h *Hdl) GetPaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")
	paste, err := h.paste.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			log.Info().Str("paste_id", id).Msg("paste not found or expired")
			writeErr(w, domain.ErrPasteNotFound, requestID)
			return
		}
		log.Error().Err(err).Str("paste_id", id).Msg("get failed")
		writeErr(w, err, requestID)
		return
	}
	log.Info().
		Str("paste_id", id).
		Str("client_ip", util.RedactIP(r.RemoteAddr)).
		Msg("paste retrieved")
	json.NewEncoder(w).Encode(domain.GetPasteResponse{Content: paste.Content})
}

func (h *Hdl) Clean(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	n, err := h.paste.SweepExpired(r.Context())
	if err != nil {
		log.Error().Err(err).Int("deleted", n).Msg("failed to clean expired pastes")
		writeErr(w, err, requestID)
		return
	}
	log.Info().Int("rows_affected", n).Msg("cleaned expired pastes")
	json.NewEncoder(w).Encode(domain.CleanResponse{Deleted: n})
}

func writeErr(w http.ResponseWriter, err error, requestID string) {
	statusCode := domain.Status(err)
	w.WriteHeader(statusCode)
	errorMsg := domain.ToResp(err).Error.Msg
	if statusCode >= 500 {
		errorMsg = "internal server error"
		util.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("internal error with detailed info")
	}
	json.NewEncoder(w).Encode(map[string]string{
		"error":      errorMsg,
		"request_id": requestID,
	})
}
