package handlers

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/blob"
	"github.com/xelth-com/protocolos/internal/media"
	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/notify"
)

type photoRequest struct {
	Photos map[media.Role]string `json:"photos"`
}

type photoResponse struct {
	URLs     map[media.Role]string `json:"urls"`
	Errors   map[media.Role]string `json:"errors,omitempty"`
	Protocol *models.Protocol      `json:"protocol"`
}

// uploadPhotos uploads the nota, produto and avaria photos concurrently and
// stores the URLs that made it. Progress is pushed to the protocol's room.
func (r *Router) uploadPhotos(w http.ResponseWriter, req *http.Request) {
	if r.uploader == nil {
		respondError(w, http.StatusServiceUnavailable, "Photo storage not configured")
		return
	}
	proto, ok := r.loadVisible(w, req)
	if !ok {
		return
	}
	if proto.Status == models.StatusClosed {
		respondError(w, http.StatusConflict, "Protocol is closed")
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxFileBytes)
	var body photoRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if len(body.Photos) == 0 {
		respondError(w, http.StatusBadRequest, "No photos provided")
		return
	}
	if !hasUploadablePhoto(body.Photos) {
		respondError(w, http.StatusBadRequest, "No valid photos provided")
		return
	}

	var listener media.Listener
	if r.hub != nil {
		listener = r.hub.ProgressListener(proto.ID)
	}
	res := r.uploader.UploadAll(req.Context(), proto.ID, body.Photos, listener)

	out := photoResponse{URLs: res.URLs, Protocol: proto}
	if len(res.Errors) > 0 {
		out.Errors = make(map[media.Role]string, len(res.Errors))
		for role, err := range res.Errors {
			out.Errors[role] = err.Error()
			r.logger.Warn("photo upload failed", zap.String("protocol", proto.Number), zap.String("role", string(role)), zap.Error(err))
		}
	}
	if len(res.URLs) == 0 {
		respondJSON(w, http.StatusBadGateway, out)
		return
	}

	urls := make(map[string]string, len(res.URLs))
	for role, url := range res.URLs {
		urls[string(role)] = url
	}
	updated, err := r.protocols.Update(req.Context(), proto.ID, func(p *models.Protocol) error {
		p.MergePhotos(urls)
		return nil
	})
	if err != nil {
		r.respondStoreError(w, err, "Protocol")
		return
	}
	out.Protocol = updated

	roles := make([]string, 0, len(urls))
	for role := range urls {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	p := principal(req)
	r.broadcast(updated)
	if r.notifier != nil {
		err := r.notifier.Notify(req.Context(), notify.Notification{
			Kind:       notify.KindPhotosUploaded,
			ProtocolID: updated.ID,
			Number:     updated.Number,
			UnitCode:   updated.UnitCode,
			PdvName:    updated.PdvName,
			Status:     updated.Status,
			Actor:      p.Username,
			Detail:     strings.Join(roles, ", "),
			At:         r.now().UTC(),
		})
		if err != nil {
			r.logger.Warn("notification failed", zap.String("protocol", updated.Number), zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// photoProxy streams a stored photo, for disk storage and private buckets.
func (r *Router) photoProxy(w http.ResponseWriter, req *http.Request) {
	if r.photos == nil {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	key, err := blob.CleanKey(mux.Vars(req)["key"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid photo key")
		return
	}
	rc, contentType, err := r.photos.Open(req.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Photo not found")
		return
	}
	if err != nil {
		r.logger.Error("photo read failed", zap.String("key", key), zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to read photo")
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		r.logger.Debug("photo stream interrupted", zap.String("key", key), zap.Error(err))
	}
}

// hasUploadablePhoto reports whether any known role carries a payload.
func hasUploadablePhoto(photos map[media.Role]string) bool {
	for role, payload := range photos {
		if role.Valid() && strings.TrimSpace(payload) != "" {
			return true
		}
	}
	return false
}
