package handlers

import (
	"io"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/media"
	"github.com/xelth-com/protocolos/internal/services/report"
)

// protocolPDF renders the printable protocol with a QR short link.
func (r *Router) protocolPDF(w http.ResponseWriter, req *http.Request) {
	proto, ok := r.loadVisible(w, req)
	if !ok {
		return
	}

	var photos []report.Photo
	if r.photos != nil {
		urls := proto.Photos.Data()
		for _, role := range media.Roles {
			url := urls[string(role)]
			if url == "" {
				continue
			}
			if ph, ok := r.loadPhoto(req, proto.ID, string(role), url); ok {
				photos = append(photos, ph)
			}
		}
	}

	link := strings.TrimRight(r.publicURL, "/") + "/P/" + proto.Number
	data, err := report.ProtocolPDF(proto, photos, link, r.location)
	if err != nil {
		r.logger.Error("pdf render failed", zap.String("protocol", proto.Number), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+proto.Number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// loadPhoto reads one stored photo back. Object keys are <protocol>/<file>,
// the file being the last segment of the public URL.
func (r *Router) loadPhoto(req *http.Request, protocolID, role, url string) (report.Photo, bool) {
	key := protocolID + "/" + path.Base(url)
	rc, contentType, err := r.photos.Open(req.Context(), key)
	if err != nil {
		r.logger.Warn("photo unavailable for pdf", zap.String("key", key), zap.Error(err))
		return report.Photo{}, false
	}
	defer rc.Close()

	imgType := report.ImageType(contentType)
	if imgType == "" {
		return report.Photo{}, false
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		r.logger.Warn("photo read failed", zap.String("key", key), zap.Error(err))
		return report.Photo{}, false
	}
	return report.Photo{Role: role, Data: data, Type: imgType}, true
}
