package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/middleware"
	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/notify"
	"github.com/xelth-com/protocolos/internal/store"
	"github.com/xelth-com/protocolos/internal/websocket"
)

var errLocked = errors.New("protocol locked")

type protocolRequest struct {
	UnitCode    string   `json:"unitCode"`
	PdvCode     string   `json:"pdvCode"`
	PdvName     string   `json:"pdvName"`
	Reason      string   `json:"reason"`
	ProductCode string   `json:"productCode"`
	ProductName string   `json:"productName"`
	Quantity    *float64 `json:"quantity"`
	Notes       *string  `json:"notes"`
}

// canSee: admins see everything, staff their unit, drivers their own protocols.
func canSee(p middleware.Principal, proto *models.Protocol) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStaff:
		return p.Unit == "" || p.Unit == proto.UnitCode
	default:
		return proto.DriverID == p.ID
	}
}

func (r *Router) listProtocols(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := store.ProtocolFilter{
		Status:   q.Get("status"),
		UnitCode: q.Get("unit"),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	p := principal(req)
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleStaff:
		if p.Unit != "" {
			f.UnitCode = p.Unit
		}
	default:
		f.DriverID = p.ID
	}

	protocols, err := r.protocols.List(req.Context(), f)
	if err != nil {
		r.respondStoreError(w, err, "Protocols")
		return
	}
	respondJSON(w, http.StatusOK, protocols)
}

func (r *Router) createProtocol(w http.ResponseWriter, req *http.Request) {
	var body protocolRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	p := principal(req)

	unit := strings.TrimSpace(body.UnitCode)
	if p.Role == models.RoleDriver || unit == "" {
		unit = p.Unit
	}
	switch {
	case unit == "":
		respondError(w, http.StatusBadRequest, "unitCode is required")
		return
	case !models.ValidReason(body.Reason):
		respondError(w, http.StatusBadRequest, "reason must be one of "+strings.Join(models.Reasons, ", "))
		return
	case strings.TrimSpace(body.PdvCode) == "" && strings.TrimSpace(body.PdvName) == "":
		respondError(w, http.StatusBadRequest, "pdvCode or pdvName is required")
		return
	}

	driverName := p.Name
	if driverName == "" {
		driverName = p.Username
	}
	proto := &models.Protocol{
		UnitCode:    unit,
		PdvCode:     strings.TrimSpace(body.PdvCode),
		PdvName:     strings.TrimSpace(body.PdvName),
		DriverID:    p.ID,
		DriverName:  driverName,
		Reason:      body.Reason,
		ProductCode: strings.TrimSpace(body.ProductCode),
		ProductName: strings.TrimSpace(body.ProductName),
	}
	if body.Quantity != nil {
		proto.Quantity = *body.Quantity
	}
	if body.Notes != nil {
		proto.Notes = *body.Notes
	}
	proto.CreatedAt = r.now().UTC()

	if err := r.protocols.Create(req.Context(), proto); err != nil {
		r.respondStoreError(w, err, "Protocol")
		return
	}
	r.protocolChanged(req.Context(), proto, notify.KindProtocolCreated, driverName)
	respondJSON(w, http.StatusCreated, proto)
}

// loadVisible fetches the {id} protocol and answers 404 when the caller may
// not see it.
func (r *Router) loadVisible(w http.ResponseWriter, req *http.Request) (*models.Protocol, bool) {
	proto, err := r.protocols.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "Protocol")
		return nil, false
	}
	if !canSee(principal(req), proto) {
		respondError(w, http.StatusNotFound, "Protocol not found")
		return nil, false
	}
	return proto, true
}

func (r *Router) getProtocol(w http.ResponseWriter, req *http.Request) {
	if proto, ok := r.loadVisible(w, req); ok {
		respondJSON(w, http.StatusOK, proto)
	}
}

// updateProtocol edits the descriptive fields of a protocol that is not
// closed. Drivers may only edit their own protocols while still open.
func (r *Router) updateProtocol(w http.ResponseWriter, req *http.Request) {
	var body protocolRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.Reason != "" && !models.ValidReason(body.Reason) {
		respondError(w, http.StatusBadRequest, "reason must be one of "+strings.Join(models.Reasons, ", "))
		return
	}
	p := principal(req)

	proto, err := r.protocols.Update(req.Context(), mux.Vars(req)["id"], func(proto *models.Protocol) error {
		if !canSee(p, proto) {
			return store.ErrNotFound
		}
		if proto.Status == models.StatusClosed || (p.Role == models.RoleDriver && proto.Status != models.StatusOpen) {
			return errLocked
		}
		if body.Reason != "" {
			proto.Reason = body.Reason
		}
		if body.ProductCode != "" {
			proto.ProductCode = body.ProductCode
		}
		if body.ProductName != "" {
			proto.ProductName = body.ProductName
		}
		if body.Quantity != nil {
			proto.Quantity = *body.Quantity
		}
		if body.Notes != nil {
			proto.Notes = *body.Notes
		}
		return nil
	})
	if errors.Is(err, errLocked) {
		respondError(w, http.StatusConflict, "Protocol can no longer be edited")
		return
	}
	if err != nil {
		r.respondStoreError(w, err, "Protocol")
		return
	}
	r.broadcast(proto)
	respondJSON(w, http.StatusOK, proto)
}

func (r *Router) validateProtocol(w http.ResponseWriter, req *http.Request) {
	r.transition(w, req, models.StatusInProgress)
}

func (r *Router) closeProtocol(w http.ResponseWriter, req *http.Request) {
	r.transition(w, req, models.StatusClosed)
}

func (r *Router) transition(w http.ResponseWriter, req *http.Request, to string) {
	p := principal(req)
	actor := p.Name
	if actor == "" {
		actor = p.Username
	}

	proto, err := r.protocols.Update(req.Context(), mux.Vars(req)["id"], func(proto *models.Protocol) error {
		if !canSee(p, proto) {
			return store.ErrNotFound
		}
		return proto.Transition(to, actor, r.now().UTC())
	})
	if err != nil {
		r.respondStoreError(w, err, "Protocol")
		return
	}
	r.protocolChanged(req.Context(), proto, notify.KindProtocolStatus, actor)
	respondJSON(w, http.StatusOK, proto)
}

func (r *Router) deleteProtocol(w http.ResponseWriter, req *http.Request) {
	if err := r.protocols.Delete(req.Context(), mux.Vars(req)["id"]); err != nil {
		r.respondStoreError(w, err, "Protocol")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// shortLink resolves the QR code printed on protocol PDFs.
func (r *Router) shortLink(w http.ResponseWriter, req *http.Request) {
	number := strings.ToUpper(mux.Vars(req)["number"])
	proto, err := r.protocols.GetByNumber(req.Context(), number)
	if err != nil {
		r.respondStoreError(w, err, "Protocol")
		return
	}
	http.Redirect(w, req, strings.TrimRight(r.publicURL, "/")+"/protocolos/"+proto.ID, http.StatusFound)
}

// protocolChanged pushes the new state to websocket rooms and notification
// sinks. Delivery failures are logged, never returned to the caller.
func (r *Router) protocolChanged(ctx context.Context, proto *models.Protocol, kind, actor string) {
	r.broadcast(proto)
	if r.notifier == nil {
		return
	}
	err := r.notifier.Notify(ctx, notify.Notification{
		Kind:       kind,
		ProtocolID: proto.ID,
		Number:     proto.Number,
		UnitCode:   proto.UnitCode,
		PdvName:    proto.PdvName,
		Reason:     proto.Reason,
		Status:     proto.Status,
		Actor:      actor,
		At:         r.now().UTC(),
	})
	if err != nil {
		r.logger.Warn("notification failed", zap.String("protocol", proto.Number), zap.String("kind", kind), zap.Error(err))
	}
}

func (r *Router) broadcast(proto *models.Protocol) {
	if r.hub == nil {
		return
	}
	msg := websocket.Message{Type: websocket.TypeProtocolUpdate, Data: proto}
	r.hub.Publish(websocket.ProtocolRoom(proto.ID), msg)
	r.hub.Publish(websocket.UnitRoom(proto.UnitCode), msg)
}
