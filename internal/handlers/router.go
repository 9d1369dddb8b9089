package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/ai"
	"github.com/xelth-com/protocolos/internal/blob"
	"github.com/xelth-com/protocolos/internal/buildinfo"
	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/media"
	"github.com/xelth-com/protocolos/internal/middleware"
	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/notify"
	"github.com/xelth-com/protocolos/internal/store"
	"github.com/xelth-com/protocolos/internal/websocket"
)

// ProtocolRepo is the protocol persistence used by the API.
type ProtocolRepo interface {
	Create(ctx context.Context, p *models.Protocol) error
	Get(ctx context.Context, id string) (*models.Protocol, error)
	GetByNumber(ctx context.Context, number string) (*models.Protocol, error)
	List(ctx context.Context, f store.ProtocolFilter) ([]models.Protocol, error)
	Update(ctx context.Context, id string, fn func(*models.Protocol) error) (*models.Protocol, error)
	Delete(ctx context.Context, id string) error
}

// UserRepo is the account persistence used by auth and admin routes.
type UserRepo interface {
	FindByUsername(ctx context.Context, username string) (*models.UserAuth, error)
	Get(ctx context.Context, id string) (*models.UserAuth, error)
	List(ctx context.Context) ([]models.UserAuth, error)
	Create(ctx context.Context, u *models.UserAuth) error
	Save(ctx context.Context, u *models.UserAuth) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	RecordFailedLogin(ctx context.Context, id string) error
}

// PdvCatalog is the PDV import target and lookup.
type PdvCatalog interface {
	importer.RecordStore
	List(ctx context.Context, unit, q string, limit int) ([]models.Pdv, error)
}

// ProductCatalog is the product import target and lookup.
type ProductCatalog interface {
	importer.RecordStore
	Search(ctx context.Context, q string, limit int) ([]models.Product, error)
}

// ImportHistory records import runs.
type ImportHistory interface {
	Record(ctx context.Context, report *importer.Report, dryRun bool, createdBy string) (*models.ImportRun, error)
	List(ctx context.Context, job string, limit int) ([]models.ImportRun, error)
}

// PhotoUploader fans photo payloads out to blob storage.
type PhotoUploader interface {
	UploadAll(ctx context.Context, ownerID string, payloads map[media.Role]string, listener media.Listener) media.Result
}

// Broadcaster pushes realtime messages to websocket rooms.
type Broadcaster interface {
	Publish(room string, msg websocket.Message) int
	ProgressListener(protocolID string) media.Listener
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// Notifier delivers protocol notifications.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// HeaderAdvisor suggests mappings for headers the synonym table missed.
type HeaderAdvisor interface {
	Suggest(ctx context.Context, job importer.Job, unmatched, mapped []string, sample [][]string) ([]ai.Suggestion, error)
}

// Router wraps the mux router and the services behind each route group.
type Router struct {
	*mux.Router
	secret    string
	publicURL string
	logger    *zap.Logger
	now       func() time.Time

	protocols ProtocolRepo
	users     UserRepo

	importer      *importer.Importer
	pdvs          PdvCatalog
	products      ProductCatalog
	runs          ImportHistory
	maxFileBytes  int64
	advisor       HeaderAdvisor
	uploader      PhotoUploader
	photos        blob.Opener
	hub           Broadcaster
	notifier      Notifier
	location      *time.Location
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(secret, publicURL string, protocols ProtocolRepo, users UserRepo, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		Router:       mux.NewRouter(),
		secret:       secret,
		publicURL:    publicURL,
		logger:       logger,
		now:          time.Now,
		protocols:    protocols,
		users:        users,
		maxFileBytes: 20 << 20,
		location:     time.UTC,
	}

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/p/{number}", r.shortLink).Methods("GET")

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/refresh", r.refresh).Methods("POST")

	// Photos are linked from <img> tags and cannot carry a bearer token;
	// object keys are unguessable.
	r.HandleFunc("/api/photos/{key:.+}", r.photoProxy).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(secret))
	api.HandleFunc("/me", r.me).Methods("GET")
	api.HandleFunc("/ws", r.serveWs).Methods("GET")

	staff := middleware.RequireRole(models.RoleStaff, models.RoleAdmin)
	admin := middleware.RequireRole(models.RoleAdmin)

	api.HandleFunc("/protocolos", r.listProtocols).Methods("GET")
	api.HandleFunc("/protocolos", r.createProtocol).Methods("POST")
	api.HandleFunc("/protocolos/{id}", r.getProtocol).Methods("GET")
	api.HandleFunc("/protocolos/{id}", r.updateProtocol).Methods("PATCH")
	api.Handle("/protocolos/{id}", admin(http.HandlerFunc(r.deleteProtocol))).Methods("DELETE")
	api.Handle("/protocolos/{id}/validate", staff(http.HandlerFunc(r.validateProtocol))).Methods("POST")
	api.Handle("/protocolos/{id}/close", staff(http.HandlerFunc(r.closeProtocol))).Methods("POST")
	api.HandleFunc("/protocolos/{id}/photos", r.uploadPhotos).Methods("POST")
	api.HandleFunc("/protocolos/{id}/pdf", r.protocolPDF).Methods("GET")

	api.HandleFunc("/pdvs", r.listPdvs).Methods("GET")
	api.HandleFunc("/produtos", r.listProducts).Methods("GET")

	api.Handle("/import/{job}", staff(http.HandlerFunc(r.runImport))).Methods("POST")
	api.Handle("/import-runs", staff(http.HandlerFunc(r.listImportRuns))).Methods("GET")

	api.Handle("/admin/users", admin(http.HandlerFunc(r.listUsers))).Methods("GET")
	api.Handle("/admin/users", admin(http.HandlerFunc(r.createUser))).Methods("POST")
	api.Handle("/admin/users/{id}", admin(http.HandlerFunc(r.updateUser))).Methods("PATCH")

	return r
}

// SetImporter wires spreadsheet imports.
func (r *Router) SetImporter(imp *importer.Importer, pdvs PdvCatalog, products ProductCatalog, runs ImportHistory, maxFileBytes int64) {
	r.importer, r.pdvs, r.products, r.runs = imp, pdvs, products, runs
	if maxFileBytes > 0 {
		r.maxFileBytes = maxFileBytes
	}
}

// SetAdvisor enables AI header suggestions on failed imports.
func (r *Router) SetAdvisor(a HeaderAdvisor) { r.advisor = a }

// SetPhotos wires photo upload and the photo proxy.
func (r *Router) SetPhotos(uploader PhotoUploader, opener blob.Opener) {
	r.uploader, r.photos = uploader, opener
}

// SetHub wires realtime progress and protocol updates.
func (r *Router) SetHub(hub Broadcaster) { r.hub = hub }

// SetNotifier wires external notifications.
func (r *Router) SetNotifier(n Notifier) { r.notifier = n }

// SetLocation sets the time zone used in rendered documents.
func (r *Router) SetLocation(loc *time.Location) {
	if loc != nil {
		r.location = loc
	}
}

// Handler returns the router with path case folding applied, so upper-case
// QR short links resolve.
func (r *Router) Handler() http.Handler {
	return middleware.CaseInsensitive(r.Router)
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   buildinfo.Version,
		"commit":    buildinfo.Commit,
		"startedAt": buildinfo.StartTime,
	})
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	if r.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Realtime updates not configured")
		return
	}
	r.hub.ServeWs(w, req)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondStoreError maps repository errors onto HTTP statuses.
func (r *Router) respondStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, models.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	default:
		r.logger.Error("store failure", zap.String("entity", what), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to access "+what)
	}
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func principal(req *http.Request) middleware.Principal {
	p, _ := middleware.CurrentUser(req.Context())
	return p
}
