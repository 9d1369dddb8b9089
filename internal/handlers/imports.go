package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/ai"
	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/models"
)

// previewRecords caps the records echoed back by a dry run.
const previewRecords = 20

type importResponse struct {
	*importer.Report
	Message string `json:"message"`
	DryRun  bool   `json:"dryRun"`
	RunID   string `json:"runId,omitempty"`
}

type mappingErrorResponse struct {
	Error       string          `json:"error"`
	Missing     []string        `json:"missing"`
	Unmatched   []string        `json:"unmatchedHeaders"`
	Suggestions []ai.Suggestion `json:"suggestions,omitempty"`
}

var jobAliases = map[string]string{
	"pdv":      importer.PdvJob.Name,
	"produtos": importer.ProductJob.Name,
	"produto":  importer.ProductJob.Name,
}

// runImport accepts a multipart "file" upload and imports it into the PDV or
// product catalog. PDVs are replaced per unit; ?dry_run=true only parses.
func (r *Router) runImport(w http.ResponseWriter, req *http.Request) {
	if r.importer == nil {
		respondError(w, http.StatusServiceUnavailable, "Imports not configured")
		return
	}
	name := strings.ToLower(mux.Vars(req)["job"])
	if alias, ok := jobAliases[name]; ok {
		name = alias
	}
	job, ok := importer.Jobs[name]
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown import job "+name)
		return
	}

	p := principal(req)
	var target importer.RecordStore
	partition := ""
	switch job.Name {
	case importer.PdvJob.Name:
		partition = strings.TrimSpace(req.URL.Query().Get("unit"))
		if p.Role != models.RoleAdmin && p.Unit != "" {
			partition = p.Unit
		}
		if partition == "" {
			respondError(w, http.StatusBadRequest, "unit is required for PDV imports")
			return
		}
		if r.pdvs != nil {
			target = r.pdvs
		}
	case importer.ProductJob.Name:
		if r.products != nil {
			target = r.products
		}
	}
	if target == nil {
		respondError(w, http.StatusServiceUnavailable, "Import target not configured")
		return
	}
	dryRun, _ := strconv.ParseBool(req.URL.Query().Get("dry_run"))

	req.Body = http.MaxBytesReader(w, req.Body, r.maxFileBytes)
	if err := req.ParseMultipartForm(r.maxFileBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Expected multipart form with a file field")
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	grid, err := importer.ReadGrid(header.Filename, file)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := r.importer.ParseGrid(job, header.Filename, grid)
	if err != nil {
		var cfgErr *importer.ConfigError
		if errors.As(err, &cfgErr) {
			r.respondMappingError(w, req, job, grid, cfgErr)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if dryRun {
		report.Partition = partition
		if len(report.Records) > previewRecords {
			report.Records = report.Records[:previewRecords]
		}
	} else {
		r.importer.CommitReport(req.Context(), target, report, job, partition)
		report.Records = nil
		if !report.Commit.Success {
			status = http.StatusInternalServerError
			if report.Accepted == 0 {
				status = http.StatusUnprocessableEntity
			}
		}
	}

	out := importResponse{Report: report, Message: report.Summary(), DryRun: dryRun}
	if r.runs != nil {
		run, err := r.runs.Record(req.Context(), report, dryRun, p.Username)
		if err != nil {
			r.logger.Warn("import run not recorded", zap.String("job", job.Name), zap.Error(err))
		} else {
			out.RunID = run.ID
		}
	}
	respondJSON(w, status, out)
}

// respondMappingError answers 422 and, when an advisor is configured, asks it
// which unmatched headers could hold the missing fields.
func (r *Router) respondMappingError(w http.ResponseWriter, req *http.Request, job importer.Job, grid [][]string, cfgErr *importer.ConfigError) {
	out := mappingErrorResponse{
		Error:     cfgErr.Error(),
		Missing:   cfgErr.Missing,
		Unmatched: cfgErr.Headers,
	}
	if r.advisor != nil && len(cfgErr.Headers) > 0 {
		mapping := importer.BuildMapping(grid[0], r.importer.Synonyms())
		var mapped []string
		for _, field := range mapping.Columns() {
			mapped = append(mapped, field)
		}
		sort.Strings(mapped)

		sample := grid
		if len(sample) > 4 {
			sample = sample[:4]
		}
		suggestions, err := r.advisor.Suggest(req.Context(), job, cfgErr.Headers, mapped, sample)
		if err != nil {
			r.logger.Warn("header advisor failed", zap.String("job", job.Name), zap.Error(err))
		}
		out.Suggestions = suggestions
	}
	respondJSON(w, http.StatusUnprocessableEntity, out)
}

func (r *Router) listImportRuns(w http.ResponseWriter, req *http.Request) {
	if r.runs == nil {
		respondJSON(w, http.StatusOK, []models.ImportRun{})
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	runs, err := r.runs.List(req.Context(), req.URL.Query().Get("job"), limit)
	if err != nil {
		r.respondStoreError(w, err, "Import runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}
