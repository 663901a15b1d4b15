// Package server exposes the replication pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"lotcopy-backend/internal/assert"
	"lotcopy-backend/internal/components/telemetry"
	"lotcopy-backend/internal/credential"
	"lotcopy-backend/internal/fetcher"
	"lotcopy-backend/internal/journal"
	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/replicator"
)

const (
	report_server_copy_lots     = "server.copy-lots"
	report_server_subcategories = "server.user-subcategories"
	report_server_runs          = "server.runs"
	report_server_lots_by_user  = "server.lots-by-user"
	report_server_lots          = "server.lots"
)

type Replicator interface {
	Replicate(ctx context.Context, req replicator.Request) (replicator.BatchResult, error)
}

type SubcategoryResolver interface {
	Resolve(ctx context.Context, userID int64, explicit lots.SubcategoryID) ([]lots.SubcategoryID, error)
}

// Catalog reads lots without copying them.
type Catalog interface {
	FetchAllByUser(ctx context.Context, userID int64, sub lots.SubcategoryID) (fetcher.UserLots, error)
	FetchBySubcategory(ctx context.Context, sub lots.SubcategoryID) ([]lots.Listing, error)
}

type History interface {
	Runs(ctx context.Context, limit int) ([]journal.Run, error)
}

type Server struct {
	replicator Replicator
	resolver   SubcategoryResolver
	catalog    Catalog
	// history is nil when no journal is configured
	history History
	tel     telemetry.API
}

func New(rep Replicator, resolver SubcategoryResolver, catalog Catalog, history History, tel telemetry.API) Server {
	assert.NotNil(rep)
	assert.NotNil(resolver)
	assert.NotNil(catalog)
	assert.NotNil(tel)
	return Server{
		replicator: rep,
		resolver:   resolver,
		catalog:    catalog,
		history:    history,
		tel:        telemetry.NewScopedAPI("server", tel),
	}
}

func (s Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /copy-lots", s.copyLots)
	mux.HandleFunc("GET /user-subcategories/{userId}", s.userSubcategories)
	mux.HandleFunc("GET /lots-by-user/{userId}", s.lotsByUser)
	mux.HandleFunc("POST /get-lots-by-userid", s.lotsByUser)
	mux.HandleFunc("GET /lots/{subcategoryId}", s.publicLots)
	mux.HandleFunc("GET /runs", s.runs)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type copyLotsRequest struct {
	UserID      int64              `json:"user_id"`
	Subcategory lots.SubcategoryID `json:"subcategory_id"`
}

type failure struct {
	Subcategory lots.SubcategoryID `json:"subcategory_id"`
	ListingID   int64              `json:"listing_id,omitempty"`
	Stage       replicator.Stage   `json:"stage"`
	Error       string             `json:"error"`
}

type copyLotsResponse struct {
	RunID         string               `json:"run_id"`
	CopiedLots    []lots.Listing       `json:"copied_lots"`
	Total         int                  `json:"total"`
	NothingCopied bool                 `json:"nothing_copied"`
	Subcategories []lots.SubcategoryID `json:"subcategories"`
	Failures      []failure            `json:"failures"`
}

func toResponse(result replicator.BatchResult) copyLotsResponse {
	res := copyLotsResponse{
		RunID:         result.RunID,
		CopiedLots:    result.Copied,
		Total:         len(result.Copied),
		NothingCopied: result.NothingCopied(),
		Subcategories: result.Subcategories,
		Failures:      []failure{},
	}
	if res.CopiedLots == nil {
		res.CopiedLots = []lots.Listing{}
	}
	if res.Subcategories == nil {
		res.Subcategories = []lots.SubcategoryID{}
	}
	for _, o := range result.Failures() {
		res.Failures = append(res.Failures, failure{
			Subcategory: o.Subcategory,
			ListingID:   o.SourceListingID,
			Stage:       o.Stage,
			Error:       o.Err.Error(),
		})
	}
	return res
}

func (s Server) copyLots(w http.ResponseWriter, r *http.Request) {
	req := copyLotsRequest{Subcategory: lots.AllSubcategories}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("user_id must be a positive integer"))
		return
	}

	result, err := s.replicator.Replicate(r.Context(), replicator.Request{
		UserID:      req.UserID,
		Subcategory: req.Subcategory,
	})
	var authErr *credential.AuthError
	switch {
	case errors.As(err, &authErr):
		s.tel.ReportWarning(report_server_copy_lots, req.UserID, err)
		writeError(w, http.StatusBadGateway, err)
		return
	case err != nil:
		s.tel.ReportWarning(report_server_copy_lots, req.UserID, err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(result))
}

type subcategoriesResponse struct {
	UserID        int64                `json:"user_id"`
	Subcategories []lots.SubcategoryID `json:"subcategories"`
}

func (s Server) userSubcategories(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid user id %q", r.PathValue("userId")))
		return
	}
	subs, err := s.resolver.Resolve(r.Context(), userID, lots.AllSubcategories)
	if err != nil {
		s.tel.ReportWarning(report_server_subcategories, userID, err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if subs == nil {
		subs = []lots.SubcategoryID{}
	}
	writeJSON(w, http.StatusOK, subcategoriesResponse{UserID: userID, Subcategories: subs})
}

type lotsByUserRequest struct {
	UserID      int64              `json:"user_id"`
	Subcategory lots.SubcategoryID `json:"subcategory_id"`
}

type subcategoryFailure struct {
	Subcategory lots.SubcategoryID `json:"subcategory_id"`
	Error       string             `json:"error"`
}

type lotsByUserResponse struct {
	UserID        int64                `json:"user_id"`
	Subcategory   lots.SubcategoryID   `json:"subcategory_id"`
	Subcategories []lots.SubcategoryID `json:"subcategories"`
	Lots          []lots.Listing       `json:"lots"`
	Total         int                  `json:"total"`
	Failures      []subcategoryFailure `json:"failures"`
}

// readLotsByUser accepts the user in the path with an optional
// subcategory_id query, or a JSON body with both.
func readLotsByUser(r *http.Request) (lotsByUserRequest, error) {
	req := lotsByUserRequest{Subcategory: lots.AllSubcategories}
	if r.Method == http.MethodPost {
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
	} else {
		userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid user id %q", r.PathValue("userId"))
		}
		req.UserID = userID
		req.Subcategory, err = lots.ParseSubcategory(r.URL.Query().Get("subcategory_id"))
		if err != nil {
			return req, err
		}
	}
	if req.UserID <= 0 {
		return req, fmt.Errorf("user_id must be a positive integer")
	}
	return req, nil
}

func (s Server) lotsByUser(w http.ResponseWriter, r *http.Request) {
	req, err := readLotsByUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.catalog.FetchAllByUser(r.Context(), req.UserID, req.Subcategory)
	if err != nil {
		s.tel.ReportWarning(report_server_lots_by_user, req.UserID, err)
		status := http.StatusBadGateway
		if r.Context().Err() != nil {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}

	res := lotsByUserResponse{
		UserID:        req.UserID,
		Subcategory:   req.Subcategory,
		Subcategories: result.Subcategories,
		Lots:          result.Listings,
		Total:         len(result.Listings),
		Failures:      []subcategoryFailure{},
	}
	if res.Subcategories == nil {
		res.Subcategories = []lots.SubcategoryID{}
	}
	if res.Lots == nil {
		res.Lots = []lots.Listing{}
	}
	for _, failure := range result.Failures {
		res.Failures = append(res.Failures, subcategoryFailure{
			Subcategory: failure.Subcategory,
			Error:       failure.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s Server) publicLots(w http.ResponseWriter, r *http.Request) {
	sub, err := lots.ParseSubcategory(r.PathValue("subcategoryId"))
	if err != nil || !sub.Explicit() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid subcategory id %q", r.PathValue("subcategoryId")))
		return
	}
	listings, err := s.catalog.FetchBySubcategory(r.Context(), sub)
	if err != nil {
		s.tel.ReportWarning(report_server_lots, sub, err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if listings == nil {
		listings = []lots.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

type runResponse struct {
	ID          string             `json:"id"`
	UserID      int64              `json:"user_id"`
	Subcategory lots.SubcategoryID `json:"subcategory_id"`
	StartedAt   string             `json:"started_at"`
	FinishedAt  string             `json:"finished_at"`
	Copied      int                `json:"copied"`
	Failed      int                `json:"failed"`
	Error       string             `json:"error,omitempty"`
}

func (s Server) runs(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no journal is configured"))
		return
	}
	limit := 20
	if text := r.URL.Query().Get("limit"); text != "" {
		parsed, err := strconv.Atoi(text)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", text))
			return
		}
		limit = parsed
	}

	runs, err := s.history.Runs(r.Context(), limit)
	if err != nil {
		s.tel.ReportBroken(report_server_runs, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runResponse{
			ID:          run.ID,
			UserID:      run.UserID,
			Subcategory: run.Subcategory,
			StartedAt:   run.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			FinishedAt:  run.FinishedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			Copied:      run.Copied,
			Failed:      run.Failed,
			Error:       run.Error,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
