package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/search"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/storage"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/validation"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success              bool                         `json:"success"`
	Message              string                       `json:"message,omitempty"`
	Data                 interface{}                  `json:"data,omitempty"`
	Pagination           *models.Pagination           `json:"pagination,omitempty"`
	SearchParams         *models.SearchParams         `json:"search_params,omitempty"`
	FilterInfo           *models.SearchParams         `json:"filter_info,omitempty"`
	RecommendationParams *models.RecommendationParams `json:"recommendation_params,omitempty"`
	QueryTime            int64                        `json:"query_time_ms,omitempty"`
	Errors               []validation.FieldError      `json:"errors,omitempty"`
	Hint                 string                       `json:"hint,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r, s.config.Search.DefaultPageSize)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.Int("page", query.Page),
		zap.Int("page_size", query.PageSize),
	)
	result, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}

	env := &Envelope{
		Success:    true,
		Data:       result.Items,
		Pagination: &result.Pagination,
		QueryTime:  result.QueryTime,
	}
	if result.Params.Query != "" {
		env.SearchParams = &result.Params
	} else {
		env.FilterInfo = &result.Params
	}
	if len(result.Items) == 0 {
		env.Message = "No items found"
	}
	s.respondJSON(w, http.StatusOK, env)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &models.RecommendQuery{Page: 1, PageSize: s.config.Search.DefaultPageSize}
	var err error
	if query.Page, err = intParam(q.Get("page"), "page", query.Page); err != nil {
		s.respondQueryError(w, err)
		return
	}
	if query.PageSize, err = intParam(q.Get("page_size"), "page_size", query.PageSize); err != nil {
		s.respondQueryError(w, err)
		return
	}

	result, err := s.engine.Recommend(r.Context(), query)
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	env := &Envelope{
		Success:              true,
		Data:                 result.Items,
		Pagination:           &result.Pagination,
		RecommendationParams: &result.Params,
		QueryTime:            result.QueryTime,
	}
	if result.Params.SalesDegraded {
		env.Message = "Sales history unavailable; ranked without sales"
	}
	s.respondJSON(w, http.StatusOK, env)
}

type invalidateResponse struct {
	Invalidated []string `json:"invalidated"`
}

func (s *Server) handleInvalidateCaches(w http.ResponseWriter, r *http.Request) {
	names := r.URL.Query()["cache"]
	if len(names) == 0 {
		for name := range s.caches {
			names = append(names, name)
		}
	}
	for _, name := range names {
		if _, ok := s.caches[name]; !ok {
			s.respondError(w, http.StatusBadRequest, "unknown cache: "+name)
			return
		}
	}
	sort.Strings(names)
	for _, name := range names {
		s.caches[name].Invalidate()
	}
	s.logger.Info("Caches invalidated", zap.Strings("caches", names))
	s.respondJSON(w, http.StatusOK, &Envelope{
		Success: true,
		Message: "Caches invalidated",
		Data:    invalidateResponse{Invalidated: names},
	})
}

// StatusResponse is the data of the status endpoint.
type StatusResponse struct {
	Catalog           *models.CatalogStats  `json:"catalog"`
	FullTextAvailable bool                  `json:"full_text_available"`
	DiskUsage         *storage.DiskUsage    `json:"disk_usage,omitempty"`
	Caches            map[string]*time.Time `json:"caches"`
	Config            map[string]any        `json:"config"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: catalog stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	resp := &StatusResponse{
		Catalog:           stats,
		FullTextAvailable: s.engine.FullTextAvailable(),
		Caches:            make(map[string]*time.Time, len(s.caches)),
		Config: map[string]any{
			"database_path":      s.config.Storage.DatabasePath,
			"bleve_index_path":   s.config.Storage.BleveIndexPath,
			"default_page_size":  s.config.Search.DefaultPageSize,
			"synonym_min_weight": s.config.Search.SynonymMinWeight,
			"fuzzy_max_distance": s.config.Search.FuzzyMaxDistance,
		},
	}
	for name, c := range s.caches {
		if built := c.BuiltAt(); !built.IsZero() {
			resp.Caches[name] = &built
		} else {
			resp.Caches[name] = nil
		}
	}
	if usage, err := storage.MeasureDiskUsage(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath); err == nil {
		resp.DiskUsage = usage
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, &Envelope{Success: true, Data: resp})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondQueryError maps engine and parse errors to status codes. Details of
// unexpected errors stay in the log.
func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	var ve *validation.RequestValidationError
	var fe *search.FeatureUnavailableError
	switch {
	case errors.As(err, &ve):
		s.respondJSON(w, http.StatusBadRequest, &Envelope{
			Success: false,
			Message: ve.Error(),
			Errors:  ve.Fields(),
		})
	case errors.As(err, &fe):
		s.respondJSON(w, http.StatusServiceUnavailable, &Envelope{
			Success: false,
			Message: fe.Feature + " is not available",
			Hint:    fe.Hint,
		})
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, &Envelope{Success: false, Message: message})
}

// parseSearchQuery reads the search parameters from the query string.
// Values that are not integers fail as validation errors.
func parseSearchQuery(r *http.Request, defaultPageSize int) (*models.SearchQuery, error) {
	q := r.URL.Query()
	query := &models.SearchQuery{
		Query:    q.Get("q"),
		Sort:     models.SortMode(q.Get("sort")),
		Page:     1,
		PageSize: defaultPageSize,
	}
	var err error
	if query.Page, err = intParam(q.Get("page"), "page", query.Page); err != nil {
		return nil, err
	}
	if query.PageSize, err = intParam(q.Get("page_size"), "page_size", query.PageSize); err != nil {
		return nil, err
	}
	if query.ManufacturerID, err = idParam(q.Get("manufacturer_id"), "manufacturer_id"); err != nil {
		return nil, err
	}
	if query.CategoryID, err = idParam(q.Get("category_id"), "category_id"); err != nil {
		return nil, err
	}

	var raw []string
	raw = append(raw, q["model_id"]...)
	for _, list := range q["model_ids"] {
		raw = append(raw, strings.Split(list, ",")...)
	}
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, validation.NewRequestValidationError("model_ids", "numeric", "model_ids must be a comma-separated list of integers")
		}
		query.ModelIDs = append(query.ModelIDs, id)
	}
	return query, nil
}

func intParam(raw, field string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewRequestValidationError(field, "numeric", field+" must be an integer")
	}
	return v, nil
}

func idParam(raw, field string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, validation.NewRequestValidationError(field, "numeric", field+" must be an integer")
	}
	return v, nil
}
