package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/server"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// apiEnvelope mirrors server.Envelope with the data left undecoded.
type apiEnvelope struct {
	Success              bool                         `json:"success"`
	Message              string                       `json:"message"`
	Data                 json.RawMessage              `json:"data"`
	Pagination           *models.Pagination           `json:"pagination"`
	SearchParams         *models.SearchParams         `json:"search_params"`
	FilterInfo           *models.SearchParams         `json:"filter_info"`
	RecommendationParams *models.RecommendationParams `json:"recommendation_params"`
	QueryTime            int64                        `json:"query_time_ms"`
	Hint                 string                       `json:"hint"`
}

// searchValues encodes query as the search endpoint's query string.
func searchValues(query *models.SearchQuery) url.Values {
	v := url.Values{}
	if query.Query != "" {
		v.Set("q", query.Query)
	}
	if query.ManufacturerID != 0 {
		v.Set("manufacturer_id", strconv.FormatInt(query.ManufacturerID, 10))
	}
	if query.CategoryID != 0 {
		v.Set("category_id", strconv.FormatInt(query.CategoryID, 10))
	}
	if len(query.ModelIDs) > 0 {
		ids := make([]string, len(query.ModelIDs))
		for i, id := range query.ModelIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		v.Set("model_ids", strings.Join(ids, ","))
	}
	if query.Sort != "" {
		v.Set("sort", string(query.Sort))
	}
	if query.Page > 0 {
		v.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(query.PageSize))
	}
	return v
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResult, error) {
	env, err := getEnvelope(serverURL + "/api/v1/search?" + searchValues(query).Encode())
	if err != nil {
		return nil, err
	}
	result := &models.SearchResult{QueryTime: env.QueryTime}
	if err := decodeData(env, &result.Items); err != nil {
		return nil, err
	}
	if env.Pagination != nil {
		result.Pagination = *env.Pagination
	}
	if env.SearchParams != nil {
		result.Params = *env.SearchParams
	} else if env.FilterInfo != nil {
		result.Params = *env.FilterInfo
	}
	return result, nil
}

func recommendViaHTTP(serverURL string, page, pageSize int) (*models.RecommendationResult, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("page_size", strconv.Itoa(pageSize))
	env, err := getEnvelope(serverURL + "/api/v1/recommendations?" + v.Encode())
	if err != nil {
		return nil, err
	}
	result := &models.RecommendationResult{QueryTime: env.QueryTime}
	if err := decodeData(env, &result.Items); err != nil {
		return nil, err
	}
	if env.Pagination != nil {
		result.Pagination = *env.Pagination
	}
	if env.RecommendationParams != nil {
		result.Params = *env.RecommendationParams
	}
	return result, nil
}

func statusViaHTTP(serverURL string) (*server.StatusResponse, error) {
	env, err := getEnvelope(serverURL + "/api/v1/status")
	if err != nil {
		return nil, err
	}
	var status server.StatusResponse
	if err := decodeData(env, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func invalidateViaHTTP(serverURL string, caches ...string) error {
	v := url.Values{}
	for _, c := range caches {
		v.Add("cache", c)
	}
	resp, err := httpClient.Post(serverURL+"/api/v1/admin/caches/invalidate?"+v.Encode(), "application/json", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// getEnvelope fetches endpoint and decodes the envelope. Error envelopes become
// errors carrying the server's message and hint.
func getEnvelope(endpoint string) (*apiEnvelope, error) {
	resp, err := httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := fmt.Sprintf("server returned %d: %s", resp.StatusCode, env.Message)
		if env.Hint != "" {
			msg += " (" + env.Hint + ")"
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return &env, nil
}

func decodeData(env *apiEnvelope, v interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
