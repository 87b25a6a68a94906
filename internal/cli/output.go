// Package cli formats query results for the partsearch command line.
package cli

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const descriptionWidth = 120

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResult writes one page of search results to w in the given format.
func WriteSearchResult(w io.Writer, result *models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, result)
	}
	p := result.Pagination
	fmt.Fprintf(w, "\nFound %d items in %dms (page %d of %d)\n", p.TotalItems, result.QueryTime, p.CurrentPage, p.TotalPages)
	if len(result.Params.ResolvedCategoryIDs) > 0 {
		fmt.Fprintf(w, "Categories: %s\n", joinIDs(result.Params.ResolvedCategoryIDs))
	}
	fmt.Fprintln(w)
	offset := (p.CurrentPage - 1) * p.PageSize
	for i, item := range result.Items {
		writeItem(w, offset+i+1, item)
	}
	if p.HasMore {
		fmt.Fprintf(w, "More results: --page %d\n", p.CurrentPage+1)
	}
	return nil
}

// WriteRecommendations writes one page of the recommendation feed to w.
func WriteRecommendations(w io.Writer, result *models.RecommendationResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, result)
	}
	p := result.Pagination
	fmt.Fprintf(w, "\nRecommendations: %d items in %dms (page %d of %d)\n", p.TotalItems, result.QueryTime, p.CurrentPage, p.TotalPages)
	fmt.Fprintf(w, "Weights: sales %.2f, freshness %.2f, margin %.2f\n",
		result.Params.SalesWeight, result.Params.FreshnessWeight, result.Params.MarginWeight)
	if result.Params.SalesDegraded {
		fmt.Fprintln(w, "Warning: sales history unavailable, ranked without sales")
	}
	fmt.Fprintln(w)
	offset := (p.CurrentPage - 1) * p.PageSize
	for i, item := range result.Items {
		writeItem(w, offset+i+1, item)
	}
	return nil
}

func writeItem(w io.Writer, rank int, item *models.ItemView) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d  %s  [%s]", rank, item.Name, item.SKU)
	switch {
	case item.RelevanceScore != nil:
		fmt.Fprintf(w, "  score %.4f", *item.RelevanceScore)
	case item.Recommendation != nil:
		r := item.Recommendation
		fmt.Fprintf(w, "  score %.4f (sold %d, %.1f days old, margin %.1f%%)",
			r.Score, r.SalesVolume, r.AgeDays, r.MarginPercent)
	}
	fmt.Fprintln(w)
	if item.SalePrice != nil {
		fmt.Fprintf(w, "Price: %.2f (sale %.2f)\n", item.Price, *item.SalePrice)
	} else {
		fmt.Fprintf(w, "Price: %.2f\n", item.Price)
	}
	if item.IsUniversal {
		fmt.Fprintln(w, "Fits: universal")
	} else if len(item.SupportedModels) > 0 {
		fmt.Fprintf(w, "Fits: %s\n", modelNames(item.SupportedModels))
	}
	if item.Description != "" {
		fmt.Fprintf(w, "%s\n", utils.Truncate(item.Description, descriptionWidth))
	}
	fmt.Fprintln(w)
}

// WriteStatus writes catalog counts and disk usage in text form.
func WriteStatus(w io.Writer, stats *models.CatalogStats, fullText bool, indexBytes, dbBytes int64) {
	fmt.Fprintf(w, "Items:          %d\n", stats.Items)
	fmt.Fprintf(w, "Categories:     %d\n", stats.Categories)
	fmt.Fprintf(w, "Manufacturers:  %d\n", stats.Manufacturers)
	fmt.Fprintf(w, "Vehicle models: %d\n", stats.VehicleModels)
	fmt.Fprintf(w, "Synonyms:       %d\n", stats.Synonyms)
	fmt.Fprintf(w, "Search logs:    %d\n", stats.SearchLogs)
	if fullText {
		fmt.Fprintf(w, "Full-text:      available (%s)\n", FormatBytes(indexBytes))
	} else {
		fmt.Fprintln(w, "Full-text:      not built (run `partsearch reindex`)")
	}
	fmt.Fprintf(w, "Database:       %s\n", FormatBytes(dbBytes))
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func modelNames(vms []*models.VehicleModel) string {
	names := make([]string, 0, len(vms))
	for _, vm := range vms {
		name := vm.ModelName
		if vm.ManufacturerName != "" {
			name = vm.ManufacturerName + " " + name
		}
		if vm.Variant != "" {
			name += " " + vm.Variant
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
