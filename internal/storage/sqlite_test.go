package storage

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func floatPtr(v float64) *float64 { return &v }

func int64Ptr(v int64) *int64 { return &v }

// seedCatalog builds:
//
//	manufacturers: 1 Toyota, 2 Bosch
//	models: 10 Corolla (Toyota, variant "GR Sport"), 11 Hilux (Toyota)
//	categories: 100 Brakes > 101 Pads, 102 Fluids
//	items: 1 Brake Pad Set (Corolla, Pads), 2 Brake Fluid (universal, Fluids),
//	       3 Clutch Kit (Hilux), 4 Oil_Filter 50% (no links)
func seedCatalog(t *testing.T, s *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()
	for _, m := range []*models.Manufacturer{{ID: 1, Name: "Toyota"}, {ID: 2, Name: "Bosch"}} {
		if err := s.CreateManufacturer(ctx, m); err != nil {
			t.Fatal(err)
		}
	}
	for _, vm := range []*models.VehicleModel{
		{ID: 10, ManufacturerID: 1, ModelName: "Corolla", Variant: "GR Sport"},
		{ID: 11, ManufacturerID: 1, ModelName: "Hilux"},
	} {
		if err := s.CreateVehicleModel(ctx, vm); err != nil {
			t.Fatal(err)
		}
	}
	for _, c := range []*models.Category{
		{ID: 100, Name: "Brakes"},
		{ID: 101, ParentID: int64Ptr(100), Name: "Pads"},
		{ID: 102, ParentID: int64Ptr(100), Name: "Fluids"},
	} {
		if err := s.CreateCategory(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []struct {
		item  *models.Item
		links *ItemLinks
	}{
		{&models.Item{ID: 1, Name: "Brake Pad Set", Description: "Front ceramic pads", SKU: "BP-1", Price: 50, CostPrice: floatPtr(25), CreatedAt: created},
			&ItemLinks{CategoryIDs: []int64{101}, ModelIDs: []int64{10}, Images: []*models.Image{
				{URL: "https://cdn.example/bp-side.jpg", SortOrder: 2},
				{URL: "https://cdn.example/bp.jpg", IsPrimary: true, SortOrder: 1},
			}}},
		{&models.Item{ID: 2, Name: "Brake Fluid", Description: "DOT 4", SKU: "BF-1", IsUniversal: true, Price: 12, SalePrice: floatPtr(10), CreatedAt: created},
			&ItemLinks{CategoryIDs: []int64{102}}},
		{&models.Item{ID: 3, Name: "Clutch Kit", Description: "Complete kit", SKU: "CK-1", Price: 200, CreatedAt: created},
			&ItemLinks{ModelIDs: []int64{11}}},
		{&models.Item{ID: 4, Name: "Oil_Filter 50%", Description: "", SKU: "OF-1", Price: 8, CreatedAt: created}, nil},
	}
	for _, it := range items {
		if err := s.CreateItem(ctx, it.item, it.links); err != nil {
			t.Fatal(err)
		}
	}
}

func candidateIDs(docs []*models.ItemDocument) []int64 {
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSQLiteStorage_SchemaVersion(t *testing.T) {
	store := newTestStorage(t)
	version, dirty, err := store.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 || dirty {
		t.Errorf("SchemaVersion() = (%d, %v), want (2, false)", version, dirty)
	}
}

func TestSQLiteStorage_FindCandidates(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter *CandidateFilter
		want   []int64
	}{
		{"no filter returns everything", &CandidateFilter{}, []int64{1, 2, 3, 4}},
		{"token in name", &CandidateFilter{Tokens: []string{"brake"}}, []int64{1, 2}},
		{"case insensitive", &CandidateFilter{Tokens: []string{"BRAKE"}}, []int64{1, 2}},
		{"token in description", &CandidateFilter{Tokens: []string{"ceramic"}}, []int64{1}},
		{"token in manufacturer name", &CandidateFilter{Tokens: []string{"toyota"}}, []int64{1, 3}},
		{"token in model name", &CandidateFilter{Tokens: []string{"hilux"}}, []int64{3}},
		{"token in variant", &CandidateFilter{Tokens: []string{"sport"}}, []int64{1}},
		{"every token must match", &CandidateFilter{Tokens: []string{"brake", "corolla"}}, []int64{1}},
		{"no match", &CandidateFilter{Tokens: []string{"turbo"}}, nil},
		{"like wildcards are literal", &CandidateFilter{Tokens: []string{"50%"}}, []int64{4}},
		{"underscore is literal", &CandidateFilter{Tokens: []string{"l_f"}}, []int64{4}},
		{"percent alone matches only literal percent", &CandidateFilter{Tokens: []string{"%"}}, []int64{4}},
		{"manufacturer filter keeps universal items", &CandidateFilter{ManufacturerID: 1}, []int64{1, 2, 3}},
		{"manufacturer without models keeps only universal", &CandidateFilter{ManufacturerID: 2}, []int64{2}},
		{"category filter", &CandidateFilter{CategoryIDs: []int64{101, 102}}, []int64{1, 2}},
		{"category filter exact", &CandidateFilter{CategoryIDs: []int64{100}}, nil},
		{"model filter", &CandidateFilter{ModelIDs: []int64{11}}, []int64{3}},
		{"combined", &CandidateFilter{Tokens: []string{"brake"}, ManufacturerID: 1, CategoryIDs: []int64{102}}, []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := store.FindCandidates(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if got := candidateIDs(docs); !equalIDs(got, tt.want) {
				t.Errorf("FindCandidates() ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSQLiteStorage_FindCandidatesFoldsNonASCII(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	if err := store.CreateManufacturer(ctx, &models.Manufacturer{ID: 1, Name: "ŠKODA"}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateVehicleModel(ctx, &models.VehicleModel{ID: 10, ManufacturerID: 1, ModelName: "Fabia", Variant: "ÉLAN"}); err != nil {
		t.Fatal(err)
	}
	for _, it := range []struct {
		item  *models.Item
		links *ItemLinks
	}{
		{&models.Item{ID: 1, Name: "PASTILHA DE TRAVÃO", SKU: "PT-1", Price: 30}, &ItemLinks{ModelIDs: []int64{10}}},
		{&models.Item{ID: 2, Name: "Ölfilter", Description: "FÜR DIESELMOTOREN", SKU: "OF-1", Price: 12}, nil},
	} {
		if err := store.CreateItem(ctx, it.item, it.links); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		token string
		want  []int64
	}{
		{"travão", []int64{1}},
		{"TRAVÃO", []int64{1}},
		{"ölfilter", []int64{2}},
		{"Ölfilter", []int64{2}},
		{"für", []int64{2}},
		{"škoda", []int64{1}},
		{"élan", []int64{1}},
		{"travao", nil},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			docs, err := store.FindCandidates(ctx, &CandidateFilter{Tokens: []string{tt.token}})
			if err != nil {
				t.Fatal(err)
			}
			if got := candidateIDs(docs); !equalIDs(got, tt.want) {
				t.Errorf("FindCandidates(%q) ids = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestSQLiteStorage_FindCandidatesTexts(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	docs, err := store.FindCandidates(context.Background(), &CandidateFilter{Tokens: []string{"pad"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	d := docs[0]
	if d.ManufacturerText() != "toyota" {
		t.Errorf("ManufacturerText() = %q", d.ManufacturerText())
	}
	if d.ModelText() != "corolla gr sport" {
		t.Errorf("ModelText() = %q", d.ModelText())
	}
	if d.CostPrice == nil || *d.CostPrice != 25 {
		t.Errorf("CostPrice = %v", d.CostPrice)
	}
	if d.SalePrice != nil {
		t.Errorf("SalePrice = %v, want nil", *d.SalePrice)
	}
	if !d.CreatedAt.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", d.CreatedAt)
	}
}

func TestSQLiteStorage_LoadRelations(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)

	rel, err := store.LoadRelations(context.Background(), []int64{1, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(rel) != 2 {
		t.Fatalf("got %d relation entries, want 2", len(rel))
	}
	r1 := rel[1]
	if len(r1.Models) != 1 || r1.Models[0].ModelName != "Corolla" || r1.Models[0].ManufacturerName != "Toyota" {
		t.Errorf("models = %+v", r1.Models)
	}
	if len(r1.Categories) != 1 || r1.Categories[0].ID != 101 || r1.Categories[0].ParentID == nil {
		t.Errorf("categories = %+v", r1.Categories)
	}
	if r1.PrimaryImage == nil || r1.PrimaryImage.URL != "https://cdn.example/bp.jpg" {
		t.Errorf("primary image = %+v", r1.PrimaryImage)
	}
	if r4 := rel[4]; len(r4.Models) != 0 || len(r4.Categories) != 0 || r4.PrimaryImage != nil {
		t.Errorf("item 4 should have empty relations: %+v", r4)
	}
}

func TestSQLiteStorage_ListCategoriesAndItems(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)
	ctx := context.Background()

	cats, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 3 || cats[0].ParentID != nil || *cats[1].ParentID != 100 {
		t.Errorf("categories = %+v", cats)
	}

	items, err := store.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("ListItems() = %d items, want 4", len(items))
	}
	if !items[1].IsUniversal || items[1].EffectivePrice() != 10 {
		t.Errorf("item 2 = %+v", items[1])
	}
}

func TestSQLiteStorage_SalesBySKU(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if _, err := store.CreateOrder(ctx, "completed", []OrderLine{{SKU: "BP-1", Quantity: 2}, {SKU: "BF-1", Quantity: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateOrder(ctx, "paid", []OrderLine{{SKU: "BP-1", Quantity: 3}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateOrder(ctx, "draft", []OrderLine{{SKU: "BP-1", Quantity: 100}, {SKU: "CK-1", Quantity: 4}}); err != nil {
		t.Fatal(err)
	}

	sales, err := store.SalesBySKU(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := sales["BP-1"]; got == nil || got.TotalSold != 5 || got.OrderCount != 2 {
		t.Errorf("BP-1 = %+v, want 5 sold over 2 orders", got)
	}
	if got := sales["BF-1"]; got == nil || got.TotalSold != 1 {
		t.Errorf("BF-1 = %+v", got)
	}
	if _, ok := sales["CK-1"]; ok {
		t.Error("draft-only SKU should not be aggregated")
	}
}

func TestSQLiteStorage_VocabularyNames(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)
	ctx := context.Background()

	tests := []struct {
		source models.VocabularySource
		limit  int
		want   []string
	}{
		{models.VocabularyManufacturers, 10, []string{"Bosch", "Toyota"}},
		{models.VocabularyModels, 0, []string{"Corolla", "GR Sport", "Hilux"}},
		{models.VocabularyItems, 2, []string{"Brake Fluid", "Brake Pad Set"}},
	}
	for _, tt := range tests {
		got, err := store.VocabularyNames(ctx, tt.source, tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		sort.Strings(got)
		if len(got) != len(tt.want) {
			t.Errorf("VocabularyNames(%s) = %v, want %v", tt.source, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("VocabularyNames(%s) = %v, want %v", tt.source, got, tt.want)
				break
			}
		}
	}

	if _, err := store.VocabularyNames(ctx, "orders", 10); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestSQLiteStorage_Synonyms(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	n, err := store.UpsertSynonyms(ctx, []*models.SynonymEdge{
		{Term: " Brake ", Synonym: "Stopper", Weight: 0.9},
		{Term: "pad", Synonym: "pad", Weight: 1},
		{Term: "", Synonym: "x", Weight: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("UpsertSynonyms() = %d, want 1 (self and empty edges skipped)", n)
	}
	if _, err := store.UpsertSynonyms(ctx, []*models.SynonymEdge{{Term: "brake", Synonym: "stopper", Weight: 0.5}}); err != nil {
		t.Fatal(err)
	}
	edges, err := store.ListSynonyms(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Term != "brake" || edges[0].Synonym != "stopper" || edges[0].Weight != 0.5 {
		t.Errorf("edges after upsert = %+v", edges)
	}

	if _, err := store.UpsertSynonyms(ctx, []*models.SynonymEdge{{Term: "a", Synonym: "b", Weight: 1.5}}); err == nil {
		t.Error("weight above 1 should fail")
	}

	n, err = store.ReplaceSynonyms(ctx, []*models.SynonymEdge{{Term: "rotor", Synonym: "disc", Weight: 1}})
	if err != nil {
		t.Fatal(err)
	}
	edges, _ = store.ListSynonyms(ctx)
	if n != 1 || len(edges) != 1 || edges[0].Term != "rotor" {
		t.Errorf("edges after replace = %+v", edges)
	}
}

func TestSQLiteStorage_RecordSearchAndStats(t *testing.T) {
	store := newTestStorage(t)
	seedCatalog(t, store)
	ctx := context.Background()

	if err := store.RecordSearch(ctx, &models.SearchLog{ID: "log-1", Mode: "search", QueryParams: `{"q":"brake"}`, ResultsCount: 2}); err != nil {
		t.Fatal(err)
	}
	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Items != 4 || st.Categories != 3 || st.Manufacturers != 2 || st.VehicleModels != 2 || st.SearchLogs != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestCandidateWhere_parameterCount(t *testing.T) {
	where, args := candidateWhere(&CandidateFilter{
		Tokens:         []string{"a", " ", "b"},
		ManufacturerID: 3,
		CategoryIDs:    []int64{1, 2, 3},
		ModelIDs:       []int64{9},
	})
	if where == "" {
		t.Fatal("empty where clause")
	}
	if want := 2*5 + 1 + 3 + 1; len(args) != want {
		t.Errorf("got %d args, want %d", len(args), want)
	}

	where, args = candidateWhere(&CandidateFilter{})
	if where != "1 = 1" || len(args) != 0 {
		t.Errorf("empty filter = %q %v", where, args)
	}
}
