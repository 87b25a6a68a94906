package importer

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/storage"
)

// CatalogWriter inserts catalog rows. storage.SQLiteStorage implements it.
type CatalogWriter interface {
	SynonymWriter
	CreateManufacturer(ctx context.Context, m *models.Manufacturer) error
	CreateVehicleModel(ctx context.Context, vm *models.VehicleModel) error
	CreateCategory(ctx context.Context, c *models.Category) error
	CreateItem(ctx context.Context, item *models.Item, links *storage.ItemLinks) error
	CreateOrder(ctx context.Context, status string, lines []storage.OrderLine) (int64, error)
}

// CatalogSeed is the YAML layout of a catalog seed file.
type CatalogSeed struct {
	Manufacturers []SeedManufacturer `yaml:"manufacturers"`
	Models        []SeedModel        `yaml:"models"`
	Categories    []SeedCategory     `yaml:"categories"`
	Items         []SeedItem         `yaml:"items"`
	Synonyms      []SeedSynonym      `yaml:"synonyms"`
	Orders        []SeedOrder        `yaml:"orders"`
}

type SeedManufacturer struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type SeedModel struct {
	ID             int64  `yaml:"id"`
	ManufacturerID int64  `yaml:"manufacturer_id"`
	Name           string `yaml:"name"`
	Variant        string `yaml:"variant"`
	YearFrom       *int   `yaml:"year_from"`
	YearTo         *int   `yaml:"year_to"`
}

type SeedCategory struct {
	ID       int64  `yaml:"id"`
	ParentID *int64 `yaml:"parent_id"`
	Name     string `yaml:"name"`
}

type SeedImage struct {
	URL       string `yaml:"url"`
	IsPrimary bool   `yaml:"is_primary"`
	SortOrder int    `yaml:"sort_order"`
}

type SeedItem struct {
	ID          int64       `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	SKU         string      `yaml:"sku"`
	IsUniversal bool        `yaml:"is_universal"`
	Price       float64     `yaml:"price"`
	Discount    float64     `yaml:"discount"`
	SalePrice   *float64    `yaml:"sale_price"`
	CostPrice   *float64    `yaml:"cost_price"`
	LeadTime    int         `yaml:"lead_time"`
	AgeDays     int         `yaml:"age_days"`
	CategoryIDs []int64     `yaml:"category_ids"`
	ModelIDs    []int64     `yaml:"model_ids"`
	Images      []SeedImage `yaml:"images"`
}

type SeedSynonym struct {
	Term    string   `yaml:"term"`
	Synonym string   `yaml:"synonym"`
	Weight  *float64 `yaml:"weight"`
}

type SeedOrder struct {
	Status string          `yaml:"status"`
	Lines  []SeedOrderLine `yaml:"lines"`
}

type SeedOrderLine struct {
	SKU       string  `yaml:"sku"`
	Quantity  int     `yaml:"quantity"`
	UnitPrice float64 `yaml:"unit_price"`
}

// SeedReport counts the rows written by a seed.
type SeedReport struct {
	Manufacturers int `json:"manufacturers"`
	Models        int `json:"models"`
	Categories    int `json:"categories"`
	Items         int `json:"items"`
	Synonyms      int `json:"synonyms"`
	Orders        int `json:"orders"`
}

// LoadCatalogSeed reads a seed file.
func LoadCatalogSeed(path string) (*CatalogSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	var seed CatalogSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// Seeder writes a catalog seed through a CatalogWriter.
type Seeder struct {
	store  CatalogWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewSeeder creates a seeder writing to store.
func NewSeeder(store CatalogWriter, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, logger: logger, now: time.Now}
}

// Seed inserts every row of seed. It stops at the first failed insert; rows
// written before it are kept.
func (s *Seeder) Seed(ctx context.Context, seed *CatalogSeed) (*SeedReport, error) {
	report := &SeedReport{}
	for _, m := range seed.Manufacturers {
		if err := s.store.CreateManufacturer(ctx, &models.Manufacturer{ID: m.ID, Name: m.Name}); err != nil {
			return report, err
		}
		report.Manufacturers++
	}
	for _, m := range seed.Models {
		vm := &models.VehicleModel{
			ID: m.ID, ManufacturerID: m.ManufacturerID, ModelName: m.Name,
			Variant: m.Variant, YearFrom: m.YearFrom, YearTo: m.YearTo,
		}
		if err := s.store.CreateVehicleModel(ctx, vm); err != nil {
			return report, err
		}
		report.Models++
	}
	ordered, err := parentsFirst(seed.Categories)
	if err != nil {
		return report, err
	}
	for _, c := range ordered {
		if err := s.store.CreateCategory(ctx, &models.Category{ID: c.ID, ParentID: c.ParentID, Name: c.Name}); err != nil {
			return report, err
		}
		report.Categories++
	}
	for _, it := range seed.Items {
		item, links := s.itemOf(it)
		if err := s.store.CreateItem(ctx, item, links); err != nil {
			return report, err
		}
		report.Items++
	}
	if len(seed.Synonyms) > 0 {
		edges := make([]*models.SynonymEdge, 0, len(seed.Synonyms))
		for _, syn := range seed.Synonyms {
			w := DefaultWeight
			if syn.Weight != nil {
				w = *syn.Weight
			}
			edges = append(edges, &models.SynonymEdge{Term: syn.Term, Synonym: syn.Synonym, Weight: w})
		}
		n, err := s.store.UpsertSynonyms(ctx, edges)
		if err != nil {
			return report, fmt.Errorf("store synonyms: %w", err)
		}
		report.Synonyms = n
	}
	for _, o := range seed.Orders {
		lines := make([]storage.OrderLine, len(o.Lines))
		for i, l := range o.Lines {
			lines[i] = storage.OrderLine{SKU: l.SKU, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		}
		status := o.Status
		if status == "" {
			status = "completed"
		}
		if _, err := s.store.CreateOrder(ctx, status, lines); err != nil {
			return report, err
		}
		report.Orders++
	}
	s.logger.Info("Catalog seeded",
		zap.Int("manufacturers", report.Manufacturers),
		zap.Int("models", report.Models),
		zap.Int("categories", report.Categories),
		zap.Int("items", report.Items),
		zap.Int("synonyms", report.Synonyms),
		zap.Int("orders", report.Orders),
	)
	return report, nil
}

func (s *Seeder) itemOf(it SeedItem) (*models.Item, *storage.ItemLinks) {
	item := &models.Item{
		ID: it.ID, Name: it.Name, Description: it.Description, SKU: it.SKU,
		IsUniversal: it.IsUniversal, Price: it.Price, Discount: it.Discount,
		SalePrice: it.SalePrice, CostPrice: it.CostPrice, LeadTime: it.LeadTime,
	}
	if it.AgeDays > 0 {
		item.CreatedAt = s.now().UTC().AddDate(0, 0, -it.AgeDays)
	}
	links := &storage.ItemLinks{CategoryIDs: it.CategoryIDs, ModelIDs: it.ModelIDs}
	for _, img := range it.Images {
		links.Images = append(links.Images, &models.Image{URL: img.URL, IsPrimary: img.IsPrimary, SortOrder: img.SortOrder})
	}
	return item, links
}

// parentsFirst orders categories so every parent precedes its children.
// Parents outside the seed are assumed to exist already.
func parentsFirst(categories []SeedCategory) ([]SeedCategory, error) {
	inSeed := make(map[int64]bool, len(categories))
	for _, c := range categories {
		inSeed[c.ID] = true
	}
	placed := make(map[int64]bool, len(categories))
	out := make([]SeedCategory, 0, len(categories))
	pending := categories
	for len(pending) > 0 {
		var next []SeedCategory
		for _, c := range pending {
			if c.ParentID == nil || !inSeed[*c.ParentID] || placed[*c.ParentID] {
				out = append(out, c)
				placed[c.ID] = true
			} else {
				next = append(next, c)
			}
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("category parent cycle involving %q", next[0].Name)
		}
		pending = next
	}
	return out, nil
}
