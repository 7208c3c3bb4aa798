package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const catalogCacheKey = "pephaul:catalog"

// CatalogService serves catalog snapshots. Snapshots are cached in redis for
// a short, fixed TTL because the catalog is read on every page load but
// changes rarely; every catalog write invalidates the cache synchronously.
// The cache is shared as one global key, never keyed by caller. Redis being
// unavailable degrades to direct database reads.
type CatalogService struct {
	repo   *repository.ProductRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogService(repo *repository.ProductRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, rdb: rdb, ttl: ttl, logger: logger}
}

// Snapshot returns the current catalog view used for one pricing cycle.
func (s *CatalogService) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, catalogCacheKey).Bytes()
		if err == nil {
			var products []entity.Product
			if err := json.Unmarshal(raw, &products); err == nil {
				return NewSnapshot(products), nil
			}
			s.logger.Warn("discarding undecodable catalog cache", zap.Error(err))
		}
	}

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, ExternalUnavailable("catalog is unavailable", err)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(products); err == nil {
			if err := s.rdb.Set(ctx, catalogCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("catalog cache write failed", zap.Error(err))
			}
		}
	}

	return NewSnapshot(products), nil
}

// Invalidate drops the cached snapshot. Called synchronously from every
// catalog write path before the write is reported successful.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, catalogCacheKey).Err(); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

// Suppliers lists the distinct supplier names in the catalog, straight from
// the database so freshly imported suppliers show up without a cache refresh.
func (s *CatalogService) Suppliers(ctx context.Context) ([]string, error) {
	suppliers, err := s.repo.Suppliers(ctx)
	if err != nil {
		return nil, ExternalUnavailable("catalog read failed", err)
	}
	return suppliers, nil
}

// UpsertProduct writes one catalog row and invalidates the snapshot cache.
func (s *CatalogService) UpsertProduct(ctx context.Context, product *entity.Product) error {
	if product.Code == "" || product.Supplier == "" {
		return Validation("product code and supplier are required")
	}
	if product.ID == "" {
		product.ID = uuid.New().String()[:32]
	}
	if product.VialsPerKit <= 0 {
		product.VialsPerKit = 10
	}
	product.UpdatedAt = time.Now()
	if err := s.repo.Upsert(ctx, product); err != nil {
		return ExternalUnavailable("catalog write failed", err)
	}
	s.Invalidate(ctx)
	return nil
}

// ImportResult summarizes an xlsx catalog import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Expected column order of the catalog workbook.
var catalogHeaders = []string{
	"Product Code", "Supplier", "Product Name",
	"Kit Price USD", "Vial Price USD", "Vials Per Kit",
}

// ImportXLSX replaces the catalog from the first sheet of an xlsx workbook.
// The whole import is atomic: a workbook with no valid rows changes nothing.
func (s *CatalogService) ImportXLSX(ctx context.Context, f *excelize.File) (*ImportResult, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, Validation("cannot read workbook: %v", err)
	}

	result := &ImportResult{}
	if len(rows) < 2 {
		return nil, Validation("workbook has no data rows")
	}
	for i, want := range catalogHeaders {
		if i >= len(rows[0]) || !strings.EqualFold(strings.TrimSpace(rows[0][i]), want) {
			return nil, Validation("workbook header row does not match the template, expected column %d to be %q", i+1, want)
		}
	}

	now := time.Now()
	seen := make(map[string]bool)
	var products []entity.Product
	for i, row := range rows[1:] {
		rowNum := i + 2
		if len(row) < 5 || strings.TrimSpace(row[0]) == "" {
			result.Skipped++
			continue
		}

		code := strings.TrimSpace(row[0])
		supplier := strings.TrimSpace(row[1])
		if supplier == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing supplier", rowNum))
			continue
		}
		if seen[skey(code, supplier)] {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: duplicate %s/%s", rowNum, code, supplier))
			continue
		}

		kitPrice, err1 := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		vialPrice, err2 := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err1 != nil || err2 != nil || kitPrice < 0 || vialPrice < 0 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: bad price", rowNum))
			continue
		}

		vialsPerKit := 10
		if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
			if v, err := strconv.Atoi(strings.TrimSpace(row[5])); err == nil && v > 0 {
				vialsPerKit = v
			}
		}

		seen[skey(code, supplier)] = true
		products = append(products, entity.Product{
			ID:           uuid.New().String()[:32],
			Code:         code,
			Supplier:     supplier,
			Name:         strings.TrimSpace(row[2]),
			KitPriceUSD:  kitPrice,
			VialPriceUSD: vialPrice,
			VialsPerKit:  vialsPerKit,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		result.Imported++
	}

	if result.Imported == 0 {
		return result, Validation("workbook contains no valid catalog rows")
	}

	if err := s.repo.ReplaceAll(ctx, products); err != nil {
		return nil, ExternalUnavailable("catalog write failed", err)
	}
	s.Invalidate(ctx)
	return result, nil
}

// ExportTemplate builds an empty catalog workbook with the expected headers.
func (s *CatalogService) ExportTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Catalog"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	for i, h := range catalogHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	colWidths := []float64{14, 14, 40, 14, 14, 12}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	return f, nil
}
