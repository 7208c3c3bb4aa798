package service

import (
	"context"
	"testing"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestCatalog(t *testing.T) (*CatalogService, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewCatalogService(repos.Product, nil, 0, zap.NewNop()), repos
}

func catalogWorkbook(rows [][]interface{}) *excelize.File {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, h := range catalogHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return f
}

func TestImportXLSX(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	f := catalogWorkbook([][]interface{}{
		{"TR30", "YIWU", "Tirzepatide 30mg", 100, 10, 10},
		{"TR30", "WWB", "Tirzepatide 30mg", 120, 12, 10},
		{"TR30", "YIWU", "duplicate row", 1, 1, 10},
		{"", "", "", "", ""},
		{"RT10", "YIWU", "Retatrutide 10mg", "not-a-price", 8, 10},
	})

	result, err := catalog.ImportXLSX(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Errors, 2)

	snapshot, err := catalog.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Products(), 2)

	p, err := snapshot.Resolve("TR30", "WWB", entity.OrderTypeKit)
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.KitPriceUSD)
}

func TestImportXLSX_AtomicOnAllInvalid(t *testing.T) {
	catalog, repos := newTestCatalog(t)
	ctx := context.Background()

	seed := entity.Product{ID: "p1", Code: "TR30", Supplier: "YIWU", Name: "Tirzepatide 30mg", KitPriceUSD: 100, VialPriceUSD: 10, VialsPerKit: 10}
	require.NoError(t, repos.Product.Upsert(ctx, &seed))

	f := catalogWorkbook([][]interface{}{
		{"BAD", "", "missing supplier", 1, 1},
	})
	_, err := catalog.ImportXLSX(ctx, f)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	// The existing catalog was not touched.
	snapshot, err := catalog.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Products(), 1)
}

func TestImportXLSX_RejectsMissingHeader(t *testing.T) {
	catalog, repos := newTestCatalog(t)
	ctx := context.Background()

	seed := entity.Product{ID: "p1", Code: "TR30", Supplier: "YIWU", Name: "Tirzepatide 30mg", KitPriceUSD: 100, VialPriceUSD: 10, VialsPerKit: 10}
	require.NoError(t, repos.Product.Upsert(ctx, &seed))

	// A workbook whose first row is already product data must be rejected
	// instead of quietly dropping that row as a header.
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for c, v := range []interface{}{"RT10", "YIWU", "Retatrutide 10mg", 80, 8, 10} {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		f.SetCellValue(sheet, cell, v)
	}
	for c, v := range []interface{}{"NAD500", "YIWU", "NAD+ 500mg", 60, 6, 10} {
		cell, _ := excelize.CoordinatesToCellName(c+1, 2)
		f.SetCellValue(sheet, cell, v)
	}

	_, err := catalog.ImportXLSX(ctx, f)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	snapshot, err := catalog.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot.Products(), 1)
}

func TestImportXLSX_ReplacesExistingCatalog(t *testing.T) {
	catalog, repos := newTestCatalog(t)
	ctx := context.Background()

	old := entity.Product{ID: "p1", Code: "OLD1", Supplier: "YIWU", Name: "Old product", KitPriceUSD: 50, VialPriceUSD: 5, VialsPerKit: 10}
	require.NoError(t, repos.Product.Upsert(ctx, &old))

	f := catalogWorkbook([][]interface{}{
		{"TR30", "YIWU", "Tirzepatide 30mg", 100, 10, 10},
	})
	_, err := catalog.ImportXLSX(ctx, f)
	require.NoError(t, err)

	snapshot, err := catalog.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Products(), 1)
	assert.Equal(t, "TR30", snapshot.Products()[0].Code)
}

func TestInventoryStats(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	// 1 kit (10 vials) + 13 loose vials = 23 vials → 2 kits + 3 remaining.
	_, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items: []OrderItemRequest{
			{ProductCode: "TR30", OrderType: "Kit", Quantity: 1},
			{ProductCode: "TR30", OrderType: "Vial", Quantity: 13},
		},
	})
	require.NoError(t, err)

	inventory := NewInventoryService(repos.Order, repos.Product, 10, 100)
	catalog := NewCatalogService(repos.Product, nil, 0, zap.NewNop())
	snapshot, err := catalog.Snapshot(ctx)
	require.NoError(t, err)

	stats, err := inventory.Stats(ctx, snapshot)
	require.NoError(t, err)

	tr30 := stats["TR30"]
	assert.Equal(t, 23, tr30.TotalVials)
	assert.Equal(t, 2, tr30.KitsGenerated)
	assert.Equal(t, 3, tr30.RemainingVials)
	assert.Equal(t, 7, tr30.SlotsToNextKit)
	assert.False(t, tr30.IsLocked)

	// Products with no orders still get a zero row.
	rt10 := stats["RT10"]
	assert.Equal(t, 0, rt10.TotalVials)

	// Reaching the kit ceiling locks the product.
	require.NoError(t, repos.Product.SetLock(ctx, "TR30", false, 2, "admin"))
	stats, err = inventory.Stats(ctx, snapshot)
	require.NoError(t, err)
	assert.True(t, stats["TR30"].IsLocked)
}

func TestUpsertProductValidation(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	err := catalog.UpsertProduct(ctx, &entity.Product{Code: "", Supplier: "YIWU"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))

	p := entity.Product{Code: "TR30", Supplier: "YIWU", Name: "Tirzepatide 30mg", KitPriceUSD: 100, VialPriceUSD: 10}
	require.NoError(t, catalog.UpsertProduct(ctx, &p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 10, p.VialsPerKit)

	// Upserting the same (code, supplier) twice updates in place.
	p2 := entity.Product{Code: "TR30", Supplier: "YIWU", Name: "Tirzepatide 30mg", KitPriceUSD: 110, VialPriceUSD: 11}
	require.NoError(t, catalog.UpsertProduct(ctx, &p2))

	snapshot, err := catalog.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Products(), 1)
	assert.Equal(t, 110.0, snapshot.Products()[0].KitPriceUSD)
}

