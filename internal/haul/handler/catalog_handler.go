package handler

import (
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/service"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/fx"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the public ordering form: products, availability
// and lock state.
type CatalogHandler struct {
	catalog   *service.CatalogService
	inventory *service.InventoryService
	locks     *service.LockRegistry
	rates     *fx.Client
}

func NewCatalogHandler(catalog *service.CatalogService, inventory *service.InventoryService, locks *service.LockRegistry, rates *fx.Client) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, inventory: inventory, locks: locks, rates: rates}
}

// ProductView is one catalog row with live availability.
type ProductView struct {
	entity.Product
	Inventory service.ProductInventory `json:"inventory"`
}

// List returns the catalog with live availability.
// GET /api/products
func (h *CatalogHandler) List(c *gin.Context) {
	snapshot, err := h.catalog.Snapshot(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}

	stats, err := h.inventory.Stats(c.Request.Context(), snapshot)
	if err != nil {
		RespondError(c, err)
		return
	}

	products := snapshot.Products()
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{Product: p, Inventory: stats[p.Code]})
	}
	Success(c, views)
}

// FormState is everything the public form needs before rendering.
type FormState struct {
	CurrentTab   string           `json:"current_tab"`
	GlobalLock   entity.FormLock  `json:"global_lock"`
	TabLocks     []entity.TabLock `json:"tab_locks"`
	ExchangeRate float64          `json:"exchange_rate"`
}

// State returns the current tab, lock state and exchange rate.
// GET /api/form
func (h *CatalogHandler) State(c *gin.Context) {
	ctx := c.Request.Context()

	currentTab, err := h.locks.CurrentTab(ctx)
	if err != nil && !service.IsKind(err, service.KindNotFound) {
		RespondError(c, err)
		return
	}

	globalLock, err := h.locks.GlobalLock(ctx)
	if err != nil {
		RespondError(c, err)
		return
	}

	tabLocks, err := h.locks.TabLocks(ctx)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, FormState{
		CurrentTab:   currentTab,
		GlobalLock:   globalLock,
		TabLocks:     tabLocks,
		ExchangeRate: h.rates.USDToPHP(ctx),
	})
}

// Rate returns the live USD to PHP rate.
// GET /api/fx
func (h *CatalogHandler) Rate(c *gin.Context) {
	Success(c, gin.H{"usd_php": h.rates.USDToPHP(c.Request.Context())})
}
