package service

import (
	"context"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
)

// ProductInventory is the fill state of one product across all live orders.
type ProductInventory struct {
	TotalVials     int  `json:"total_vials"`
	KitsGenerated  int  `json:"kits_generated"`
	RemainingVials int  `json:"remaining_vials"`
	SlotsToNextKit int  `json:"slots_to_next_kit"`
	VialsPerKit    int  `json:"vials_per_kit"`
	MaxKits        int  `json:"max_kits"`
	IsLocked       bool `json:"is_locked"`
}

// InventoryService computes vial/kit fill statistics from the non-cancelled
// order book. A product counts as locked when its admin lock is set or its
// generated kits have reached the configured ceiling.
type InventoryService struct {
	orders         *repository.OrderRepository
	products       *repository.ProductRepository
	vialsPerKit    int
	maxKitsDefault int
}

func NewInventoryService(orders *repository.OrderRepository, products *repository.ProductRepository, vialsPerKit, maxKitsDefault int) *InventoryService {
	return &InventoryService{
		orders:         orders,
		products:       products,
		vialsPerKit:    vialsPerKit,
		maxKitsDefault: maxKitsDefault,
	}
}

// Stats returns per-product inventory keyed by product code. Cancelled
// orders are excluded; their rows remain in the book but never count.
func (s *InventoryService) Stats(ctx context.Context, snapshot *Snapshot) (map[string]ProductInventory, error) {
	items, err := s.orders.ActiveItems(ctx)
	if err != nil {
		return nil, ExternalUnavailable("order book is unavailable", err)
	}
	locks, err := s.products.FindLocks(ctx)
	if err != nil {
		return nil, ExternalUnavailable("product locks are unavailable", err)
	}

	products := snapshot.Products()
	vialsPerCode := make(map[string]int)
	for i := range products {
		if _, ok := vialsPerCode[products[i].Code]; !ok {
			vialsPerCode[products[i].Code] = products[i].VialsPerKit
		}
	}

	totals := make(map[string]int)
	for _, item := range items {
		perKit := vialsPerCode[item.ProductCode]
		if perKit <= 0 {
			perKit = s.vialsPerKit
		}
		if item.OrderType == entity.OrderTypeKit {
			totals[item.ProductCode] += item.Quantity * perKit
		} else {
			totals[item.ProductCode] += item.Quantity
		}
	}

	stats := make(map[string]ProductInventory, len(totals))
	for code, totalVials := range totals {
		stats[code] = s.build(code, totalVials, vialsPerCode[code], locks)
	}
	// Zero rows for products with no orders yet, so callers see every code.
	for code, perKit := range vialsPerCode {
		if _, ok := stats[code]; !ok {
			stats[code] = s.build(code, 0, perKit, locks)
		}
	}
	return stats, nil
}

func (s *InventoryService) build(code string, totalVials, perKit int, locks map[string]entity.ProductLock) ProductInventory {
	if perKit <= 0 {
		perKit = s.vialsPerKit
	}

	kits := totalVials / perKit
	remaining := totalVials % perKit
	slots := 0
	if remaining > 0 {
		slots = perKit - remaining
	}

	maxKits := s.maxKitsDefault
	manualLock := false
	if lock, ok := locks[code]; ok {
		manualLock = lock.IsLocked
		if lock.MaxKits > 0 {
			maxKits = lock.MaxKits
		}
	}

	return ProductInventory{
		TotalVials:     totalVials,
		KitsGenerated:  kits,
		RemainingVials: remaining,
		SlotsToNextKit: slots,
		VialsPerKit:    perKit,
		MaxKits:        maxKits,
		IsLocked:       manualLock || kits >= maxKits,
	}
}

// SetProductLock records a manual product lock or kit ceiling.
func (s *InventoryService) SetProductLock(ctx context.Context, code string, isLocked bool, maxKits int, lockedBy string) error {
	if code == "" {
		return Validation("product code is required")
	}
	if maxKits < 0 {
		return Validation("max kits must not be negative")
	}
	if err := s.products.SetLock(ctx, code, isLocked, maxKits, lockedBy); err != nil {
		return ExternalUnavailable("failed to update product lock", err)
	}
	return nil
}
