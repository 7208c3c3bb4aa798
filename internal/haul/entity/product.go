package entity

import (
	"fmt"
	"time"
)

// Product is one priced catalog row. The same product code may appear under
// several suppliers with different prices; (code, supplier) is the unique key.
type Product struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Code         string    `json:"code" gorm:"size:32;not null;uniqueIndex:idx_haul_products_code_supplier"`
	Supplier     string    `json:"supplier" gorm:"size:64;not null;uniqueIndex:idx_haul_products_code_supplier"`
	Name         string    `json:"name" gorm:"size:200;not null"`
	KitPriceUSD  float64   `json:"kit_price_usd" gorm:"type:decimal(12,2);not null"`
	VialPriceUSD float64   `json:"vial_price_usd" gorm:"type:decimal(12,2);not null"`
	VialsPerKit  int       `json:"vials_per_kit" gorm:"default:10"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "haul_products"
}

// Purchasable units.
const (
	OrderTypeKit  = "Kit"
	OrderTypeVial = "Vial"
)

// UnitPrice returns the supplier-specific price for the given order type.
func (p *Product) UnitPrice(orderType string) (float64, error) {
	switch orderType {
	case OrderTypeKit:
		return p.KitPriceUSD, nil
	case OrderTypeVial:
		return p.VialPriceUSD, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", orderType)
	}
}

// ProductLock is the admin-controlled per-product gate: a manual lock plus a
// kit ceiling. A product with kits_generated >= max_kits is effectively locked.
type ProductLock struct {
	ProductCode string     `json:"product_code" gorm:"primaryKey;size:32"`
	MaxKits     int        `json:"max_kits" gorm:"not null"`
	IsLocked    bool       `json:"is_locked" gorm:"default:false"`
	LockedBy    string     `json:"locked_by" gorm:"size:64"`
	LockedAt    *time.Time `json:"locked_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ProductLock) TableName() string {
	return "haul_product_locks"
}
