package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories bundles the data access layer.
type Repositories struct {
	Product  *ProductRepository
	Order    *OrderRepository
	Settings *SettingsRepository
}

// NewRepositories creates the repository bundle on one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:  NewProductRepository(db),
		Order:    NewOrderRepository(db),
		Settings: NewSettingsRepository(db),
	}
}
