package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository persists the catalog and the per-product locks.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindAll returns the whole catalog ordered by code then supplier.
func (r *ProductRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	var items []entity.Product
	err := r.db.WithContext(ctx).
		Order("code ASC, supplier ASC").
		Find(&items).Error
	return items, err
}

// FindByCodeAndSupplier looks up the unique (code, supplier) row.
func (r *ProductRepository) FindByCodeAndSupplier(ctx context.Context, code, supplier string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).
		Where("code = ? AND supplier = ?", code, supplier).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Suppliers returns the distinct supplier names present in the catalog.
func (r *ProductRepository) Suppliers(ctx context.Context) ([]string, error) {
	var suppliers []string
	err := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Distinct("supplier").
		Order("supplier ASC").
		Pluck("supplier", &suppliers).Error
	return suppliers, err
}

// Upsert inserts or updates one catalog row on its (code, supplier) key.
func (r *ProductRepository) Upsert(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}, {Name: "supplier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "kit_price_usd", "vial_price_usd", "vials_per_kit", "updated_at",
			}),
		}).
		Create(product).Error
}

// ReplaceAll swaps the catalog in one transaction.
func (r *ProductRepository) ReplaceAll(ctx context.Context, products []entity.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.Product{}).Error; err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		return tx.CreateInBatches(products, 200).Error
	})
}

// FindLocks returns all product locks keyed by product code.
func (r *ProductRepository) FindLocks(ctx context.Context) (map[string]entity.ProductLock, error) {
	var rows []entity.ProductLock
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	locks := make(map[string]entity.ProductLock, len(rows))
	for _, l := range rows {
		locks[l.ProductCode] = l
	}
	return locks, nil
}

// SetLock upserts the lock row for one product.
func (r *ProductRepository) SetLock(ctx context.Context, code string, isLocked bool, maxKits int, lockedBy string) error {
	lock := entity.ProductLock{
		ProductCode: code,
		MaxKits:     maxKits,
		IsLocked:    isLocked,
		UpdatedAt:   time.Now(),
	}
	if isLocked {
		now := time.Now()
		lock.LockedBy = lockedBy
		lock.LockedAt = &now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"max_kits", "is_locked", "locked_by", "locked_at", "updated_at",
			}),
		}).
		Create(&lock).Error
}
