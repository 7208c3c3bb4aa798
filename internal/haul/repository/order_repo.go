package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"gorm.io/gorm"
)

// OrderRepository persists orders and their line items.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID loads one order with its items.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindAll returns orders newest first, optionally filtered by tab.
func (r *OrderRepository) FindAll(ctx context.Context, tabName string, page, pageSize int) ([]entity.Order, int64, error) {
	var items []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if tabName != "" {
		query = query.Where("tab_name = ?", tabName)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByContact matches orders on exact email or telegram handle
// (case-insensitive, leading @ ignored).
func (r *OrderRepository) FindByContact(ctx context.Context, email, telegram string) ([]entity.Order, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).Preload("Items")

	email = strings.ToLower(strings.TrimSpace(email))
	telegram = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(telegram), "@"))

	switch {
	case email != "" && telegram != "":
		query = query.Where("LOWER(email) = ? OR LOWER(REPLACE(telegram, '@', '')) = ?", email, telegram)
	case email != "":
		query = query.Where("LOWER(email) = ?", email)
	case telegram != "":
		query = query.Where("LOWER(REPLACE(telegram, '@', '')) = ?", telegram)
	default:
		return nil, nil
	}

	var items []entity.Order
	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

// Search matches name, email or order ID against a free-text query.
func (r *OrderRepository) Search(ctx context.Context, q string) ([]entity.Order, error) {
	var items []entity.Order
	pattern := "%" + strings.ToLower(q) + "%"
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("LOWER(customer_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(id) LIKE ?",
			pattern, pattern, pattern).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// Create persists the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

// SaveWithItems writes the order header and the full item set atomically.
// Items not present in the given set are removed; this is the single write
// path for add-items and quantity updates so totals and lines cannot drift.
func (r *OrderRepository) SaveWithItems(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(order).Error; err != nil {
			return err
		}
		keep := make([]string, 0, len(order.Items))
		for i := range order.Items {
			keep = append(keep, order.Items[i].ID)
		}
		del := tx.Where("order_id = ?", order.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		for i := range order.Items {
			if err := tx.Save(&order.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus patches lifecycle columns on the order header.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveItems streams the line items of all non-cancelled orders, for
// inventory statistics.
func (r *OrderRepository) ActiveItems(ctx context.Context) ([]entity.OrderItem, error) {
	var items []entity.OrderItem
	err := r.db.WithContext(ctx).
		Joins("JOIN haul_orders ON haul_orders.id = haul_order_items.order_id").
		Where("haul_orders.status <> ?", entity.OrderStatusCancelled).
		Find(&items).Error
	return items, err
}
