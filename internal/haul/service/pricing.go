package service

import (
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
)

// Snapshot is an immutable view of the catalog for one pricing cycle. All
// resolution happens against the snapshot, never against live storage, so a
// multi-line submission prices every line from the same catalog state.
type Snapshot struct {
	products       []entity.Product
	byCode         map[string][]*entity.Product
	byCodeSupplier map[string]*entity.Product
}

func skey(code, supplier string) string {
	return code + "\x00" + supplier
}

// NewSnapshot indexes the given products by code and by (code, supplier).
func NewSnapshot(products []entity.Product) *Snapshot {
	s := &Snapshot{
		products:       products,
		byCode:         make(map[string][]*entity.Product, len(products)),
		byCodeSupplier: make(map[string]*entity.Product, len(products)),
	}
	for i := range products {
		p := &products[i]
		s.byCode[p.Code] = append(s.byCode[p.Code], p)
		s.byCodeSupplier[skey(p.Code, p.Supplier)] = p
	}
	return s
}

// Products returns the snapshot's rows in catalog order.
func (s *Snapshot) Products() []entity.Product {
	return s.products
}

// Suppliers returns the distinct suppliers present in the snapshot.
func (s *Snapshot) Suppliers() []string {
	seen := make(map[string]bool)
	var suppliers []string
	for i := range s.products {
		if !seen[s.products[i].Supplier] {
			seen[s.products[i].Supplier] = true
			suppliers = append(suppliers, s.products[i].Supplier)
		}
	}
	return suppliers
}

// HasSupplier reports whether any catalog row belongs to the supplier.
func (s *Snapshot) HasSupplier(supplier string) bool {
	for i := range s.products {
		if s.products[i].Supplier == supplier {
			return true
		}
	}
	return false
}

// Resolve maps (code, requested supplier) to exactly one product.
//
// An exact (code, supplier) row wins. Without one, a code carried by a single
// supplier resolves to that row; a code carried by several suppliers is an
// AmbiguousSupplier error. The catalog can hold the same code under multiple
// supplier rows with different prices, so guessing here would leak the wrong
// supplier's price into the order book.
func (s *Snapshot) Resolve(code, requestedSupplier, orderType string) (*entity.Product, error) {
	if orderType != entity.OrderTypeKit && orderType != entity.OrderTypeVial {
		return nil, Validation("invalid order type %q for product %s", orderType, code)
	}

	if p, ok := s.byCodeSupplier[skey(code, requestedSupplier)]; ok {
		return p, nil
	}

	candidates := s.byCode[code]
	switch len(candidates) {
	case 0:
		return nil, NotFound("product %s not found in catalog", code)
	case 1:
		return candidates[0], nil
	default:
		return nil, AmbiguousSupplier(
			"product %s exists under %d suppliers and none matches %q",
			code, len(candidates), requestedSupplier)
	}
}
