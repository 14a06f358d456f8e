// Package memory implements store.Repository with plain maps. It backs the
// service tests and mirrors the sqlite store's semantics, including
// all-or-nothing behavior for multi-step operations.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
)

type Store struct {
	mu sync.Mutex

	AllowNegativeStock bool

	nextID      int64
	categories  map[int64]domain.Category
	sizes       map[int64]domain.Size
	colors      map[int64]domain.Color
	products    map[int64]domain.Product
	stock       map[int64]domain.Stock
	movements   []domain.StockMovement
	sales       map[int64]domain.Sale
	saleItems   map[int64][]domain.SaleItem
	returns     map[int64]domain.Return
	returnItems map[int64][]domain.ReturnItem
	customers   map[int64]domain.Customer
	payments    []domain.DebtPayment
	settings    domain.Settings
	users       map[int64]domain.UserAccount
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		AllowNegativeStock: true,
		categories:         map[int64]domain.Category{},
		sizes:              map[int64]domain.Size{},
		colors:             map[int64]domain.Color{},
		products:           map[int64]domain.Product{},
		stock:              map[int64]domain.Stock{},
		sales:              map[int64]domain.Sale{},
		saleItems:          map[int64][]domain.SaleItem{},
		returns:            map[int64]domain.Return{},
		returnItems:        map[int64][]domain.ReturnItem{},
		customers:          map[int64]domain.Customer{},
		users:              map[int64]domain.UserAccount{},
		settings:           domain.Settings{StoreName: "My Store", SizesEnabled: true, StoreNameOnLabel: true},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ---- reference data ----

func (s *Store) CreateCategory(_ context.Context, name string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Name == name {
			return domain.Category{}, fmt.Errorf("%w: category %q already exists", store.ErrConflict, name)
		}
	}
	c := domain.Category{ID: s.id(), Name: name, CreatedAt: time.Now()}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, name string) (domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, fmt.Errorf("%w: category %d", store.ErrNotFound, id)
	}
	for _, other := range s.categories {
		if other.ID != id && other.Name == name {
			return domain.Category{}, fmt.Errorf("%w: category %q already exists", store.ErrConflict, name)
		}
	}
	c.Name = name
	s.categories[id] = c
	return c, nil
}

func (s *Store) ListCategories(context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("%w: category %d", store.ErrNotFound, id)
	}
	for _, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return fmt.Errorf("%w: category is used by a product", store.ErrConflict)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateSize(_ context.Context, label string) (domain.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sz := range s.sizes {
		if sz.Label == label {
			return domain.Size{}, fmt.Errorf("%w: size %q already exists", store.ErrConflict, label)
		}
	}
	sz := domain.Size{ID: s.id(), Label: label, CreatedAt: time.Now()}
	s.sizes[sz.ID] = sz
	return sz, nil
}

func (s *Store) UpdateSize(_ context.Context, id int64, label string) (domain.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sz, ok := s.sizes[id]
	if !ok {
		return domain.Size{}, fmt.Errorf("%w: size %d", store.ErrNotFound, id)
	}
	for _, other := range s.sizes {
		if other.ID != id && other.Label == label {
			return domain.Size{}, fmt.Errorf("%w: size %q already exists", store.ErrConflict, label)
		}
	}
	sz.Label = label
	s.sizes[id] = sz
	return sz, nil
}

func (s *Store) ListSizes(context.Context) ([]domain.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Size, 0, len(s.sizes))
	for _, sz := range s.sizes {
		out = append(out, sz)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteSize(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sizes[id]; !ok {
		return fmt.Errorf("%w: size %d", store.ErrNotFound, id)
	}
	for _, st := range s.stock {
		if st.SizeID == id {
			return fmt.Errorf("%w: size is used by a stock record", store.ErrConflict)
		}
	}
	delete(s.sizes, id)
	return nil
}

func (s *Store) CreateColor(_ context.Context, name, code string) (domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.colors {
		if c.Name == name {
			return domain.Color{}, fmt.Errorf("%w: color %q already exists", store.ErrConflict, name)
		}
	}
	c := domain.Color{ID: s.id(), Name: name, Code: code, CreatedAt: time.Now()}
	s.colors[c.ID] = c
	return c, nil
}

func (s *Store) UpdateColor(_ context.Context, id int64, name, code string) (domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.colors[id]
	if !ok {
		return domain.Color{}, fmt.Errorf("%w: color %d", store.ErrNotFound, id)
	}
	for _, other := range s.colors {
		if other.ID != id && other.Name == name {
			return domain.Color{}, fmt.Errorf("%w: color %q already exists", store.ErrConflict, name)
		}
	}
	c.Name = name
	c.Code = code
	s.colors[id] = c
	return c, nil
}

func (s *Store) ListColors(context.Context) ([]domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Color, 0, len(s.colors))
	for _, c := range s.colors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteColor(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.colors[id]; !ok {
		return fmt.Errorf("%w: color %d", store.ErrNotFound, id)
	}
	delete(s.colors, id)
	return nil
}

// ---- products ----

func (s *Store) CreateProduct(_ context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Barcode == req.Barcode {
			return domain.Product{}, fmt.Errorf("%w: barcode %q already registered", store.ErrConflict, req.Barcode)
		}
	}
	now := time.Now()
	p := domain.Product{
		ID: s.id(), Barcode: req.Barcode, Name: req.Name, CategoryID: req.CategoryID,
		Color: req.Color, Brand: req.Brand, CostPrice: req.CostPrice, SalePrice: req.SalePrice,
		Description: req.Description, ImagePath: req.ImagePath, CreatedAt: now, UpdatedAt: now,
	}
	s.products[p.ID] = p
	return s.withCategoryName(p), nil
}

func (s *Store) withCategoryName(p domain.Product) domain.Product {
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			name := c.Name
			p.CategoryName = &name
		}
	}
	return p
}

func (s *Store) UpdateProduct(_ context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	if req.Barcode != nil {
		for _, other := range s.products {
			if other.ID != id && other.Barcode == *req.Barcode {
				return domain.Product{}, fmt.Errorf("%w: barcode already registered", store.ErrConflict)
			}
		}
		p.Barcode = *req.Barcode
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.Color != nil {
		p.Color = *req.Color
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.CostPrice != nil {
		p.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		p.SalePrice = *req.SalePrice
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.ImagePath != nil {
		p.ImagePath = *req.ImagePath
	}
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return s.withCategoryName(p), nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	delete(s.products, id)
	for stID, st := range s.stock {
		if st.ProductID == id {
			delete(s.stock, stID)
		}
	}
	return nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	return s.withCategoryName(p), nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Barcode == barcode {
			return s.withCategoryName(p), nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: barcode %q", store.ErrNotFound, barcode)
}

func (s *Store) ListProducts(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, s.withCategoryName(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var out []domain.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Barcode), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) {
			out = append(out, s.withCategoryName(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- stock ledger ----

func (s *Store) findStock(productID, sizeID int64) (domain.Stock, bool) {
	for _, st := range s.stock {
		if st.ProductID == productID && st.SizeID == sizeID {
			return st, true
		}
	}
	return domain.Stock{}, false
}

// applyAdjustment mutates quantity and appends the movement. Callers must
// have validated the guard already so the pair of writes cannot half-apply.
func (s *Store) applyAdjustment(adj domain.StockAdjustment) domain.Stock {
	st, ok := s.findStock(adj.ProductID, adj.SizeID)
	prev := 0
	if ok {
		prev = st.Quantity
		st.Quantity += adj.Delta
		st.UpdatedAt = time.Now()
	} else {
		now := time.Now()
		st = domain.Stock{
			ID: s.id(), ProductID: adj.ProductID, SizeID: adj.SizeID,
			Quantity: adj.Delta, MinQuantity: 5, CreatedAt: now, UpdatedAt: now,
		}
	}
	s.stock[st.ID] = st

	qty := adj.Delta
	if qty < 0 {
		qty = -qty
	}
	next := st.Quantity
	var totalValue *float64
	if adj.UnitCost != nil {
		v := *adj.UnitCost * float64(qty)
		totalValue = &v
	}
	s.movements = append(s.movements, domain.StockMovement{
		ID: s.id(), ProductID: adj.ProductID, SizeID: adj.SizeID,
		Kind: adj.Kind, Quantity: qty, PrevQuantity: &prev, NewQuantity: &next,
		UnitCost: adj.UnitCost, TotalValue: totalValue, Note: adj.Note, CreatedAt: time.Now(),
	})
	return s.decorateStock(st)
}

func (s *Store) guardAdjustment(adj domain.StockAdjustment) error {
	if adj.Delta == 0 {
		return fmt.Errorf("%w: stock delta must be non-zero", store.ErrValidation)
	}
	st, _ := s.findStock(adj.ProductID, adj.SizeID)
	if st.Quantity+adj.Delta < 0 && !s.AllowNegativeStock {
		return fmt.Errorf("%w: insufficient stock for product %d size %d (have %d, need %d)",
			store.ErrConflict, adj.ProductID, adj.SizeID, st.Quantity, -adj.Delta)
	}
	return nil
}

func (s *Store) decorateStock(st domain.Stock) domain.Stock {
	if p, ok := s.products[st.ProductID]; ok {
		st.ProductName = p.Name
		st.Barcode = p.Barcode
		st.CategoryID = p.CategoryID
		if p.CategoryID != nil {
			if c, ok := s.categories[*p.CategoryID]; ok {
				name := c.Name
				st.CategoryName = &name
			}
		}
	}
	if sz, ok := s.sizes[st.SizeID]; ok {
		st.SizeLabel = sz.Label
	}
	return st
}

func (s *Store) AdjustStock(_ context.Context, adj domain.StockAdjustment) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardAdjustment(adj); err != nil {
		return domain.Stock{}, err
	}
	return s.applyAdjustment(adj), nil
}

func (s *Store) AddStock(_ context.Context, req domain.StockAddRequest, unitCost *float64) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Quantity <= 0 {
		return domain.Stock{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if _, ok := s.products[req.ProductID]; !ok {
		return domain.Stock{}, fmt.Errorf("%w: product %d", store.ErrNotFound, req.ProductID)
	}
	st := s.applyAdjustment(domain.StockAdjustment{
		ProductID: req.ProductID, SizeID: req.SizeID, Delta: req.Quantity,
		Kind: domain.MovementIn, UnitCost: unitCost, Note: "goods received",
	})
	if req.MinQuantity != nil {
		raw := s.stock[st.ID]
		raw.MinQuantity = *req.MinQuantity
		s.stock[st.ID] = raw
		st.MinQuantity = *req.MinQuantity
	}
	return st, nil
}

func (s *Store) SetStock(_ context.Context, id int64, req domain.StockSetRequest) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Quantity < 0 {
		return domain.Stock{}, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}
	st, ok := s.stock[id]
	if !ok {
		return domain.Stock{}, fmt.Errorf("%w: stock %d", store.ErrNotFound, id)
	}
	if delta := req.Quantity - st.Quantity; delta != 0 {
		kind := domain.MovementIn
		if delta < 0 {
			kind = domain.MovementOut
		}
		s.applyAdjustment(domain.StockAdjustment{
			ProductID: st.ProductID, SizeID: st.SizeID, Delta: delta,
			Kind: kind, Note: "manual correction",
		})
		st = s.stock[id]
	}
	if req.MinQuantity != nil {
		st.MinQuantity = *req.MinQuantity
		s.stock[id] = st
	}
	return s.decorateStock(st), nil
}

func (s *Store) DeleteStock(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stock[id]
	if !ok {
		return fmt.Errorf("%w: stock %d", store.ErrNotFound, id)
	}
	if st.Quantity != 0 {
		qty := st.Quantity
		kind := domain.MovementOut
		if qty < 0 {
			qty = -qty
			kind = domain.MovementIn
		}
		zero := 0
		prev := st.Quantity
		s.movements = append(s.movements, domain.StockMovement{
			ID: s.id(), ProductID: st.ProductID, SizeID: st.SizeID,
			Kind: kind, Quantity: qty, PrevQuantity: &prev, NewQuantity: &zero,
			Note: "stock record removed", CreatedAt: time.Now(),
		})
	}
	delete(s.stock, id)
	return nil
}

func (s *Store) ListStock(context.Context) ([]domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Stock, 0, len(s.stock))
	for _, st := range s.stock {
		out = append(out, s.decorateStock(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListStockByProduct(_ context.Context, productID int64) ([]domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Stock
	for _, st := range s.stock {
		if st.ProductID == productID {
			out = append(out, s.decorateStock(st))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListMovements(_ context.Context, productID int64) ([]domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].ProductID == productID {
			out = append(out, s.movements[i])
		}
	}
	return out, nil
}

// ---- transactions ----

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, items []domain.SaleItem) (domain.SaleWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.CustomerID != nil {
		if _, ok := s.customers[*sale.CustomerID]; !ok {
			return domain.SaleWithItems{}, fmt.Errorf("%w: customer %d", store.ErrNotFound, *sale.CustomerID)
		}
	}
	// Validate everything up front; nothing is written until all lines pass.
	// The stock guard accumulates per (product, size) so a cart with the
	// same combination on several lines is checked against the total.
	pending := make(map[[2]int64]int)
	for _, item := range items {
		if _, ok := s.products[item.ProductID]; !ok {
			return domain.SaleWithItems{}, fmt.Errorf("%w: product %d", store.ErrNotFound, item.ProductID)
		}
		k := [2]int64{item.ProductID, item.SizeID}
		pending[k] += item.Quantity
		if err := s.guardAdjustment(domain.StockAdjustment{
			ProductID: item.ProductID, SizeID: item.SizeID, Delta: -pending[k],
		}); err != nil {
			return domain.SaleWithItems{}, err
		}
	}

	sale.ID = s.id()
	sale.CreatedAt = time.Now()
	s.sales[sale.ID] = sale
	for i := range items {
		items[i].ID = s.id()
		items[i].SaleID = sale.ID
		items[i].CreatedAt = sale.CreatedAt
		s.applyAdjustment(domain.StockAdjustment{
			ProductID: items[i].ProductID, SizeID: items[i].SizeID,
			Delta: -items[i].Quantity, Kind: domain.MovementOut, Note: "sale " + sale.Number,
		})
	}
	s.saleItems[sale.ID] = append([]domain.SaleItem(nil), items...)
	return s.assembleSale(sale.ID)
}

func (s *Store) assembleSale(id int64) (domain.SaleWithItems, error) {
	sale, ok := s.sales[id]
	if !ok {
		return domain.SaleWithItems{}, fmt.Errorf("%w: sale %d", store.ErrNotFound, id)
	}
	if sale.CustomerID != nil {
		if cu, ok := s.customers[*sale.CustomerID]; ok {
			name := strings.TrimSpace(cu.FirstName + " " + cu.LastName)
			sale.CustomerName = &name
		}
	}
	items := append([]domain.SaleItem(nil), s.saleItems[id]...)
	for i := range items {
		if p, ok := s.products[items[i].ProductID]; ok {
			items[i].ProductName = p.Name
			items[i].Barcode = p.Barcode
		}
		if sz, ok := s.sizes[items[i].SizeID]; ok {
			items[i].SizeLabel = sz.Label
		}
		items[i].ReturnedQty = s.returnedQty(id, items[i].ProductID, items[i].SizeID)
	}
	return domain.SaleWithItems{Sale: sale, Items: items}, nil
}

func (s *Store) returnedQty(saleID, productID, sizeID int64) int {
	total := 0
	for retID, ret := range s.returns {
		if ret.SaleID != saleID {
			continue
		}
		for _, ri := range s.returnItems[retID] {
			if ri.ProductID == productID && ri.SizeID == sizeID {
				total += ri.Quantity
			}
		}
	}
	return total
}

func (s *Store) GetSale(_ context.Context, id int64) (domain.SaleWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembleSale(id)
}

func (s *Store) CreateReturn(_ context.Context, ret domain.Return, items []domain.ReturnItem) (domain.ReturnWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[ret.SaleID]
	if !ok {
		return domain.ReturnWithItems{}, fmt.Errorf("%w: sale %d", store.ErrNotFound, ret.SaleID)
	}
	ret.CustomerID = sale.CustomerID

	total := 0.0
	for i := range items {
		item := &items[i]
		// Sum over all matching lines; a sale may carry the same
		// (product, size) more than once.
		soldQty := 0
		for _, si := range s.saleItems[ret.SaleID] {
			if si.ProductID == item.ProductID && si.SizeID == item.SizeID {
				soldQty += si.Quantity
			}
		}
		if soldQty == 0 {
			return domain.ReturnWithItems{}, fmt.Errorf("%w: product %d size %d was not part of sale %d",
				store.ErrValidation, item.ProductID, item.SizeID, ret.SaleID)
		}
		returned := s.returnedQty(ret.SaleID, item.ProductID, item.SizeID)
		if returned+item.Quantity > soldQty {
			name := ""
			if p, ok := s.products[item.ProductID]; ok {
				name = p.Name
			}
			return domain.ReturnWithItems{}, fmt.Errorf(
				"%w: %s: %d of %d already returned, cannot return %d more",
				store.ErrConflict, name, returned, soldQty, item.Quantity)
		}
		item.LineTotal = float64(item.Quantity) * item.UnitPrice
		total += item.LineTotal
	}
	ret.TotalAmount = total

	ret.ID = s.id()
	ret.CreatedAt = time.Now()
	s.returns[ret.ID] = ret
	for i := range items {
		items[i].ID = s.id()
		items[i].ReturnID = ret.ID
		items[i].CreatedAt = ret.CreatedAt
		s.applyAdjustment(domain.StockAdjustment{
			ProductID: items[i].ProductID, SizeID: items[i].SizeID,
			Delta: items[i].Quantity, Kind: domain.MovementIn, Note: "return " + ret.Number,
		})
	}
	s.returnItems[ret.ID] = append([]domain.ReturnItem(nil), items...)

	if sale.PaymentMethod == domain.PaymentCredit && ret.CustomerID != nil {
		s.payments = append(s.payments, domain.DebtPayment{
			ID: s.id(), CustomerID: *ret.CustomerID, Amount: ret.TotalAmount,
			Method: domain.PaymentCredit, Note: "return " + ret.Number, CreatedAt: time.Now(),
		})
	}
	return s.assembleReturn(ret.ID)
}

func (s *Store) assembleReturn(id int64) (domain.ReturnWithItems, error) {
	ret, ok := s.returns[id]
	if !ok {
		return domain.ReturnWithItems{}, fmt.Errorf("%w: return %d", store.ErrNotFound, id)
	}
	if sale, ok := s.sales[ret.SaleID]; ok {
		ret.SaleNumber = sale.Number
	}
	if ret.CustomerID != nil {
		if cu, ok := s.customers[*ret.CustomerID]; ok {
			name := strings.TrimSpace(cu.FirstName + " " + cu.LastName)
			ret.CustomerName = &name
		}
	}
	items := append([]domain.ReturnItem(nil), s.returnItems[id]...)
	for i := range items {
		if p, ok := s.products[items[i].ProductID]; ok {
			items[i].ProductName = p.Name
			items[i].Barcode = p.Barcode
		}
		if sz, ok := s.sizes[items[i].SizeID]; ok {
			items[i].SizeLabel = sz.Label
		}
	}
	return domain.ReturnWithItems{Return: ret, Items: items}, nil
}

func (s *Store) GetReturn(_ context.Context, id int64) (domain.ReturnWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembleReturn(id)
}

func (s *Store) ListReturns(context.Context) ([]domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Return
	for id := range s.returns {
		rw, err := s.assembleReturn(id)
		if err != nil {
			return nil, err
		}
		out = append(out, rw.Return)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) CreateDebtPayment(_ context.Context, payment domain.DebtPayment) (domain.DebtPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.customers[payment.CustomerID]
	if !ok {
		return domain.DebtPayment{}, fmt.Errorf("%w: customer %d", store.ErrNotFound, payment.CustomerID)
	}
	payment.ID = s.id()
	payment.CreatedAt = time.Now()
	payment.CustomerName = strings.TrimSpace(cu.FirstName + " " + cu.LastName)
	s.payments = append(s.payments, payment)
	return payment, nil
}

func (s *Store) ListDebtPayments(context.Context) ([]domain.DebtPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.DebtPayment(nil), s.payments...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- customers ----

func (s *Store) CreateCustomer(_ context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Phone != "" {
		for _, cu := range s.customers {
			if cu.Phone == req.Phone {
				return domain.Customer{}, fmt.Errorf("%w: phone %s already registered", store.ErrConflict, req.Phone)
			}
		}
	}
	now := time.Now()
	cu := domain.Customer{
		ID: s.id(), FirstName: req.FirstName, LastName: req.LastName,
		Phone: req.Phone, Note: req.Note, OpeningDebt: req.OpeningDebt,
		CreatedAt: now, UpdatedAt: now,
	}
	s.customers[cu.ID] = cu
	return cu, nil
}

func (s *Store) UpdateCustomer(_ context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	if req.Phone != nil && *req.Phone != "" {
		for _, other := range s.customers {
			if other.ID != id && other.Phone == *req.Phone {
				return domain.Customer{}, fmt.Errorf("%w: phone already registered", store.ErrConflict)
			}
		}
	}
	if req.FirstName != nil {
		cu.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		cu.LastName = *req.LastName
	}
	if req.Phone != nil {
		cu.Phone = *req.Phone
	}
	if req.Note != nil {
		cu.Note = *req.Note
	}
	if req.OpeningDebt != nil {
		cu.OpeningDebt = *req.OpeningDebt
	}
	cu.UpdatedAt = time.Now()
	s.customers[id] = cu
	return cu, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %d", store.ErrNotFound, id)
	}
	return cu, nil
}

func (s *Store) ListCustomers(context.Context) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Customer, 0, len(s.customers))
	for _, cu := range s.customers {
		out = append(out, cu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (s *Store) SearchCustomers(_ context.Context, query string) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var out []domain.Customer
	for _, cu := range s.customers {
		if strings.Contains(strings.ToLower(cu.FirstName), q) ||
			strings.Contains(strings.ToLower(cu.LastName), q) ||
			strings.Contains(cu.Phone, query) {
			out = append(out, cu)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (s *Store) CustomerSales(_ context.Context, customerID int64) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Sale
	for _, sale := range s.sales {
		if sale.CustomerID != nil && *sale.CustomerID == customerID {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) CustomerPayments(_ context.Context, customerID int64) ([]domain.DebtPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DebtPayment
	for _, p := range s.payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) OutstandingDebt(_ context.Context, customerID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.customers[customerID]
	if !ok {
		return 0, fmt.Errorf("%w: customer %d", store.ErrNotFound, customerID)
	}
	debt := cu.OpeningDebt
	for _, sale := range s.sales {
		if sale.CustomerID != nil && *sale.CustomerID == customerID &&
			sale.PaymentMethod == domain.PaymentCredit {
			debt += sale.NetAmount
		}
	}
	for _, p := range s.payments {
		if p.CustomerID == customerID {
			debt -= p.Amount
		}
	}
	if debt < 0 {
		debt = 0
	}
	return debt, nil
}

// ---- reports ----

func (s *Store) DailySales(_ context.Context, date string) (domain.DailySalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := domain.DailySalesReport{Date: date}
	for _, sale := range s.sales {
		if sale.CreatedAt.Format("2006-01-02") != date {
			continue
		}
		rep.SaleCount++
		rep.Gross += sale.GrossAmount
		rep.Discount += sale.Discount
		rep.Net += sale.NetAmount
	}
	return rep, nil
}

func (s *Store) MonthlySales(_ context.Context, month string) (domain.MonthlySalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep := domain.MonthlySalesReport{Month: month}
	for _, sale := range s.sales {
		if sale.CreatedAt.Format("2006-01") != month {
			continue
		}
		rep.SaleCount++
		rep.Gross += sale.GrossAmount
		rep.Discount += sale.Discount
		rep.Net += sale.NetAmount
	}
	return rep, nil
}

func (s *Store) LowStock(context.Context) ([]domain.LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LowStockAlert
	for _, st := range s.stock {
		if st.Quantity > st.MinQuantity {
			continue
		}
		d := s.decorateStock(st)
		out = append(out, domain.LowStockAlert{
			ProductID: d.ProductID, ProductName: d.ProductName, Barcode: d.Barcode,
			SizeLabel: d.SizeLabel, Quantity: d.Quantity, MinQuantity: d.MinQuantity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out, nil
}

func (s *Store) SalesList(_ context.Context, from, to string) ([]domain.SaleSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SaleSummary
	for id, sale := range s.sales {
		day := sale.CreatedAt.Format("2006-01-02")
		if day < from || day > to {
			continue
		}
		sold := 0
		for _, si := range s.saleItems[id] {
			sold += si.Quantity
		}
		returned := 0
		for retID, ret := range s.returns {
			if ret.SaleID != id {
				continue
			}
			for _, ri := range s.returnItems[retID] {
				returned += ri.Quantity
			}
		}
		status := domain.ReturnStatusNone
		switch {
		case returned == 0:
		case returned >= sold:
			status = domain.ReturnStatusFull
		default:
			status = domain.ReturnStatusPartial
		}
		out = append(out, domain.SaleSummary{
			ID: sale.ID, Number: sale.Number, GrossAmount: sale.GrossAmount,
			Discount: sale.Discount, NetAmount: sale.NetAmount,
			PaymentMethod: sale.PaymentMethod, Note: sale.Note,
			ItemCount: sold, ReturnStatus: status, CreatedAt: sale.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) Profit(_ context.Context, from, to string) (domain.ProfitReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ productID, sizeID int64 }
	acc := map[key]*domain.ProfitReportItem{}

	entry := func(k key) *domain.ProfitReportItem {
		if it, ok := acc[k]; ok {
			return it
		}
		it := &domain.ProfitReportItem{ProductID: k.productID}
		if p, ok := s.products[k.productID]; ok {
			it.ProductName = p.Name
			it.Barcode = p.Barcode
			it.CostPrice = p.CostPrice
			it.SalePrice = p.SalePrice
		}
		if sz, ok := s.sizes[k.sizeID]; ok {
			it.SizeLabel = sz.Label
		}
		acc[k] = it
		return it
	}

	for id, sale := range s.sales {
		day := sale.CreatedAt.Format("2006-01-02")
		if day < from || day > to {
			continue
		}
		for _, si := range s.saleItems[id] {
			it := entry(key{si.ProductID, si.SizeID})
			it.Quantity += si.Quantity
			it.TotalSales += si.LineTotal
		}
	}
	for id, ret := range s.returns {
		day := ret.CreatedAt.Format("2006-01-02")
		if day < from || day > to {
			continue
		}
		for _, ri := range s.returnItems[id] {
			it := entry(key{ri.ProductID, ri.SizeID})
			it.Quantity -= ri.Quantity
			it.TotalSales -= ri.LineTotal
		}
	}

	rep := domain.ProfitReport{From: from, To: to}
	for _, it := range acc {
		it.TotalCost = float64(it.Quantity) * it.CostPrice
		it.Profit = it.TotalSales - it.TotalCost
		rep.Items = append(rep.Items, *it)
		rep.TotalCost += it.TotalCost
		rep.TotalSales += it.TotalSales
		rep.TotalProfit += it.Profit
	}
	sort.Slice(rep.Items, func(i, j int) bool {
		if rep.Items[i].ProductName != rep.Items[j].ProductName {
			return rep.Items[i].ProductName < rep.Items[j].ProductName
		}
		return rep.Items[i].SizeLabel < rep.Items[j].SizeLabel
	})
	for _, sale := range s.sales {
		day := sale.CreatedAt.Format("2006-01-02")
		if day >= from && day <= to {
			rep.TotalDiscount += sale.Discount
		}
	}
	rep.NetProfit = rep.TotalProfit - rep.TotalDiscount
	return rep, nil
}

func (s *Store) ProductStatistics(_ context.Context, from, to string, categoryID *int64) (domain.ProductStatsReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := domain.ProductStatsReport{From: from, To: to}
	var marginSum float64
	var marginCount int

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.products[ids[i]].Name < s.products[ids[j]].Name })

	for _, id := range ids {
		p := s.products[id]
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		it := domain.ProductStats{
			ProductID: p.ID, ProductName: p.Name, Barcode: p.Barcode, CategoryID: p.CategoryID,
		}
		if p.CategoryID != nil {
			if c, ok := s.categories[*p.CategoryID]; ok {
				name := c.Name
				it.CategoryName = &name
			}
		}
		for _, m := range s.movements {
			if m.ProductID != id {
				continue
			}
			day := m.CreatedAt.Format("2006-01-02")
			if day < from || day > to {
				continue
			}
			switch m.Kind {
			case domain.MovementIn:
				it.PurchasedQty += m.Quantity
				if m.TotalValue != nil {
					it.PurchaseValue += *m.TotalValue
				} else {
					it.PurchaseValue += float64(m.Quantity) * p.CostPrice
				}
			case domain.MovementOut:
				it.SoldQty += m.Quantity
			}
		}
		for _, st := range s.stock {
			if st.ProductID == id {
				it.CurrentStock += st.Quantity
			}
		}
		if it.PurchasedQty == 0 && it.SoldQty == 0 && it.CurrentStock == 0 {
			continue
		}
		it.SalesValue = float64(it.SoldQty) * p.SalePrice
		it.UnitMargin = p.SalePrice - p.CostPrice
		it.Profit = it.SalesValue - float64(it.SoldQty)*p.CostPrice
		rep.Items = append(rep.Items, it)

		rep.TotalPurchasedQty += it.PurchasedQty
		rep.TotalSoldQty += it.SoldQty
		rep.TotalPurchaseValue += it.PurchaseValue
		rep.TotalSalesValue += it.SalesValue
		rep.TotalProfit += it.Profit
		if p.CostPrice > 0 {
			marginSum += it.UnitMargin / p.CostPrice * 100
			marginCount++
		}
	}
	if marginCount > 0 {
		rep.AvgMarginPercent = marginSum / float64(marginCount)
	}
	return rep, nil
}

func (s *Store) StockValuation(context.Context) (domain.StockValuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v domain.StockValuation
	seen := map[int64]bool{}
	for _, st := range s.stock {
		p, ok := s.products[st.ProductID]
		if !ok {
			continue
		}
		if !seen[st.ProductID] {
			seen[st.ProductID] = true
			v.ProductCount++
		}
		v.TotalUnits += st.Quantity
		v.CostValue += float64(st.Quantity) * p.CostPrice
		v.SaleValue += float64(st.Quantity) * p.SalePrice
	}
	v.PotentialProfit = v.SaleValue - v.CostValue
	return v, nil
}

func (s *Store) CustomerDebtSummary(context.Context) ([]domain.CustomerDebtSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CustomerDebtSummary
	for id, cu := range s.customers {
		d := domain.CustomerDebtSummary{
			CustomerID:   id,
			CustomerName: strings.TrimSpace(cu.FirstName + " " + cu.LastName),
			Phone:        cu.Phone,
			TotalDebt:    cu.OpeningDebt,
		}
		active := cu.OpeningDebt != 0
		for _, sale := range s.sales {
			if sale.CustomerID != nil && *sale.CustomerID == id &&
				sale.PaymentMethod == domain.PaymentCredit {
				d.TotalDebt += sale.NetAmount
				active = true
			}
		}
		for _, p := range s.payments {
			if p.CustomerID == id {
				d.TotalPaid += p.Amount
				active = true
			}
		}
		if !active {
			continue
		}
		d.Remaining = d.TotalDebt - d.TotalPaid
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Remaining > out[j].Remaining })
	return out, nil
}

// ---- settings ----

func (s *Store) GetSettings(context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.StoreName != nil {
		s.settings.StoreName = *req.StoreName
	}
	if req.LogoPath != nil {
		s.settings.LogoPath = *req.LogoPath
	}
	if req.Phone != nil {
		s.settings.Phone = *req.Phone
	}
	if req.Address != nil {
		s.settings.Address = *req.Address
	}
	if req.Whatsapp != nil {
		s.settings.Whatsapp = *req.Whatsapp
	}
	if req.Instagram != nil {
		s.settings.Instagram = *req.Instagram
	}
	if req.TikTok != nil {
		s.settings.TikTok = *req.TikTok
	}
	if req.SizesEnabled != nil {
		s.settings.SizesEnabled = *req.SizesEnabled
	}
	if req.LockPasscode != nil {
		s.settings.LockPasscode = *req.LockPasscode
	}
	if req.StoreNameOnLabel != nil {
		s.settings.StoreNameOnLabel = *req.StoreNameOnLabel
	}
	if req.BarcodePrinter != nil {
		s.settings.BarcodePrinter = *req.BarcodePrinter
	}
	if req.ReceiptPrinter != nil {
		s.settings.ReceiptPrinter = *req.ReceiptPrinter
	}
	s.settings.UpdatedAt = time.Now()
	return s.settings, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, account domain.UserAccount) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == account.Username {
			return domain.User{}, fmt.Errorf("%w: username %q already taken", store.ErrConflict, account.Username)
		}
	}
	now := time.Now()
	account.ID = s.id()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.users[account.ID] = account
	return account.User, nil
}

func (s *Store) ListUsers(context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.UserAccount{}, fmt.Errorf("%w: user %q", store.ErrNotFound, username)
}

func (s *Store) activeAdmins() int {
	n := 0
	for _, u := range s.users {
		if u.Role == domain.RoleAdmin && u.Active {
			n++
		}
	}
	return n
}

func (s *Store) UpdateUser(_ context.Context, id int64, patch store.UserPatch) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	demotes := patch.Role != nil && *patch.Role != domain.RoleAdmin
	deactivates := patch.Active != nil && !*patch.Active
	if u.Role == domain.RoleAdmin && u.Active && (demotes || deactivates) && s.activeAdmins() <= 1 {
		return domain.User{}, fmt.Errorf("%w: cannot remove the last active admin", store.ErrConflict)
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.Active != nil {
		u.Active = *patch.Active
	}
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return u.User, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	if u.Role == domain.RoleAdmin && u.Active && s.activeAdmins() <= 1 {
		return fmt.Errorf("%w: cannot remove the last active admin", store.ErrConflict)
	}
	delete(s.users, id)
	return nil
}
