// Package service holds the business rules: request validation, document
// numbering, totals, and delegation to the store. It never talks SQL.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/xid"
)

type contextKey string

const actorKey contextKey = "actor"

// WithActor attaches the acting user to the context for audit logging.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting user, if any.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo store.Repository
}

func New(repo store.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) logAudit(ctx context.Context, action string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		log.Printf("[service] WARN: %s performed without an authenticated actor", action)
		return
	}
	log.Printf("[service] audit: %s by %s (%s)", action, actor.Username, actor.Role)
}

// ---- sales ----

func validPaymentMethod(m string) bool {
	switch m {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentCredit:
		return true
	}
	return false
}

// CreateSale validates the cart, prices the document, assigns its number,
// and hands the whole thing to the store as one unit of work.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleWithItems, error) {
	if len(req.Items) == 0 {
		return domain.SaleWithItems{}, fmt.Errorf("%w: sale needs at least one item", store.ErrValidation)
	}
	if !validPaymentMethod(req.PaymentMethod) {
		return domain.SaleWithItems{}, fmt.Errorf("%w: unknown payment method %q", store.ErrValidation, req.PaymentMethod)
	}
	if req.PaymentMethod == domain.PaymentCredit && req.CustomerID == nil {
		return domain.SaleWithItems{}, fmt.Errorf("%w: credit sale requires a customer", store.ErrValidation)
	}
	if req.Discount < 0 {
		return domain.SaleWithItems{}, fmt.Errorf("%w: discount must not be negative", store.ErrValidation)
	}

	gross := 0.0
	items := make([]domain.SaleItem, 0, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return domain.SaleWithItems{}, fmt.Errorf("%w: item %d: quantity must be positive", store.ErrValidation, i+1)
		}
		if line.UnitPrice < 0 {
			return domain.SaleWithItems{}, fmt.Errorf("%w: item %d: unit price must not be negative", store.ErrValidation, i+1)
		}
		lineTotal := float64(line.Quantity) * line.UnitPrice
		gross += lineTotal
		items = append(items, domain.SaleItem{
			ProductID: line.ProductID,
			SizeID:    line.SizeID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
	}
	if req.Discount > gross {
		return domain.SaleWithItems{}, fmt.Errorf("%w: discount exceeds the sale total", store.ErrValidation)
	}

	sale := domain.Sale{
		Number:        xid.New("S"),
		CustomerID:    req.CustomerID,
		GrossAmount:   gross,
		Discount:      req.Discount,
		NetAmount:     gross - req.Discount,
		PaymentMethod: req.PaymentMethod,
		Note:          strings.TrimSpace(req.Note),
	}
	result, err := s.repo.CreateSale(ctx, sale, items)
	if err != nil {
		return domain.SaleWithItems{}, err
	}
	s.logAudit(ctx, "sale "+result.Sale.Number)
	return result, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.SaleWithItems, error) {
	return s.repo.GetSale(ctx, id)
}

// ---- returns ----

func (s *Service) CreateReturn(ctx context.Context, req domain.ReturnCreateRequest) (domain.ReturnWithItems, error) {
	if req.SaleID <= 0 {
		return domain.ReturnWithItems{}, fmt.Errorf("%w: sale id required", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return domain.ReturnWithItems{}, fmt.Errorf("%w: return needs at least one item", store.ErrValidation)
	}
	items := make([]domain.ReturnItem, 0, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return domain.ReturnWithItems{}, fmt.Errorf("%w: item %d: quantity must be positive", store.ErrValidation, i+1)
		}
		if line.UnitPrice < 0 {
			return domain.ReturnWithItems{}, fmt.Errorf("%w: item %d: unit price must not be negative", store.ErrValidation, i+1)
		}
		items = append(items, domain.ReturnItem{
			ProductID: line.ProductID,
			SizeID:    line.SizeID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	ret := domain.Return{
		Number: xid.New("R"),
		SaleID: req.SaleID,
		Reason: strings.TrimSpace(req.Reason),
		Note:   strings.TrimSpace(req.Note),
	}
	result, err := s.repo.CreateReturn(ctx, ret, items)
	if err != nil {
		return domain.ReturnWithItems{}, err
	}
	s.logAudit(ctx, "return "+result.Return.Number)
	return result, nil
}

func (s *Service) GetReturn(ctx context.Context, id int64) (domain.ReturnWithItems, error) {
	return s.repo.GetReturn(ctx, id)
}

func (s *Service) ListReturns(ctx context.Context) ([]domain.Return, error) {
	return s.repo.ListReturns(ctx)
}

// ---- debt ----

func (s *Service) CreateDebtPayment(ctx context.Context, req domain.DebtPaymentCreateRequest) (domain.DebtPayment, error) {
	if req.CustomerID <= 0 {
		return domain.DebtPayment{}, fmt.Errorf("%w: customer id required", store.ErrValidation)
	}
	if req.Amount <= 0 {
		return domain.DebtPayment{}, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	if !validPaymentMethod(req.Method) {
		return domain.DebtPayment{}, fmt.Errorf("%w: unknown payment method %q", store.ErrValidation, req.Method)
	}
	payment, err := s.repo.CreateDebtPayment(ctx, domain.DebtPayment{
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Method:     req.Method,
		Note:       strings.TrimSpace(req.Note),
	})
	if err != nil {
		return domain.DebtPayment{}, err
	}
	s.logAudit(ctx, fmt.Sprintf("debt payment %.2f for customer %d", payment.Amount, payment.CustomerID))
	return payment, nil
}

func (s *Service) ListDebtPayments(ctx context.Context) ([]domain.DebtPayment, error) {
	return s.repo.ListDebtPayments(ctx)
}

func (s *Service) OutstandingDebt(ctx context.Context, customerID int64) (float64, error) {
	return s.repo.OutstandingDebt(ctx, customerID)
}

// ---- stock ----

func (s *Service) AdjustStock(ctx context.Context, adj domain.StockAdjustment) (domain.Stock, error) {
	switch adj.Kind {
	case domain.MovementIn:
		if adj.Delta <= 0 {
			return domain.Stock{}, fmt.Errorf("%w: inbound adjustment needs a positive delta", store.ErrValidation)
		}
	case domain.MovementOut:
		if adj.Delta >= 0 {
			return domain.Stock{}, fmt.Errorf("%w: outbound adjustment needs a negative delta", store.ErrValidation)
		}
	default:
		return domain.Stock{}, fmt.Errorf("%w: unknown movement kind %q", store.ErrValidation, adj.Kind)
	}
	st, err := s.repo.AdjustStock(ctx, adj)
	if err != nil {
		return domain.Stock{}, err
	}
	s.logAudit(ctx, fmt.Sprintf("stock adjustment %+d for product %d", adj.Delta, adj.ProductID))
	return st, nil
}

// AddStock receives goods. The inbound movement is valued at the product's
// current cost price.
func (s *Service) AddStock(ctx context.Context, req domain.StockAddRequest) (domain.Stock, error) {
	if req.Quantity <= 0 {
		return domain.Stock{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.Stock{}, err
	}
	cost := product.CostPrice
	return s.repo.AddStock(ctx, req, &cost)
}

func (s *Service) SetStock(ctx context.Context, id int64, req domain.StockSetRequest) (domain.Stock, error) {
	return s.repo.SetStock(ctx, id, req)
}

func (s *Service) DeleteStock(ctx context.Context, id int64) error {
	return s.repo.DeleteStock(ctx, id)
}

func (s *Service) ListStock(ctx context.Context) ([]domain.Stock, error) {
	return s.repo.ListStock(ctx)
}

func (s *Service) ListStockByProduct(ctx context.Context, productID int64) ([]domain.Stock, error) {
	return s.repo.ListStockByProduct(ctx, productID)
}

func (s *Service) ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	return s.repo.ListMovements(ctx, productID)
}

// ---- products ----

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	if req.Barcode == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode required", store.ErrValidation)
	}
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name required", store.ErrValidation)
	}
	if req.CostPrice < 0 || req.SalePrice < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices must not be negative", store.ErrValidation)
	}
	return s.repo.CreateProduct(ctx, req)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if req.Barcode != nil && strings.TrimSpace(*req.Barcode) == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode cannot be blank", store.ErrValidation)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return domain.Product{}, fmt.Errorf("%w: product name cannot be blank", store.ErrValidation)
	}
	if (req.CostPrice != nil && *req.CostPrice < 0) || (req.SalePrice != nil && *req.SalePrice < 0) {
		return domain.Product{}, fmt.Errorf("%w: prices must not be negative", store.ErrValidation)
	}
	return s.repo.UpdateProduct(ctx, id, req)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	s.logAudit(ctx, fmt.Sprintf("delete product %d", id))
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	return s.repo.GetProductByBarcode(ctx, strings.TrimSpace(barcode))
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return s.repo.SearchProducts(ctx, strings.TrimSpace(query))
}

// ---- reference data ----

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name required", store.ErrValidation)
	}
	return s.repo.CreateCategory(ctx, name)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: category name required", store.ErrValidation)
	}
	return s.repo.UpdateCategory(ctx, id, name)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) CreateSize(ctx context.Context, label string) (domain.Size, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.Size{}, fmt.Errorf("%w: size label required", store.ErrValidation)
	}
	return s.repo.CreateSize(ctx, label)
}

func (s *Service) UpdateSize(ctx context.Context, id int64, label string) (domain.Size, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.Size{}, fmt.Errorf("%w: size label required", store.ErrValidation)
	}
	return s.repo.UpdateSize(ctx, id, label)
}

func (s *Service) ListSizes(ctx context.Context) ([]domain.Size, error) {
	return s.repo.ListSizes(ctx)
}

func (s *Service) DeleteSize(ctx context.Context, id int64) error {
	return s.repo.DeleteSize(ctx, id)
}

func (s *Service) CreateColor(ctx context.Context, name, code string) (domain.Color, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Color{}, fmt.Errorf("%w: color name required", store.ErrValidation)
	}
	return s.repo.CreateColor(ctx, name, code)
}

func (s *Service) UpdateColor(ctx context.Context, id int64, name, code string) (domain.Color, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Color{}, fmt.Errorf("%w: color name required", store.ErrValidation)
	}
	return s.repo.UpdateColor(ctx, id, name, code)
}

func (s *Service) ListColors(ctx context.Context) ([]domain.Color, error) {
	return s.repo.ListColors(ctx)
}

func (s *Service) DeleteColor(ctx context.Context, id int64) error {
	return s.repo.DeleteColor(ctx, id)
}

// ---- customers ----

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		return domain.Customer{}, fmt.Errorf("%w: first name required", store.ErrValidation)
	}
	if req.OpeningDebt < 0 {
		return domain.Customer{}, fmt.Errorf("%w: opening debt must not be negative", store.ErrValidation)
	}
	return s.repo.CreateCustomer(ctx, req)
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if req.FirstName != nil && strings.TrimSpace(*req.FirstName) == "" {
		return domain.Customer{}, fmt.Errorf("%w: first name cannot be blank", store.ErrValidation)
	}
	if req.OpeningDebt != nil && *req.OpeningDebt < 0 {
		return domain.Customer{}, fmt.Errorf("%w: opening debt must not be negative", store.ErrValidation)
	}
	return s.repo.UpdateCustomer(ctx, id, req)
}

func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	s.logAudit(ctx, fmt.Sprintf("delete customer %d", id))
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	return s.repo.SearchCustomers(ctx, strings.TrimSpace(query))
}

func (s *Service) CustomerSales(ctx context.Context, customerID int64) ([]domain.Sale, error) {
	return s.repo.CustomerSales(ctx, customerID)
}

func (s *Service) CustomerPayments(ctx context.Context, customerID int64) ([]domain.DebtPayment, error) {
	return s.repo.CustomerPayments(ctx, customerID)
}

// ---- reports ----

func validDate(v string) bool {
	_, err := time.Parse("2006-01-02", v)
	return err == nil
}

func (s *Service) DailySales(ctx context.Context, date string) (domain.DailySalesReport, error) {
	if !validDate(date) {
		return domain.DailySalesReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	return s.repo.DailySales(ctx, date)
}

func (s *Service) MonthlySales(ctx context.Context, month string) (domain.MonthlySalesReport, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return domain.MonthlySalesReport{}, fmt.Errorf("%w: month must be YYYY-MM", store.ErrValidation)
	}
	return s.repo.MonthlySales(ctx, month)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.LowStockAlert, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) SalesList(ctx context.Context, from, to string) ([]domain.SaleSummary, error) {
	if !validDate(from) || !validDate(to) {
		return nil, fmt.Errorf("%w: range bounds must be YYYY-MM-DD", store.ErrValidation)
	}
	if from > to {
		return nil, fmt.Errorf("%w: range start is after its end", store.ErrValidation)
	}
	return s.repo.SalesList(ctx, from, to)
}

func (s *Service) Profit(ctx context.Context, from, to string) (domain.ProfitReport, error) {
	if !validDate(from) || !validDate(to) {
		return domain.ProfitReport{}, fmt.Errorf("%w: range bounds must be YYYY-MM-DD", store.ErrValidation)
	}
	if from > to {
		return domain.ProfitReport{}, fmt.Errorf("%w: range start is after its end", store.ErrValidation)
	}
	return s.repo.Profit(ctx, from, to)
}

func (s *Service) ProductStatistics(ctx context.Context, from, to string, categoryID *int64) (domain.ProductStatsReport, error) {
	if !validDate(from) || !validDate(to) {
		return domain.ProductStatsReport{}, fmt.Errorf("%w: range bounds must be YYYY-MM-DD", store.ErrValidation)
	}
	if from > to {
		return domain.ProductStatsReport{}, fmt.Errorf("%w: range start is after its end", store.ErrValidation)
	}
	return s.repo.ProductStatistics(ctx, from, to, categoryID)
}

func (s *Service) StockValuation(ctx context.Context) (domain.StockValuation, error) {
	return s.repo.StockValuation(ctx)
}

func (s *Service) CustomerDebtSummary(ctx context.Context) ([]domain.CustomerDebtSummary, error) {
	return s.repo.CustomerDebtSummary(ctx)
}

// ---- settings ----

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if req.StoreName != nil && strings.TrimSpace(*req.StoreName) == "" {
		return domain.Settings{}, fmt.Errorf("%w: store name cannot be blank", store.ErrValidation)
	}
	s.logAudit(ctx, "update settings")
	return s.repo.UpdateSettings(ctx, req)
}

// ---- users ----

func validRole(role string) bool {
	return role == domain.RoleAdmin || role == domain.RoleStaff
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return domain.User{}, fmt.Errorf("%w: username required", store.ErrValidation)
	}
	if len(req.Password) < 6 {
		return domain.User{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrValidation)
	}
	if !validRole(req.Role) {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", store.ErrValidation, req.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, domain.UserAccount{
		User: domain.User{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Username:  req.Username,
			Role:      req.Role,
			Active:    true,
		},
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logAudit(ctx, "create user "+user.Username)
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) UpdateUser(ctx context.Context, id int64, req domain.UserUpdateRequest) (domain.User, error) {
	patch := store.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Active:    req.Active,
	}
	if req.Role != nil && !validRole(*req.Role) {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", store.ErrValidation, *req.Role)
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return domain.User{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrValidation)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}
	user, err := s.repo.UpdateUser(ctx, id, patch)
	if err != nil {
		return domain.User{}, err
	}
	s.logAudit(ctx, "update user "+user.Username)
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	s.logAudit(ctx, fmt.Sprintf("delete user %d", id))
	return s.repo.DeleteUser(ctx, id)
}

// Authenticate checks credentials against the stored bcrypt hash. Inactive
// accounts cannot log in.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	account, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return domain.User{}, err
	}
	if !account.Active {
		return domain.User{}, fmt.Errorf("%w: account disabled", store.ErrConflict)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", store.ErrNotFound)
	}
	return account.User, nil
}
