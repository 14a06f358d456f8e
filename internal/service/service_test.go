package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store/memory"
)

type fixture struct {
	svc     *Service
	repo    *memory.Store
	product domain.Product
	size    domain.Size
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	svc := New(repo)
	ctx := context.Background()

	size, err := svc.CreateSize(ctx, "M")
	if err != nil {
		t.Fatalf("create size: %v", err)
	}
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode:   "4760000000017",
		Name:      "Oxford Shirt",
		CostPrice: 20,
		SalePrice: 35,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := svc.AddStock(ctx, domain.StockAddRequest{
		ProductID: product.ID, SizeID: size.ID, Quantity: 10,
	}); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	return &fixture{svc: svc, repo: repo, product: product, size: size}
}

func (f *fixture) stockQty(t *testing.T) int {
	t.Helper()
	rows, err := f.svc.ListStockByProduct(context.Background(), f.product.ID)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one stock row, got %d", len(rows))
	}
	return rows[0].Quantity
}

func (f *fixture) customer(t *testing.T, openingDebt float64) domain.Customer {
	t.Helper()
	cu, err := f.svc.CreateCustomer(context.Background(), domain.CustomerCreateRequest{
		FirstName: "Rashad", LastName: "Aliyev", Phone: "+994501234567", OpeningDebt: openingDebt,
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return cu
}

func (f *fixture) sell(t *testing.T, qty int, method string, customerID *int64, discount float64) domain.SaleWithItems {
	t.Helper()
	sale, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		CustomerID:    customerID,
		Items:         []domain.SaleLine{{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: qty, UnitPrice: 35}},
		Discount:      discount,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return sale
}

func TestCreateSaleTotalsAndStock(t *testing.T) {
	f := newFixture(t)

	sale := f.sell(t, 3, domain.PaymentCash, nil, 5)
	if sale.Sale.GrossAmount != 105 {
		t.Fatalf("gross = %.2f, want 105", sale.Sale.GrossAmount)
	}
	if sale.Sale.NetAmount != 100 {
		t.Fatalf("net = %.2f, want 100", sale.Sale.NetAmount)
	}
	if !strings.HasPrefix(sale.Sale.Number, "S-") || len(sale.Sale.Number) != 10 {
		t.Fatalf("unexpected sale number %q", sale.Sale.Number)
	}
	if got := f.stockQty(t); got != 7 {
		t.Fatalf("stock after sale = %d, want 7", got)
	}

	moves, err := f.svc.ListMovements(context.Background(), f.product.ID)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("expected receipt + sale movements, got %d", len(moves))
	}
	if moves[0].Kind != domain.MovementOut || moves[0].Quantity != 3 {
		t.Fatalf("latest movement = %+v, want out/3", moves[0])
	}
}

func TestCreateSaleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSale(ctx, domain.SaleCreateRequest{PaymentMethod: domain.PaymentCash})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("empty cart: err = %v, want validation", err)
	}

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items:         []domain.SaleLine{{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 1, UnitPrice: 35}},
		Discount:      100,
		PaymentMethod: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("discount over gross: err = %v, want validation", err)
	}

	_, err = f.svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items:         []domain.SaleLine{{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 1, UnitPrice: 35}},
		PaymentMethod: domain.PaymentCredit,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("credit without customer: err = %v, want validation", err)
	}

	if got := f.stockQty(t); got != 10 {
		t.Fatalf("rejected sales must not touch stock, qty = %d", got)
	}
}

func TestCreditSaleAffectsDebtCashDoesNot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cu := f.customer(t, 0)

	f.sell(t, 1, domain.PaymentCash, &cu.ID, 0)
	debt, err := f.svc.OutstandingDebt(ctx, cu.ID)
	if err != nil {
		t.Fatalf("outstanding debt: %v", err)
	}
	if debt != 0 {
		t.Fatalf("cash sale changed debt: %.2f", debt)
	}

	f.sell(t, 2, domain.PaymentCredit, &cu.ID, 10)
	debt, _ = f.svc.OutstandingDebt(ctx, cu.ID)
	if debt != 60 {
		t.Fatalf("debt after credit sale = %.2f, want 60", debt)
	}
}

func TestDebtPaymentAndClamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cu := f.customer(t, 50)

	if _, err := f.svc.CreateDebtPayment(ctx, domain.DebtPaymentCreateRequest{
		CustomerID: cu.ID, Amount: 30, Method: domain.PaymentCash,
	}); err != nil {
		t.Fatalf("debt payment: %v", err)
	}
	debt, _ := f.svc.OutstandingDebt(ctx, cu.ID)
	if debt != 20 {
		t.Fatalf("debt = %.2f, want 20", debt)
	}

	// Overpayment is accepted; the outstanding figure clamps at zero.
	if _, err := f.svc.CreateDebtPayment(ctx, domain.DebtPaymentCreateRequest{
		CustomerID: cu.ID, Amount: 100, Method: domain.PaymentCash,
	}); err != nil {
		t.Fatalf("overpayment: %v", err)
	}
	debt, _ = f.svc.OutstandingDebt(ctx, cu.ID)
	if debt != 0 {
		t.Fatalf("debt after overpayment = %.2f, want 0", debt)
	}

	summary, err := f.svc.CustomerDebtSummary(ctx)
	if err != nil {
		t.Fatalf("debt summary: %v", err)
	}
	if len(summary) != 1 || summary[0].Remaining != -80 {
		t.Fatalf("summary remaining should stay unclamped, got %+v", summary)
	}

	_, err = f.svc.CreateDebtPayment(ctx, domain.DebtPaymentCreateRequest{
		CustomerID: cu.ID, Amount: -5, Method: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("negative payment: err = %v, want validation", err)
	}
}

func TestReturnRestocksAndCapsQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.sell(t, 2, domain.PaymentCash, nil, 0)

	line := domain.ReturnLine{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 1, UnitPrice: 35}
	ret, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		SaleID: sale.Sale.ID, Items: []domain.ReturnLine{line}, Reason: "wrong size",
	})
	if err != nil {
		t.Fatalf("first return: %v", err)
	}
	if !strings.HasPrefix(ret.Return.Number, "R-") {
		t.Fatalf("return number = %q", ret.Return.Number)
	}
	if ret.Return.TotalAmount != 35 {
		t.Fatalf("return total = %.2f, want 35", ret.Return.TotalAmount)
	}
	if got := f.stockQty(t); got != 9 {
		t.Fatalf("stock after return = %d, want 9", got)
	}

	// The remaining sold unit can still come back.
	if _, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		SaleID: sale.Sale.ID, Items: []domain.ReturnLine{line},
	}); err != nil {
		t.Fatalf("second return: %v", err)
	}

	_, err = f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		SaleID: sale.Sale.ID, Items: []domain.ReturnLine{line},
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("over-return: err = %v, want conflict", err)
	}
	if got := f.stockQty(t); got != 10 {
		t.Fatalf("failed return must not restock, qty = %d", got)
	}

	detail, err := f.svc.GetSale(ctx, sale.Sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if detail.Items[0].ReturnedQty != 2 {
		t.Fatalf("returned qty on sale line = %d, want 2", detail.Items[0].ReturnedQty)
	}
}

func TestReturnOfCreditSaleCompensatesDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cu := f.customer(t, 0)

	sale := f.sell(t, 2, domain.PaymentCredit, &cu.ID, 0)
	if _, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		SaleID: sale.Sale.ID,
		Items:  []domain.ReturnLine{{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 1, UnitPrice: 35}},
	}); err != nil {
		t.Fatalf("return: %v", err)
	}

	debt, _ := f.svc.OutstandingDebt(ctx, cu.ID)
	if debt != 35 {
		t.Fatalf("debt after partial credit return = %.2f, want 35", debt)
	}
	payments, err := f.svc.CustomerPayments(ctx, cu.ID)
	if err != nil {
		t.Fatalf("customer payments: %v", err)
	}
	if len(payments) != 1 || payments[0].Amount != 35 {
		t.Fatalf("expected one compensating payment of 35, got %+v", payments)
	}
}

func TestReturnRejectsForeignProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.sell(t, 1, domain.PaymentCash, nil, 0)

	other, err := f.svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode: "4760000000024", Name: "Chinos", CostPrice: 15, SalePrice: 28,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	_, err = f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		SaleID: sale.Sale.ID,
		Items:  []domain.ReturnLine{{ProductID: other.ID, SizeID: f.size.ID, Quantity: 1, UnitPrice: 28}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("foreign product return: err = %v, want validation", err)
	}
}

func TestReferenceDataRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	category, err := f.svc.CreateCategory(ctx, "Outerwear")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	renamed, err := f.svc.UpdateCategory(ctx, category.ID, "Jackets")
	if err != nil {
		t.Fatalf("rename category: %v", err)
	}
	if renamed.Name != "Jackets" {
		t.Fatalf("renamed category = %+v", renamed)
	}
	if _, err := f.svc.UpdateCategory(ctx, category.ID, "  "); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("blank rename: err = %v, want validation", err)
	}

	if _, err := f.svc.UpdateSize(ctx, f.size.ID, "L"); err != nil {
		t.Fatalf("rename size: %v", err)
	}
	other, err := f.svc.CreateSize(ctx, "XL")
	if err != nil {
		t.Fatalf("create size: %v", err)
	}
	if _, err := f.svc.UpdateSize(ctx, other.ID, "L"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("rename onto taken label: err = %v, want conflict", err)
	}

	color, err := f.svc.CreateColor(ctx, "Burgundy", "#800020")
	if err != nil {
		t.Fatalf("create color: %v", err)
	}
	updated, err := f.svc.UpdateColor(ctx, color.ID, "Maroon", "#85144b")
	if err != nil {
		t.Fatalf("rename color: %v", err)
	}
	if updated.Name != "Maroon" || updated.Code != "#85144b" {
		t.Fatalf("renamed color = %+v", updated)
	}
}

func TestNegativeStockGuard(t *testing.T) {
	f := newFixture(t)
	f.repo.AllowNegativeStock = false

	_, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items:         []domain.SaleLine{{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 11, UnitPrice: 35}},
		PaymentMethod: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("oversell with guard on: err = %v, want conflict", err)
	}
	if got := f.stockQty(t); got != 10 {
		t.Fatalf("failed sale must leave stock untouched, qty = %d", got)
	}

	f.repo.AllowNegativeStock = true
	f.sell(t, 11, domain.PaymentCash, nil, 0)
	if got := f.stockQty(t); got != -1 {
		t.Fatalf("guard off should allow negative stock, qty = %d", got)
	}
}

func TestNegativeStockGuardSumsDuplicateLines(t *testing.T) {
	f := newFixture(t)
	f.repo.AllowNegativeStock = false

	// Two lines for the same (product, size) must be guarded against the
	// cart total, not each line alone.
	_, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.SaleLine{
			{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 6, UnitPrice: 35},
			{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 6, UnitPrice: 35},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate-line oversell: err = %v, want conflict", err)
	}
	if got := f.stockQty(t); got != 10 {
		t.Fatalf("failed sale must leave stock untouched, qty = %d", got)
	}

	sale, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.SaleLine{
			{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 6, UnitPrice: 35},
			{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 4, UnitPrice: 35},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("duplicate-line sale within stock: %v", err)
	}
	if got := f.stockQty(t); got != 0 {
		t.Fatalf("stock after duplicate-line sale = %d, want 0", got)
	}

	// The cap counts both lines, so the whole quantity can come back.
	if _, err := f.svc.CreateReturn(context.Background(), domain.ReturnCreateRequest{
		SaleID: sale.Sale.ID,
		Items:  []domain.ReturnLine{{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 10, UnitPrice: 35}},
	}); err != nil {
		t.Fatalf("full return of duplicate-line sale: %v", err)
	}
	if got := f.stockQty(t); got != 10 {
		t.Fatalf("stock after full return = %d, want 10", got)
	}
}

func TestSaleAtomicityOnBadLine(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSale(context.Background(), domain.SaleCreateRequest{
		Items: []domain.SaleLine{
			{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 2, UnitPrice: 35},
			{ProductID: 9999, SizeID: f.size.ID, Quantity: 1, UnitPrice: 10},
		},
		PaymentMethod: domain.PaymentCash,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("sale with unknown product: err = %v, want not found", err)
	}
	if got := f.stockQty(t); got != 10 {
		t.Fatalf("failed sale decremented stock: qty = %d", got)
	}
	rep, err := f.svc.DailySales(context.Background(), time.Now().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if rep.SaleCount != 0 {
		t.Fatalf("failed sale was persisted: %+v", rep)
	}
}

func TestAdjustStockKindMustMatchDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AdjustStock(ctx, domain.StockAdjustment{
		ProductID: f.product.ID, SizeID: f.size.ID, Delta: -2, Kind: domain.MovementIn,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("in with negative delta: err = %v, want validation", err)
	}

	if _, err := f.svc.AdjustStock(ctx, domain.StockAdjustment{
		ProductID: f.product.ID, SizeID: f.size.ID, Delta: -4, Kind: domain.MovementOut, Note: "damaged",
	}); err != nil {
		t.Fatalf("outbound adjustment: %v", err)
	}
	if got := f.stockQty(t); got != 6 {
		t.Fatalf("stock = %d, want 6", got)
	}
}

func TestDailyAndMonthlyReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.DailySales(ctx, "2001-01-01")
	if err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if empty.SaleCount != 0 || empty.Gross != 0 || empty.Net != 0 {
		t.Fatalf("empty day should be zero-filled: %+v", empty)
	}
	if _, err := f.svc.DailySales(ctx, "01/01/2001"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("bad date format: err = %v, want validation", err)
	}

	f.sell(t, 2, domain.PaymentCash, nil, 10)
	today := time.Now().Format("2006-01-02")
	day, _ := f.svc.DailySales(ctx, today)
	if day.SaleCount != 1 || day.Gross != 70 || day.Discount != 10 || day.Net != 60 {
		t.Fatalf("daily report = %+v", day)
	}
	month, err := f.svc.MonthlySales(ctx, time.Now().Format("2006-01"))
	if err != nil {
		t.Fatalf("monthly sales: %v", err)
	}
	if month.Net != 60 {
		t.Fatalf("monthly net = %.2f, want 60", month.Net)
	}
}

func TestSalesListReturnStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := time.Now().Format("2006-01-02")

	sale := f.sell(t, 2, domain.PaymentCash, nil, 0)
	list, err := f.svc.SalesList(ctx, today, today)
	if err != nil {
		t.Fatalf("sales list: %v", err)
	}
	if len(list) != 1 || list[0].ReturnStatus != domain.ReturnStatusNone {
		t.Fatalf("fresh sale status = %+v", list)
	}

	line := domain.ReturnLine{ProductID: f.product.ID, SizeID: f.size.ID, Quantity: 1, UnitPrice: 35}
	if _, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{SaleID: sale.Sale.ID, Items: []domain.ReturnLine{line}}); err != nil {
		t.Fatalf("return: %v", err)
	}
	list, _ = f.svc.SalesList(ctx, today, today)
	if list[0].ReturnStatus != domain.ReturnStatusPartial {
		t.Fatalf("status after partial return = %q", list[0].ReturnStatus)
	}

	if _, err := f.svc.CreateReturn(ctx, domain.ReturnCreateRequest{SaleID: sale.Sale.ID, Items: []domain.ReturnLine{line}}); err != nil {
		t.Fatalf("return: %v", err)
	}
	list, _ = f.svc.SalesList(ctx, today, today)
	if list[0].ReturnStatus != domain.ReturnStatusFull {
		t.Fatalf("status after full return = %q", list[0].ReturnStatus)
	}
}

func TestProfitReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := time.Now().Format("2006-01-02")

	f.sell(t, 4, domain.PaymentCash, nil, 15)
	rep, err := f.svc.Profit(ctx, today, today)
	if err != nil {
		t.Fatalf("profit: %v", err)
	}
	// 4 units at 35 revenue, 20 cost; 15 discount nets off the total.
	if rep.TotalSales != 140 || rep.TotalCost != 80 || rep.TotalProfit != 60 {
		t.Fatalf("profit totals = %+v", rep)
	}
	if rep.TotalDiscount != 15 || rep.NetProfit != 45 {
		t.Fatalf("net profit = %+v", rep)
	}
}

func TestLowStockAndValuation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	min := 5
	rows, _ := f.svc.ListStockByProduct(ctx, f.product.ID)
	if _, err := f.svc.SetStock(ctx, rows[0].ID, domain.StockSetRequest{Quantity: 3, MinQuantity: &min}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	alerts, err := f.svc.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Quantity != 3 {
		t.Fatalf("alerts = %+v", alerts)
	}

	val, err := f.svc.StockValuation(ctx)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if val.ProductCount != 1 || val.TotalUnits != 3 || val.CostValue != 60 || val.SaleValue != 105 {
		t.Fatalf("valuation = %+v", val)
	}
}

func TestProductStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := time.Now().Format("2006-01-02")

	f.sell(t, 3, domain.PaymentCash, nil, 0)
	rep, err := f.svc.ProductStatistics(ctx, today, today, nil)
	if err != nil {
		t.Fatalf("product statistics: %v", err)
	}
	if len(rep.Items) != 1 {
		t.Fatalf("items = %+v", rep.Items)
	}
	it := rep.Items[0]
	if it.PurchasedQty != 10 || it.PurchaseValue != 200 {
		t.Fatalf("purchase side = %+v", it)
	}
	if it.SoldQty != 3 || it.SalesValue != 105 || it.Profit != 45 {
		t.Fatalf("sales side = %+v", it)
	}
	if it.CurrentStock != 7 {
		t.Fatalf("current stock = %d, want 7", it.CurrentStock)
	}
}

func TestCustomerPartialUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cu := f.customer(t, 0)

	// A hostile value must land in the column verbatim, not in the SQL.
	hostile := "', phone='hacked"
	updated, err := f.svc.UpdateCustomer(ctx, cu.ID, domain.CustomerUpdateRequest{FirstName: &hostile})
	if err != nil {
		t.Fatalf("update customer: %v", err)
	}
	if updated.FirstName != hostile {
		t.Fatalf("first name = %q", updated.FirstName)
	}
	if updated.Phone != cu.Phone || updated.LastName != cu.LastName {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestUserLifecycleAndLastAdminGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{
		FirstName: "Aysel", Username: "aysel", Password: "secret1", Role: domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "aysel", Password: "secret1", Role: domain.RoleStaff,
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate username: err = %v, want conflict", err)
	}

	if err := f.svc.DeleteUser(ctx, admin.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("deleting the only admin: err = %v, want conflict", err)
	}
	off := false
	if _, err := f.svc.UpdateUser(ctx, admin.ID, domain.UserUpdateRequest{Active: &off}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("deactivating the only admin: err = %v, want conflict", err)
	}
	staffRole := domain.RoleStaff
	if _, err := f.svc.UpdateUser(ctx, admin.ID, domain.UserUpdateRequest{Role: &staffRole}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("demoting the only admin: err = %v, want conflict", err)
	}

	if _, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "second", Password: "secret1", Role: domain.RoleAdmin,
	}); err != nil {
		t.Fatalf("create second admin: %v", err)
	}
	if err := f.svc.DeleteUser(ctx, admin.ID); err != nil {
		t.Fatalf("delete admin with a backup present: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "cashier", Password: "secret1", Role: domain.RoleStaff,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	user, err := f.svc.Authenticate(ctx, "cashier", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "cashier" {
		t.Fatalf("user = %+v", user)
	}
	if _, err := f.svc.Authenticate(ctx, "cashier", "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
	if _, err := f.svc.Authenticate(ctx, "ghost", "secret1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown user: err = %v, want not found", err)
	}
}
