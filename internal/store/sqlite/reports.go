package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
)

// Reports read straight from the ledger tables on every call. Nothing here
// writes and nothing is cached.

func (s *Store) DailySales(ctx context.Context, date string) (domain.DailySalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := domain.DailySalesReport{Date: date}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(gross_amount), 0), COALESCE(SUM(discount), 0), COALESCE(SUM(net_amount), 0)
		FROM sales WHERE date(created_at) = ?`, date).
		Scan(&rep.SaleCount, &rep.Gross, &rep.Discount, &rep.Net)
	if err != nil {
		return domain.DailySalesReport{}, fmt.Errorf("sqlite: daily sales: %w", err)
	}
	return rep, nil
}

func (s *Store) MonthlySales(ctx context.Context, month string) (domain.MonthlySalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := domain.MonthlySalesReport{Month: month}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(gross_amount), 0), COALESCE(SUM(discount), 0), COALESCE(SUM(net_amount), 0)
		FROM sales WHERE strftime('%Y-%m', created_at) = ?`, month).
		Scan(&rep.SaleCount, &rep.Gross, &rep.Discount, &rep.Net)
	if err != nil {
		return domain.MonthlySalesReport{}, fmt.Errorf("sqlite: monthly sales: %w", err)
	}
	return rep, nil
}

func (s *Store) LowStock(ctx context.Context) ([]domain.LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT st.product_id, p.name, p.barcode, sz.label, st.quantity, st.min_quantity
		FROM stock st
		JOIN products p ON p.id = st.product_id
		JOIN sizes sz ON sz.id = st.size_id
		WHERE st.quantity <= st.min_quantity
		ORDER BY st.quantity ASC, p.name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: low stock: %w", err)
	}
	defer rows.Close()

	var out []domain.LowStockAlert
	for rows.Next() {
		var a domain.LowStockAlert
		if err := rows.Scan(&a.ProductID, &a.ProductName, &a.Barcode, &a.SizeLabel,
			&a.Quantity, &a.MinQuantity); err != nil {
			return nil, fmt.Errorf("sqlite: scan low stock: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SalesList(ctx context.Context, from, to string) ([]domain.SaleSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.number, s.gross_amount, s.discount, s.net_amount,
		       s.payment_method, s.note, s.created_at,
		       COALESCE((SELECT SUM(quantity) FROM sale_items WHERE sale_id = s.id), 0),
		       COALESCE((SELECT SUM(ri.quantity) FROM return_items ri
		                 JOIN returns r ON r.id = ri.return_id
		                 WHERE r.sale_id = s.id), 0)
		FROM sales s
		WHERE date(s.created_at) BETWEEN ? AND ?
		ORDER BY s.id DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sqlite: sales list: %w", err)
	}
	defer rows.Close()

	var out []domain.SaleSummary
	for rows.Next() {
		var (
			sum      domain.SaleSummary
			sold     int
			returned int
		)
		if err := rows.Scan(&sum.ID, &sum.Number, &sum.GrossAmount, &sum.Discount,
			&sum.NetAmount, &sum.PaymentMethod, &sum.Note, &sum.CreatedAt,
			&sold, &returned); err != nil {
			return nil, fmt.Errorf("sqlite: scan sale summary: %w", err)
		}
		sum.ItemCount = sold
		switch {
		case returned == 0:
			sum.ReturnStatus = domain.ReturnStatusNone
		case returned >= sold:
			sum.ReturnStatus = domain.ReturnStatusFull
		default:
			sum.ReturnStatus = domain.ReturnStatusPartial
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Profit aggregates sold lines per (product, size) within the range,
// subtracts returns accepted in the same range, and nets the report total
// against discounts given.
func (s *Store) Profit(ctx context.Context, from, to string) (domain.ProfitReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ productID, sizeID int64 }
	acc := map[key]*domain.ProfitReportItem{}
	var order []key

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.product_id, si.size_id, p.name, p.barcode, sz.label,
		       p.cost_price, p.sale_price, SUM(si.quantity), SUM(si.line_total)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		JOIN sizes sz ON sz.id = si.size_id
		WHERE date(s.created_at) BETWEEN ? AND ?
		GROUP BY si.product_id, si.size_id
		ORDER BY p.name, sz.label`, from, to)
	if err != nil {
		return domain.ProfitReport{}, fmt.Errorf("sqlite: profit sold lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k       key
			it      domain.ProfitReportItem
			revenue float64
		)
		if err := rows.Scan(&k.productID, &k.sizeID, &it.ProductName, &it.Barcode,
			&it.SizeLabel, &it.CostPrice, &it.SalePrice, &it.Quantity, &revenue); err != nil {
			return domain.ProfitReport{}, fmt.Errorf("sqlite: scan profit line: %w", err)
		}
		it.ProductID = k.productID
		it.TotalSales = revenue
		acc[k] = &it
		order = append(order, k)
	}
	if err := rows.Err(); err != nil {
		return domain.ProfitReport{}, err
	}

	retRows, err := s.db.QueryContext(ctx, `
		SELECT ri.product_id, ri.size_id, p.name, p.barcode, sz.label,
		       p.cost_price, p.sale_price, SUM(ri.quantity), SUM(ri.line_total)
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		JOIN products p ON p.id = ri.product_id
		JOIN sizes sz ON sz.id = ri.size_id
		WHERE date(r.created_at) BETWEEN ? AND ?
		GROUP BY ri.product_id, ri.size_id`, from, to)
	if err != nil {
		return domain.ProfitReport{}, fmt.Errorf("sqlite: profit returned lines: %w", err)
	}
	defer retRows.Close()

	for retRows.Next() {
		var (
			k        key
			it       domain.ProfitReportItem
			qty      int
			refunded float64
		)
		if err := retRows.Scan(&k.productID, &k.sizeID, &it.ProductName, &it.Barcode,
			&it.SizeLabel, &it.CostPrice, &it.SalePrice, &qty, &refunded); err != nil {
			return domain.ProfitReport{}, fmt.Errorf("sqlite: scan returned line: %w", err)
		}
		entry, ok := acc[k]
		if !ok {
			it.ProductID = k.productID
			entry = &it
			acc[k] = entry
			order = append(order, k)
		}
		entry.Quantity -= qty
		entry.TotalSales -= refunded
	}
	if err := retRows.Err(); err != nil {
		return domain.ProfitReport{}, err
	}

	rep := domain.ProfitReport{From: from, To: to}
	for _, k := range order {
		it := acc[k]
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

	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(discount), 0) FROM sales
		WHERE date(created_at) BETWEEN ? AND ?`, from, to).
		Scan(&rep.TotalDiscount); err != nil {
		return domain.ProfitReport{}, fmt.Errorf("sqlite: sum discounts: %w", err)
	}
	rep.NetProfit = rep.TotalProfit - rep.TotalDiscount
	return rep, nil
}

// ProductStatistics summarizes the movement ledger per product: inbound
// movements count as purchasing, outbound as selling. Values come from the
// recorded inbound cost (falling back to the product cost price) and the
// current sale price.
func (s *Store) ProductStatistics(ctx context.Context, from, to string, categoryID *int64) (domain.ProductStatsReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT p.id, p.name, p.barcode, p.category_id, c.name,
		       p.cost_price, p.sale_price,
		       COALESCE((SELECT SUM(m.quantity) FROM stock_movements m
		                 WHERE m.product_id = p.id AND m.kind = 'in'
		                   AND date(m.created_at) BETWEEN ? AND ?), 0),
		       COALESCE((SELECT SUM(COALESCE(m.total_value, m.quantity * p.cost_price))
		                 FROM stock_movements m
		                 WHERE m.product_id = p.id AND m.kind = 'in'
		                   AND date(m.created_at) BETWEEN ? AND ?), 0),
		       COALESCE((SELECT SUM(m.quantity) FROM stock_movements m
		                 WHERE m.product_id = p.id AND m.kind = 'out'
		                   AND date(m.created_at) BETWEEN ? AND ?), 0),
		       COALESCE((SELECT SUM(st.quantity) FROM stock st WHERE st.product_id = p.id), 0)
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id`
	args := []any{from, to, from, to, from, to}
	if categoryID != nil {
		query += ` WHERE p.category_id = ?`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY p.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ProductStatsReport{}, fmt.Errorf("sqlite: product statistics: %w", err)
	}
	defer rows.Close()

	rep := domain.ProductStatsReport{From: from, To: to}
	var marginSum float64
	var marginCount int
	for rows.Next() {
		var (
			it        domain.ProductStats
			catID     sql.NullInt64
			cat       sql.NullString
			costPrice float64
			salePrice float64
		)
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Barcode, &catID, &cat,
			&costPrice, &salePrice,
			&it.PurchasedQty, &it.PurchaseValue, &it.SoldQty, &it.CurrentStock); err != nil {
			return domain.ProductStatsReport{}, fmt.Errorf("sqlite: scan product stats: %w", err)
		}
		if catID.Valid {
			it.CategoryID = &catID.Int64
		}
		if cat.Valid {
			it.CategoryName = &cat.String
		}
		if it.PurchasedQty == 0 && it.SoldQty == 0 && it.CurrentStock == 0 {
			continue
		}
		it.SalesValue = float64(it.SoldQty) * salePrice
		it.UnitMargin = salePrice - costPrice
		it.Profit = it.SalesValue - float64(it.SoldQty)*costPrice
		rep.Items = append(rep.Items, it)

		rep.TotalPurchasedQty += it.PurchasedQty
		rep.TotalSoldQty += it.SoldQty
		rep.TotalPurchaseValue += it.PurchaseValue
		rep.TotalSalesValue += it.SalesValue
		rep.TotalProfit += it.Profit
		if costPrice > 0 {
			marginSum += it.UnitMargin / costPrice * 100
			marginCount++
		}
	}
	if err := rows.Err(); err != nil {
		return domain.ProductStatsReport{}, err
	}
	if marginCount > 0 {
		rep.AvgMarginPercent = marginSum / float64(marginCount)
	}
	return rep, nil
}

func (s *Store) StockValuation(ctx context.Context) (domain.StockValuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v domain.StockValuation
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT st.product_id),
		       COALESCE(SUM(st.quantity), 0),
		       COALESCE(SUM(st.quantity * p.cost_price), 0),
		       COALESCE(SUM(st.quantity * p.sale_price), 0)
		FROM stock st
		JOIN products p ON p.id = st.product_id`).
		Scan(&v.ProductCount, &v.TotalUnits, &v.CostValue, &v.SaleValue)
	if err != nil {
		return domain.StockValuation{}, fmt.Errorf("sqlite: stock valuation: %w", err)
	}
	v.PotentialProfit = v.SaleValue - v.CostValue
	return v, nil
}

// CustomerDebtSummary lists every customer with debt activity. Remaining is
// deliberately unclamped so overpayments show as negative balances here,
// unlike the per-customer outstanding figure.
func (s *Store) CustomerDebtSummary(ctx context.Context) ([]domain.CustomerDebtSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT cu.id, TRIM(cu.first_name || ' ' || cu.last_name), COALESCE(cu.phone, ''),
		       cu.opening_debt + COALESCE(cs.total, 0) AS total_debt,
		       COALESCE(pm.total, 0) AS total_paid
		FROM customers cu
		LEFT JOIN (SELECT customer_id, SUM(net_amount) AS total FROM sales
		           WHERE payment_method = 'credit' GROUP BY customer_id) cs
		       ON cs.customer_id = cu.id
		LEFT JOIN (SELECT customer_id, SUM(amount) AS total FROM debt_payments
		           GROUP BY customer_id) pm
		       ON pm.customer_id = cu.id
		WHERE cu.opening_debt != 0 OR cs.total IS NOT NULL OR pm.total IS NOT NULL
		ORDER BY total_debt - total_paid DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: customer debt summary: %w", err)
	}
	defer rows.Close()

	var out []domain.CustomerDebtSummary
	for rows.Next() {
		var d domain.CustomerDebtSummary
		if err := rows.Scan(&d.CustomerID, &d.CustomerName, &d.Phone, &d.TotalDebt, &d.TotalPaid); err != nil {
			return nil, fmt.Errorf("sqlite: scan debt summary: %w", err)
		}
		d.Remaining = d.TotalDebt - d.TotalPaid
		out = append(out, d)
	}
	return out, rows.Err()
}
