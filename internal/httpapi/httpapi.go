// Package httpapi is the thin JSON command bridge in front of the service.
// Handlers decode, delegate, and encode; business rules live one layer down.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/service"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
)

type Server struct {
	svc  *service.Service
	auth *AuthManager
	mux  *http.ServeMux
}

func NewServer(svc *service.Service, auth *AuthManager) *Server {
	s := &Server{svc: svc, auth: auth, mux: http.NewServeMux()}

	s.mux.HandleFunc("/api/login", s.handleLogin)

	s.mux.HandleFunc("/api/products", s.authed(s.handleProducts))
	s.mux.HandleFunc("/api/products/", s.authed(s.handleProductSubtree))
	s.mux.HandleFunc("/api/stock", s.authed(s.handleStock))
	s.mux.HandleFunc("/api/stock/adjust", s.authed(s.handleStockAdjust))
	s.mux.HandleFunc("/api/stock/", s.authed(s.handleStockByID))

	s.mux.HandleFunc("/api/categories", s.authed(s.handleCategories))
	s.mux.HandleFunc("/api/categories/", s.authed(s.handleCategoryByID))
	s.mux.HandleFunc("/api/sizes", s.authed(s.handleSizes))
	s.mux.HandleFunc("/api/sizes/", s.authed(s.handleSizeByID))
	s.mux.HandleFunc("/api/colors", s.authed(s.handleColors))
	s.mux.HandleFunc("/api/colors/", s.authed(s.handleColorByID))

	s.mux.HandleFunc("/api/customers", s.authed(s.handleCustomers))
	s.mux.HandleFunc("/api/customers/", s.authed(s.handleCustomerSubtree))

	s.mux.HandleFunc("/api/sales", s.authed(s.handleSales))
	s.mux.HandleFunc("/api/sales/", s.authed(s.handleSaleByID))
	s.mux.HandleFunc("/api/returns", s.authed(s.handleReturns))
	s.mux.HandleFunc("/api/returns/", s.authed(s.handleReturnByID))
	s.mux.HandleFunc("/api/debt-payments", s.authed(s.handleDebtPayments))

	s.mux.HandleFunc("/api/reports/daily", s.authed(s.handleDailyReport))
	s.mux.HandleFunc("/api/reports/monthly", s.authed(s.handleMonthlyReport))
	s.mux.HandleFunc("/api/reports/low-stock", s.authed(s.handleLowStock))
	s.mux.HandleFunc("/api/reports/profit", s.authed(s.handleProfit))
	s.mux.HandleFunc("/api/reports/product-stats", s.authed(s.handleProductStats))
	s.mux.HandleFunc("/api/reports/stock-valuation", s.authed(s.handleStockValuation))
	s.mux.HandleFunc("/api/reports/debt-summary", s.authed(s.handleDebtSummary))

	s.mux.HandleFunc("/api/settings", s.authed(s.handleSettings))
	s.mux.HandleFunc("/api/users", s.authed(s.handleUsers))
	s.mux.HandleFunc("/api/users/", s.authed(s.handleUserByID))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ---- plumbing ----

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("[httpapi] WARN: encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("[httpapi] ERROR: %v", err)
		respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.Join(store.ErrValidation, err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter) {
	respond(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// authed verifies the bearer token and puts the actor on the context.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		actor, err := s.auth.VerifyToken(token)
		if err != nil {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

// requireAdmin gates mutating inventory, user, and settings operations.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || actor.Role != domain.RoleAdmin {
		respond(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
		return false
	}
	return true
}

func pathID(r *http.Request, prefix string) (int64, string, error) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	head, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, "", errors.Join(store.ErrValidation, errors.New("bad id in path"))
	}
	return id, tail, nil
}

// ---- auth ----

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token, expiresAt, err := s.auth.IssueToken(user)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		User:        user,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}

// ---- products ----

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if q := r.URL.Query().Get("query"); q != "" {
			list, err := s.svc.SearchProducts(r.Context(), q)
			if err != nil {
				writeError(w, err)
				return
			}
			respond(w, http.StatusOK, list)
			return
		}
		list, err := s.svc.ListProducts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		if !requireAdmin(w, r) {
			return
		}
		var req domain.ProductCreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		product, err := s.svc.CreateProduct(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, product)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleProductSubtree(w http.ResponseWriter, r *http.Request) {
	if barcode, ok := strings.CutPrefix(r.URL.Path, "/api/products/barcode/"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		product, err := s.svc.GetProductByBarcode(r.Context(), barcode)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, product)
		return
	}

	id, tail, err := pathID(r, "/api/products/")
	if err != nil {
		writeError(w, err)
		return
	}
	switch tail {
	case "":
		s.handleProductByID(w, r, id)
	case "stock":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		rows, err := s.svc.ListStockByProduct(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, rows)
	case "movements":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		moves, err := s.svc.ListMovements(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, moves)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleProductByID(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		product, err := s.svc.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, product)
	case http.MethodPut:
		if !requireAdmin(w, r) {
			return
		}
		var req domain.ProductUpdateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		product, err := s.svc.UpdateProduct(r.Context(), id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, product)
	case http.MethodDelete:
		if !requireAdmin(w, r) {
			return
		}
		if err := s.svc.DeleteProduct(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}

// ---- stock ----

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rows, err := s.svc.ListStock(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, rows)
	case http.MethodPost:
		if !requireAdmin(w, r) {
			return
		}
		var req domain.StockAddRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		row, err := s.svc.AddStock(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, row)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		ProductID int64    `json:"product_id"`
		SizeID    int64    `json:"size_id"`
		Delta     int      `json:"delta"`
		Kind      string   `json:"kind"`
		UnitCost  *float64 `json:"unit_cost,omitempty"`
		Note      string   `json:"note,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	row, err := s.svc.AdjustStock(r.Context(), domain.StockAdjustment{
		ProductID: req.ProductID,
		SizeID:    req.SizeID,
		Delta:     req.Delta,
		Kind:      req.Kind,
		UnitCost:  req.UnitCost,
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, row)
}

func (s *Server) handleStockByID(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/stock/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		if !requireAdmin(w, r) {
			return
		}
		var req domain.StockSetRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		row, err := s.svc.SetStock(r.Context(), id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, row)
	case http.MethodDelete:
		if !requireAdmin(w, r) {
			return
		}
		if err := s.svc.DeleteStock(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}

// ---- reference data ----

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.svc.ListCategories(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		if !requireAdmin(w, r) {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		c, err := s.svc.CreateCategory(r.Context(), req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/categories/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	if !requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Name string `json:"name"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		c, err := s.svc.UpdateCategory(r.Context(), id, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := s.svc.DeleteCategory(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSizes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.svc.ListSizes(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		if !requireAdmin(w, r) {
			return
		}
		var req struct {
			Label string `json:"label"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		sz, err := s.svc.CreateSize(r.Context(), req.Label)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, sz)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSizeByID(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/sizes/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	if !requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Label string `json:"label"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		sz, err := s.svc.UpdateSize(r.Context(), id, req.Label)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, sz)
	case http.MethodDelete:
		if err := s.svc.DeleteSize(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.svc.ListColors(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		if !requireAdmin(w, r) {
			return
		}
		var req struct {
			Name string `json:"name"`
			Code string `json:"code"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		c, err := s.svc.CreateColor(r.Context(), req.Name, req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleColorByID(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/colors/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	if !requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Name string `json:"name"`
			Code string `json:"code"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		c, err := s.svc.UpdateColor(r.Context(), id, req.Name, req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := s.svc.DeleteColor(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}

// ---- customers ----

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if q := r.URL.Query().Get("query"); q != "" {
			list, err := s.svc.SearchCustomers(r.Context(), q)
			if err != nil {
				writeError(w, err)
				return
			}
			respond(w, http.StatusOK, list)
			return
		}
		list, err := s.svc.ListCustomers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		var req domain.CustomerCreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		cu, err := s.svc.CreateCustomer(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, cu)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCustomerSubtree(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/customers/")
	if err != nil {
		writeError(w, err)
		return
	}
	switch tail {
	case "":
		s.handleCustomerByID(w, r, id)
	case "sales":
		list, err := s.svc.CustomerSales(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case "payments":
		list, err := s.svc.CustomerPayments(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case "debt":
		debt, err := s.svc.OutstandingDebt(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]float64{"outstanding": debt})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCustomerByID(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		cu, err := s.svc.GetCustomer(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, cu)
	case http.MethodPut:
		var req domain.CustomerUpdateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		cu, err := s.svc.UpdateCustomer(r.Context(), id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, cu)
	case http.MethodDelete:
		if !requireAdmin(w, r) {
			return
		}
		if err := s.svc.DeleteCustomer(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}

// ---- sales, returns, debt payments ----

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		list, err := s.svc.SalesList(r.Context(), from, to)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		sale, err := s.svc.CreateSale(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, sale)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSaleByID(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/sales/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sale, err := s.svc.GetSale(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, sale)
}

func (s *Server) handleReturns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.svc.ListReturns(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		var req domain.ReturnCreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		ret, err := s.svc.CreateReturn(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, ret)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleReturnByID(w http.ResponseWriter, r *http.Request) {
	id, tail, err := pathID(r, "/api/returns/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ret, err := s.svc.GetReturn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, ret)
}

func (s *Server) handleDebtPayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.svc.ListDebtPayments(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, list)
	case http.MethodPost:
		var req domain.DebtPaymentCreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		payment, err := s.svc.CreateDebtPayment(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, payment)
	default:
		methodNotAllowed(w)
	}
}

// ---- reports ----

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.DailySales(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, rep)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.MonthlySales(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, rep)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.svc.LowStock(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, alerts)
}

func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.Profit(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, rep)
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, errors.Join(store.ErrValidation, err))
			return
		}
		categoryID = &id
	}
	rep, err := s.svc.ProductStatistics(r.Context(),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"), categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, rep)
}

func (s *Server) handleStockValuation(w http.ResponseWriter, r *http.Request) {
	val, err := s.svc.StockValuation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, val)
}

func (s *Server) handleDebtSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.CustomerDebtSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, summary)
}

// ---- settings and users ----

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.svc.GetSettings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, settings)
	case http.MethodPut:
		if !requireAdmin(w, r) {
			return
		}
		var req domain.SettingsUpdateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		settings, err := s.svc.UpdateSettings(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, settings)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := s.svc.ListUsers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, users)
	case http.MethodPost:
		var req domain.UserCreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		user, err := s.svc.CreateUser(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	id, tail, err := pathID(r, "/api/users/")
	if err != nil || tail != "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req domain.UserUpdateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		user, err := s.svc.UpdateUser(r.Context(), id, req)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.svc.DeleteUser(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		respond(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w)
	}
}
