package handler

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/config"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/service"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/xuri/excelize/v2"
)

// AdminHandler serves the back office: locks, supplier assignment, payment
// confirmation and catalog management.
type AdminHandler struct {
	services *service.Services
	cfg      *config.Config
}

func NewAdminHandler(services *service.Services, cfg *config.Config) *AdminHandler {
	return &AdminHandler{services: services, cfg: cfg}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login exchanges the admin password for a session token.
// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if h.cfg.Admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Admin.Password)) != 1 {
		Error(c, 40101, "Invalid password")
		return
	}

	now := time.Now()
	claims := middleware.AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.JWT.AccessTokenExpire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.JWT.Secret))
	if err != nil {
		InternalError(c, "failed to sign token")
		return
	}

	Success(c, gin.H{
		"token":      signed,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// ListOrders returns the paginated order book.
// GET /api/admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	orders, total, err := h.services.Orders.List(c.Request.Context(), c.Query("tab"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: orders,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// SearchOrders matches orders on name, email or ID.
// GET /api/admin/orders/search?q=...
func (h *AdminHandler) SearchOrders(c *gin.Context) {
	orders, err := h.services.Orders.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, orders)
}

// ConfirmPayment marks an order paid.
// POST /api/admin/orders/:id/confirm-payment
func (h *AdminHandler) ConfirmPayment(c *gin.Context) {
	if err := h.services.Orders.ConfirmPayment(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// MarkUnpaid reverts a payment confirmation.
// POST /api/admin/orders/:id/mark-unpaid
func (h *AdminHandler) MarkUnpaid(c *gin.Context) {
	if err := h.services.Orders.MarkUnpaid(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

type orderLockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

// SetOrderLock locks or unlocks one order against customer edits.
// PUT /api/admin/orders/:id/lock
func (h *AdminHandler) SetOrderLock(c *gin.Context) {
	var req orderLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := h.services.Orders.SetAdminLock(c.Request.Context(), c.Param("id"), *req.Locked); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// ProofURL returns a short-lived link to an order's payment screenshot.
// GET /api/admin/orders/:id/proof
func (h *AdminHandler) ProofURL(c *gin.Context) {
	order, err := h.services.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if order.PaymentProofURI == "" {
		NotFound(c, "order has no payment proof")
		return
	}

	url, err := h.services.PaymentProof.URL(c.Request.Context(), order.PaymentProofURI)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"url": url})
}

type formLockRequest struct {
	Locked  *bool  `json:"locked" binding:"required"`
	Message string `json:"message"`
}

// SetGlobalLock opens or closes the whole form.
// PUT /api/admin/locks/global
func (h *AdminHandler) SetGlobalLock(c *gin.Context) {
	var req formLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	lock, err := h.services.Locks.SetGlobalLock(c.Request.Context(), *req.Locked, req.Message)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, lock)
}

// SetTabLock opens or closes one tab.
// PUT /api/admin/locks/tabs/:tab
func (h *AdminHandler) SetTabLock(c *gin.Context) {
	var req formLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	lock, err := h.services.Locks.SetTabLock(c.Request.Context(), c.Param("tab"), *req.Locked, req.Message)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, lock)
}

// ListTabLocks returns every tab lock on record.
// GET /api/admin/locks/tabs
func (h *AdminHandler) ListTabLocks(c *gin.Context) {
	locks, err := h.services.Locks.TabLocks(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, locks)
}

type assignSupplierRequest struct {
	Supplier string `json:"supplier" binding:"required"`
}

// AssignSupplier binds a tab to one catalog supplier. The assignment is
// rejected unless the supplier actually exists in the catalog.
// PUT /api/admin/tabs/:tab/supplier
func (h *AdminHandler) AssignSupplier(c *gin.Context) {
	var req assignSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	snapshot, err := h.services.Catalog.Snapshot(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	if !snapshot.HasSupplier(req.Supplier) {
		BadRequest(c, fmt.Sprintf("supplier %q does not exist in the catalog", req.Supplier))
		return
	}

	if err := h.services.Locks.AssignSupplier(c.Request.Context(), c.Param("tab"), req.Supplier); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

type currentTabRequest struct {
	TabName string `json:"tab_name" binding:"required"`
}

// SetCurrentTab switches the tab new orders land in.
// PUT /api/admin/tabs/current
func (h *AdminHandler) SetCurrentTab(c *gin.Context) {
	var req currentTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := h.services.Locks.SetCurrentTab(c.Request.Context(), req.TabName); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

type productLockRequest struct {
	Locked  *bool `json:"locked" binding:"required"`
	MaxKits int   `json:"max_kits"`
}

// SetProductLock locks a product or changes its kit ceiling.
// PUT /api/admin/products/:code/lock
func (h *AdminHandler) SetProductLock(c *gin.Context) {
	var req productLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	err := h.services.Inventory.SetProductLock(c.Request.Context(), c.Param("code"), *req.Locked, req.MaxKits, "admin")
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// UpsertProduct creates or updates one catalog row.
// POST /api/admin/products
func (h *AdminHandler) UpsertProduct(c *gin.Context) {
	var product entity.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := h.services.Catalog.UpsertProduct(c.Request.Context(), &product); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, product)
}

// ImportCatalog replaces the catalog from a spreadsheet upload.
// POST /api/admin/products/import
func (h *AdminHandler) ImportCatalog(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "Please upload an Excel file")
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		BadRequest(c, "Unable to parse Excel file: "+err.Error())
		return
	}
	defer f.Close()

	result, err := h.services.Catalog.ImportXLSX(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// DownloadTemplate serves the blank catalog import sheet.
// GET /api/admin/products/template
func (h *AdminHandler) DownloadTemplate(c *gin.Context) {
	f, err := h.services.Catalog.ExportTemplate()
	if err != nil {
		RespondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\"Catalog_Import_Template.xlsx\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write template: "+err.Error())
	}
}

// ExportOrders downloads the order book as a spreadsheet.
// GET /api/admin/orders/export
func (h *AdminHandler) ExportOrders(c *gin.Context) {
	f, err := h.services.Orders.ExportOrderBook(c.Request.Context(), c.Query("tab"))
	if err != nil {
		RespondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("Orders_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// ListSuppliers returns the distinct supplier names in the catalog.
// GET /api/admin/suppliers
func (h *AdminHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.services.Catalog.Suppliers(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, suppliers)
}

// SupplierSummary aggregates active items per supplier for purchasing.
// GET /api/admin/suppliers/summary
func (h *AdminHandler) SupplierSummary(c *gin.Context) {
	summary, err := h.services.Orders.SupplierSummary(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, summary)
}
