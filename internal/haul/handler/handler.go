package handler

import (
	"strconv"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/config"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/service"
	"github.com/gin-gonic/gin"
)

// Handlers is the handler collection mounted on the router.
type Handlers struct {
	Catalog *CatalogHandler
	Order   *OrderHandler
	Admin   *AdminHandler
}

func NewHandlers(services *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Catalog: NewCatalogHandler(services.Catalog, services.Inventory, services.Locks, services.Rates),
		Order:   NewOrderHandler(services.Orders, services.PaymentProof),
		Admin:   NewAdminHandler(services, cfg),
	}
}

// === Response helpers ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func Unavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// RespondError maps a service error to the right business code.
func RespondError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		BadRequest(c, err.Error())
	case service.KindNotFound:
		NotFound(c, err.Error())
	case service.KindDenied:
		Forbidden(c, err.Error())
	case service.KindAmbiguousSupplier:
		Conflict(c, err.Error())
	case service.KindExternalUnavailable:
		Unavailable(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
