package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/server/http/dto"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserRef) == "" || strings.TrimSpace(req.Product) == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	order, paymentURL, err := h.facade.CreateOrder(
		c.Request.Context(),
		req.UserRef,
		model.ProductKind(req.Product),
		req.UserInput,
		req.AffiliateCode,
	)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrUnknownProduct):
			c.Status(http.StatusUnprocessableEntity)
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			c.Status(http.StatusConflict)
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{
		OrderID:    order.ID,
		Status:     string(order.Status),
		Product:    string(order.ProductKind),
		Amount:     order.Amount,
		Currency:   order.Currency,
		PaymentURL: paymentURL,
	})
}

// Status handles GET /api/orders/:orderID.
func (h *OrderHandler) Status(c *gin.Context) {
	orderID := c.Param("orderID")
	snapshot, err := h.facade.OrderStatus(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, toStatusResponse(snapshot))
}

func toStatusResponse(s model.StatusSnapshot) dto.StatusResponse {
	return dto.StatusResponse{
		OrderID:       s.OrderID,
		Status:        string(s.Status),
		Product:       string(s.ProductKind),
		Amount:        s.Amount,
		Currency:      s.Currency,
		Content:       s.GeneratedContent,
		RefundPending: s.RefundPending,
		UpdatedAt:     s.UpdatedAt,
	}
}
