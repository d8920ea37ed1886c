package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grocery-orders/middlewares"
	"grocery-orders/services"
)

type OrderController struct {
	orders *services.OrderManager
}

func NewOrderController(orders *services.OrderManager) *OrderController {
	return &OrderController{orders: orders}
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("create", succeeded(c)) }()
	id, ok := middlewares.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var in services.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// The owner is always the caller; the account email is the fallback
	// address for the confirmation.
	in.UserID = id.UserID
	if in.CustomerEmail == nil && id.Email != "" {
		email := id.Email
		in.CustomerEmail = &email
	}

	order, err := oc.orders.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (oc *OrderController) GetUserOrders(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("list", succeeded(c)) }()
	id, ok := middlewares.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orders, err := oc.orders.ListForUser(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (oc *OrderController) GetOrderDetails(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("details", succeeded(c)) }()
	id, ok := middlewares.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	order, err := oc.orders.Get(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
