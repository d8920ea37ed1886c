package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"grocery-orders/middlewares"
	"grocery-orders/models"
	"grocery-orders/services"
)

type AdminController struct {
	orders *services.OrderManager
}

func NewAdminController(orders *services.OrderManager) *AdminController {
	return &AdminController{orders: orders}
}

// ListOrders supports ?status= and a free-text ?q= over order number,
// customer name and phone. status=all is the same as no filter.
func (ac *AdminController) ListOrders(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("admin_list", succeeded(c)) }()
	f := models.OrderFilter{Query: c.Query("q")}
	if s := c.Query("status"); s != "" && s != "all" {
		f.Status = models.OrderStatus(s)
	}

	orders, err := ac.orders.ListAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (ac *AdminController) GetByNumber(c *gin.Context) {
	order, err := ac.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (ac *AdminController) UpdateOrderStatus(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("update_status", succeeded(c)) }()
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	order, err := ac.orders.UpdateStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (ac *AdminController) UpdateAdminNotes(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("update_notes", succeeded(c)) }()
	var req struct {
		AdminNotes string `json:"admin_notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := ac.orders.UpdateAdminNotes(c.Request.Context(), c.Param("id"), req.AdminNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Stats reports ?date=YYYY-MM-DD, defaulting to today.
func (ac *AdminController) Stats(c *gin.Context) {
	day := ac.orders.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, ac.orders.Location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	stats, err := ac.orders.DailyStats(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
