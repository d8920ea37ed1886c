package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"grocery-orders/delivery"
	"grocery-orders/middlewares"
	"grocery-orders/models"
)

type DeliveryController struct {
	pricer *delivery.Pricer
}

func NewDeliveryController(pricer *delivery.Pricer) *DeliveryController {
	return &DeliveryController{pricer: pricer}
}

type quoteRequest struct {
	Lat      *float64        `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng      *float64        `json:"lng" binding:"required,gte=-180,lte=180"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Express  bool            `json:"express"`
}

// Quote prices delivery to a customer location for the checkout page.
func (dc *DeliveryController) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required and must be valid coordinates"})
		return
	}
	if req.Subtotal.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subtotal must not be negative"})
		return
	}

	q := dc.pricer.Quote(models.Coordinate{Lat: *req.Lat, Lng: *req.Lng}, req.Subtotal, req.Express)
	middlewares.RecordDeliveryQuote(q.WithinRadius)
	c.JSON(http.StatusOK, q)
}
