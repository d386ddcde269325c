package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

type orderItemRequest struct {
	CollectionAddress string `json:"collectionAddress" validate:"required"`
	TokenID           string `json:"tokenId" validate:"required"`
	Quantity          int64  `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	IsSellOrder bool               `json:"isSellOrder"`
	Maker       string             `json:"maker" validate:"required"`
	NumItems    int64              `json:"numItems" validate:"required,min=1"`
	StartPrice  decimal.Decimal    `json:"startPrice"`
	EndPrice    decimal.Decimal    `json:"endPrice"`
	StartTime   int64              `json:"startTime" validate:"min=0"`
	EndTime     int64              `json:"endTime" validate:"min=0"`
	Items       []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Currency    string             `json:"currency" validate:"required"`
}

// createOrder validates an intake request, computes the content-addressed id
// and inserts the order into validActive. Duplicate submissions are absorbed
// by the cache's idempotent add.
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Maker) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maker is not a valid address"})
		return
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if !common.IsHexAddress(it.CollectionAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection address " + it.CollectionAddress})
			return
		}
		items = append(items, model.OrderItem{
			CollectionAddress: model.NormalizeAddress(it.CollectionAddress),
			TokenID:           it.TokenID,
			Quantity:          it.Quantity,
		})
	}

	order := &model.Order{
		IsSellOrder: req.IsSellOrder,
		Maker:       model.NormalizeAddress(req.Maker),
		NumItems:    req.NumItems,
		StartPrice:  req.StartPrice,
		EndPrice:    req.EndPrice,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Items:       items,
		Currency:    req.Currency,
	}
	order.ID = order.Hash()
	if err := order.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.book.Add(c.Request.Context(), model.ListValidActive, order)
	c.JSON(http.StatusCreated, gin.H{"id": order.ID})
}

func (s *Server) listOrders(c *gin.Context) {
	side := c.DefaultQuery("side", string(model.SideBuy))
	list := c.DefaultQuery("list", string(model.ListValidActive))
	if !model.ValidSide(side) || !model.ValidList(list) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown side or list"})
		return
	}
	orders := s.book.Orders(model.Side(side), model.ListID(list))
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) deleteOrder(c *gin.Context) {
	side, list, id := c.Param("side"), c.Param("list"), c.Param("id")
	if !model.ValidSide(side) || !model.ValidList(list) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown side or list"})
		return
	}
	// Absent ids are a no-op in the cache; deletion is idempotent.
	s.book.Delete(c.Request.Context(), model.Side(side), model.ListID(list), id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (s *Server) executeMatch(c *gin.Context) {
	match, ok := s.book.ExecuteMatch(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": true, "match": match})
}

func (s *Server) previewMatches(c *gin.Context) {
	matches := s.book.AllMatches(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
