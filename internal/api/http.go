package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradepulse/engine/internal/domain"
	"github.com/tradepulse/engine/internal/middleware"
	"github.com/tradepulse/engine/internal/port"
	"go.uber.org/zap"
)

// HTTPServer carries the thin order-placement/CRUD surface. It only ever
// writes through the same stores the core reads; matching itself is driven
// by the scheduler, never from a request handler.
type HTTPServer struct {
	orders   port.OrderStore
	ledger   port.TradeLedger
	prices   port.PriceFeed
	throttle time.Duration
	log      *zap.Logger
}

func NewHTTPServer(orders port.OrderStore, ledger port.TradeLedger, prices port.PriceFeed, throttle time.Duration, log *zap.Logger) *HTTPServer {
	return &HTTPServer{orders: orders, ledger: ledger, prices: prices, throttle: throttle, log: log}
}

func (s *HTTPServer) Run(addr string) error {
	r := gin.Default()
	r.Use(middleware.NewOwnerThrottle(s.throttle).Middleware())
	s.register(r)
	return r.Run(addr)
}

// Router exposes the configured routes without the default middleware, for
// tests.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	s.register(r)
	return r
}

func (s *HTTPServer) register(r *gin.Engine) {
	r.POST("/bids", s.placeOrderHandler(domain.KindBid))
	r.GET("/bids/:userId", s.listOrdersHandler(domain.KindBid))
	r.POST("/bids/:id/cancel", s.cancelOrderHandler)
	r.POST("/stoplosses", s.placeOrderHandler(domain.KindStopLoss))
	r.GET("/stoplosses/:userId", s.listOrdersHandler(domain.KindStopLoss))
	r.POST("/stoplosses/:id/cancel", s.cancelOrderHandler)
	r.GET("/trades/:userId", s.getTradesHandler)
	r.PUT("/quotes", s.putQuoteHandler)
}

type placeOrderRequest struct {
	OwnerID    string          `json:"owner_id" binding:"required"`
	Instrument string          `json:"instrument" binding:"required"`
	Side       domain.Side     `json:"side" binding:"required"`
	Price      decimal.Decimal `json:"price" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
}

type cancelOrderRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

func (s *HTTPServer) placeOrderHandler(kind domain.OrderKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !domain.ValidSide(req.Side) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "side must be either \"buy\" or \"sell\""})
			return
		}
		if !req.Price.IsPositive() || !req.Quantity.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price and quantity must be greater than zero"})
			return
		}
		if _, err := s.prices.Quote(c.Request.Context(), req.Instrument); err != nil {
			if errors.Is(err, port.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "instrument not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		o := &domain.Order{
			ID:         uuid.New().String(),
			OwnerID:    req.OwnerID,
			Instrument: req.Instrument,
			Kind:       kind,
			Side:       req.Side,
			Price:      req.Price,
			Quantity:   req.Quantity,
			Status:     domain.Active,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.orders.SaveOrder(c.Request.Context(), o); err != nil {
			s.log.Warn("order save failed", zap.String("owner_id", req.OwnerID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func (s *HTTPServer) listOrdersHandler(kind domain.OrderKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := s.orders.OrdersByOwner(c.Request.Context(), c.Param("userId"), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// cancelOrderHandler flips an active order to canceled through the same
// conditional transition the engine uses; an order that already settled or
// expired reports a conflict rather than flipping state.
func (s *HTTPServer) cancelOrderHandler(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orderID := c.Param("id")
	o, err := s.orders.OrderByID(c.Request.Context(), orderID)
	if errors.Is(err, port.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if o.OwnerID != req.OwnerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	won, err := s.orders.TryTransition(c.Request.Context(), orderID, domain.Active, domain.Canceled)
	if err != nil {
		s.log.Warn("cancel transition failed", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !won {
		c.JSON(http.StatusConflict, gin.H{"error": "order is no longer active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"canceled": orderID})
}

func (s *HTTPServer) getTradesHandler(c *gin.Context) {
	trades, err := s.ledger.TradesByOwner(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// putQuoteHandler is the ingest path for the out-of-band price feeder.
func (s *HTTPServer) putQuoteHandler(c *gin.Context) {
	var q domain.Quote
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Instrument == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instrument required"})
		return
	}
	if !domain.ValidExchange(q.Exchange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange"})
		return
	}
	q.UpdatedAt = time.Now()
	if err := s.prices.SetQuote(c.Request.Context(), &q); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instrument": q.Instrument})
}
