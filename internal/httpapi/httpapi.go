package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kasirpos/internal/metrics"
	"kasirpos/internal/service"
	"kasirpos/internal/store"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	log           logrus.FieldLogger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger logrus.FieldLogger) *API {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		log:           logger.WithField("module", "httpapi"),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func (a *API) Handler() http.Handler {
	r := gin.New()
	// Rate limiting keys on the socket address, never on forwarded headers.
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), a.requestLogger(), metrics.Middleware(), securityHeaders(), cors.New(a.corsConfig()), limitBody())

	r.GET("/healthz", a.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", a.handleLogin)

	authed := v1.Group("", a.requireAuth())
	authed.POST("/auth/logout", a.handleLogout)
	authed.GET("/auth/me", a.handleMe)

	authed.GET("/products", a.handleListProducts)
	authed.GET("/products/:barcode", a.handleGetProduct)
	authed.POST("/products", a.handleCreateProduct)
	authed.PUT("/products/:barcode", a.handleUpdateProduct)
	authed.POST("/products/import", a.handleImportProducts)

	authed.GET("/cart", a.handleCart)
	authed.DELETE("/cart", a.handleClearCart)
	authed.POST("/cart/items", a.handleAddCartItem)
	authed.PATCH("/cart/items/:barcode", a.handleUpdateCartItem)
	authed.DELETE("/cart/items/:barcode", a.handleRemoveCartItem)
	authed.GET("/cart/suggestion", a.handleSuggestion)
	authed.POST("/checkout", a.handleCheckout)

	authed.GET("/returns/:id", a.handleFindSale)
	authed.POST("/returns/:id", a.handleProcessReturn)
	authed.POST("/purchases", a.handlePurchase)

	authed.GET("/reports/period", a.handlePeriodReport)
	authed.GET("/reports/sales.xlsx", a.handleSalesExport)
	authed.GET("/reports/stock.xlsx", a.handleStockExport)

	authed.GET("/users", a.handleListUsers)
	authed.POST("/users", a.handleCreateUser)
	authed.DELETE("/users/:id", a.handleDeleteUser)
	authed.PUT("/users/:id/permissions", a.handleSetPermissions)
	authed.PUT("/users/:id/password", a.handleChangePassword)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errors.New("route not found"))
	})
	return r
}

func (a *API) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	origin := strings.TrimSpace(a.allowedOrigin)
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(origin, ",")
	}
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		c.Next()
	}
}

// limitBody caps JSON bodies at 1 MiB and spreadsheet uploads at 10 MiB.
func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			limit := int64(maxJSONBody)
			if strings.HasPrefix(strings.ToLower(c.ContentType()), "multipart/") {
				limit = maxUploadBody
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()
		a.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(startedAt).String(),
		}).Debug("request")
	}
}

func (a *API) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
			c.Abort()
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func decodeJSON(c *gin.Context, dest any) error {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicate), errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInsufficientPayment),
		errors.Is(err, service.ErrNothingToReturn),
		errors.Is(err, service.ErrEmptyExport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		a.log.WithError(err).WithField("path", c.Request.URL.Path).Error("internal error")
	}
	writeError(c, status, err)
}

func writeError(c *gin.Context, status int, err error) {
	// 5xx responses never carry internal error text.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}
