package router

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clouddesign.com.br/storefront/pkg/global"
	"clouddesign.com.br/storefront/pkg/models"
	"clouddesign.com.br/storefront/pkg/redis"
)

const (
	requestIDHeader = "X-Request-ID"
	adminCookie     = "token"

	ctxRequestID = "request_id"
	ctxSessionID = "session_id"
	ctxAdmin     = "admin"
)

// Session ids are generated by the storefront; anything else is refused
// before it reaches a storage key.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			zap.L().Error("request", fields...)
		case c.Writer.Status() >= 400:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	}
}

func recoverJSON(c *gin.Context, recovered any) {
	zap.L().Error("panic recovered", zap.Any("panic", recovered), zap.String("request_id", c.GetString(ctxRequestID)))
	c.AbortWithStatusJSON(http.StatusInternalServerError, global.ErrorResponse("Erro interno do servidor", nil))
}

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if !sessionIDPattern.MatchString(sessionID) {
			c.AbortWithStatusJSON(http.StatusBadRequest, global.ErrorResponse("Sessão inválida",
				global.FieldError("sessionId", "session id must be 8 to 64 letters, digits, '-' or '_'", "invalid_format")))
			return
		}
		c.Set(ctxSessionID, sessionID)
		c.Next()
	}
}

// AdminAuth accepts the session token as a bearer header or the token
// cookie set at login.
func AdminAuth(sessions *redis.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		username, err := sessions.Lookup(c.Request.Context(), token)
		if errors.Is(err, models.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, global.ErrorResponse("Não autorizado", nil))
			return
		}
		if err != nil {
			zap.L().Error("admin session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, global.ErrorResponse("Erro interno do servidor", nil))
			return
		}
		c.Set(ctxAdmin, username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	token, _ := c.Cookie(adminCookie)
	return token
}
