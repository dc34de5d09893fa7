package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/daniil11ru/bustrack/cli/tracker/api/dto/request"
	"github.com/daniil11ru/bustrack/cli/tracker/api/dto/response"
	"github.com/daniil11ru/bustrack/cli/tracker/domain"
)

// TokenService — выпуск и проверка токенов водителей.
type TokenService interface {
	Issue(busID string, driverID string) (string, error)
	Verify(token string) (string, error)
}

type Handler struct {
	Tokens          TokenService
	ReportPosition  *domain.ReportPosition
	GetLastPosition *domain.GetLastPosition
}

func NewHandler(tokens TokenService, report *domain.ReportPosition, last *domain.GetLastPosition) *Handler {
	return &Handler{
		Tokens:          tokens,
		ReportPosition:  report,
		GetLastPosition: last,
	}
}

// UpdatePosition принимает REST-отчет водителя. Токен привязывает отчет
// к конкретному транспорту; идентификатор из тела запроса не берется.
func (h *Handler) UpdatePosition(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	busID, err := h.Tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	req := request.UpdatePosition{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng required as numbers"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng required as numbers"})
		return
	}

	_, err = h.ReportPosition.Run(domain.Report{
		BusID:     busID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetLast возвращает последнюю известную позицию транспорта.
func (h *Handler) GetLast(c *gin.Context) {
	busID := c.Param("bus_id")

	p, ok := h.GetLastPosition.Run(busID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, response.LastPosition{
		BusID:     busID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
	})
}

// IssueDriverToken выпускает токен водителя. Эндпоинт предназначен для
// отладки и административного использования; боевой выпуск токенов
// выполняется внешним сервисом авторизации.
func (h *Handler) IssueDriverToken(c *gin.Context) {
	req := request.IssueToken{}
	if err := c.ShouldBindJSON(&req); err != nil || req.BusID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "busId required"})
		return
	}

	if req.DriverID == "" {
		req.DriverID = "demo"
	}

	token, err := h.Tokens.Issue(req.BusID, req.DriverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
