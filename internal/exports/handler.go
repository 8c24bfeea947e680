package exports

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"partpay/financing-portal/financing-portal-backend/internal/financing"
)

// Handler serves contract statements and installment schedules as
// downloadable documents.
type Handler struct {
	financing financing.Service
	statement *StatementGenerator
	schedule  *ScheduleExporter
	logger    *zap.Logger
}

func NewHandler(financingService financing.Service, decimals uint8, logger *zap.Logger) *Handler {
	statementOpts := DefaultStatementOptions()
	statementOpts.Decimals = decimals
	scheduleOpts := DefaultScheduleOptions()
	scheduleOpts.Decimals = decimals

	return &Handler{
		financing: financingService,
		statement: NewStatementGenerator(statementOpts),
		schedule:  NewScheduleExporter(scheduleOpts),
		logger:    logger,
	}
}

// RegisterRoutes registers export endpoints on the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	contracts := rg.Group("/contracts")
	{
		contracts.GET("/:id/statement.pdf", h.downloadStatement)
		contracts.GET("/:id/schedule.xlsx", h.downloadSchedule)
	}
}

func (h *Handler) downloadStatement(c *gin.Context) {
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	ctx := c.Request.Context()
	contract, err := h.financing.GetContract(ctx, contractID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
		return
	}
	equipment, err := h.financing.GetEquipment(ctx, contract.EquipmentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	status, err := h.financing.GetContractStatus(ctx, contractID)
	if err != nil {
		h.logger.Error("failed to compute contract status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute contract status"})
		return
	}

	filename := fmt.Sprintf("statement-%s.pdf", contractID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/pdf")

	if err := h.statement.Generate(contract, equipment, status, c.Writer); err != nil {
		h.logger.Error("failed to render statement", zap.Error(err))
	}
}

func (h *Handler) downloadSchedule(c *gin.Context) {
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.financing.GetContract(c.Request.Context(), contractID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
		return
	}

	filename := fmt.Sprintf("schedule-%s.xlsx", contractID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.schedule.Export(contract, c.Writer); err != nil {
		h.logger.Error("failed to render schedule", zap.Error(err))
	}
}
