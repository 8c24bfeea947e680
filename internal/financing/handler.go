package financing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	equipment := rg.Group("/equipment")
	{
		equipment.POST("", h.UploadEquipment)
		equipment.GET("/:id", h.GetEquipment)
		equipment.GET("/:id/verify", h.VerifyEquipmentAsset)
		equipment.PATCH("/:id", h.UpdateEquipment)
		equipment.PUT("/:id/delivery-status", h.UpdateDeliveryStatus)
		equipment.POST("/:id/fund", h.FundEquipment)
		equipment.POST("/:id/fund-for-borrower", h.FundEquipmentForBorrower)
		equipment.POST("/:id/fund-for-listing", h.FundEquipmentForListing)
	}

	contracts := rg.Group("/contracts")
	{
		contracts.POST("", h.CreateContract)
		contracts.GET("/:id", h.GetContract)
		contracts.GET("/:id/status", h.GetContractStatus)
		contracts.POST("/:id/payments", h.MakePayment)
		contracts.POST("/:id/confirm-delivery", h.ConfirmDelivery)
	}

	escrows := rg.Group("/escrows")
	{
		escrows.POST("/:id/confirm-funded-delivery", h.ConfirmFundedDelivery)
	}

	borrowers := rg.Group("/borrowers")
	{
		borrowers.POST("", h.InitializeBorrower)
		borrowers.GET("/:authority_id/credit-score", h.GetCreditScore)
		borrowers.GET("/:authority_id/contracts", h.ListBorrowerContracts)
		borrowers.POST("/:authority_id/repayments", h.TrackRepayment)
	}

	vendors := rg.Group("/vendors")
	{
		vendors.GET("/:id/equipment", h.ListVendorEquipment)
	}

	funders := rg.Group("/funders")
	{
		funders.GET("/:id/equipment", h.ListFundedEquipment)
	}
}

// respondError maps the error taxonomy onto HTTP statuses: validation 400,
// lookups 404, state conflicts 409, authorization 403, external failures 502,
// arithmetic and everything unclassified 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrEquipmentNotFound),
		errors.Is(err, ErrContractNotFound),
		errors.Is(err, ErrBorrowerNotFound),
		errors.Is(err, ErrEscrowNotFound):
		status = http.StatusNotFound
	default:
		switch KindOf(err) {
		case KindValidation:
			status = http.StatusBadRequest
		case KindStateConflict:
			status = http.StatusConflict
		case KindAuthorization:
			status = http.StatusForbidden
		case KindExternal:
			status = http.StatusBadGateway
		}
	}

	body := gin.H{"error": err.Error()}
	var de *DomainError
	if errors.As(err, &de) {
		body["code"] = de.Code
	}
	c.JSON(status, body)
}

func (h *Handler) UploadEquipment(c *gin.Context) {
	var req UploadEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	equipment, err := h.service.UploadEquipment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, equipment)
}

func (h *Handler) GetEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	equipment, err := h.service.GetEquipment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) VerifyEquipmentAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	verified, err := h.service.VerifyEquipmentAsset(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment_id": id, "verified": verified})
}

func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EquipmentID = id

	equipment, err := h.service.UpdateEquipment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) UpdateDeliveryStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	var req UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EquipmentID = id

	equipment, err := h.service.UpdateDeliveryStatus(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) FundEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	var req FundEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EquipmentID = id

	equipment, err := h.service.FundEquipment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) FundEquipmentForBorrower(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	var req FundForBorrowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EquipmentID = id

	equipment, err := h.service.FundEquipmentForBorrower(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) FundEquipmentForListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	var req FundForListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EquipmentID = id

	equipment, err := h.service.FundEquipmentForListing(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.service.CreateContract(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) GetContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.service.GetContract(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) GetContractStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	status, err := h.service.GetContractStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) MakePayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req MakePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ContractID = id

	contract, err := h.service.MakePayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) ConfirmDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ContractID = id

	if err := h.service.ConfirmDelivery(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

func (h *Handler) ConfirmFundedDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid escrow id"})
		return
	}

	var req ConfirmFundedDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EscrowID = id

	if err := h.service.ConfirmFundedDelivery(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

func (h *Handler) InitializeBorrower(c *gin.Context) {
	var req struct {
		AuthorityID uuid.UUID `json:"authority_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	borrower, err := h.service.InitializeBorrower(c.Request.Context(), req.AuthorityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, borrower)
}

func (h *Handler) GetCreditScore(c *gin.Context) {
	authorityID, err := uuid.Parse(c.Param("authority_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authority id"})
		return
	}

	score, err := h.service.GetCreditScore(c.Request.Context(), authorityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *Handler) ListBorrowerContracts(c *gin.Context) {
	authorityID, err := uuid.Parse(c.Param("authority_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authority id"})
		return
	}

	contracts, err := h.service.ListBorrowerContracts(c.Request.Context(), authorityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

func (h *Handler) TrackRepayment(c *gin.Context) {
	authorityID, err := uuid.Parse(c.Param("authority_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authority id"})
		return
	}

	var req TrackRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.AuthorityID = authorityID

	score, err := h.service.TrackRepayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *Handler) ListVendorEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}

	equipment, err := h.service.ListVendorEquipment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

func (h *Handler) ListFundedEquipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid funder id"})
		return
	}

	equipment, err := h.service.ListFundedEquipment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}
