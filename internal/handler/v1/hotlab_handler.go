package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/exam"
	"github.com/imena-mn/nmflow/internal/domain/hotlab"
	"github.com/imena-mn/nmflow/internal/handler/middleware"
	"github.com/imena-mn/nmflow/internal/service"
)

type HotLabHandler struct {
	hotLabSvc *service.HotLabService
}

func NewHotLabHandler(hotLabSvc *service.HotLabService) *HotLabHandler {
	return &HotLabHandler{hotLabSvc: hotLabSvc}
}

type createProductRequest struct {
	Name    string `json:"name" binding:"required"`
	Isotope string `json:"isotope" binding:"required"`
	Unit    string `json:"unit" binding:"required"`
}

func (h *HotLabHandler) CreateProduct(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createProductRequest
	if !bindJSON(c, &req) {
		return
	}

	p := &hotlab.Product{
		Name:    req.Name,
		Isotope: req.Isotope,
		Unit:    hotlab.ActivityUnit(req.Unit),
	}
	created, err := h.hotLabSvc.CreateProduct(c.Request.Context(), p, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, created)
}

type receiveLotRequest struct {
	ProductID           uuid.UUID  `json:"productId" binding:"required"`
	LotNumber           string     `json:"lotNumber" binding:"required"`
	ExpiryDate          time.Time  `json:"expiryDate" binding:"required"`
	CalibrationDateTime *time.Time `json:"calibrationDateTime"`
	InitialActivity     *float64   `json:"initialActivity"`
	Unit                string     `json:"unit" binding:"required"`
	ReceivedDate        time.Time  `json:"receivedDate"`
	QuantityReceived    int        `json:"quantityReceived" binding:"required"`
	Notes               string     `json:"notes"`
}

func (h *HotLabHandler) ReceiveLot(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req receiveLotRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &hotlab.CreateLotCommand{
		ProductID:           req.ProductID,
		LotNumber:           req.LotNumber,
		ExpiryDate:          req.ExpiryDate,
		CalibrationDateTime: req.CalibrationDateTime,
		InitialActivity:     req.InitialActivity,
		Unit:                hotlab.ActivityUnit(req.Unit),
		ReceivedDate:        req.ReceivedDate,
		QuantityReceived:    req.QuantityReceived,
		Notes:               req.Notes,
	}
	lot, err := h.hotLabSvc.ReceiveLot(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, lot)
}

type prepareDoseRequest struct {
	TracerLotID         uuid.UUID  `json:"tracerLotId" binding:"required"`
	PatientID           *uuid.UUID `json:"patientId"`
	ExamType            *string    `json:"examType"`
	ActivityPrepared    float64    `json:"activityPrepared" binding:"required"`
	Unit                string     `json:"unit" binding:"required"`
	PreparationDateTime time.Time  `json:"preparationDateTime"`
	PreparedBy          string     `json:"preparedBy" binding:"required"`
	Notes               string     `json:"notes"`
}

func (h *HotLabHandler) PrepareDose(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req prepareDoseRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &hotlab.CreatePreparationCommand{
		TracerLotID:         req.TracerLotID,
		PatientID:           req.PatientID,
		ActivityPrepared:    req.ActivityPrepared,
		Unit:                hotlab.ActivityUnit(req.Unit),
		PreparationDateTime: req.PreparationDateTime,
		PreparedBy:          req.PreparedBy,
		Notes:               req.Notes,
	}
	if req.ExamType != nil {
		t := exam.Type(*req.ExamType)
		if !t.IsValid() {
			respondError(c, http.StatusBadRequest, "examType is not a known exam type")
			return
		}
		cmd.ExamType = &t
	}

	prep, err := h.hotLabSvc.PrepareDose(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, prep)
}

func (h *HotLabHandler) Inventory(c *gin.Context) {
	inv, err := h.hotLabSvc.Inventory(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, inv)
}
