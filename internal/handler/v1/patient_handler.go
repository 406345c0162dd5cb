package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
	"github.com/imena-mn/nmflow/internal/handler/middleware"
	"github.com/imena-mn/nmflow/internal/service"
	"github.com/imena-mn/nmflow/internal/workflow"
)

// PatientHandler exposes intake, workflow transitions and patient queries.
type PatientHandler struct {
	workflowSvc *service.WorkflowService
	statsSvc    *service.StatsService
}

func NewPatientHandler(workflowSvc *service.WorkflowService, statsSvc *service.StatsService) *PatientHandler {
	return &PatientHandler{workflowSvc: workflowSvc, statsSvc: statsSvc}
}

type createPatientRequest struct {
	Name            string                   `json:"name" binding:"required"`
	DateOfBirth     string                   `json:"dateOfBirth" binding:"required"`
	Address         string                   `json:"address"`
	Phone           string                   `json:"phone"`
	Email           string                   `json:"email"`
	ReferringEntity *patient.ReferringEntity `json:"referringEntity"`
	RequestData     patient.FormData         `json:"requestData"`
}

func (h *PatientHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		respondError(c, http.StatusBadRequest, "dateOfBirth must be formatted as 2006-01-02")
		return
	}

	cmd := &workflow.NewPatientCommand{
		Name:            req.Name,
		DateOfBirth:     dob,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		ReferringEntity: req.ReferringEntity,
		RequestData:     req.RequestData,
	}

	p, err := h.workflowSvc.CreatePatient(c.Request.Context(), cmd, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PatientHandler) Get(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.workflowSvc.GetPatient(c.Request.Context(), id, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) List(c *gin.Context) {
	q := &patient.ListQuery{
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	if raw := c.Query("room"); raw != "" {
		id := room.ID(raw)
		if !id.IsValid() {
			respondError(c, http.StatusBadRequest, "unknown room: "+raw)
			return
		}
		q.RoomID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := patient.StatusInRoom(raw)
		q.Status = &status
	}

	page, err := h.workflowSvc.ListPatients(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

// FormData is optional: terminal-room and consultation submissions can
// legitimately carry no fields.
type submitFormRequest struct {
	FormData patient.FormData `json:"formData"`
}

func (h *PatientHandler) SubmitRoomForm(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	roomID := room.ID(c.Param("roomId"))

	var req submitFormRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.FormData == nil {
		req.FormData = patient.FormData{}
	}

	p, err := h.workflowSvc.SubmitRoomForm(c.Request.Context(), id, roomID, req.FormData, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

type movePatientRequest struct {
	TargetRoomID string `json:"targetRoomId" binding:"required"`
}

func (h *PatientHandler) Move(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req movePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.workflowSvc.MovePatient(c.Request.Context(), id, room.ID(req.TargetRoomID), claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

type attachDocumentRequest struct {
	Name        string `json:"name" binding:"required"`
	ContentType string `json:"contentType"`
}

// AttachDocument records document metadata on the dossier.
func (h *PatientHandler) AttachDocument(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req attachDocumentRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.workflowSvc.AttachDocument(c.Request.Context(), id, req.Name, req.ContentType, claims.UserID, string(claims.Role), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

// Delays returns the standard segment durations for one patient.
func (h *PatientHandler) Delays(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	results, err := h.statsSvc.PatientDelays(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	type delayView struct {
		Label    string `json:"label"`
		Duration string `json:"duration"`
		Complete bool   `json:"complete"`
	}
	out := make([]delayView, 0, len(results))
	for _, r := range results {
		v := delayView{Label: r.Segment.Label, Duration: "N/A", Complete: r.Complete}
		if r.Complete {
			v.Duration = workflow.FormatDuration(r.Duration)
		}
		out = append(out, v)
	}
	respondOK(c, out)
}

func (h *PatientHandler) Rooms(c *gin.Context) {
	respondOK(c, h.workflowSvc.Rooms())
}
