package booking

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/salonhq/booking-api/internal/middleware"
	"github.com/salonhq/booking-api/internal/model"
	"github.com/salonhq/booking-api/internal/service/availability"
	"github.com/salonhq/booking-api/internal/service/booking"
	apperrors "github.com/salonhq/booking-api/pkg/errors"
	"github.com/salonhq/booking-api/pkg/httputil"
)

const dateLayout = "2006-01-02"

type Handler struct {
	bookingSvc      *booking.Service
	availabilitySvc *availability.Service
}

func NewHandler(bookingSvc *booking.Service, availabilitySvc *availability.Service) *Handler {
	return &Handler{
		bookingSvc:      bookingSvc,
		availabilitySvc: availabilitySvc,
	}
}

// RegisterPublicRoutes mounts the unauthenticated discovery endpoint.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/vendors/:id/slots", h.GetSlots)
}

// RegisterRoutes mounts the authenticated appointment endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/approve", h.ApproveAppointment)
		appointments.POST("/:id/reject", h.RejectAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/no-show", h.MarkNoShow)
		appointments.PUT("/:id/worker", h.AssignWorker)
	}
}

// GetSlots returns the bookable slots for a vendor, service and date.
func (h *Handler) GetSlots(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid vendor ID"))
		return
	}
	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid service ID"))
		return
	}
	date, err := time.ParseInLocation(dateLayout, c.Query("date"), time.Local)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid date, expected YYYY-MM-DD"))
		return
	}

	var workerID *uuid.UUID
	if raw := c.Query("worker_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid worker ID"))
			return
		}
		workerID = &id
	}

	result, err := h.availabilitySvc.GetAvailableSlots(c.Request.Context(), vendorID, serviceID, date, workerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Forbidden("missing authentication"))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid request: %v", err))
		return
	}

	appointment, err := h.bookingSvc.CreateAppointment(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appointment)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.bookingSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Forbidden("missing authentication"))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointments, err := h.bookingSvc.List(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ApproveAppointment(c *gin.Context) {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.bookingSvc.Approve(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) RejectAppointment(c *gin.Context) {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid request: %v", err))
		return
	}

	appointment, err := h.bookingSvc.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, apperrors.Validationf("invalid request: %v", err))
			return
		}
	}

	appointment, err := h.bookingSvc.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.bookingSvc.MarkNoShow(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) AssignWorker(c *gin.Context) {
	actor, id, err := h.actorAndID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req struct {
		WorkerID *uuid.UUID `json:"worker_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid request: %v", err))
		return
	}

	appointment, err := h.bookingSvc.AssignWorker(c.Request.Context(), actor, id, req.WorkerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

func (h *Handler) actorAndID(c *gin.Context) (model.Actor, uuid.UUID, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, uuid.Nil, apperrors.Forbidden("missing authentication")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return model.Actor{}, uuid.Nil, apperrors.Validation("invalid appointment ID")
	}
	return actor, id, nil
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, error) {
	filters := &model.AppointmentFilters{}

	if raw := c.Query("vendor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.Validation("invalid vendor ID")
		}
		filters.VendorID = &id
	}
	if raw := c.Query("worker_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.Validation("invalid worker ID")
		}
		filters.WorkerID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := model.AppointmentStatus(raw)
		if !status.Valid() {
			return nil, apperrors.Validationf("invalid status %q", raw)
		}
		filters.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return nil, apperrors.Validation("invalid from date, expected YYYY-MM-DD")
		}
		filters.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return nil, apperrors.Validation("invalid to date, expected YYYY-MM-DD")
		}
		end := to.Add(24 * time.Hour)
		filters.To = &end
	}

	return filters, nil
}
