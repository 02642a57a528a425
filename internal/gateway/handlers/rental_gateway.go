package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/database/models"
	rental "printfleet-system/internal/services/rental/handler"
)

type RentalHTTPHandler struct {
	responder
	rentals *rental.RentalHandler
}

func NewRentalHTTPHandler(rentals *rental.RentalHandler, logger *zap.Logger) *RentalHTTPHandler {
	return &RentalHTTPHandler{
		responder: newResponder(logger),
		rentals:   rentals,
	}
}

type documentsRequest struct {
	AgreementURL string `json:"agreement_url"`
	SignatureURL string `json:"signature_url"`
}

// CreateRental books the printer and reports other open bookings over the same dates.
// Double bookings are allowed.
func (s *RentalHTTPHandler) CreateRental(c *gin.Context) {
	var req rental.CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	r, err := s.rentals.CreateRental(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create rental")
		return
	}

	overlapping, err := s.rentals.Overlapping(c.Request.Context(), r.PrinterID, r.StartDate, r.EndDate)
	if err != nil {
		s.log.Warn("Overlap check failed", zap.Int64("rental_id", r.ID), zap.Error(err))
		overlapping = nil
	}
	others := make([]int64, 0, len(overlapping))
	for _, o := range overlapping {
		if o.ID != r.ID {
			others = append(others, o.ID)
		}
	}

	s.createdWithMeta(c, r, gin.H{"overlapping_rental_ids": others})
}

func (s *RentalHTTPHandler) GetRental(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid rental ID")
		return
	}

	r, err := s.rentals.GetRental(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get rental")
		return
	}
	s.success(c, r)
}

func (s *RentalHTTPHandler) ListRentals(c *gin.Context) {
	filter := rental.RentalFilter{
		PrinterID: parseInt64Query(c, "printer_id"),
		ClientID:  parseInt64Query(c, "client_id"),
	}
	if v := c.Query("status"); v != "" {
		status := models.RentalStatus(v)
		filter.Status = &status
	}

	rentals, err := s.rentals.ListRentals(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err, "list rentals")
		return
	}
	s.success(c, rentals)
}

func (s *RentalHTTPHandler) UpdateStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid rental ID")
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	r, err := s.rentals.UpdateRentalStatus(c.Request.Context(), id, models.RentalStatus(req.Status))
	if err != nil {
		s.fail(c, err, "update rental status")
		return
	}
	s.success(c, r)
}

func (s *RentalHTTPHandler) AttachDocuments(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid rental ID")
		return
	}

	var req documentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	r, err := s.rentals.AttachDocuments(c.Request.Context(), id, req.AgreementURL, req.SignatureURL)
	if err != nil {
		s.fail(c, err, "attach documents")
		return
	}
	s.success(c, r)
}

// Overlapping answers ?start=&end= for one printer.
func (s *RentalHTTPHandler) Overlapping(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}
	start, err := parseTimeQuery(c, "start")
	if err != nil || start == nil {
		s.error(c, http.StatusBadRequest, "Invalid or missing start date")
		return
	}
	end, err := parseTimeQuery(c, "end")
	if err != nil || end == nil {
		s.error(c, http.StatusBadRequest, "Invalid or missing end date")
		return
	}

	rentals, err := s.rentals.Overlapping(c.Request.Context(), id, *start, *end)
	if err != nil {
		s.fail(c, err, "find overlapping rentals")
		return
	}
	s.success(c, rentals)
}

func (s *RentalHTTPHandler) RefreshStatuses(c *gin.Context) {
	result, err := s.rentals.RefreshStatuses(c.Request.Context(), time.Now())
	if err != nil {
		s.fail(c, err, "refresh rental statuses")
		return
	}
	s.success(c, result)
}

// Rental options

func (s *RentalHTTPHandler) ListActiveOptions(c *gin.Context) {
	s.listOptions(c, true)
}

func (s *RentalHTTPHandler) ListAllOptions(c *gin.Context) {
	s.listOptions(c, false)
}

func (s *RentalHTTPHandler) listOptions(c *gin.Context, activeOnly bool) {
	options, err := s.rentals.ListOptions(c.Request.Context(), activeOnly)
	if err != nil {
		s.fail(c, err, "list rental options")
		return
	}
	s.success(c, options)
}

func (s *RentalHTTPHandler) CreateOption(c *gin.Context) {
	var req rental.RentalOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	option, err := s.rentals.CreateOption(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create rental option")
		return
	}
	s.created(c, option)
}

func (s *RentalHTTPHandler) UpdateOption(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid rental option ID")
		return
	}

	var req rental.RentalOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	option, err := s.rentals.UpdateOption(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update rental option")
		return
	}
	s.success(c, option)
}
