package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/gateway/middleware"
	transfer "printfleet-system/internal/services/transfer/handler"
)

type TransferHTTPHandler struct {
	responder
	transfers *transfer.TransferHandler
}

func NewTransferHTTPHandler(transfers *transfer.TransferHandler, logger *zap.Logger) *TransferHTTPHandler {
	return &TransferHTTPHandler{
		responder: newResponder(logger),
		transfers: transfers,
	}
}

// RecordTransfer defaults transferred_by to the signed-in user.
func (s *TransferHTTPHandler) RecordTransfer(c *gin.Context) {
	var req transfer.RecordTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	if req.TransferredBy == "" {
		req.TransferredBy = middleware.Actor(c, "")
	}

	entry, err := s.transfers.RecordTransfer(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "record transfer")
		return
	}
	s.created(c, entry)
}

func (s *TransferHTTPHandler) ListForPrinter(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid printer ID")
		return
	}

	transfers, err := s.transfers.ListTransfersForPrinter(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "list transfers")
		return
	}
	s.success(c, transfers)
}

func (s *TransferHTTPHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	transfers, err := s.transfers.ListRecentTransfers(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err, "list transfers")
		return
	}
	s.success(c, transfers)
}
