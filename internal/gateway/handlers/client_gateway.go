package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/gateway/middleware"
	client "printfleet-system/internal/services/client/handler"
)

type ClientHTTPHandler struct {
	responder
	clients *client.ClientHandler
}

func NewClientHTTPHandler(clients *client.ClientHandler, logger *zap.Logger) *ClientHTTPHandler {
	return &ClientHTTPHandler{
		responder: newResponder(logger),
		clients:   clients,
	}
}

func (s *ClientHTTPHandler) ListClients(c *gin.Context) {
	clients, err := s.clients.ListClients(c.Request.Context())
	if err != nil {
		s.fail(c, err, "list clients")
		return
	}
	s.success(c, clients)
}

func (s *ClientHTTPHandler) GetClient(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid client ID")
		return
	}

	cl, err := s.clients.GetClient(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "get client")
		return
	}
	s.success(c, cl)
}

func (s *ClientHTTPHandler) CreateClient(c *gin.Context) {
	var req client.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	cl, err := s.clients.CreateClient(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create client")
		return
	}
	s.created(c, cl)
}

func (s *ClientHTTPHandler) UpdateClient(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid client ID")
		return
	}

	var req client.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	cl, err := s.clients.UpdateClient(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update client")
		return
	}
	s.success(c, cl)
}

func (s *ClientHTTPHandler) DeleteClient(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid client ID")
		return
	}

	if err := s.clients.DeleteClient(c.Request.Context(), id, middleware.Actor(c, "system")); err != nil {
		s.fail(c, err, "delete client")
		return
	}
	s.success(c, gin.H{"id": id})
}

func (s *ClientHTTPHandler) ListLocations(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid client ID")
		return
	}

	locations, err := s.clients.DerivedLocations(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "list locations")
		return
	}
	s.success(c, locations)
}

func (s *ClientHTTPHandler) ListDepartments(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid client ID")
		return
	}

	departments, err := s.clients.ListDepartments(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, "list departments")
		return
	}
	s.success(c, departments)
}

func (s *ClientHTTPHandler) CreateDepartment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid client ID")
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	department, err := s.clients.CreateDepartment(c.Request.Context(), id, req.Name)
	if err != nil {
		s.fail(c, err, "create department")
		return
	}
	s.created(c, department)
}

func (s *ClientHTTPHandler) RenameDepartment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid department ID")
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	department, err := s.clients.RenameDepartment(c.Request.Context(), id, req.Name)
	if err != nil {
		s.fail(c, err, "rename department")
		return
	}
	s.success(c, department)
}

func (s *ClientHTTPHandler) DeleteDepartment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid department ID")
		return
	}

	if err := s.clients.DeleteDepartment(c.Request.Context(), id); err != nil {
		s.fail(c, err, "delete department")
		return
	}
	s.success(c, gin.H{"id": id})
}
