package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/database/models"
	"printfleet-system/internal/gateway/middleware"
	wiki "printfleet-system/internal/services/wiki/handler"
)

type WikiHTTPHandler struct {
	responder
	wiki *wiki.WikiHandler
}

func NewWikiHTTPHandler(wikiService *wiki.WikiHandler, logger *zap.Logger) *WikiHTTPHandler {
	return &WikiHTTPHandler{
		responder: newResponder(logger),
		wiki:      wikiService,
	}
}

// canSeeDrafts reports whether the caller may read unpublished articles.
func canSeeDrafts(c *gin.Context) bool {
	claims, ok := middleware.Claims(c)
	return ok && claims.AccessLevel >= models.AccessStaff
}

func (s *WikiHTTPHandler) ListArticles(c *gin.Context) {
	filter := wiki.ArticleFilter{
		Category:      parseStringQuery(c, "category"),
		ModelID:       parseInt64Query(c, "printer_model_id"),
		PublishedOnly: true,
	}
	if canSeeDrafts(c) {
		if v := parseBoolQuery(c, "published_only"); v != nil {
			filter.PublishedOnly = *v
		} else {
			filter.PublishedOnly = false
		}
	}

	articles, err := s.wiki.ListArticles(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err, "list articles")
		return
	}
	s.success(c, articles)
}

func (s *WikiHTTPHandler) GetArticle(c *gin.Context) {
	slug := c.Param("slug")

	article, err := s.wiki.GetArticle(c.Request.Context(), slug)
	if err != nil {
		s.fail(c, err, "get article")
		return
	}
	if !article.Published && !canSeeDrafts(c) {
		s.error(c, http.StatusNotFound, "article "+slug+" not found")
		return
	}
	s.success(c, article)
}

// CreateArticle defaults the author to the signed-in user.
func (s *WikiHTTPHandler) CreateArticle(c *gin.Context) {
	var req wiki.ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	if req.Author == "" {
		req.Author = middleware.Actor(c, "")
	}

	article, err := s.wiki.CreateArticle(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "create article")
		return
	}
	s.created(c, article)
}

func (s *WikiHTTPHandler) UpdateArticle(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid article ID")
		return
	}

	var req wiki.ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}
	if req.Author == "" {
		req.Author = middleware.Actor(c, "")
	}

	article, err := s.wiki.UpdateArticle(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err, "update article")
		return
	}
	s.success(c, article)
}

func (s *WikiHTTPHandler) DeleteArticle(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.error(c, http.StatusBadRequest, "Invalid article ID")
		return
	}

	if err := s.wiki.DeleteArticle(c.Request.Context(), id); err != nil {
		s.fail(c, err, "delete article")
		return
	}
	s.success(c, gin.H{"id": id})
}
