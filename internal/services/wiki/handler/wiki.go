package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/cache"
	"printfleet-system/internal/database/models"
	"printfleet-system/internal/logging"
)

const WIKI_CACHE_PREFIX = "wiki:article:"

type WikiHandler struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewWikiHandler(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *WikiHandler {
	logger = logging.OrNop(logger)
	return &WikiHandler{
		db:    db,
		cache: cache.New(redisClient, logger),
		log:   logger,
	}
}

type ArticleRequest struct {
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	Content        string   `json:"content"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	PrinterModelID *int64   `json:"printer_model_id,omitempty"`
	Published      bool     `json:"published"`
	Author         string   `json:"author"`
}

type ArticleFilter struct {
	Category      *string
	ModelID       *int64
	PublishedOnly bool
}

// Slugify lowercases the title and joins its letter and digit runs with hyphens.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func (req ArticleRequest) slug() string {
	if s := Slugify(req.Slug); s != "" {
		return s
	}
	return Slugify(req.Title)
}

func (s *WikiHandler) validate(ctx context.Context, req ArticleRequest, selfID int64) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", apperr.Validation("title required")
	}
	slug := req.slug()
	if slug == "" {
		return "", apperr.Validation("title must contain letters or digits")
	}

	var dup int64
	if err := s.db.WithContext(ctx).Model(&models.WikiArticle{}).Where("slug = ? AND id <> ?", slug, selfID).Count(&dup).Error; err != nil {
		return "", fmt.Errorf("check slug: %w", err)
	}
	if dup > 0 {
		return "", apperr.Conflict("slug %q already exists", slug)
	}

	if req.PrinterModelID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.PrinterModel{}).Where("id = ?", *req.PrinterModelID).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check printer model: %w", err)
		}
		if count == 0 {
			return "", apperr.NotFound("printer model", *req.PrinterModelID)
		}
	}
	return slug, nil
}

func (req ArticleRequest) apply(article *models.WikiArticle, slug string) {
	article.Title = strings.TrimSpace(req.Title)
	article.Slug = slug
	article.Content = req.Content
	article.Category = strings.TrimSpace(req.Category)
	tags := models.StringArray{}
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	article.Tags = tags
	article.PrinterModelID = req.PrinterModelID
	article.Published = req.Published
	article.Author = strings.TrimSpace(req.Author)
}

func (s *WikiHandler) CreateArticle(ctx context.Context, req ArticleRequest) (*models.WikiArticle, error) {
	slug, err := s.validate(ctx, req, 0)
	if err != nil {
		return nil, err
	}

	var article models.WikiArticle
	req.apply(&article, slug)
	if err := s.db.WithContext(ctx).Create(&article).Error; err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return &article, nil
}

func (s *WikiHandler) UpdateArticle(ctx context.Context, id int64, req ArticleRequest) (*models.WikiArticle, error) {
	var article models.WikiArticle
	if err := s.db.WithContext(ctx).First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("article", id)
		}
		return nil, fmt.Errorf("get article: %w", err)
	}

	slug, err := s.validate(ctx, req, id)
	if err != nil {
		return nil, err
	}

	oldSlug := article.Slug
	req.apply(&article, slug)
	if err := s.db.WithContext(ctx).Save(&article).Error; err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}

	s.cache.Invalidate(ctx, WIKI_CACHE_PREFIX+oldSlug, WIKI_CACHE_PREFIX+slug)
	return &article, nil
}

func (s *WikiHandler) GetArticle(ctx context.Context, slug string) (*models.WikiArticle, error) {
	cacheKey := WIKI_CACHE_PREFIX + slug

	var article models.WikiArticle
	if s.cache.GetJSON(ctx, cacheKey, &article) {
		return &article, nil
	}

	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("article", slug)
		}
		return nil, fmt.Errorf("get article: %w", err)
	}

	s.cache.SetJSON(ctx, cacheKey, article, cache.TTLMedium)
	return &article, nil
}

func (s *WikiHandler) ListArticles(ctx context.Context, filter ArticleFilter) ([]models.WikiArticle, error) {
	query := s.db.WithContext(ctx).Model(&models.WikiArticle{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.ModelID != nil {
		query = query.Where("printer_model_id = ?", *filter.ModelID)
	}
	if filter.PublishedOnly {
		query = query.Where("published = ?", true)
	}

	articles := []models.WikiArticle{}
	if err := query.Order("title ASC").Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

func (s *WikiHandler) DeleteArticle(ctx context.Context, id int64) error {
	var article models.WikiArticle
	if err := s.db.WithContext(ctx).First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("article", id)
		}
		return fmt.Errorf("get article: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&article).Error; err != nil {
		return fmt.Errorf("delete article: %w", err)
	}

	s.cache.Invalidate(ctx, WIKI_CACHE_PREFIX+article.Slug)
	return nil
}
