package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database"
	"printfleet-system/internal/logging"
)

// responder writes the {"success": ..., "data"|"error": ...} envelope shared by every route.
type responder struct {
	log *zap.Logger
}

func newResponder(logger *zap.Logger) responder {
	return responder{log: logging.OrNop(logger)}
}

func (s responder) success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s responder) created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s responder) successWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

func (s responder) createdWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

func (s responder) error(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// fail maps a service error onto its status code. Store errors are logged and hidden.
func (s responder) fail(c *gin.Context, err error, action string) {
	code := apperr.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		s.log.Error("Failed to "+action, zap.String("path", c.FullPath()), zap.Error(err))
		s.error(c, code, "Failed to "+action)
		return
	}
	s.error(c, code, err.Error())
}

func (s responder) badBody(c *gin.Context, err error) {
	s.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
}

var errBadParam = errors.New("invalid parameter")

func parseIDParam(c *gin.Context, param string) (int64, error) {
	val, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || val <= 0 {
		return 0, errBadParam
	}
	return val, nil
}

func parseInt64Query(c *gin.Context, param string) *int64 {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil
	}
	return &val
}

func parseBoolQuery(c *gin.Context, param string) *bool {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return nil
	}
	return &val
}

func parseStringQuery(c *gin.Context, param string) *string {
	str := c.Query(param)
	if str == "" {
		return nil
	}
	return &str
}

// parseTimeQuery accepts RFC 3339 timestamps or plain dates.
func parseTimeQuery(c *gin.Context, param string) (*time.Time, error) {
	str := c.Query(param)
	if str == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			return &t, nil
		}
	}
	return nil, errBadParam
}

func buildPage(c *gin.Context) database.Page {
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return database.Page{
		Size:  size,
		Token: c.Query("page_token"),
	}
}
