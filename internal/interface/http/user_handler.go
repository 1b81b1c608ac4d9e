package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-user-management/pkg/response"
)

type UserHandler struct {
	Svc              *application.UserService
	Logger           *logrus.Logger
	ImportMaxBytes   int64
	GenerateMaxCount int
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger, importMaxBytes int64, generateMaxCount int) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, ImportMaxBytes: importMaxBytes, GenerateMaxCount: generateMaxCount}
}

// queryInt reads a non-negative integer query parameter, def when absent.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Me GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(p), "profile", nil)
}

// List GET /api/users?page=0&size=10 (admin)
func (h *UserHandler) List(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"page": "must be a non-negative integer"})
		return
	}
	size, ok := queryInt(c, "size", application.DefaultPageSize)
	if !ok {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"size": "must be a non-negative integer"})
		return
	}
	res, err := h.Svc.List(c.Request.Context(), page, size)
	if err != nil {
		h.logError(c, err, "list users failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserDTOs(res.Items), "users", map[string]any{
		"page":        res.Page,
		"size":        res.Size,
		"total":       res.Total,
		"total_pages": res.TotalPages,
	})
}

// GetByEmail GET /api/users/email/:email (admin)
func (h *UserHandler) GetByEmail(c *gin.Context) {
	u, err := h.Svc.GetByEmail(c.Request.Context(), c.Param("email"))
	h.writeUser(c, u, err)
}

// GetByUsername GET /api/users/username/:username (admin)
func (h *UserHandler) GetByUsername(c *gin.Context) {
	u, err := h.Svc.GetByUsername(c.Request.Context(), c.Param("username"))
	h.writeUser(c, u, err)
}

func (h *UserHandler) writeUser(c *gin.Context, u *entity.User, err error) {
	if errors.Is(err, application.ErrUserNotFound) {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		h.logError(c, err, "user lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserDTO(u), "user", nil)
}

// Search GET /api/users/search?q=...&size=10 (admin)
func (h *UserHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"q": "is required"})
		return
	}
	size, ok := queryInt(c, "size", 10)
	if !ok {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"size": "must be a non-negative integer"})
		return
	}
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.logError(c, err, "search users failed")
		response.Error[any](c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}

// BatchImport POST /api/users/batch (admin), multipart field "file" holding a JSON array of profiles.
func (h *UserHandler) BatchImport(c *gin.Context) {
	if h.ImportMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.ImportMaxBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Error[any](c, http.StatusRequestEntityTooLarge, "import file too large", nil)
			return
		}
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"file": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read import file", nil)
		return
	}
	defer f.Close()

	sum, err := h.Svc.BulkImport(c.Request.Context(), fh.Filename, f)
	switch {
	case errors.Is(err, application.ErrInvalidImportFile):
		response.Error[any](c, http.StatusBadRequest, "import file must be a JSON array of users", err.Error())
		return
	case err != nil:
		h.logError(c, err, "bulk import failed")
		response.Error[any](c, http.StatusInternalServerError, "internal error", sum)
		return
	}
	response.Success(c, http.StatusOK, sum, "import finished", nil)
}

// Generate GET /api/users/generate?count=100 downloads random profiles as users.json.
// An optional seed makes the output reproducible.
func (h *UserHandler) Generate(c *gin.Context) {
	count, ok := queryInt(c, "count", application.DefaultGenerateCount)
	if !ok {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"count": "must be a non-negative integer"})
		return
	}
	if h.GenerateMaxCount > 0 && count > h.GenerateMaxCount {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"count": "must be at most " + strconv.Itoa(h.GenerateMaxCount)})
		return
	}
	seed := time.Now().UnixNano()
	if v := c.Query("seed"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"seed": "must be an integer"})
			return
		}
		seed = s
	}
	c.Header("Content-Disposition", `attachment; filename="users.json"`)
	c.JSON(http.StatusOK, h.Svc.Generate(count, seed))
}

func (h *UserHandler) logError(c *gin.Context, err error, msg string) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error(msg)
}
