package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/employee-provisioning/internal/core/employee"
	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"go.uber.org/zap"
)

// EmployeeHandler は社員ユースケースを HTTP に公開します。
type EmployeeHandler struct {
	usecase employee.UseCase
	logger  *zap.Logger
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(usecase employee.UseCase, log *zap.Logger) *EmployeeHandler {
	if log == nil {
		log = zap.L()
	}
	return &EmployeeHandler{usecase: usecase, logger: log.Named("employee.handler")}
}

// Register は /employee 配下のルートを登録します。
func (h *EmployeeHandler) Register(r gin.IRouter) {
	g := r.Group("/employee")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Create は POST /api/employee を処理します。
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req createEmployeeRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.usecase.CreateEmployee(c.Request.Context(), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEmployeeResponse(created))
}

// List は GET /api/employee を処理します。
func (h *EmployeeHandler) List(c *gin.Context) {
	employees, err := h.usecase.ListEmployees(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponses(employees))
}

// Get は GET /api/employee/:id を処理します。
func (h *EmployeeHandler) Get(c *gin.Context) {
	found, err := h.usecase.GetEmployee(c.Request.Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponse(found))
}

// Update は PUT /api/employee/:id を処理します。
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req updateEmployeeRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.usecase.UpdateEmployee(c.Request.Context(), req.toInput(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// Delete は DELETE /api/employee/:id を処理します。
func (h *EmployeeHandler) Delete(c *gin.Context) {
	if err := h.usecase.DeleteEmployee(c.Request.Context(), employee.DeleteEmployeeInput{ID: c.Param("id")}); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// bind はリクエストボディをデコードします。空ボディは空オブジェクトとして扱います。
func (h *EmployeeHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		logger.FromContext(c.Request.Context(), h.logger).Warn("invalid request body", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: msgInvalidRequestBody, Error: codeInvalidInput})
		return false
	}
	return true
}
