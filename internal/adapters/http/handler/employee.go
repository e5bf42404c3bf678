package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
)

// EmployeeHandler は社員 API の HTTP 実装です。
type EmployeeHandler struct {
	svc employee.UseCase
	now func() time.Time
}

// Option は EmployeeHandler の挙動を変更します。
type Option func(*EmployeeHandler)

// WithClock はエラーボディのタイムスタンプに使う時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(h *EmployeeHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase, opts ...Option) *EmployeeHandler {
	h := &EmployeeHandler{svc: svc, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateEmployee は社員を作成します。
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req EmployeeBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "malformed request body")
		return
	}

	created, err := h.svc.CreateEmployee(c.Request.Context(), employee.CreateEmployeeInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Age:       req.Age,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEmployeeBody(created))
}

// ListEmployees は全社員を返します。
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	list, err := h.svc.ListEmployees(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeBodies(list))
}

// GetEmployee はパスの ID で社員を取得します。
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	found, err := h.svc.GetEmployee(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeBody(found))
}

// UpdateEmployee はボディの ID が指す社員を上書きします。
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	var req EmployeeBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "malformed request body")
		return
	}

	updated, err := h.svc.UpdateEmployee(c.Request.Context(), employee.UpdateEmployeeInput{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Age:       req.Age,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeBody(updated))
}

// DeleteEmployee はボディの ID が指す社員を削除し、削除前のレコードを返します。
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	var req EmployeeBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "malformed request body")
		return
	}

	h.deleteByID(c, req.ID)
}

// DeleteEmployeeByPath はパスの ID が指す社員を削除します。
func (h *EmployeeHandler) DeleteEmployeeByPath(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	h.deleteByID(c, id)
}

func (h *EmployeeHandler) deleteByID(c *gin.Context, id int64) {
	deleted, err := h.svc.DeleteEmployee(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeBody(deleted))
}

// SearchEmployee は氏名または年齢で社員を 1 件検索します。
// firstName と lastName はセットで指定し、age とは併用できません。
func (h *EmployeeHandler) SearchEmployee(c *gin.Context) {
	firstName, hasFirst := c.GetQuery("firstName")
	lastName, hasLast := c.GetQuery("lastName")
	rawAge, hasAge := c.GetQuery("age")

	switch {
	case hasAge && !hasFirst && !hasLast:
		age, err := strconv.Atoi(strings.TrimSpace(rawAge))
		if err != nil {
			h.badRequest(c, "invalid age: "+rawAge)
			return
		}
		found, err := h.svc.FindEmployeeByAge(c.Request.Context(), age)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEmployeeBody(found))
	case hasFirst && hasLast && !hasAge:
		found, err := h.svc.FindEmployeeByNames(c.Request.Context(), firstName, lastName)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toEmployeeBody(found))
	default:
		h.badRequest(c, "either firstName and lastName, or age must be given")
	}
}

func (h *EmployeeHandler) pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid id: "+raw)
		return 0, false
	}
	return id, true
}
