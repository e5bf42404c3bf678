package handler

import "github.com/gin-gonic/gin"

// RoutePrefixes は社員 API を公開するパスです。/employees は /api/employees の別名です。
var RoutePrefixes = []string{"/api/employees", "/employees"}

// Register は社員 API のルートを登録します。
func (h *EmployeeHandler) Register(r gin.IRouter) {
	for _, prefix := range RoutePrefixes {
		rg := r.Group(prefix)
		rg.POST("", h.CreateEmployee)
		rg.GET("", h.ListEmployees)
		rg.PUT("", h.UpdateEmployee)
		rg.DELETE("", h.DeleteEmployee)
		rg.GET("/search", h.SearchEmployee)
		rg.GET("/:id", h.GetEmployee)
		rg.DELETE("/:id", h.DeleteEmployeeByPath)
	}
}
