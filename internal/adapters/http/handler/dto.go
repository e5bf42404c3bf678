package handler

import "github.com/ogurasousui/codex-employee-api/internal/core/employee"

// EmployeeBody は社員の JSON 表現です。リクエストとレスポンスで共通に利用します。
type EmployeeBody struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
}

func toEmployeeBody(e *employee.Employee) EmployeeBody {
	return EmployeeBody{
		ID:        e.ID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Email:     e.Email,
		Age:       e.Age,
	}
}

func toEmployeeBodies(list []*employee.Employee) []EmployeeBody {
	out := make([]EmployeeBody, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeBody(e))
	}
	return out
}
