package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/employee-provisioning/internal/core/employee"
)

const (
	codeInvalidInput          = "INVALID_INPUT"
	codeFaceEnrollmentFailed  = "FACE_ENROLLMENT_FAILED"
	codeNotFound              = "NOT_FOUND"
	codeInternalError         = "INTERNAL_ERROR"
	msgInternalError          = "Internal server error"
	msgFaceEnrollmentFailed   = "Face enrollment failed. Please ensure the employee image is in the known_faces_arc directory and try again."
	msgInvalidRequestBody     = "Invalid request body"
	msgEmployeeNotFound       = "Employee not found"
	msgInvalidEmployeeID      = "Employee id must be an integer"
	msgNoUpdatableFieldsGiven = "No valid fields provided for update"
)

// toHTTPError はドメインエラーをステータスコードとレスポンスボディに変換します。
// ストアエラーの詳細は返さず、汎用メッセージのみを返します。
func toHTTPError(err error) (int, errorResponse) {
	var (
		missing *employee.MissingFieldsError
		invalid *employee.InvalidFieldError
	)

	switch {
	case errors.As(err, &missing):
		names := make([]string, len(missing.Fields))
		for i, f := range missing.Fields {
			names[i] = string(f)
		}
		return http.StatusBadRequest, errorResponse{
			Message: "Missing required fields: " + strings.Join(names, ", "),
			Error:   codeInvalidInput,
		}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, errorResponse{
			Message: fmt.Sprintf("Invalid value for %s: %s", invalid.Field, invalid.Reason),
			Error:   codeInvalidInput,
		}
	case errors.Is(err, employee.ErrInvalidID):
		return http.StatusBadRequest, errorResponse{Message: msgInvalidEmployeeID, Error: codeInvalidInput}
	case errors.Is(err, employee.ErrNoUpdatableFields):
		return http.StatusBadRequest, errorResponse{Message: msgNoUpdatableFieldsGiven, Error: codeInvalidInput}
	case errors.Is(err, employee.ErrFaceEnrollmentFailed):
		return http.StatusBadRequest, errorResponse{Message: msgFaceEnrollmentFailed, Error: codeFaceEnrollmentFailed}
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return http.StatusNotFound, errorResponse{Message: msgEmployeeNotFound, Error: codeNotFound}
	default:
		return http.StatusInternalServerError, errorResponse{Message: msgInternalError, Error: codeInternalError}
	}
}

func writeError(c *gin.Context, err error) {
	status, body := toHTTPError(err)
	c.AbortWithStatusJSON(status, body)
}
