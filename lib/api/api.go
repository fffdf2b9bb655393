package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"operations/lib/models"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

func defaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
	}
}

// SuccessResponse creates a successful API Gateway response
func SuccessResponse(statusCode int, data interface{}, logger *logrus.Logger) events.APIGatewayProxyResponse {
	body, err := json.Marshal(data)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal response data")
		return ErrorResponse(http.StatusInternalServerError, "Internal server error", logger)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers:    defaultHeaders(),
	}
}

// ErrorResponse creates an error API Gateway response
func ErrorResponse(statusCode int, message string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	errorData := map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  statusCode,
	}

	body, err := json.Marshal(errorData)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal error response")
		body = []byte(`{"error":true,"message":"Internal server error","status":500}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers:    defaultHeaders(),
	}
}

// ValidationErrorResponse creates a validation error response
func ValidationErrorResponse(message string, errors []string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	errorData := map[string]interface{}{
		"error":      true,
		"message":    message,
		"status":     http.StatusBadRequest,
		"validation": errors,
	}

	body, err := json.Marshal(errorData)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal validation error response")
		return ErrorResponse(http.StatusInternalServerError, "Internal server error", logger)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusBadRequest,
		Body:       string(body),
		Headers:    defaultHeaders(),
	}
}

// StatusForError maps the domain error kinds onto HTTP status codes
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DomainErrorResponse renders err with the status its kind maps to. Unknown
// errors are logged and hidden behind a generic message.
func DomainErrorResponse(err error, logger *logrus.Logger) events.APIGatewayProxyResponse {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("Unhandled error while processing request")
		return ErrorResponse(status, "Internal server error", logger)
	}
	if status == http.StatusBadRequest {
		return ValidationErrorResponse("Validation failed", []string{err.Error()}, logger)
	}
	return ErrorResponse(status, err.Error(), logger)
}

// ParseJSONBody decodes the request body into target, rejecting unknown fields
func ParseJSONBody(body string, target interface{}) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: request body is required", models.ErrValidation)
	}
	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return nil
}
