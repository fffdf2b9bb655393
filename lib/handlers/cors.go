package handlers

import (
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// CORSHandler answers browser preflight requests for the operations API
type CORSHandler struct {
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// ParseOrigins splits the comma-separated ALLOWED_ORIGINS parameter
func ParseOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Handle echoes an allowed origin back, or rejects the preflight
func (h *CORSHandler) Handle(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	origin := request.Headers["origin"]
	if origin == "" {
		origin = request.Headers["Origin"]
	}
	if origin == "" {
		h.Logger.WithField("operation", "Handler").Warn("Origin is not present in the request headers")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusOK,
				Headers: map[string]string{
					"Access-Control-Allow-Origin":      origin,
					"Access-Control-Allow-Headers":     "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
					"Access-Control-Allow-Methods":     "GET, POST, OPTIONS",
					"Access-Control-Allow-Credentials": "true",
				},
			}, nil
		}
	}

	h.Logger.WithFields(logrus.Fields{
		"operation": "Handler",
		"origin":    origin,
	}).Warn("Rejected preflight from unauthorized origin")
	return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
}
