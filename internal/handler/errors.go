// Package handler contains the HTTP handlers for the ingestion and retrieval API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// MethodNotAllowed answers any non-POST request on a registered route.
func MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}

// writeError maps a service error onto a status code and {"error": msg} body.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrQueueDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// bindBody decodes the JSON body into a T. A value of the wrong type is a
// ValidationError naming the field. An unreadable body (empty or not JSON)
// decodes as the zero T, so it fails required-field validation downstream.
func bindBody[T any](c *gin.Context) (T, error) {
	var req T
	err := c.ShouldBindJSON(&req)
	if err == nil {
		return req, nil
	}

	var zero T
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		log.Warnf("[Handler] wrong type in body: %v", err)
		if typeErr.Field == "" {
			return zero, &service.ValidationError{Message: "Invalid request body"}
		}
		return zero, &service.ValidationError{Message: fmt.Sprintf("Invalid type for field '%s'", typeErr.Field)}
	}
	log.Warnf("[Handler] unreadable body: %v", err)
	return zero, nil
}
