package api

import (
	"fitcoach/coaching-api/internal/repository"
	"fitcoach/coaching-api/internal/service"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondOK writes the success envelope.
func respondOK(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

// respondWithMessage writes the success envelope with a human-readable note.
func respondWithMessage(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, gin.H{"success": true, "data": data, "message": message})
}

// respondError maps a service error onto a status code. Internal errors are
// logged and reported generically.
func respondError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindValidation:
		abortWithError(c, http.StatusBadRequest, err.Error())
	case service.KindUnauthorized:
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case service.KindForbidden:
		abortWithError(c, http.StatusForbidden, err.Error())
	case service.KindNotFound:
		abortWithError(c, http.StatusNotFound, err.Error())
	case service.KindConflict:
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// objectIDParam parses a hex ObjectID path parameter. On failure it has
// already written the response.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalObjectID parses an optional hex ObjectID from a body field or query.
func optionalObjectID(c *gin.Context, name, value string) (*primitive.ObjectID, bool) {
	if value == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return nil, false
	}
	return &id, true
}

// pageFromQuery reads page and limit query parameters.
func pageFromQuery(c *gin.Context) (repository.Page, bool) {
	var page repository.Page
	for name, dst := range map[string]*int{"page": &page.Page, "limit": &page.Limit} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, "Invalid "+name+" query parameter.")
			return repository.Page{}, false
		}
		*dst = n
	}
	return page.Normalize(), true
}
