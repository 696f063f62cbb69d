package api

import (
	"fitcoach/coaching-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DocumentHandler serves the files attached to coaching relationships.
type DocumentHandler struct {
	documentService service.DocumentService
}

func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

type UploadURLRequest struct {
	FileName    string `json:"fileName" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required"`
}

// RequestUploadURL godoc
// @Summary Get a pre-signed URL to upload a document
// @Tags Documents
// @Security BearerAuth
// @Param id path string true "Coaching request ID"
// @Param request body UploadURLRequest true "File details"
// @Success 200 {object} service.UploadURLResponse
// @Router /coaching-requests/{id}/documents/upload-url [post]
func (h *DocumentHandler) RequestUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.documentService.RequestUploadURL(c.Request.Context(), caller, requestID, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, resp)
}

// ListDocuments lists the documents uploaded for the relationship.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.documentService.ListDocuments(c.Request.Context(), caller, requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, docs)
}

// ListAssignmentDocuments returns download links for an assignment's documents.
func (h *DocumentHandler) ListAssignmentDocuments(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	links, err := h.documentService.ListAssignmentDocuments(c.Request.Context(), caller, requestID, assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, links)
}

// DeleteDocument removes an unattached document named by ?key=.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	key := c.Query("key")
	if key == "" {
		abortWithError(c, http.StatusBadRequest, "key query parameter is required.")
		return
	}
	if err := h.documentService.DeleteDocument(c.Request.Context(), caller, requestID, key); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"objectKey": key})
}
