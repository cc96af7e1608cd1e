package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/propos4l/proposal-engine/internal/models"
	"github.com/propos4l/proposal-engine/internal/service/ingest"
	"github.com/propos4l/proposal-engine/pkg/logger"
)

type ProposalHandler struct {
	service ingest.Service
	logger  logger.Logger
}

// ErrorResponse is the common error payload shape.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func NewProposalHandler(service ingest.Service, logger logger.Logger) *ProposalHandler {
	return &ProposalHandler{
		service: service,
		logger:  logger,
	}
}

// Upload accepts one or more PDFs plus optional client metadata and returns
// a tracking id per accepted file. Invalid batches get no tracking ids.
func (h *ProposalHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	clientName := c.PostForm("client_name")
	industry := c.PostForm("industry")

	results, err := h.service.Upload(c.Request.Context(), files, clientName, industry)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNoFiles),
			errors.Is(err, ingest.ErrNotPDF),
			errors.Is(err, ingest.ErrFileTooLarge):
			h.handleError(c, http.StatusBadRequest, "Upload rejected", err)
		default:
			h.handleError(c, http.StatusInternalServerError, "Failed to queue upload", err)
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Processing queued",
		"uploads": results,
	})
}

// ListDocuments returns the catalog, newest first.
func (h *ProposalHandler) ListDocuments(c *gin.Context) {
	docs := h.service.ListDocuments(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// GetDocument returns one document with its classified blocks.
func (h *ProposalHandler) GetDocument(c *gin.Context) {
	id := c.Param("documentId")

	doc, err := h.service.Document(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrDocumentNotFound) {
			h.handleError(c, http.StatusNotFound, "Document not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to load document", err)
		return
	}
	blocks, err := h.service.DocumentBlocks(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to load blocks", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"blocks":   blocks,
	})
}

// DeleteDocument removes a document, its blocks and its vectors.
func (h *ProposalHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("documentId")

	if err := h.service.DeleteDocument(c.Request.Context(), id); err != nil {
		if errors.Is(err, ingest.ErrDocumentNotFound) {
			h.handleError(c, http.StatusNotFound, "Document not found", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to delete document", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Document deleted",
		"documentId": id,
	})
}

// Search runs a semantic query over indexed documents and blocks.
// Query params: q (required), k (top results), kind (document|block).
func (h *ProposalHandler) Search(c *gin.Context) {
	query := c.Query("q")
	topK, _ := strconv.Atoi(c.DefaultQuery("k", "5"))

	var kind models.EntityKind
	switch c.Query("kind") {
	case "":
	case "document":
		kind = models.KindDocument
	case "block":
		kind = models.KindBlock
	default:
		h.handleError(c, http.StatusBadRequest, "kind must be document or block", nil)
		return
	}

	hits, err := h.service.Search(c.Request.Context(), query, topK, kind)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyQuery) {
			h.handleError(c, http.StatusBadRequest, "Query is required", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Search failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"hits":  hits,
	})
}

// GenerateRequest carries the generation inputs.
type GenerateRequest struct {
	ClientName   string `json:"clientName" binding:"required"`
	Industry     string `json:"industry"`
	Requirements string `json:"requirements" binding:"required"`
	Scope        string `json:"scope"`
}

// Generate produces a structured proposal grounded in indexed material.
func (h *ProposalHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid generation request", err)
		return
	}

	proposal, err := h.service.Generate(c.Request.Context(), models.ProposalParams{
		ClientName:   req.ClientName,
		Industry:     req.Industry,
		Requirements: req.Requirements,
		Scope:        req.Scope,
	})
	if err != nil {
		h.handleError(c, http.StatusBadGateway, "Generation failed", err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// Health is the liveness endpoint.
func (h *ProposalHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ProposalHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
