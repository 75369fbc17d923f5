package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hireval/evaluator-be/internal/api/domain"
	"github.com/hireval/evaluator-be/internal/api/dto"
	"github.com/hireval/evaluator-be/internal/api/model"
)

// defaultUserID stands in while the API has no authentication
const defaultUserID = "demo"

// UploadFile handles POST /api/v1/uploads
// Stores one candidate document and registers it for evaluation
func (h *UploadHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No file uploaded",
		})
		return
	}

	docType := c.PostForm("doc_type")
	if docType == "" {
		docType = determineDocType(fileHeader.Filename)
	}
	if docType != domain.DocTypeCV && docType != domain.DocTypeProject {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "doc_type must be 'cv' or 'project'",
		})
		return
	}

	userID := c.PostForm("user_id")
	if userID == "" {
		userID = defaultUserID
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("Failed to create upload directory", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store file",
		})
		return
	}

	fileID := uuid.New().String()
	path := filepath.Join(h.uploadDir, fileID+"_"+filepath.Base(fileHeader.Filename))

	if err := c.SaveUploadedFile(fileHeader, path); err != nil {
		h.logger.Error("Failed to save uploaded file",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store file",
		})
		return
	}

	file := model.UploadedFile{
		FileID:   fileID,
		UserID:   userID,
		FileType: docType,
		Path:     path,
	}

	if err := h.storage.CreateUploadedFile(c.Request.Context(), &file); err != nil {
		h.logger.Error("Failed to register uploaded file",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to register file",
		})
		return
	}

	h.logger.Info("File ingested",
		slog.String("file_id", fileID),
		slog.String("doc_type", docType),
		slog.String("user_id", userID),
	)

	c.JSON(http.StatusOK, dto.UploadResponse{
		Message: "File ingested",
		FileID:  fileID,
		DocType: docType,
	})
}

// determineDocType infers the document type from the filename
func determineDocType(filename string) string {
	if strings.Contains(strings.ToLower(filename), "project") {
		return domain.DocTypeProject
	}
	return domain.DocTypeCV
}
