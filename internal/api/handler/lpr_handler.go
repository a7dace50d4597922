package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/service"
)

type LPRHandler struct {
	lprService *service.LPRService
}

func NewLPRHandler(lprService *service.LPRService) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /api/v1/lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}

	plate, confidence, err := h.lprService.RecognizePlate(c.Request.Context(), imageBytes)
	if err != nil {
		c.JSON(http.StatusOK, domain.LPRResponseDTO{
			ErrorMessage: "no plate recognized: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, domain.LPRResponseDTO{
		DetectedPlate: domain.NormalizePlate(plate),
		Confidence:    confidence,
	})
}
