package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetready/backend/internal/facescan"
	"github.com/fleetready/backend/internal/models"
)

type CreateSessionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type ConsentRequest struct {
	CheckID string `json:"check_id" validate:"required"`
	Agreed  bool   `json:"agreed"`
}

type VisionRequest struct {
	CheckID    string         `json:"check_id" validate:"required"`
	VisionData map[string]any `json:"vision_data" validate:"required"`
}

type CognitiveRequest struct {
	CheckID        string    `json:"check_id" validate:"required"`
	Latency        *float64  `json:"latency"`
	RoundLatencies []float64 `json:"round_latencies"`
	Score          *float64  `json:"score"`
	Passed         *bool     `json:"passed"`
}

type BehavioralRequest struct {
	CheckID string           `json:"check_id" validate:"required"`
	Answers []map[string]any `json:"answers" validate:"required,min=1"`
}

type ResultRequest struct {
	CheckID         string         `json:"check_id" validate:"required"`
	OverallStatus   string         `json:"overall_status" validate:"required,oneof=GREEN YELLOW RED"`
	StatusReason    string         `json:"status_reason"`
	DetectionReport map[string]any `json:"detection_report"`
}

type ScanCompleteRequest struct {
	CheckID      string               `json:"check_id" validate:"required"`
	Frames       []models.FrameSample `json:"frames" validate:"required"`
	FatigueScore float64              `json:"fatigue_score"`
}

type ScanCompleteResponse struct {
	CheckID        string                    `json:"check_id"`
	Features       models.SessionFeatures    `json:"features"`
	Classification models.RiskClassification `json:"classification"`
}

// @Summary Create check session
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/check/session [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if !h.bind(c, &req) {
		return
	}
	checkID, reused, err := h.Sessions.Create(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create check session", err.Error())
		return
	}
	message := "Check session created"
	if reused {
		message = "Existing check session reused"
	}
	c.JSON(http.StatusOK, gin.H{"check_id": checkID, "reused": reused, "message": message})
}

// @Summary Save consent step
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/check/session/consent [put]
func (h *Handler) SaveConsent(c *gin.Context) {
	var req ConsentRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Sessions.SaveConsent(c.Request.Context(), req.CheckID, req.Agreed); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save consent", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_id": req.CheckID, "message": "Consent saved"})
}

// @Summary Save vision analysis
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/check/session/vision [put]
func (h *Handler) SaveVision(c *gin.Context) {
	var req VisionRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Sessions.SaveVision(c.Request.Context(), req.CheckID, req.VisionData); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save vision analysis", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_id": req.CheckID, "message": "Vision analysis saved"})
}

// @Summary Save cognitive test result
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/check/session/cognitive [put]
func (h *Handler) SaveCognitive(c *gin.Context) {
	var req CognitiveRequest
	if !h.bind(c, &req) {
		return
	}
	data := map[string]any{}
	if req.Latency != nil {
		data["latency"] = *req.Latency
	}
	if req.RoundLatencies != nil {
		data["round_latencies"] = req.RoundLatencies
	}
	if req.Score != nil {
		data["score"] = *req.Score
	}
	if req.Passed != nil {
		data["passed"] = *req.Passed
	}
	if err := h.Sessions.SaveCognitive(c.Request.Context(), req.CheckID, data); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save cognitive test", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_id": req.CheckID, "message": "Cognitive test saved"})
}

// @Summary Save behavioral assessment
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/check/session/behavioral [put]
func (h *Handler) SaveBehavioral(c *gin.Context) {
	var req BehavioralRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Sessions.SaveBehavioral(c.Request.Context(), req.CheckID, req.Answers); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save behavioral assessment", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_id": req.CheckID, "message": "Behavioral assessment saved"})
}

// @Summary Save final result
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/check/session/result [put]
func (h *Handler) SaveResult(c *gin.Context) {
	var req ResultRequest
	if !h.bind(c, &req) {
		return
	}
	err := h.Sessions.SaveResult(c.Request.Context(), req.CheckID, req.OverallStatus, req.StatusReason, req.DetectionReport)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save final result", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_id": req.CheckID, "message": "Final result saved"})
}

// @Summary Get check session
// @Tags check
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/check/session/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	checkID := c.Param("id")
	data, ok, err := h.Sessions.Get(c.Request.Context(), checkID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to fetch session", err.Error())
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Session not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_id": checkID, "session": data})
}

// @Summary Complete a face scan
// @Description Aggregates frame features, classifies session risk, and persists the vision assessment
// @Tags check
// @Accept json
// @Produce json
// @Success 200 {object} ScanCompleteResponse
// @Failure 400 {object} map[string]any
// @Router /api/check/scan/complete [post]
func (h *Handler) ScanComplete(c *gin.Context) {
	var req ScanCompleteRequest
	if !h.bind(c, &req) {
		return
	}

	features := facescan.Aggregate(req.Frames)
	classification := h.Classifier.Classify(features, req.FatigueScore)

	visionData := map[string]any{
		"fatigueDetected": classification.Fatigue == models.Detected,
		"stressDetected":  classification.Stress == models.Detected,
		"mood":            classification.Mood,
		"shift_risk":      classification.ShiftRisk.Level,
		"action":          classification.ShiftRisk.Action,
		"metrics":         features,
	}
	if err := h.Sessions.SaveVision(c.Request.Context(), req.CheckID, visionData); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to persist scan result", err.Error())
		return
	}

	c.JSON(http.StatusOK, ScanCompleteResponse{
		CheckID:        req.CheckID,
		Features:       features,
		Classification: classification,
	})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", err.Error())
		return false
	}
	return true
}
