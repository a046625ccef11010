package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clinicd/internal/chat"
	"github.com/fyrsmithlabs/clinicd/internal/conversation"
	"github.com/fyrsmithlabs/clinicd/internal/explain"
	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "clinicd",
	})
}

// DocumentUpload is one pre-extracted medical document in a registration
// request. Text extraction (OCR) happens upstream; clinicd indexes the text.
type DocumentUpload struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Date     string `json:"date"`
	Text     string `json:"text"`
}

// RegisterPatientRequest is the request body for POST /api/patients.
type RegisterPatientRequest struct {
	Name          string                 `json:"name"`
	Age           int                    `json:"age"`
	FamilyHistory patients.FamilyHistory `json:"family_history"`
	Documents     []DocumentUpload       `json:"documents"`
}

// RegisterPatientResponse is the response body for POST /api/patients.
type RegisterPatientResponse struct {
	Success            bool   `json:"success"`
	PatientID          string `json:"patient_id"`
	Message            string `json:"message"`
	DocumentsProcessed int    `json:"documents_processed"`
	TotalDocuments     int    `json:"total_documents"`
}

func (s *Server) handleRegisterPatient(c echo.Context) error {
	var req RegisterPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	patientID := patients.NewPatientID()
	ctx := c.Request().Context()
	now := timeNow().UTC()

	var docs []patients.DocumentInfo
	processed := 0
	for _, upload := range req.Documents {
		info := patients.DocumentInfo{
			Filename: upload.Filename,
			Type:     upload.Type,
		}
		if strings.TrimSpace(upload.Text) != "" {
			recordID, err := s.index.Add(ctx, patientID, upload.Text, map[string]string{
				vectorstore.MetaType:       upload.Type,
				vectorstore.MetaDate:       upload.Date,
				vectorstore.MetaUploadDate: now.Format(time.RFC3339),
			}, "")
			if err == nil {
				info.RecordID = recordID
				info.Processed = true
				processed++
			} else {
				s.logger.Warn("failed to index uploaded document",
					zap.String("patient_id", patientID),
					zap.String("filename", upload.Filename),
					zap.Error(err),
				)
			}
		}
		docs = append(docs, info)
	}

	if _, err := s.index.AddFamilyHistory(ctx, patientID, req.FamilyHistory); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store family history")
	}

	profile := &patients.Profile{
		PatientID:          patientID,
		Name:               req.Name,
		Age:                req.Age,
		FamilyHistory:      req.FamilyHistory,
		UploadedDocuments:  docs,
		TotalDocuments:     len(req.Documents),
		DocumentsProcessed: processed,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.registry.Put(profile); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store patient profile")
	}

	s.logger.Info("registered patient",
		zap.String("patient_id", patientID),
		zap.Int("documents", len(req.Documents)),
		zap.Int("processed", processed),
	)

	return c.JSON(http.StatusOK, RegisterPatientResponse{
		Success:            true,
		PatientID:          patientID,
		Message:            "Medical records uploaded and processed successfully",
		DocumentsProcessed: processed,
		TotalDocuments:     len(req.Documents),
	})
}

func (s *Server) handleGetPatient(c echo.Context) error {
	profile, err := s.registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// VerifyPatientResponse is the response body for GET /api/patients/:id/verify.
type VerifyPatientResponse struct {
	PatientID string `json:"patient_id"`
	Exists    bool   `json:"exists"`
	Message   string `json:"message"`
}

func (s *Server) handleVerifyPatient(c echo.Context) error {
	patientID := c.Param("id")
	exists := s.registry.Exists(patientID)

	message := "Patient not found"
	if exists {
		message = "Patient found"
	}
	return c.JSON(http.StatusOK, VerifyPatientResponse{
		PatientID: patientID,
		Exists:    exists,
		Message:   message,
	})
}

// PatientHistoryResponse is the response body for GET /api/patients/:id/history.
type PatientHistoryResponse struct {
	PatientID    string                  `json:"patient_id"`
	Summary      vectorstore.Categorized `json:"summary"`
	TotalRecords int                     `json:"total_records"`
}

func (s *Server) handlePatientHistory(c echo.Context) error {
	patientID := c.Param("id")
	if !s.registry.Exists(patientID) {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	}

	summary, err := s.index.Categorize(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PatientHistoryResponse{
		PatientID:    patientID,
		Summary:      summary,
		TotalRecords: summary.Total(),
	})
}

// DeletePatientResponse is the response body for DELETE /api/patients/:id.
type DeletePatientResponse struct {
	PatientID      string `json:"patient_id"`
	RecordsDeleted int    `json:"records_deleted"`
}

func (s *Server) handleDeletePatient(c echo.Context) error {
	patientID := c.Param("id")
	if !s.registry.Exists(patientID) {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	}

	deleted, err := s.index.DeleteAll(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	if err := s.registry.Delete(patientID); err != nil && !errors.Is(err, patients.ErrNotFound) {
		return err
	}
	s.log.Clear(patientID)

	s.logger.Info("deleted patient",
		zap.String("patient_id", patientID),
		zap.Int("records_deleted", deleted),
	)

	return c.JSON(http.StatusOK, DeletePatientResponse{
		PatientID:      patientID,
		RecordsDeleted: deleted,
	})
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	PatientID string `json:"patient_id"`
	Message   string `json:"message"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Success     bool   `json:"success"`
	Response    string `json:"response"`
	MessageID   string `json:"message_id"`
	ContextUsed int    `json:"context_used"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reply, err := s.chat.ProcessMessage(c.Request().Context(), req.PatientID, req.Message)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Success:     true,
		Response:    reply.Response,
		MessageID:   reply.MessageID,
		ContextUsed: reply.ContextUsed,
	})
}

// ExplainRequest is the request body for POST /api/explain.
type ExplainRequest struct {
	PatientID string `json:"patient_id"`
	MessageID string `json:"message_id"`
}

// ExplainResponse is the response body for POST /api/explain.
type ExplainResponse struct {
	Success     bool                 `json:"success"`
	Explanation *explain.Explanation `json:"explanation"`
}

func (s *Server) handleExplain(c echo.Context) error {
	var req ExplainRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if !s.registry.Exists(req.PatientID) {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	}
	turn, err := s.log.Turn(req.PatientID, req.MessageID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	}

	explanation, err := s.composer.Explain(c.Request().Context(), req.PatientID, req.MessageID, turn.UserMessage, turn.Response)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, ExplainResponse{
		Success:     true,
		Explanation: explanation,
	})
}

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	PatientID string `json:"patient_id"`
	Query     string `json:"query"`
	K         int    `json:"k"`
}

// QueryResponse is the response body for POST /api/query.
type QueryResponse struct {
	PatientID string                        `json:"patient_id"`
	Query     string                        `json:"query"`
	Results   []vectorstore.RetrievedRecord `json:"results"`
	Count     int                           `json:"count"`
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if !s.registry.Exists(req.PatientID) {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	}

	k := req.K
	if k <= 0 {
		k = 5
	}
	results, err := s.index.Query(c.Request().Context(), req.PatientID, req.Query, k)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, QueryResponse{
		PatientID: req.PatientID,
		Query:     req.Query,
		Results:   results,
		Count:     len(results),
	})
}

// StatsResponse is the response body for GET /api/stats.
type StatsResponse struct {
	VectorStore   vectorstore.Stats `json:"vector_store"`
	PatientsCount int               `json:"patients_count"`
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, StatsResponse{
		VectorStore:   s.index.Stats(c.Request().Context()),
		PatientsCount: len(s.registry.List()),
	})
}

// mapServiceError maps core errors onto HTTP status codes.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, patients.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	case errors.Is(err, conversation.ErrTurnNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Message not found")
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, vectorstore.ErrInvalidPatientID),
		errors.Is(err, vectorstore.ErrEmptyText):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
