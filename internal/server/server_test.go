package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/ai"
	"github.com/medinsight/medinsight/internal/chat"
	"github.com/medinsight/medinsight/internal/export"
	"github.com/medinsight/medinsight/internal/extract"
	"github.com/medinsight/medinsight/internal/reports"
	"github.com/medinsight/medinsight/internal/repository"
)

const testSecret = "test-secret"

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ context.Context, data []byte, _ constants.FileFormat) (extract.Result, error) {
	return extract.Result{Text: string(data), Method: "stub"}, nil
}

type cannedAnalyzer struct{}

func (cannedAnalyzer) AnalyzeReport(_ context.Context, _ string) (ai.AnalysisResult, error) {
	return ai.AnalysisResult{
		Analysis: ai.Analysis{
			Summary:         "Mild anemia.",
			Abnormalities:   []string{"Low hemoglobin"},
			Recommendations: []string{"Consult a physician"},
			PlainEnglish:    "Your blood carries less oxygen than usual.",
		},
		Kind: ai.KindStructured,
	}, nil
}

func (cannedAnalyzer) Chat(_ context.Context, _, _ string) (string, error) {
	return "Anemia means fewer red blood cells.", nil
}

type nullFiles struct{}

func (nullFiles) Save(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "/uploads/" + key, nil
}
func (nullFiles) Remove(_ context.Context, _ string) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepository()
	dir := repository.NewStaticDirectory()
	an := cannedAnalyzer{}
	retry := ai.RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, BackoffFactor: 2.0}

	reportSvc := reports.NewService(nil, repo, dir, passthroughExtractor{}, an, nullFiles{}, retry)
	chatSvc := chat.NewService(nil, repo, an)
	exportSvc := export.NewService(repo, nil)

	return New(&Handlers{Reports: reportSvc, Chat: chatSvc, Export: exportSvc}, testSecret, nil)
}

func mintToken(t *testing.T, subject uuid.UUID, role constants.Role, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadFile(t *testing.T, r *gin.Engine, token, fileName, mimeType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func reportID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Report struct {
			ID string `json:"id"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Report.ID)
	return resp.Report.ID
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reports", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrongKey := mintToken(t, uuid.New(), constants.RolePatient, "other-secret")
	w = doJSON(t, r, http.MethodGet, "/api/reports", wrongKey, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadAndFetchFlow(t *testing.T) {
	r := newTestRouter(t)
	owner := uuid.New()
	token := mintToken(t, owner, constants.RolePatient, testSecret)

	w := uploadFile(t, r, token, "cbc.txt", "text/plain", []byte("Hemoglobin: 9 g/dL (low)"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := reportID(t, w)

	// The response body must not leak privileged fields.
	assert.NotContains(t, w.Body.String(), "extractedText")
	assert.NotContains(t, w.Body.String(), "filePath")

	w = doJSON(t, r, http.MethodGet, "/api/reports", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = doJSON(t, r, http.MethodGet, "/api/reports/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Another patient gets 403, not 404: the row exists but is not theirs.
	stranger := mintToken(t, uuid.New(), constants.RolePatient, testSecret)
	w = doJSON(t, r, http.MethodGet, "/api/reports/"+id, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reports/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	r := newTestRouter(t)
	token := mintToken(t, uuid.New(), constants.RolePatient, testSecret)

	w := uploadFile(t, r, token, "doc.docx", "application/msword", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsBlankDocument(t *testing.T) {
	r := newTestRouter(t)
	token := mintToken(t, uuid.New(), constants.RolePatient, testSecret)

	w := uploadFile(t, r, token, "blank.txt", "text/plain", []byte("   \n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewFlow(t *testing.T) {
	r := newTestRouter(t)
	patientTok := mintToken(t, uuid.New(), constants.RolePatient, testSecret)
	doctorTok := mintToken(t, uuid.New(), constants.RoleDoctor, testSecret)

	w := uploadFile(t, r, patientTok, "cbc.txt", "text/plain", []byte("Hemoglobin: 9 g/dL (low)"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := reportID(t, w)

	// Queue is reviewer-only.
	w = doJSON(t, r, http.MethodGet, "/api/reports/pending", patientTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reports/pending", doctorTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	// Patients cannot review.
	w = doJSON(t, r, http.MethodPut, "/api/reports/"+id+"/review", patientTok,
		map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/reports/"+id+"/review", doctorTok,
		map[string]string{"status": "approved", "comments": "Looks fine."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"approved"`)

	// Second decision on a terminal report is a client error.
	w = doJSON(t, r, http.MethodPut, "/api/reports/"+id+"/review", doctorTok,
		map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/reports/"+id+"/review", doctorTok,
		map[string]string{"status": "escalated"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteFlow(t *testing.T) {
	r := newTestRouter(t)
	owner := uuid.New()
	ownerTok := mintToken(t, owner, constants.RolePatient, testSecret)
	doctorTok := mintToken(t, uuid.New(), constants.RoleDoctor, testSecret)

	w := uploadFile(t, r, ownerTok, "cbc.txt", "text/plain", []byte("Hemoglobin: 9"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := reportID(t, w)

	w = doJSON(t, r, http.MethodDelete, "/api/reports/"+id, doctorTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/reports/"+id, ownerTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reports/"+id, ownerTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := mintToken(t, uuid.New(), constants.RolePatient, testSecret)

	w := doJSON(t, r, http.MethodPost, "/api/chat", token,
		map[string]string{"message": "What does low hemoglobin mean?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Anemia means fewer red blood cells.")

	w = doJSON(t, r, http.MethodPost, "/api/chat", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type recordingChatter struct {
	contexts []string
}

func (r *recordingChatter) Chat(_ context.Context, _, reportContext string) (string, error) {
	r.contexts = append(r.contexts, reportContext)
	return "ok", nil
}

func TestChatMalformedReportID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepository()
	retry := ai.RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, BackoffFactor: 2.0}
	reportSvc := reports.NewService(nil, repo, repository.NewStaticDirectory(),
		passthroughExtractor{}, cannedAnalyzer{}, nullFiles{}, retry)
	recorder := &recordingChatter{}
	r := New(&Handlers{
		Reports: reportSvc,
		Chat:    chat.NewService(nil, repo, recorder),
		Export:  export.NewService(repo, nil),
	}, testSecret, nil)

	owner := uuid.New()
	token := mintToken(t, owner, constants.RolePatient, testSecret)

	w := uploadFile(t, r, token, "cbc.txt", "text/plain", []byte("Hemoglobin: 9 g/dL (low)"))
	require.Equal(t, http.StatusCreated, w.Code)

	// A garbage id must not fall back to the recent-reports context.
	w = doJSON(t, r, http.MethodPost, "/api/chat", token,
		map[string]string{"message": "Explain this", "reportId": "not-a-uuid"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, recorder.contexts, 1)
	assert.Empty(t, recorder.contexts[0])

	// No id at all still uses the caller's recent reports.
	w = doJSON(t, r, http.MethodPost, "/api/chat", token,
		map[string]string{"message": "How am I doing?"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, recorder.contexts, 2)
	assert.Contains(t, recorder.contexts[1], "Report: Mild anemia.")
}

func TestExportEndpoint(t *testing.T) {
	r := newTestRouter(t)
	token := mintToken(t, uuid.New(), constants.RolePatient, testSecret)

	w := uploadFile(t, r, token, "cbc.txt", "text/plain", []byte("Hemoglobin: 9"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reports/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reports.xlsx")
}
