package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meetnote/internal/backend"
	"meetnote/internal/model"
	"meetnote/internal/service"
	serviceMocks "meetnote/internal/service/mocks"
	"meetnote/internal/storage"
	"meetnote/internal/supabase"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "recording.m4a")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListMeetings(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Get("/meetings", ListMeetings(mockSvc))

	t.Run("success", func(t *testing.T) {
		items := []model.Meeting{
			{ID: uuid.NewString(), CreatedAt: time.Now(), Status: model.StatusReady},
			{ID: uuid.NewString(), CreatedAt: time.Now().Add(-time.Hour), Status: model.StatusPending},
		}
		mockSvc.On("List", mock.Anything).Return(items, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []model.Meeting
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result, 2)
		assert.Equal(t, items[0].ID, result[0].ID)
		assert.Nil(t, result[1].Transcript)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Meeting{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, "[]", buf.String())
	})

	t.Run("not configured", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, service.ErrNotConfigured).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "NOT_CONFIGURED", body.Error.Code)
		assert.Equal(t, "Supabase not configured", body.Error.Message)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, errors.New("connection refused")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings", nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "UPSTREAM_ERROR", body.Error.Code)
		assert.Equal(t, "connection refused", body.Error.Message)
		mockSvc.AssertExpectations(t)
	})
}

func TestWriteServiceError_UpstreamText(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "storage rejected",
			err:        fmt.Errorf("upload to storage: %w", &supabase.APIError{Message: "new row violates row-level security policy"}),
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_ERROR",
			wantMsg:    "upload to storage: new row violates row-level security policy",
		},
		{
			name:       "insert unauthorized",
			err:        fmt.Errorf("db save failed: %w", &supabase.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid API key"}),
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_ERROR",
			wantMsg:    "db save failed: Unauthorized: Invalid API key",
		},
		{
			name:       "duplicate key",
			err:        fmt.Errorf("upload to storage: meetings/1-abc.m4a: %w", storage.ErrObjectExists),
			wantStatus: http.StatusConflict,
			wantCode:   "OBJECT_EXISTS",
			wantMsg:    "upload to storage: meetings/1-abc.m4a: object already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeServiceError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body errorPayload
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestUploadMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Post("/meetings", UploadMeeting(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, []byte("audio-bytes"))
		id := uuid.NewString()
		mockSvc.On("UploadRecording", mock.Anything, []byte("audio-bytes")).Return(&service.UploadResult{MeetingID: id}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/meetings", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result["meeting_id"])
		assert.NotContains(t, result, "warning")
		mockSvc.AssertExpectations(t)
	})

	t.Run("handoff failed keeps the meeting id", func(t *testing.T) {
		body, ct := multipartBody(t, []byte("audio"))
		id := uuid.NewString()
		res := &service.UploadResult{MeetingID: id, HandoffErr: &backend.StatusError{StatusCode: 500}}
		mockSvc.On("UploadRecording", mock.Anything, []byte("audio")).Return(res, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/meetings", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var result uploadResponse
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.MeetingID)
		assert.Equal(t, "backend: 500", result.Warning)
	})

	t.Run("no file", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/meetings", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_REQUIRED", res.Error.Code)
	})

	t.Run("empty recording", func(t *testing.T) {
		body, ct := multipartBody(t, nil)
		mockSvc.On("UploadRecording", mock.Anything, []byte{}).Return(nil, service.ErrEmptyRecording).Once()

		req := httptest.NewRequest(http.MethodPost, "/meetings", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "EMPTY_RECORDING", res.Error.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		body, ct := multipartBody(t, []byte("audio"))
		mockSvc.On("UploadRecording", mock.Anything, []byte("audio")).Return(nil, errors.New("upload to storage: Forbidden")).Once()

		req := httptest.NewRequest(http.MethodPost, "/meetings", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Get("/meetings/:id", GetMeeting(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		summary := "short"
		mockSvc.On("Get", mock.Anything, id).Return(&model.Meeting{ID: id, Status: model.StatusReady, Summary: &summary}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings/"+id, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Meeting
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Equal(t, "short", result.SummaryText())
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "missing").Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings/missing", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		assert.Equal(t, "Meeting not found", res.Error.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("transport error is not a not-found", func(t *testing.T) {
		id := uuid.NewString()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("dial tcp: refused")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings/"+id, nil))

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRetriggerMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Post("/meetings/:id/retrigger", RetriggerMeeting(mockSvc))

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"already processing", service.ErrNotRetriggerable, http.StatusConflict},
		{"no audio", service.ErrNoAudio, http.StatusConflict},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"backend rejected", &backend.StatusError{StatusCode: 503}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc.On("Retrigger", mock.Anything, "m-1").Return(tt.err).Once()

			resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/meetings/m-1/retrigger", nil))

			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockMeetingService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("meetings route is wired", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Meeting{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/meetings", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}
