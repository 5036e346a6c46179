package handler

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"meetnote/internal/service"
)

// uploadResponse is returned by POST /meetings. Warning is set when the meeting was saved
// but the processing backend did not accept it.
type uploadResponse struct {
	MeetingID string `json:"meeting_id"`
	Warning   string `json:"warning,omitempty"`
}

// ListMeetings godoc
// @Summary List meetings
// @Description All meetings, newest first
// @Tags meetings
// @Produce json
// @Success 200 {array} model.Meeting
// @Failure 502 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /meetings [get]
func ListMeetings(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// GetMeeting godoc
// @Summary Get a meeting
// @Tags meetings
// @Produce json
// @Param id path string true "Meeting ID"
// @Success 200 {object} model.Meeting
// @Failure 404 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /meetings/{id} [get]
func GetMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(m)
	}
}

// UploadMeeting godoc
// @Summary Upload a recording
// @Description Stores the recording, creates a pending meeting and starts processing
// @Tags meetings
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Recording (m4a)"
// @Success 201 {object} uploadResponse
// @Success 202 {object} uploadResponse "saved, processing not started"
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /meetings [post]
func UploadMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		audio, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		res, err := svc.UploadRecording(c.UserContext(), audio)
		if err != nil {
			return writeServiceError(c, err)
		}
		if res.Partial() {
			return c.Status(fiber.StatusAccepted).JSON(uploadResponse{MeetingID: res.MeetingID, Warning: res.Warning()})
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{MeetingID: res.MeetingID})
	}
}

// RetriggerMeeting godoc
// @Summary Retry processing
// @Description Hands a pending or failed meeting to the processing backend again
// @Tags meetings
// @Param id path string true "Meeting ID"
// @Success 202
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /meetings/{id}/retrigger [post]
func RetriggerMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Retrigger(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}
