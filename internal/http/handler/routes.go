package handler

import (
	"github.com/gofiber/fiber/v2"

	"meetnote/internal/service"
)

// RegisterRoutes attaches the health and meeting routes to app.
func RegisterRoutes(app *fiber.App, health Pinger, svc service.MeetingService) {
	app.Get("/health", HealthCheck(health))
	app.Get("/healthz", LivenessProbe())

	app.Get("/meetings", ListMeetings(svc))
	app.Post("/meetings", UploadMeeting(svc))
	app.Get("/meetings/:id", GetMeeting(svc))
	app.Post("/meetings/:id/retrigger", RetriggerMeeting(svc))
}
