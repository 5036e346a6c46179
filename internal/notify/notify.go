// Package notify bridges the application to the notification system: permission, the device
// push token handed to the processing backend, local notifications and tap routing.
package notify

import "context"

// TokenSource yields the device push token. An empty token with a nil error means
// "no token available" (permission not granted, project not configured).
type TokenSource interface {
	PushToken(ctx context.Context) (string, error)
}

// LocalNotifier shows a notification on this device. Failures are swallowed by implementations.
type LocalNotifier interface {
	NotifyLocal(ctx context.Context, title, body string, data map[string]string)
}
