package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ExpoIssuer obtains push tokens from the Expo push token endpoint.
type ExpoIssuer struct {
	url   string
	appID string
	http  *http.Client
}

// NewExpoIssuer returns an issuer posting to url. A nil httpClient gets a traced client with a short timeout.
func NewExpoIssuer(url string, httpClient *http.Client) *ExpoIssuer {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &ExpoIssuer{url: url, appID: "meetnote", http: httpClient}
}

type expoTokenRequest struct {
	Type        string `json:"type"`
	DeviceID    string `json:"deviceId"`
	Development bool   `json:"development"`
	AppID       string `json:"appId"`
	DeviceToken string `json:"deviceToken,omitempty"`
	ProjectID   string `json:"projectId"`
}

type expoTokenResponse struct {
	Data struct {
		ExpoPushToken string `json:"expoPushToken"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// IssueToken implements TokenIssuer.
func (e *ExpoIssuer) IssueToken(ctx context.Context, tr TokenRequest) (string, error) {
	body, err := json.Marshal(expoTokenRequest{
		Type:        tr.Type,
		DeviceID:    tr.DeviceID,
		AppID:       e.appID,
		DeviceToken: tr.DeviceToken,
		ProjectID:   tr.ProjectID,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	var out expoTokenResponse
	decodeErr := json.Unmarshal(raw, &out)

	if len(out.Errors) > 0 {
		return "", fmt.Errorf("%s: %s", out.Errors[0].Code, out.Errors[0].Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token service: %s", resp.Status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode token response: %w", decodeErr)
	}
	if out.Data.ExpoPushToken == "" {
		return "", fmt.Errorf("token service returned no token")
	}
	return out.Data.ExpoPushToken, nil
}
