package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is a wrapper around resty.Client preconfigured for the status
// API: JSON accept header, base URL and request timeout.
//
//	client := utils.NewHTTPClient("http://127.0.0.1:8023", 5*time.Second)
//	resp, err := client.R().Get("/api/status")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient returns an independent client. A zero timeout leaves resty's
// default in place.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &HTTPClient{Client: client}
}
