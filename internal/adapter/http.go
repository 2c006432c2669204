package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/utils"
	"github.com/tobert/halfremembered-launcher/models"
)

type httpStatusAdapter struct {
	client *utils.HTTPClient

	logger *logger.Logger
}

// NewHTTPStatusAdapter builds a [StatusAdapter] for cfg.StatusURL. A bare
// host:port is treated as http. It fails when the URL is empty or has no
// host.
func NewHTTPStatusAdapter(cfg config.AdminConfig, logger *logger.Logger) (StatusAdapter, error) {
	baseURL, err := normalizeBaseURL(cfg.StatusURL)
	if err != nil {
		return nil, fmt.Errorf("invalid status url: %w", err)
	}

	return &httpStatusAdapter{
		client: utils.NewHTTPClient(baseURL, cfg.RequestTimeout),
		logger: logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// get fetches path into out.
func (h *httpStatusAdapter) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrUnavailable, path, err)
	}
	if err := mapHTTPError(resp); err != nil {
		h.logger.Debug().Err(err).Str("path", path).Int("status", resp.StatusCode()).Msg("status API error")
		return err
	}
	return nil
}

func (h *httpStatusAdapter) Version(ctx context.Context) (models.BuildInfo, error) {
	var info models.BuildInfo
	err := h.get(ctx, "/api/version", nil, &info)
	return info, err
}

func (h *httpStatusAdapter) Status(ctx context.Context) (models.ServerStatus, error) {
	var status models.ServerStatus
	err := h.get(ctx, "/api/status", nil, &status)
	return status, err
}

func (h *httpStatusAdapter) Clients(ctx context.Context) ([]models.ClientInfo, error) {
	var clients []models.ClientInfo
	err := h.get(ctx, "/api/clients", nil, &clients)
	return clients, err
}

func (h *httpStatusAdapter) Client(ctx context.Context, sessionID string) (models.ClientInfo, error) {
	var client models.ClientInfo
	err := h.get(ctx, "/api/clients/"+url.PathEscape(sessionID), nil, &client)
	return client, err
}

func (h *httpStatusAdapter) Watches(ctx context.Context) ([]models.Watch, error) {
	var watches []models.Watch
	err := h.get(ctx, "/api/watches", nil, &watches)
	return watches, err
}

func (h *httpStatusAdapter) RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error) {
	var query map[string]string
	if limit > 0 {
		query = map[string]string{"limit": strconv.FormatUint(limit, 10)}
	}

	var records []models.SyncRecord
	err := h.get(ctx, "/api/syncs", query, &records)
	return records, err
}
