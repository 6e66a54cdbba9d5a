package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RoomsClient asks the registry's HTTP API for fresh room ids.
type RoomsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRoomsClient(baseURL string, timeout time.Duration) *RoomsClient {
	return &RoomsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *RoomsClient) Create(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rooms", nil)
	if err != nil {
		return "", errors.Wrap(err, "build create room request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "create room")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.Wrap(err, "read create room response")
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: unexpected status %d", resp.StatusCode)
	}

	id := gjson.GetBytes(body, "roomId").String()
	if id == "" {
		return "", errors.New("create room: response carried no room id")
	}
	return id, nil
}

// NewRoomID prefers a registry-issued id and falls back to a local uuid.
func NewRoomID(ctx context.Context, rooms *RoomsClient) string {
	if rooms != nil {
		if id, err := rooms.Create(ctx); err == nil {
			return id
		}
	}
	return uuid.NewString()
}
