// Package hub talks to the irrigation hub through its LAN bridge. The bridge daemon owns
// the hub's native protocol; this package only does the REST passthrough, so the rest of
// the program sees the hub as a plain state reader / command sink.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"net/http"
	"time"
)

// Client is the protocol client contract the controller is written against.
type Client interface {
	// Init performs the one-time handshake and reports the hub model and its zone numbers.
	Init(ctx context.Context) (Info, error)
	IsInUse(ctx context.Context) (bool, error)
	// ActiveZone reports the currently watering zone. ok is false if no zone is active.
	ActiveZone(ctx context.Context) (zone int, ok bool, err error)
	// RemainingDuration reports how much longer the given zone will water.
	RemainingDuration(ctx context.Context, zone int) (remaining time.Duration, ok bool, err error)
	RainSetPointReached(ctx context.Context) (bool, error)
	ActivateZone(ctx context.Context, zone int, duration time.Duration) error
	DeactivateZone(ctx context.Context, zone int) error
	DeactivateAllZones(ctx context.Context) error
	StopIrrigation(ctx context.Context) error
}

type Info struct {
	Model string `json:"model"`
	Zones []int  `json:"zones"`
}

var _ Client = &BridgeClient{}

// BridgeClient implements Client against the bridge's REST API.
type BridgeClient struct {
	baseURL    string
	password   string
	httpClient *http.Client
}

// NewBridgeClient returns a BridgeClient for the bridge at baseURL. If m is not nil, all
// requests are instrumented with the provided request metrics.
func NewBridgeClient(baseURL, password string, m metrics.RequestMetrics) *BridgeClient {
	options := []roundtripper.Option{roundtripper.WithRoundTripper(http.DefaultTransport)}
	if m != nil {
		options = append([]roundtripper.Option{roundtripper.WithRequestMetrics(m)}, options...)
	}
	return &BridgeClient{
		baseURL:  baseURL,
		password: password,
		httpClient: &http.Client{
			Transport: roundtripper.New(options...),
			Timeout:   10 * time.Second,
		},
	}
}

// NewRequestMetrics returns the request metrics for an instrumented BridgeClient.
func NewRequestMetrics(namespace, subsystem string) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace: namespace,
		Subsystem: subsystem,
	})
}

func (c *BridgeClient) Init(ctx context.Context) (Info, error) {
	var info Info
	if err := c.call(ctx, http.MethodGet, "/api/info", nil, &info); err != nil {
		return Info{}, &ConnectivityError{err: err}
	}
	if info.Model == "" || len(info.Zones) == 0 {
		return Info{}, &ConnectivityError{err: fmt.Errorf("handshake returned no model or zones")}
	}
	return info, nil
}

func (c *BridgeClient) IsInUse(ctx context.Context) (bool, error) {
	var response struct {
		InUse bool `json:"inUse"`
	}
	err := c.call(ctx, http.MethodGet, "/api/in-use", nil, &response)
	return response.InUse, err
}

func (c *BridgeClient) ActiveZone(ctx context.Context) (int, bool, error) {
	var response struct {
		Zone int `json:"zone"`
	}
	// the bridge reports zone 0 when nothing is running
	err := c.call(ctx, http.MethodGet, "/api/active-zone", nil, &response)
	return response.Zone, response.Zone > 0, err
}

func (c *BridgeClient) RemainingDuration(ctx context.Context, zone int) (time.Duration, bool, error) {
	var response struct {
		Seconds *int `json:"seconds"`
	}
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/zones/%d/remaining", zone), nil, &response)
	if err != nil || response.Seconds == nil {
		return 0, false, err
	}
	return time.Duration(*response.Seconds) * time.Second, true, nil
}

func (c *BridgeClient) RainSetPointReached(ctx context.Context) (bool, error) {
	var response struct {
		Reached bool `json:"reached"`
	}
	err := c.call(ctx, http.MethodGet, "/api/rain-set-point", nil, &response)
	return response.Reached, err
}

func (c *BridgeClient) ActivateZone(ctx context.Context, zone int, duration time.Duration) error {
	body := struct {
		Seconds int `json:"seconds"`
	}{Seconds: int(duration.Seconds())}
	return c.command(ctx, fmt.Sprintf("/api/zones/%d/activate", zone), body)
}

func (c *BridgeClient) DeactivateZone(ctx context.Context, zone int) error {
	return c.command(ctx, fmt.Sprintf("/api/zones/%d/deactivate", zone), nil)
}

func (c *BridgeClient) DeactivateAllZones(ctx context.Context) error {
	return c.command(ctx, "/api/zones/deactivate", nil)
}

func (c *BridgeClient) StopIrrigation(ctx context.Context) error {
	return c.command(ctx, "/api/stop", nil)
}

func (c *BridgeClient) command(ctx context.Context, path string, body any) error {
	if err := c.call(ctx, http.MethodPost, path, body, nil); err != nil {
		var commandErr *CommandError
		if !errors.As(err, &commandErr) {
			err = &CommandError{err: err}
		}
		return err
	}
	return nil
}

func (c *BridgeClient) call(ctx context.Context, method, path string, body, response any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.password != "" {
		req.SetBasicAuth("rainbird", c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &CommandError{StatusCode: resp.StatusCode}
	}
	if response != nil {
		return json.NewDecoder(resp.Body).Decode(response)
	}
	return nil
}
