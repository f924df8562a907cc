// Package apiclient talks to a VIIPER server: it manages virtual buses and
// devices and opens the device streams native pads write their state to.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aircontroller/padbridge/apitypes"
	"github.com/aircontroller/padbridge/device"
)

// Client is the typed VIIPER API.
type Client struct{ transport *Transport }

// New creates a client for addr. A nil cfg uses DefaultConfig.
func New(addr string, cfg *Config) *Client { return &Client{transport: NewTransport(addr, cfg)} }

// WithTransport wraps an existing transport, typically a mock.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Addr returns the server address.
func (c *Client) Addr() string { return c.transport.Addr() }

// Ping returns the server identity and version.
func (c *Client) Ping(ctx context.Context) (*apitypes.PingResponse, error) {
	return call[apitypes.PingResponse](ctx, c, "ping", nil, nil)
}

// BusList returns the ids of all virtual buses.
func (c *Client) BusList(ctx context.Context) (*apitypes.BusListResponse, error) {
	return call[apitypes.BusListResponse](ctx, c, "bus/list", nil, nil)
}

// BusCreate creates a bus. busID 0 lets the server pick the next free id.
func (c *Client) BusCreate(ctx context.Context, busID uint32) (*apitypes.BusCreateResponse, error) {
	var payload any
	if busID != 0 {
		payload = strconv.FormatUint(uint64(busID), 10)
	}
	return call[apitypes.BusCreateResponse](ctx, c, "bus/create", payload, nil)
}

// BusRemove removes a bus and every device on it.
func (c *Client) BusRemove(ctx context.Context, busID uint32) (*apitypes.BusRemoveResponse, error) {
	return call[apitypes.BusRemoveResponse](ctx, c, "bus/remove", strconv.FormatUint(uint64(busID), 10), nil)
}

// DeviceAdd adds a device of devType ("xbox360", "dualshock4") to a bus.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string, o *device.CreateOptions) (*apitypes.Device, error) {
	if o == nil {
		o = &device.CreateOptions{}
	}
	req := apitypes.DeviceCreateRequest{
		Type:      &devType,
		IdVendor:  o.IdVendor,
		IdProduct: o.IdProduct,
		SubType:   o.SubType,
	}
	return call[apitypes.Device](ctx, c, "bus/{id}/add", req, busParams(busID))
}

// DeviceRemove removes device devID from a bus, closing its stream.
func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*apitypes.DeviceRemoveResponse, error) {
	return call[apitypes.DeviceRemoveResponse](ctx, c, "bus/{id}/remove", devID, busParams(busID))
}

// DevicesList returns the devices attached to a bus.
func (c *Client) DevicesList(ctx context.Context, busID uint32) (*apitypes.DevicesListResponse, error) {
	return call[apitypes.DevicesListResponse](ctx, c, "bus/{id}/list", nil, busParams(busID))
}

func busParams(busID uint32) map[string]string {
	return map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
}

func call[T any](ctx context.Context, c *Client, path string, payload any, params map[string]string) (*T, error) {
	raw, err := c.transport.Do(ctx, path, payload, params)
	if err != nil {
		return nil, err
	}
	return parse[T](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && problem.Problem() {
		return nil, &problem
	}
	var out T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
