package camera

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/transport"
)

// ErrFieldMissing reports a response that lacks an expected numeric field. The
// device answered, so this is not a command failure.
var ErrFieldMissing = errors.New("field missing in camera response")

// GetZoom returns the current magnification
func (c *Client) GetZoom(ctx context.Context) (float64, error) {
	resp, err := c.Execute(ctx, "get_zoom", nil)
	if err != nil {
		return 0, err
	}
	return Field(resp, "DLTVFOVMagnificationGet", "Magnification")
}

// GetZoomFOV returns the field of view reported by the zoom lens in degrees
func (c *Client) GetZoomFOV(ctx context.Context) (float64, error) {
	resp, err := c.Execute(ctx, "get_zoom_fov", nil)
	if err != nil {
		return 0, err
	}
	return Field(resp, "DLTVZoomDegreesGet", "Degrees")
}

// SetZoom sets the magnification
func (c *Client) SetZoom(ctx context.Context, magnification float64) (transport.Response, error) {
	return c.Execute(ctx, "set_zoom", map[string]any{"Magnification": magnification})
}

// AutoFocus triggers a focus operation
func (c *Client) AutoFocus(ctx context.Context) (transport.Response, error) {
	return c.Execute(ctx, "auto_focus", nil)
}

// GetSpeed returns the azimuth and elevation speed settings
func (c *Client) GetSpeed(ctx context.Context) (az, el float64, err error) {
	resp, err := c.Execute(ctx, "get_speed", nil)
	if err != nil {
		return 0, 0, err
	}
	return pair(resp, "PTSpeedGet", "Azimuth_Speed", "Elevation_Speed")
}

// SetSpeed updates the azimuth and elevation speed settings
func (c *Client) SetSpeed(ctx context.Context, az, el int) (transport.Response, error) {
	return c.Execute(ctx, "set_speed", map[string]any{
		"Azimuth_Speed":   az,
		"Elevation_Speed": el,
	})
}

// GetPosition returns the current azimuth and elevation in degrees
func (c *Client) GetPosition(ctx context.Context) (az, el float64, err error) {
	resp, err := c.Execute(ctx, "get_position", nil)
	if err != nil {
		return 0, 0, err
	}
	return pair(resp, "PTAzimuthElevationGet", "Azimuth", "Elevation")
}

// Center points the camera at a screen coordinate
func (c *Client) Center(ctx context.Context, x, y float64) (transport.Response, error) {
	return c.Execute(ctx, "center", map[string]any{"ScreenX": x, "ScreenY": y})
}

func pair(resp transport.Response, section, first, second string) (float64, float64, error) {
	a, err := Field(resp, section, first)
	if err != nil {
		return 0, 0, err
	}
	b, err := Field(resp, section, second)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

type float64er interface {
	Float64() (float64, error)
}

// Field reads section.name from resp as a number. Numeric strings are accepted.
func Field(resp transport.Response, section, name string) (float64, error) {
	obj, ok := resp[section].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFieldMissing, section)
	}
	v, ok := obj[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", ErrFieldMissing, section, name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case float64er:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %s.%s is not numeric (%v)", ErrFieldMissing, section, name, v)
}
