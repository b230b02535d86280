package camera

import (
	"context"
)

// Reading is one sampled value pair, or the error that prevented sampling it
type Reading struct {
	Azimuth   *float64 `json:"azimuth,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// StatusReport summarises the current target and what it reports
type StatusReport struct {
	Camera   string  `json:"camera_alias"`
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Backend  string  `json:"backend"`
	Position Reading `json:"position"`
	Zoom     Reading `json:"zoom"`
	Speed    Reading `json:"speed"`
}

// OK reports whether every reading succeeded
func (r StatusReport) OK() bool {
	return r.Position.Error == "" && r.Zoom.Error == "" && r.Speed.Error == ""
}

// Status samples position, zoom and speed. Individual failures are recorded
// in the report; only an unresolvable target is returned as an error.
func (c *Client) Status(ctx context.Context) (StatusReport, error) {
	ep, err := c.Endpoint()
	if err != nil {
		return StatusReport{}, err
	}
	report := StatusReport{
		Camera:  c.alias,
		Host:    ep.Host,
		Port:    ep.Port,
		Backend: c.backend,
	}

	report.Position = pairReading(c.GetPosition(ctx))
	zoom, err := c.GetZoom(ctx)
	if err != nil {
		report.Zoom.Error = err.Error()
	} else {
		report.Zoom.Value = &zoom
	}
	report.Speed = pairReading(c.GetSpeed(ctx))
	return report, nil
}

func pairReading(az, el float64, err error) Reading {
	if err != nil {
		return Reading{Error: err.Error()}
	}
	return Reading{Azimuth: &az, Elevation: &el}
}
