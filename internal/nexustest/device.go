// Package nexustest provides an in-process fake of the Nexus CGI endpoint for
// tests and manual runs. It issues session ids, answers the commands in the
// default registry with canned payloads and records every query it receives.
package nexustest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Path is the CGI path served by Device
const Path = "/Nexus.cgi"

// AuthAction is the action that issues sessions
const AuthAction = "SERVERWhoAmI"

// Device emulates one camera. The zero value is not usable; call NewDevice.
type Device struct {
	mu sync.Mutex

	sessions map[string]bool
	issued   int
	queries  []string

	failNext   int
	rejectAuth bool
	rawBody    string
	username   string
	password   string

	azimuth, elevation     float64
	magnification, degrees float64
	azSpeed, elSpeed       int
	lastScreen             [2]float64
}

// NewDevice returns a device pointing north at the horizon with 1x zoom
func NewDevice() *Device {
	return &Device{
		sessions:      make(map[string]bool),
		magnification: 1,
		degrees:       58,
		azSpeed:       10,
		elSpeed:       10,
	}
}

// FailCommands makes the next n non-auth requests answer 500
func (d *Device) FailCommands(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = n
}

// RejectAuth makes the who-am-I action answer 403
func (d *Device) RejectAuth(reject bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejectAuth = reject
}

// RawBody makes every command answer body as text/plain. Empty restores JSON.
func (d *Device) RawBody(body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rawBody = body
}

// RequireBasicAuth makes every request require the given HTTP credentials
func (d *Device) RequireBasicAuth(username, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.username, d.password = username, password
}

// ExpireSessions forgets every issued session
func (d *Device) ExpireSessions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = make(map[string]bool)
}

// SetPosition sets the reported azimuth and elevation
func (d *Device) SetPosition(az, el float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.azimuth, d.elevation = az, el
}

// Magnification returns the current zoom
func (d *Device) Magnification() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.magnification
}

// Speeds returns the current speed settings
func (d *Device) Speeds() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.azSpeed, d.elSpeed
}

// LastScreen returns the last on-screen centering coordinate
func (d *Device) LastScreen() (float64, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastScreen[0], d.lastScreen[1]
}

// SessionsIssued returns how many sessions were handed out
func (d *Device) SessionsIssued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.issued
}

// Queries returns the raw query strings received, in order
func (d *Device) Queries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

// Actions returns the action of every query received, in order
func (d *Device) Actions() []string {
	var out []string
	for _, q := range d.Queries() {
		out = append(out, actionOf(q))
	}
	return out
}

// actionOf scans the raw query so the order the client sent is irrelevant
func actionOf(raw string) string {
	for _, pair := range strings.Split(raw, "&") {
		if v, ok := strings.CutPrefix(pair, "action="); ok {
			return v
		}
	}
	return ""
}

func (d *Device) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != Path {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.queries = append(d.queries, r.URL.RawQuery)

	if d.username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != d.username || pass != d.password {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	q := r.URL.Query()
	action := q.Get("action")
	if action == AuthAction {
		d.whoAmI(w)
		return
	}

	if !d.sessions[q.Get("session")] {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if d.failNext > 0 {
		d.failNext--
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if d.rawBody != "" {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, d.rawBody)
		return
	}

	payload, status := d.handle(action, q.Get)
	writeJSON(w, status, payload)
}

func (d *Device) whoAmI(w http.ResponseWriter) {
	if d.rejectAuth {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	d.issued++
	id := fmt.Sprintf("sess-%d", d.issued)
	d.sessions[id] = true
	writeJSON(w, http.StatusOK, map[string]any{
		AuthAction: map[string]any{"Id": id},
	})
}

func (d *Device) handle(action string, get func(string) string) (map[string]any, int) {
	ok := map[string]any{action: map[string]any{"Result": "OK"}}

	switch action {
	case "PTAzimuthElevationGet":
		return map[string]any{action: map[string]any{
			"Azimuth":   d.azimuth,
			"Elevation": d.elevation,
		}}, http.StatusOK
	case "DLTVFOVMagnificationGet":
		return map[string]any{action: map[string]any{"Magnification": d.magnification}}, http.StatusOK
	case "DLTVZoomDegreesGet":
		return map[string]any{action: map[string]any{"Degrees": d.degrees}}, http.StatusOK
	case "PTSpeedGet":
		return map[string]any{action: map[string]any{
			"Azimuth_Speed":   d.azSpeed,
			"Elevation_Speed": d.elSpeed,
		}}, http.StatusOK
	case "DLTVFOVMagnificationSet":
		m, err := strconv.ParseFloat(get("Magnification"), 64)
		if err != nil {
			return badRequest(action, "Magnification"), http.StatusBadRequest
		}
		d.magnification = m
		d.degrees = 58 / m
		return ok, http.StatusOK
	case "PTSpeedModeSet":
		az, errAz := strconv.Atoi(get("Azimuth_Speed"))
		el, errEl := strconv.Atoi(get("Elevation_Speed"))
		if errAz != nil || errEl != nil {
			return badRequest(action, "Azimuth_Speed/Elevation_Speed"), http.StatusBadRequest
		}
		d.azSpeed, d.elSpeed = az, el
		return ok, http.StatusOK
	case "PTAzimuthElevationOnScreenSet":
		x, errX := strconv.ParseFloat(get("ScreenX"), 64)
		y, errY := strconv.ParseFloat(get("ScreenY"), 64)
		if errX != nil || errY != nil {
			return badRequest(action, "ScreenX/ScreenY"), http.StatusBadRequest
		}
		d.lastScreen = [2]float64{x, y}
		return ok, http.StatusOK
	case "DLTVAutoFocusPush":
		return ok, http.StatusOK
	}
	return map[string]any{"Error": fmt.Sprintf("unknown action %q", action)}, http.StatusBadRequest
}

func badRequest(action, field string) map[string]any {
	return map[string]any{action: map[string]any{"Result": "ERROR", "Field": field}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := codec.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
