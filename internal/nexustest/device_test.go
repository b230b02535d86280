package nexustest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, srv *httptest.Server, rawQuery string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + Path + "?" + rawQuery)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDeviceSessionLifecycle(t *testing.T) {
	d := NewDevice()
	srv := httptest.NewServer(d)
	defer srv.Close()

	status, body := get(t, srv, "action=SERVERWhoAmI")
	if status != http.StatusOK || !strings.Contains(body, `"Id":"sess-1"`) {
		t.Fatalf("whoami = %d %s", status, body)
	}

	status, body = get(t, srv, "session=sess-1&action=PTAzimuthElevationGet")
	if status != http.StatusOK || !strings.Contains(body, `"Azimuth"`) {
		t.Fatalf("position = %d %s", status, body)
	}

	if status, _ := get(t, srv, "session=bogus&action=PTAzimuthElevationGet"); status != http.StatusUnauthorized {
		t.Errorf("unknown session status = %d, want 401", status)
	}

	d.ExpireSessions()
	if status, _ := get(t, srv, "session=sess-1&action=PTAzimuthElevationGet"); status != http.StatusUnauthorized {
		t.Errorf("expired session status = %d, want 401", status)
	}

	want := []string{"SERVERWhoAmI", "PTAzimuthElevationGet", "PTAzimuthElevationGet", "PTAzimuthElevationGet"}
	got := d.Actions()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Actions() = %v, want %v", got, want)
	}
}

func TestDeviceKnobs(t *testing.T) {
	d := NewDevice()
	srv := httptest.NewServer(d)
	defer srv.Close()
	get(t, srv, "action=SERVERWhoAmI")

	d.FailCommands(1)
	if status, _ := get(t, srv, "session=sess-1&action=PTSpeedGet"); status != http.StatusInternalServerError {
		t.Errorf("failed command status = %d, want 500", status)
	}
	if status, _ := get(t, srv, "session=sess-1&action=PTSpeedGet"); status != http.StatusOK {
		t.Errorf("status after failure budget = %d, want 200", status)
	}

	d.RawBody("OK")
	if _, body := get(t, srv, "session=sess-1&action=DLTVAutoFocusPush"); body != "OK" {
		t.Errorf("raw body = %q", body)
	}
	d.RawBody("")

	d.RejectAuth(true)
	if status, _ := get(t, srv, "action=SERVERWhoAmI"); status != http.StatusForbidden {
		t.Errorf("rejected auth status = %d, want 403", status)
	}

	if status, _ := get(t, srv, "session=sess-1&action=DLTVFOVMagnificationSet&Magnification=4"); status != http.StatusOK {
		t.Fatalf("set zoom status = %d", status)
	}
	if got := d.Magnification(); got != 4 {
		t.Errorf("Magnification() = %v, want 4", got)
	}

	resp, err := http.Get(srv.URL + "/other")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("other path status = %d, want 404", resp.StatusCode)
	}
}
