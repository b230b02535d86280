package transport

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"github.com/nexus-ptz/ptzctl/internal/logging"
	"github.com/nexus-ptz/ptzctl/internal/query"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
}

func scriptDir(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	return t.TempDir()
}

func TestScriptTransportActionScript(t *testing.T) {
	dir := scriptDir(t)
	writeScript(t, dir, "DLTVFOVMagnificationGet.sh", `echo "Requesting zoom for $1 with $2"
echo '{"DLTVFOVMagnificationGet":{"Magnification":"4.0","Args":"'"$3 $4"'"}}'`)

	tr := NewScriptTransport(dir, logging.Discard())
	resp, err := tr.Do(context.Background(), Request{
		Endpoint: Endpoint{Host: "10.0.0.5"},
		Query: query.Values{
			{Name: "session", Value: "abc"},
			{Name: "action", Value: "DLTVFOVMagnificationGet"},
			{Name: "tokenoverride", Value: "1"},
		},
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}

	payload := resp["DLTVFOVMagnificationGet"].(map[string]any)
	if payload["Magnification"] != "4.0" {
		t.Errorf("Magnification = %v", payload["Magnification"])
	}
	if payload["Args"] != "action=DLTVFOVMagnificationGet tokenoverride=1" {
		t.Errorf("Args = %v", payload["Args"])
	}
}

func TestScriptTransportGenericFallback(t *testing.T) {
	dir := scriptDir(t)
	writeScript(t, dir, GenericScript, `echo '{"host":"'"$1"'","session":"'"$2"'"}'`)

	resp, err := NewScriptTransport(dir, logging.Discard()).Do(context.Background(), Request{
		Endpoint: Endpoint{Host: "cam"},
		Query:    query.Values{{Name: "session", Value: "s9"}, {Name: "action", Value: "PTSpeedGet"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp["host"] != "cam" || resp["session"] != "s9" {
		t.Fatalf("unexpected payload %v", resp)
	}
}

func TestScriptTransportFailures(t *testing.T) {
	dir := scriptDir(t)
	writeScript(t, dir, "Fail.sh", `echo "session rejected" >&2; exit 3`)
	writeScript(t, dir, "Chatty.sh", `echo "no json here"`)

	tr := NewScriptTransport(dir, logging.Discard())
	tests := []struct {
		action   string
		exitCode int
		contains string
	}{
		{"Fail", 3, "session rejected"},
		{"Chatty", 0, "no JSON object"},
		{"Missing", -1, "no script for action"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			_, err := tr.Do(context.Background(), Request{Query: query.Action(tt.action)})
			var terr *Error
			if !errors.As(err, &terr) || terr.Reason != ReasonScriptFailed {
				t.Fatalf("expected script failure, got %v", err)
			}
			if terr.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", terr.ExitCode, tt.exitCode)
			}
			if !strings.Contains(terr.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", terr.Error(), tt.contains)
			}
		})
	}
}

func TestScriptAuthenticate(t *testing.T) {
	dir := scriptDir(t)
	writeScript(t, dir, AuthScript, `echo "  token-for-$1  "`)

	token, err := NewScriptTransport(dir, logging.Discard()).Authenticate(context.Background(), Endpoint{Host: "10.1.1.1"})
	if err != nil {
		t.Fatal(err)
	}
	if token != "token-for-10.1.1.1" {
		t.Fatalf("token = %q", token)
	}

	writeScript(t, dir, AuthScript, `exit 0`)
	if _, err := NewScriptTransport(dir, logging.Discard()).Authenticate(context.Background(), Endpoint{Host: "x"}); err == nil {
		t.Fatal("expected error when script prints no session")
	}
}
