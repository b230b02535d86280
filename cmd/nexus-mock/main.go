// Command nexus-mock serves a fake Nexus CGI endpoint for manual testing of
// ptzctl without a camera.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nexus-ptz/ptzctl/internal/nexustest"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	addr := flag.String("listen", ":8080", "address to listen on")
	failNext := flag.Int("fail", 0, "answer the next N commands with HTTP 500")
	raw := flag.String("raw", "", "answer every command with this non-JSON body")
	user := flag.String("user", "", "require HTTP basic auth with this user")
	pass := flag.String("pass", "", "password for -user")
	flag.Parse()

	device := nexustest.NewDevice()
	device.FailCommands(*failNext)
	device.RawBody(*raw)
	if *user != "" {
		device.RequireBasicAuth(*user, *pass)
	}

	mux := http.NewServeMux()
	mux.Handle(nexustest.Path, logRequests(device))

	fmt.Printf("Mock Nexus camera starting on %s...\n", *addr)
	fmt.Println("Available endpoints:")
	fmt.Printf("  GET %s?action=%s            - issue a session\n", nexustest.Path, nexustest.AuthAction)
	fmt.Printf("  GET %s?session=ID&action=...  - run a command\n", nexustest.Path)
	fmt.Println()
	fmt.Printf("Try: ptzctl run --host 127.0.0.1 --port <port> get_position\n\n")

	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s?%s (%v)", r.Method, r.URL.Path, r.URL.RawQuery, time.Since(start))
	})
}
