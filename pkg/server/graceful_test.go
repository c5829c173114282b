package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	chainviztls "github.com/dd0wney/cluso-chainviz/pkg/tls"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestGracefulServer_ServeUntilCancelled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gs := NewGracefulServer("", handler, WithShutdownTimeout(time.Second))
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !gs.IsShuttingDown() {
		t.Error("IsShuttingDown should be true after shutdown")
	}
}

func TestGracefulServer_DrainsInFlightRequest(t *testing.T) {
	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	})
	gs := NewGracefulServer("", handler, WithShutdownTimeout(2*time.Second))
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	result := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			result <- 0
			return
		}
		resp.Body.Close()
		result <- resp.StatusCode
	}()

	<-started
	cancel()

	if code := <-result; code != http.StatusNoContent {
		t.Errorf("in-flight request got %d, want 204", code)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}

func TestGracefulServer_ShutdownIdempotent(t *testing.T) {
	gs := NewGracefulServer(":0", http.NotFoundHandler())

	if err := gs.Shutdown(time.Second); err != nil {
		t.Errorf("first shutdown: %v", err)
	}
	if err := gs.Shutdown(time.Second); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
	select {
	case <-gs.ShutdownChannel():
	default:
		t.Error("shutdown channel not closed")
	}
}

func TestGracefulServer_Reload(t *testing.T) {
	gs := NewGracefulServer(":0", http.NotFoundHandler())

	if err := gs.Reload(); err != nil {
		t.Errorf("reload without func: %v", err)
	}

	calls := 0
	gs.SetReloadFunc(func() error { calls++; return nil })
	if err := gs.Reload(); err != nil || calls != 1 {
		t.Errorf("reload err=%v calls=%d", err, calls)
	}

	want := errors.New("bad table")
	gs.SetReloadFunc(func() error { return want })
	if err := gs.Reload(); !errors.Is(err, want) {
		t.Errorf("reload err = %v, want %v", err, want)
	}
}

func TestGracefulServer_ReloadOnSIGHUP(t *testing.T) {
	gs := NewGracefulServer(":0", http.NotFoundHandler())
	reloaded := make(chan struct{}, 1)
	gs.SetReloadFunc(func() error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watching := make(chan struct{})
	go func() {
		close(watching)
		gs.WatchReloadSignal(ctx)
	}()
	<-watching
	// let signal.Notify register before the signal is raised
	time.Sleep(100 * time.Millisecond)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP did not trigger reload")
	}
	if gs.IsShuttingDown() {
		t.Error("SIGHUP must not shut the server down")
	}
}

func TestGracefulServer_ListenError(t *testing.T) {
	ln := listen(t)
	defer ln.Close()

	gs := NewGracefulServer(ln.Addr().String(), http.NotFoundHandler())
	if err := gs.ListenAndServe(context.Background()); err == nil {
		t.Error("expected error listening on a bound address")
	}
}

func TestGracefulServer_ServesTLS(t *testing.T) {
	c := chainviztls.DefaultConfig()
	c.Enabled = true
	tlsCfg, err := chainviztls.ServerConfig(c)
	if err != nil {
		t.Fatalf("tls config: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			t.Error("request did not arrive over TLS")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	gs := NewGracefulServer("", handler, WithTLSConfig(tlsCfg))
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	pool := x509.NewCertPool()
	leaf, err := x509.ParseCertificate(tlsCfg.Certificates[0].Certificate[0])
	if err != nil {
		t.Fatalf("parse leaf: %v", err)
	}
	pool.AddCert(leaf)
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}

	resp, err := client.Get("https://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status %d", resp.StatusCode)
	}

	// plain HTTP against the TLS listener fails
	if resp, err := http.Get("http://" + ln.Addr().String() + "/"); err == nil {
		if resp.StatusCode == http.StatusNoContent {
			t.Error("plain HTTP request should not reach the handler")
		}
		resp.Body.Close()
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}
