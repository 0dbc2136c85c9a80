package control

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openchami/redfish-relay/pkg/config"
)

type fakeReconciler struct {
	mu             sync.Mutex
	setConfigCalls int
	reconcileCalls int
	purgeCalls     int
	stopCalls      int
	reconcileErr   error
	purgeErr       error
}

func (f *fakeReconciler) SetConfig(cfg *config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setConfigCalls++
}

func (f *fakeReconciler) ReconcileNow(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconcileCalls++
	return f.reconcileErr
}

func (f *fakeReconciler) PurgeNow(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgeCalls++
	return f.purgeErr
}

func (f *fakeReconciler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

func (f *fakeReconciler) snapshot() (setConfig, reconcile, purge, stop int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setConfigCalls, f.reconcileCalls, f.purgeCalls, f.stopCalls
}

type fakeListener struct {
	mu            sync.Mutex
	shutdownCalls int
}

func (f *fakeListener) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdownCalls++
	return nil
}

func writeTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/config.yaml"
	doc := []byte(`
general:
  context_prefix: x1000
endpoints:
  nid001:
    username: admin
    password: secret
subscriptions:
  - servers: nid001
    context: x1000-relay
`)
	if err := os.WriteFile(path, doc, 0644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

func TestReload_CallsSetConfigAndReconcileOnValidConfig(t *testing.T) {
	path := writeTempConfig(t)
	r := &fakeReconciler{}
	l := &fakeListener{}
	p := New(path, r, l)

	p.reload(context.Background())

	setConfig, reconcile, _, _ := r.snapshot()
	if setConfig != 1 || reconcile != 1 {
		t.Errorf("after reload: setConfig=%d reconcile=%d, want 1,1", setConfig, reconcile)
	}
}

func TestReload_DropsConcurrentSignalWhileInProgress(t *testing.T) {
	path := writeTempConfig(t)
	r := &fakeReconciler{}
	l := &fakeListener{}
	p := New(path, r, l)

	atomic.StoreInt32(&p.reloading, 1)
	p.reload(context.Background())

	setConfig, reconcile, _, _ := r.snapshot()
	if setConfig != 0 || reconcile != 0 {
		t.Errorf("expected reload to be dropped while one is already in progress, got setConfig=%d reconcile=%d", setConfig, reconcile)
	}
	atomic.StoreInt32(&p.reloading, 0)
}

func TestShutdown_DrainsListenerAndStopsReconciler(t *testing.T) {
	r := &fakeReconciler{}
	l := &fakeListener{}
	p := New("irrelevant", r, l)

	if err := p.shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	l.mu.Lock()
	shutdownCalls := l.shutdownCalls
	l.mu.Unlock()
	if shutdownCalls != 1 {
		t.Errorf("listener.Shutdown called %d times, want 1", shutdownCalls)
	}

	_, _, _, stop := r.snapshot()
	if stop != 1 {
		t.Errorf("reconciler.Stop called %d times, want 1", stop)
	}
}

func TestRun_ReturnsOnContextCancellation(t *testing.T) {
	r := &fakeReconciler{}
	l := &fakeListener{}
	p := New("irrelevant", r, l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
