package health

import (
	"context"
	"errors"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

// slowPinger blocks until its context is cancelled.
type slowPinger struct{}

func (slowPinger) PingContext(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func grpcStatus(t *testing.T, c *Checker, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.GRPCServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name     string
		pinger   Pinger
		policy   PolicyChecker
		serving  bool
		database string
		policyS  string
	}{
		{"no probes", nil, nil, true, "skipped", "skipped"},
		{"pinger success", &mockPinger{}, nil, true, "up", "skipped"},
		{"pinger failure", &mockPinger{pingErr: errors.New("connection refused")}, nil, false, "down", "skipped"},
		{"policy success", nil, &mockPolicyChecker{}, true, "skipped", "up"},
		{"policy failure", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, false, "skipped", "down"},
		{"both, policy fails", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("policy error")}, false, "up", "down"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(tc.pinger, tc.policy, time.Second)
			rep := c.Check(context.Background())
			if rep.Serving != tc.serving || rep.Database != tc.database || rep.Policy != tc.policyS {
				t.Errorf("report = %s, want serving=%t database=%s policy=%s", rep, tc.serving, tc.database, tc.policyS)
			}
			want := healthpb.HealthCheckResponse_SERVING
			if !tc.serving {
				want = healthpb.HealthCheckResponse_NOT_SERVING
			}
			if got := grpcStatus(t, c, ""); got != want {
				t.Errorf("overall status = %v, want %v", got, want)
			}
			if got := grpcStatus(t, c, ServiceName); got != want {
				t.Errorf("service status = %v, want %v", got, want)
			}
		})
	}
}

func TestCheck_RecoversAfterFailure(t *testing.T) {
	p := &mockPinger{pingErr: errors.New("down")}
	c := NewChecker(p, nil, time.Second)
	c.Check(context.Background())
	p.pingErr = nil
	if rep := c.Check(context.Background()); !rep.Serving {
		t.Fatalf("report = %s, want serving", rep)
	}
	if got := grpcStatus(t, c, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestCheck_ProbeTimeout(t *testing.T) {
	c := NewChecker(slowPinger{}, nil, 20*time.Millisecond)
	start := time.Now()
	rep := c.Check(context.Background())
	if rep.Serving {
		t.Error("slow database must not be serving")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Check took %v, want bounded by probe timeout", elapsed)
	}
}

func TestLast(t *testing.T) {
	c := NewChecker(nil, nil, 0)
	if _, ok := c.Last(); ok {
		t.Error("Last before Check should report ok=false")
	}
	c.Check(context.Background())
	rep, ok := c.Last()
	if !ok || !rep.Serving {
		t.Errorf("Last = %s, %v", rep, ok)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := NewChecker(&mockPinger{}, nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := c.Last(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Run did not perform an initial check")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdown_NotServing(t *testing.T) {
	c := NewChecker(nil, nil, 0)
	c.Check(context.Background())
	c.Shutdown()
	if got := grpcStatus(t, c, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after Shutdown = %v, want NOT_SERVING", got)
	}
}
