// Package health tracks API readiness and exposes it over grpc.health.v1 and HTTP.
package health

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the grpc.health.v1 service name reported alongside the overall ("") status.
const ServiceName = "attendance.v1.AttendanceService"

// Pinger is used to check database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is used to check the clock-in policy engine (e.g. OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Report is the outcome of one readiness probe.
type Report struct {
	Serving  bool
	Database string
	Policy   string
	At       time.Time
}

// Checker runs the readiness probes and mirrors the result into a grpc health server.
type Checker struct {
	pinger  Pinger
	policy  PolicyChecker
	timeout time.Duration
	server  *health.Server

	mu   sync.RWMutex
	last Report
}

// NewChecker returns a Checker. Nil pinger or policy skips that probe.
// timeout bounds each probe; zero means 2s.
func NewChecker(pinger Pinger, policy PolicyChecker, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		pinger:  pinger,
		policy:  policy,
		timeout: timeout,
		server:  health.NewServer(),
	}
}

// GRPCServer returns the grpc.health.v1 implementation kept in sync by Check.
func (c *Checker) GRPCServer() *health.Server {
	return c.server
}

// Check runs all probes once, records the result and updates the serving status.
func (c *Checker) Check(ctx context.Context) Report {
	rep := Report{Serving: true, Database: "skipped", Policy: "skipped", At: time.Now().UTC()}
	if c.pinger != nil {
		rep.Database = c.probe(ctx, "database", c.pinger.PingContext)
	}
	if c.policy != nil {
		rep.Policy = c.probe(ctx, "policy", c.policy.HealthCheck)
	}
	rep.Serving = rep.Database != "down" && rep.Policy != "down"

	status := healthpb.HealthCheckResponse_SERVING
	if !rep.Serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)

	c.mu.Lock()
	c.last = rep
	c.mu.Unlock()
	return rep
}

func (c *Checker) probe(ctx context.Context, name string, fn func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Printf("health: %s check failed: %v", name, err)
		return "down"
	}
	return "up"
}

// Last returns the most recent report; ok is false before the first Check.
func (c *Checker) Last() (Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, !c.last.At.IsZero()
}

// Run checks immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	c.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain traffic before the listeners close.
func (c *Checker) Shutdown() {
	c.server.Shutdown()
}

func (r Report) String() string {
	return fmt.Sprintf("serving=%t database=%s policy=%s", r.Serving, r.Database, r.Policy)
}
