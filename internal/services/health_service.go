package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"

	"gridexport/internal/files"
	"gridexport/internal/infrastructure"
	"gridexport/pkg/contracts"
	"gridexport/pkg/contracts/domain"
)

// FormatLister reports the formats that can be exported
type FormatLister interface {
	Formats() []domain.Format
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	formats   FormatLister
	clients   ClientCounter
	artifacts *files.Discovery
	clock     clockwork.Clock
	startTime time.Time
	logger    *slog.Logger
}

// Readiness values of HealthStatus.Status and ServiceHealth.Status
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. clients and artifacts may be nil.
func NewHealthService(formats FormatLister, clients ClientCounter, artifacts *files.Discovery, clock clockwork.Clock, logger *slog.Logger) *HealthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		formats:   formats,
		clients:   clients,
		artifacts: artifacts,
		clock:     clock,
		startTime: clock.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: hs.clock.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether every export dependency is usable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: hs.clock.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"exporter": hs.checkExporter(),
		},
	}
	if hs.clients != nil {
		status.Services["websocket"] = ServiceHealth{
			Status:  StatusReady,
			Message: fmt.Sprintf("%d clients connected", hs.clients.ClientCount()),
		}
	}
	if hs.artifacts != nil {
		status.Services["artifacts"] = hs.checkArtifacts()
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: hs.clock.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     hs.clock.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkExporter() ServiceHealth {
	if hs.formats == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "export engine not initialized"}
	}
	formats := hs.formats.Formats()
	if len(formats) == 0 {
		return ServiceHealth{Status: StatusNotReady, Message: "no export sinks registered"}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("formats: %v", formats)}
}

func (hs *HealthService) checkArtifacts() ServiceHealth {
	list, err := hs.artifacts.List()
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d artifacts stored", len(list))}
}
