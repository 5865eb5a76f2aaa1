package service

import (
	"context"
	"time"

	"nanohub/internal/version"
	"nanohub/internal/webhook"
)

// HealthStatus represents the service health snapshot
type HealthStatus struct {
	Healthy   bool           `json:"healthy"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Uptime    time.Duration  `json:"uptime"`
	Details   []HealthDetail `json:"details,omitempty"`
}

// HealthDetail represents one component's health
type HealthDetail struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck probes the audit store and the webhook log
func (s *Service) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Healthy:   true,
		Version:   version.GetInfo().Version,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime),
	}

	if err := s.storage.Ping(ctx); err != nil {
		status.Healthy = false
		status.Details = append(status.Details, HealthDetail{
			Component: "storage",
			Status:    "unhealthy",
			Error:     err.Error(),
		})
	} else {
		status.Details = append(status.Details, HealthDetail{
			Component: "storage",
			Status:    "healthy",
		})
	}

	if _, err := webhook.ReadBlocks(s.config.Webhook.LogPath, 1); err != nil {
		status.Healthy = false
		status.Details = append(status.Details, HealthDetail{
			Component: "webhook_log",
			Status:    "unhealthy",
			Error:     err.Error(),
		})
	} else {
		status.Details = append(status.Details, HealthDetail{
			Component: "webhook_log",
			Status:    "healthy",
		})
	}

	return status
}
