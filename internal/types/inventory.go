package types

import "time"

// Profile represents one installed configuration profile reported by a
// ProfileList response
type Profile struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// Application represents one installed application reported by an
// InstalledApplicationList response
type Application struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	BundleID string `json:"bundle_id"`
	Version  string `json:"version"`
}

// Certificate represents one certificate reported by a CertificateList
// response
type Certificate struct {
	Index      int    `json:"index"`
	CommonName string `json:"common_name"`
	IsRoot     bool   `json:"is_root"`
}

// CommandRecord is the audit trail entry for one dispatched command
type CommandRecord struct {
	CommandUUID  string    `json:"command_uuid"`
	Device       string    `json:"device"`
	RequestType  string    `json:"request_type,omitempty"`
	Status       string    `json:"status,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	DispatchedAt time.Time `json:"dispatched_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
}
