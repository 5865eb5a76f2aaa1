package types

// CommandResult represents the outcome of a single dispatched command,
// whether it ran as a local script or as an MDM API call. It is created
// once per dispatch attempt and never mutated after being returned.
type CommandResult struct {
	Success     bool   `json:"success"`
	Output      string `json:"output"`
	ReturnCode  int    `json:"return_code"`
	Error       string `json:"error,omitempty"`
	CommandUUID string `json:"command_uuid,omitempty"`
	Device      string `json:"device,omitempty"`
}

// RequestType identifies an MDM command request type
type RequestType string

const (
	RequestDeviceInformation RequestType = "DeviceInformation"
	RequestSecurityInfo      RequestType = "SecurityInfo"
	RequestProfileList       RequestType = "ProfileList"
	RequestApplicationList   RequestType = "InstalledApplicationList"
	RequestCertificateList   RequestType = "CertificateList"
	RequestInstallProfile    RequestType = "InstallProfile"
	RequestDeviceLock        RequestType = "DeviceLock"
	RequestRestartDevice     RequestType = "RestartDevice"
)

// QueryType identifies a high-level device query flow
type QueryType string

const (
	QueryHardware QueryType = "hardware"
	QuerySecurity QueryType = "security"
	QueryProfiles QueryType = "profiles"
	QueryApps     QueryType = "apps"
)

// RequestTypeFor maps a query type to its MDM request type
func RequestTypeFor(q QueryType) (RequestType, bool) {
	switch q {
	case QueryHardware:
		return RequestDeviceInformation, true
	case QuerySecurity:
		return RequestSecurityInfo, true
	case QueryProfiles:
		return RequestProfileList, true
	case QueryApps:
		return RequestApplicationList, true
	default:
		return "", false
	}
}
