package webhook

import (
	"regexp"
	"strconv"
	"strings"

	"nanohub/internal/types"
)

// Specialized extractors mine structured records out of raw block text.
// Each has its own line grammar; unmatched lines are skipped silently
// and a missing section yields an empty result, never an error.
var (
	// [0] com.example.profile (Profile Name) - Installed
	profileLinePattern = regexp.MustCompile(`\[(\d+)\]\s+(\S+)\s+\(([^)]+)\)\s*[—-]?\s*(\w+)?`)

	// [0] App Name (com.example.app) v1.2.3
	appLinePattern = regexp.MustCompile(`\[(\d+)\]\s+(.+?)\s+\(([^)]+)\)\s+v?([\d.]+)?`)

	// [0] CN: Common Name [ROOT]
	certLinePattern = regexp.MustCompile(`\[(\d+)\]\s+CN:\s+(.+?)(?:\s+\[ROOT\])?$`)
)

// ExtractProfiles parses ProfileList entries from raw block text
func ExtractProfiles(raw string) []types.Profile {
	var profiles []types.Profile

	for _, line := range strings.Split(raw, "\n") {
		m := profileLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		index, _ := strconv.Atoi(m[1])
		status := m[4]
		if status == "" {
			status = "Unknown"
		}

		profiles = append(profiles, types.Profile{
			Index:      index,
			Identifier: m[2],
			Name:       m[3],
			Status:     status,
		})
	}

	return profiles
}

// ExtractApplications parses InstalledApplicationList entries from raw
// block text
func ExtractApplications(raw string) []types.Application {
	var apps []types.Application

	for _, line := range strings.Split(raw, "\n") {
		m := appLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		index, _ := strconv.Atoi(m[1])
		version := m[4]
		if version == "" {
			version = "-"
		}

		apps = append(apps, types.Application{
			Index:    index,
			Name:     strings.TrimSpace(m[2]),
			BundleID: m[3],
			Version:  version,
		})
	}

	return apps
}

// ExtractCertificates parses CertificateList entries from raw block
// text
func ExtractCertificates(raw string) []types.Certificate {
	var certs []types.Certificate

	for _, line := range strings.Split(raw, "\n") {
		m := certLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		index, _ := strconv.Atoi(m[1])
		certs = append(certs, types.Certificate{
			Index:      index,
			CommonName: strings.TrimSpace(m[2]),
			IsRoot:     strings.Contains(line, "[ROOT]"),
		})
	}

	return certs
}

// ExtractDeviceInfo returns the typed key/value pairs of a
// DeviceInformation response
func ExtractDeviceInfo(resp *types.PollResponse) map[string]types.Value {
	if resp == nil {
		return map[string]types.Value{}
	}
	return resp.Data
}

// ExtractSecurityInfo returns the typed key/value pairs of a
// SecurityInfo response
func ExtractSecurityInfo(resp *types.PollResponse) map[string]types.Value {
	if resp == nil {
		return map[string]types.Value{}
	}
	return resp.Data
}
