package mdm

import (
	"encoding/base64"
	"fmt"
	"strings"

	"nanohub/internal/types"
)

// defaultDeviceInfoQueries are the DeviceInformation query keys sent
// when the caller does not narrow them
var defaultDeviceInfoQueries = []string{
	"UDID", "DeviceName", "OSVersion", "BuildVersion", "ModelName",
	"Model", "ProductName", "SerialNumber", "DeviceCapacity",
	"AvailableDeviceCapacity", "BatteryLevel", "CellularTechnology",
	"IMEI", "MEID", "ModemFirmwareVersion", "IsSupervised",
	"IsDeviceLocatorServiceEnabled", "IsActivationLockEnabled",
	"IsDoNotDisturbInEffect", "IsCloudBackupEnabled", "OSUpdateSettings",
	"LocalHostName", "HostName", "SystemIntegrityProtectionEnabled",
	"IsMDMLostModeEnabled", "WiFiMAC", "BluetoothMAC", "EthernetMAC",
}

const plistHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">`

// BuildDeviceInformationPlist builds a DeviceInformation command plist.
// A nil queries slice selects the default query set.
func BuildDeviceInformationPlist(commandUUID string, queries []string) string {
	if len(queries) == 0 {
		queries = defaultDeviceInfoQueries
	}

	var sb strings.Builder
	for _, q := range queries {
		fmt.Fprintf(&sb, "            <string>%s</string>\n", q)
	}

	return fmt.Sprintf(`%s
<dict>
    <key>Command</key>
    <dict>
        <key>RequestType</key>
        <string>DeviceInformation</string>
        <key>Queries</key>
        <array>
%s        </array>
    </dict>
    <key>CommandUUID</key>
    <string>%s</string>
</dict>
</plist>`, plistHeader, sb.String(), commandUUID)
}

// BuildSimpleCommandPlist builds a parameterless command plist
func BuildSimpleCommandPlist(commandUUID string, requestType types.RequestType) string {
	return fmt.Sprintf(`%s
<dict>
    <key>Command</key>
    <dict>
        <key>RequestType</key>
        <string>%s</string>
    </dict>
    <key>CommandUUID</key>
    <string>%s</string>
</dict>
</plist>`, plistHeader, requestType, commandUUID)
}

// BuildInstallProfilePlist builds an InstallProfile command plist with
// the profile payload base64-encoded
func BuildInstallProfilePlist(commandUUID string, profileData []byte) string {
	encoded := base64.StdEncoding.EncodeToString(profileData)

	return fmt.Sprintf(`%s
<dict>
    <key>Command</key>
    <dict>
        <key>RequestType</key>
        <string>InstallProfile</string>
        <key>Payload</key>
        <data>%s</data>
    </dict>
    <key>CommandUUID</key>
    <string>%s</string>
</dict>
</plist>`, plistHeader, encoded, commandUUID)
}
