package activation

import (
	"winsbygroup.com/licenseagent/internal/license"
	"winsbygroup.com/licenseagent/internal/licensekey"
)

// Request is a local activation request.
type Request struct {
	Key          string `json:"key"`
	MachineCode  string `json:"machineCode"`
	FriendlyName string `json:"friendlyName"`
}

// Result is a verified, stored activation.
type Result struct {
	Status  license.Status         `json:"status"`
	License *licensekey.LicenseKey `json:"license"`
}
