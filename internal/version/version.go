package version

import (
	"fmt"
	"strconv"
	"time"
)

// Version is the application version. Can be overridden at build time via:
//
//	go build -ldflags "-X winsbygroup.com/licenseagent/internal/version.Version=1.2.3"
var Version = "1.0"

// RepoURL is the project repository URL. Can be overridden at build time via:
//
//	go build -ldflags "-X winsbygroup.com/licenseagent/internal/version.RepoURL=https://github.com/yourfork/licenseagent"
var RepoURL = "https://github.com/winsbygroup/licenseagent"

// UserAgent identifies the agent to the activation service.
func UserAgent() string {
	return "licenseagent/" + Version + " (+" + RepoURL + ")"
}

// Banner prints identifying information about the agent.
func Banner() string {
	y := strconv.Itoa(time.Now().Year())
	copyright := "Copyright 2025-" + y + " Winsby Group LLC. All rights reserved."

	return fmt.Sprintf("%s\nLicense Agent (v%s)\n%s\n", product(), Version, copyright)
}

func product() string {
	// figlet Standard font; back ticks are spliced in with ` + "`" + `.

	const s = `
 _      _                                     _                         _
| |    (_)  ___   ___  _ __   ___   ___      / \     __ _   ___  _ __  | |_
| |    | | / __| / _ \| '_ \ / __| / _ \    / _ \   / _` + "`" + ` | / _ \| '_ \ | __|
| |___ | || (__ |  __/| | | |\__ \|  __/   / ___ \ | (_| ||  __/| | | || |_
|_____||_| \___| \___||_| |_||___/ \___|  /_/   \_\ \__, | \___||_| |_| \__|
                                                    |___/
`
	return s
}
