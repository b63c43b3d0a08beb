package utils

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"
)

// UserAgentInfo is the coarse client description attached to audit events.
type UserAgentInfo struct {
	Device  string `json:"device"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Locale  string `json:"locale,omitempty"`
	Bot     bool   `json:"bot"`
}

// ParseUserAgent returns nil for empty user agents. Unrecognised devices
// are reported as "Unknown" instead of being discarded so scanners and
// scripts still get a record.
func ParseUserAgent(uaString string, acceptLanguage string) *UserAgentInfo {
	if strings.TrimSpace(uaString) == "" {
		return nil
	}
	ua := uasurfer.Parse(uaString)

	device := "Unknown"
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		device = "Computer"
	case uasurfer.DeviceTablet:
		device = "Tablet"
	case uasurfer.DevicePhone:
		device = "Phone"
	case uasurfer.DeviceConsole:
		device = "Console"
	case uasurfer.DeviceWearable:
		device = "Wearable"
	case uasurfer.DeviceTV:
		device = "TV"
	}

	os := fmt.Sprintf("%s %d.%d", ua.OS.Name.String(), ua.OS.Version.Major, ua.OS.Version.Minor)
	browser := fmt.Sprintf("%s %d.%d", ua.Browser.Name.String(), ua.Browser.Version.Major, ua.Browser.Version.Minor)

	locale := acceptLanguage
	if i := strings.IndexByte(acceptLanguage, ','); i >= 0 {
		locale = acceptLanguage[:i]
	}

	return &UserAgentInfo{
		Device:  device,
		OS:      os,
		Browser: browser,
		Locale:  strings.TrimSpace(locale),
		Bot:     ua.IsBot(),
	}
}
