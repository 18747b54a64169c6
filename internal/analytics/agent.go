package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device classes stored on visits.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// Agent is the parsed form of a User-Agent header.
type Agent struct {
	Browser string
	OS      string
	Device  string
	Bot     bool
}

// Lowercase substrings that mark crawlers, link unfurlers and HTTP libraries
// useragent does not flag on its own.
var botSignatures = []string{
	"bot", "spider", "crawl", "preview",
	"facebookexternalhit", "whatsapp", "telegram", "discord", "skypeuripreview",
	"embedly", "quora link preview", "pinterest", "vkshare", "redditbot",
	"google-site-verification", "chrome-lighthouse", "headlesschrome/", "phantomjs",
	"go-http-client/", "curl/", "wget/", "python-requests/", "python-urllib/",
	"okhttp/", "java/", "libwww-perl/", "axios/", "node-fetch",
	"zgrab/", "uptimerobot", "pingdom", "statuscake",
}

// IsBot reports whether the user agent is a crawler, preview fetcher or
// script. An empty user agent counts as a bot.
func IsBot(rawUA string) bool {
	if strings.TrimSpace(rawUA) == "" {
		return true
	}
	if useragent.New(rawUA).Bot() {
		return true
	}
	return matchesSignature(strings.ToLower(rawUA))
}

func matchesSignature(lower string) bool {
	for _, sig := range botSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// ParseAgent extracts browser, OS and device class from a User-Agent header.
func ParseAgent(rawUA string) Agent {
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	a := Agent{Browser: browser, OS: ua.OS()}

	lower := strings.ToLower(rawUA)
	switch {
	case ua.Bot() || matchesSignature(lower):
		a.Bot = true
		a.Device = DeviceBot
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		a.Device = DeviceTablet
	case ua.Mobile():
		a.Device = DeviceMobile
	default:
		a.Device = DeviceDesktop
	}
	return a
}
