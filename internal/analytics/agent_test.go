package analytics

import "testing"

const (
	chromeDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	safariIPad    = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func TestIsBot(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{chromeDesktop, false},
		{safariIPhone, false},
		{"", true},
		{"Googlebot/2.1 (+http://www.google.com/bot.html)", true},
		{"facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", true},
		{"WhatsApp/2.23.20.0", true},
		{"curl/8.4.0", true},
		{"Go-http-client/1.1", true},
		{"Mozilla/5.0 (compatible; Discordbot/2.0; +https://discordapp.com)", true},
	}
	for _, tt := range tests {
		if got := IsBot(tt.ua); got != tt.want {
			t.Errorf("IsBot(%q) = %v, want %v", tt.ua, got, tt.want)
		}
	}
}

func TestParseAgent(t *testing.T) {
	tests := []struct {
		ua      string
		browser string
		device  string
	}{
		{chromeDesktop, "Chrome", DeviceDesktop},
		{safariIPhone, "Safari", DeviceMobile},
		{safariIPad, "Safari", DeviceTablet},
		{"curl/8.4.0", "", DeviceBot},
	}
	for _, tt := range tests {
		a := ParseAgent(tt.ua)
		if a.Device != tt.device {
			t.Errorf("ParseAgent(%q).Device = %q, want %q", tt.ua, a.Device, tt.device)
		}
		if tt.browser != "" && a.Browser != tt.browser {
			t.Errorf("ParseAgent(%q).Browser = %q, want %q", tt.ua, a.Browser, tt.browser)
		}
	}
}
