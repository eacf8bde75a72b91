package parser

import (
	"strings"

	"github.com/cyra/alogparse/internal/format"
	"github.com/mssola/useragent"
)

// UserAgent is the structured form of a User-Agent header.
type UserAgent struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	OSVersion      string `json:"os_version"`
	Device         string `json:"device"`
	Mobile         bool   `json:"is_mobile"`
	Tablet         bool   `json:"is_tablet"`
	Bot            bool   `json:"is_bot"`
}

// UserAgentParser parses raw User-Agent strings.
type UserAgentParser interface {
	Parse(raw string) UserAgent
}

type mssolaParser struct{}

// NewUserAgentParser returns the default user-agent parser.
func NewUserAgentParser() UserAgentParser {
	return mssolaParser{}
}

func (mssolaParser) Parse(raw string) UserAgent {
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	osInfo := ua.OSInfo()
	tablet := isTablet(raw)

	return UserAgent{
		Browser:        browser,
		BrowserVersion: version,
		OS:             osInfo.Name,
		OSVersion:      osInfo.Version,
		Device:         ua.Platform(),
		Mobile:         ua.Mobile() && !tablet,
		Tablet:         tablet,
		Bot:            ua.Bot(),
	}
}

// isTablet covers iPads and Android tablets, which omit the "Mobile" token.
func isTablet(raw string) bool {
	switch {
	case strings.Contains(raw, "iPad"), strings.Contains(raw, "Tablet"):
		return true
	case strings.Contains(raw, "Android"):
		return !strings.Contains(raw, "Mobile")
	}
	return false
}

type userAgentProcessor struct {
	ua UserAgentParser
}

// Process leaves "-" and empty values as they are: the header was not sent.
func (p userAgentProcessor) Process(_ format.Field, raw string) (any, error) {
	if raw == "" || raw == "-" || p.ua == nil {
		return raw, nil
	}
	return p.ua.Parse(raw), nil
}
