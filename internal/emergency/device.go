package emergency

import (
	"strings"

	"GuardianPath/internal/models"

	"github.com/mssola/user_agent"
)

func parseDevice(ua string) *models.ClientDevice {
	if strings.TrimSpace(ua) == "" {
		return nil
	}
	parsed := user_agent.New(ua)
	name, version := parsed.Browser()
	browser := strings.TrimSpace(name + " " + version)
	return &models.ClientDevice{
		Platform: parsed.Platform(),
		OS:       parsed.OS(),
		Browser:  browser,
		Mobile:   parsed.Mobile(),
	}
}
