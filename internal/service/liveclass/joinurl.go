// internal/service/liveclass/joinurl.go
package liveclass

import (
	"fmt"
	"net/url"

	"lms-admin-service/internal/domain/liveclass"
)

const meritHubRoomURL = "https://live.merithub.com/info/room/%s/%s"

// JoinURL returns the link an instructor opens to start class. Zoom classes
// carry a direct link; MeritHub classes use the instructor link when present
// and otherwise the room URL built from the client id.
func JoinURL(c liveclass.LiveClass, meritHubClientID string) string {
	if c.Platform == liveclass.PlatformZoom {
		return c.JoinURL
	}
	if c.InstructorLink != "" {
		return c.InstructorLink
	}
	if meritHubClientID == "" || c.ID == "" {
		return ""
	}
	return fmt.Sprintf(meritHubRoomURL, url.PathEscape(meritHubClientID), url.PathEscape(c.ID))
}
