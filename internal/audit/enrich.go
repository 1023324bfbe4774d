package audit

import (
	"context"

	"github.com/mssola/useragent"

	id "stoop/pkg/domain"
	"stoop/pkg/requestcontext"
)

// Enrich fills request metadata the caller did not set: ID, time, request ID,
// client IP, and the parsed device.
func Enrich(ctx context.Context, e Event) Event {
	if uuidZero(e.ID) {
		e.ID = id.NewEventID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if e.ClientIP == "" {
		e.ClientIP = requestcontext.ClientIP(ctx)
	}
	if e.UserAgent == "" {
		e.UserAgent = requestcontext.UserAgent(ctx)
	}
	if e.Device == nil && e.UserAgent != "" {
		e.Device = ParseDevice(e.UserAgent)
	}
	return e
}

// ParseDevice extracts browser, OS and device class from a User-Agent header.
func ParseDevice(raw string) *Device {
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	if version != "" {
		browser += " " + version
	}
	return &Device{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
}

func uuidZero(e id.EventID) bool {
	return e == id.EventID{}
}
