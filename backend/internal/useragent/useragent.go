// Package useragent turns a User-Agent header into the small device tuple
// the relay uses to build a peer's cosmetic name.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is the parsed device description of a client.
type Info struct {
	OS      string
	Browser string
	Model   string
	Type    string
}

// osNames maps the library's OS names onto the shorter names browsers show.
var osNames = map[string]string{
	"Mac OS X":  "Mac OS",
	"iPhone OS": "iOS",
	"CPU OS":    "iOS",
}

// Parse extracts OS, browser, device model and device type from raw.
// An empty or unrecognised header yields a zero Info.
func Parse(raw string) Info {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Info{}
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return Info{Browser: name, Type: "bot"}
	}

	os := ua.OSInfo().Name
	if mapped, ok := osNames[os]; ok {
		os = mapped
	}

	browser, _ := ua.Browser()
	model := strings.TrimSpace(ua.Model())

	return Info{
		OS:      os,
		Browser: browser,
		Model:   model,
		Type:    deviceType(ua, model),
	}
}

func deviceType(ua *useragent.UserAgent, model string) string {
	switch {
	case strings.Contains(model, "iPad") || strings.Contains(ua.UA(), "Tablet"):
		return "tablet"
	case ua.Mobile():
		return "mobile"
	default:
		return ""
	}
}

// DeviceName builds the label shown to other peers: the OS name followed by
// the device model, or the browser when no model is known.
func (i Info) DeviceName() string {
	name := ""
	if i.OS != "" {
		name = strings.Replace(i.OS, "Mac OS", "Mac", 1) + " "
	}
	if i.Model != "" {
		name += i.Model
	} else {
		name += i.Browser
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	return name
}
