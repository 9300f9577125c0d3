// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "fmt"

// # Platforms

// Platform is the namespace a route, token and identity type belong to.
type Platform string

const (
	PlatformAdmin  Platform = "admin"
	PlatformClient Platform = "client"
	PlatformDevice Platform = "device"
)

// Platforms lists every platform in mount order.
var Platforms = []Platform{PlatformAdmin, PlatformClient, PlatformDevice}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAdmin, PlatformClient, PlatformDevice:
		return true
	default:
		return false
	}
}

// ParsePlatform converts a raw claim or path segment into a [Platform].
func ParsePlatform(raw string) (Platform, error) {
	platform := Platform(raw)
	if !platform.Valid() {
		return "", fmt.Errorf("sec: unknown platform %q", raw)
	}
	return platform, nil
}
