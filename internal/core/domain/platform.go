package domain

import (
	"runtime"
	"slices"

	"go.trai.ch/zerr"
)

// Platform is a target system string in Nix notation (e.g. "x86_64-linux").
type Platform string

// Supported platforms.
const (
	PlatformX8664Linux    Platform = "x86_64-linux"
	PlatformAarch64Linux  Platform = "aarch64-linux"
	PlatformX8664Darwin   Platform = "x86_64-darwin"
	PlatformAarch64Darwin Platform = "aarch64-darwin"
)

// SupportedPlatforms lists every platform the tool can target, in a stable order.
var SupportedPlatforms = []Platform{
	PlatformX8664Linux,
	PlatformAarch64Linux,
	PlatformX8664Darwin,
	PlatformAarch64Darwin,
}

// String returns the platform name.
func (p Platform) String() string {
	return string(p)
}

// Validate returns ErrUnsupportedPlatform for unknown platforms.
func (p Platform) Validate() error {
	if slices.Contains(SupportedPlatforms, p) {
		return nil
	}
	return zerr.With(ErrUnsupportedPlatform, "platform", string(p))
}

// CurrentPlatform maps GOOS/GOARCH of the running binary to a Platform.
func CurrentPlatform() Platform {
	return platformFor(runtime.GOOS, runtime.GOARCH)
}

func platformFor(goos, goarch string) Platform {
	switch {
	case goos == "darwin" && goarch == "amd64":
		return PlatformX8664Darwin
	case goos == "darwin" && goarch == "arm64":
		return PlatformAarch64Darwin
	case goos == "linux" && goarch == "arm64":
		return PlatformAarch64Linux
	default:
		// Fallback to x86_64-linux for unknown systems
		return PlatformX8664Linux
	}
}
