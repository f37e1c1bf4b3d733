package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrOverlayEvaluation is returned when an overlay cannot be evaluated against its input registry.
	ErrOverlayEvaluation = zerr.New("overlay evaluation failed")

	// ErrUnresolvedReference is returned when requested packages are absent from the final registry.
	ErrUnresolvedReference = zerr.New("unresolved package reference")

	// ErrDuplicateRegistryKey is returned when two definitions claim the same package id.
	ErrDuplicateRegistryKey = zerr.New("duplicate registry key")

	// ErrConstraintViolation is returned when a resolved package does not satisfy a version constraint.
	ErrConstraintViolation = zerr.New("version constraint violated")

	// ErrOverlayTargetMissing is returned when an overlay operation targets a package that does not exist.
	ErrOverlayTargetMissing = zerr.New("overlay target package not found")

	// ErrInvalidOverlayOp is returned when an overlay operation is malformed.
	ErrInvalidOverlayOp = zerr.New("invalid overlay operation")

	// ErrEmptyPackageID is returned when a package definition has no identifier.
	ErrEmptyPackageID = zerr.New("package id must not be empty")

	// ErrUnsupportedPlatform is returned when a platform is not one of the supported systems.
	ErrUnsupportedPlatform = zerr.New("unsupported platform")

	// ErrConfigNotFound is returned when no manifest can be found.
	ErrConfigNotFound = zerr.New("could not find devshell.yaml")

	// ErrConfigReadFailed is returned when the manifest cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the manifest cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidManifest is returned when the manifest is well-formed YAML but semantically invalid.
	ErrInvalidManifest = zerr.New("invalid manifest")

	// ErrUnsupportedManifestVersion is returned when the manifest declares an unknown schema version.
	ErrUnsupportedManifestVersion = zerr.New("unsupported manifest version")

	// ErrRegistrySourceUnknown is returned when no registry source can handle a reference.
	ErrRegistrySourceUnknown = zerr.New("no registry source for reference")

	// ErrRegistryReadFailed is returned when a registry index cannot be read.
	ErrRegistryReadFailed = zerr.New("failed to read registry index")

	// ErrRegistryParseFailed is returned when a registry index cannot be parsed.
	ErrRegistryParseFailed = zerr.New("failed to parse registry index")

	// ErrRegistryFetchFailed is returned when a remote registry index cannot be fetched.
	ErrRegistryFetchFailed = zerr.New("failed to fetch remote registry index")

	// ErrStoreCreateFailed is returned when the descriptor store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create descriptor store directory")

	// ErrStoreReadFailed is returned when a stored descriptor cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read descriptor")

	// ErrStoreWriteFailed is returned when a descriptor cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write descriptor")

	// ErrStoreEncodeFailed is returned when a descriptor cannot be encoded.
	ErrStoreEncodeFailed = zerr.New("failed to encode descriptor")

	// ErrStoreDecodeFailed is returned when a descriptor cannot be decoded.
	ErrStoreDecodeFailed = zerr.New("failed to decode descriptor")

	// ErrDescriptorNotCached is returned in offline mode when no descriptor was stored for the manifest.
	ErrDescriptorNotCached = zerr.New("no cached environment for this manifest, run without --offline first")

	// ErrNixCacheCreateFailed is returned when the Nix cache directory cannot be created.
	ErrNixCacheCreateFailed = zerr.New("failed to create Nix cache directory")

	// ErrNixCacheReadFailed is returned when reading from the Nix cache fails.
	ErrNixCacheReadFailed = zerr.New("failed to read from Nix cache")

	// ErrNixCacheWriteFailed is returned when writing to the Nix cache fails.
	ErrNixCacheWriteFailed = zerr.New("failed to write to Nix cache")

	// ErrNixCacheUnmarshalFailed is returned when unmarshaling Nix cache data fails.
	ErrNixCacheUnmarshalFailed = zerr.New("failed to unmarshal Nix cache data")

	// ErrNixAPIRequestFailed is returned when a NixHub API request fails.
	ErrNixAPIRequestFailed = zerr.New("failed to make NixHub API request")

	// ErrNixAPIParseFailed is returned when parsing a NixHub API response fails.
	ErrNixAPIParseFailed = zerr.New("failed to parse NixHub API response")

	// ErrNixPackageNotFound is returned when a package version is not found in NixHub.
	ErrNixPackageNotFound = zerr.New("package version not found in NixHub")

	// ErrNixEvaluationFailed is returned when nix print-dev-env fails.
	ErrNixEvaluationFailed = zerr.New("failed to evaluate nix shell environment")

	// ErrShellStartFailed is returned when the activation shell cannot be started.
	ErrShellStartFailed = zerr.New("failed to start activation shell")

	// ErrForeignPlatform is returned when activating an environment built for another platform.
	ErrForeignPlatform = zerr.New("cannot activate an environment for another platform")

	// ErrInvalidOutputFormat is returned when an unknown output format is requested.
	ErrInvalidOutputFormat = zerr.New("invalid output format")

	// ErrMultiplePlatforms is returned when a single-platform command is given several platforms.
	ErrMultiplePlatforms = zerr.New("this command takes a single --platform")

	// ErrInvalidLogFormat is returned when an unknown log format is requested.
	ErrInvalidLogFormat = zerr.New("invalid log format")
)

// OverlayEvaluationError reports the overlay, by position in the pipeline, that
// failed to produce a registry.
type OverlayEvaluationError struct {
	// Position is the zero-based index of the overlay in the pipeline.
	Position int
	// Overlay is the overlay's name.
	Overlay string
	// Op is the zero-based index of the failing operation inside the overlay, or -1.
	Op int
	// Cause is the underlying failure.
	Cause error
}

func (e *OverlayEvaluationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: overlay #%d", ErrOverlayEvaluation.Error(), e.Position)
	if e.Overlay != "" {
		fmt.Fprintf(&b, " (%s)", e.Overlay)
	}
	if e.Op >= 0 {
		fmt.Fprintf(&b, " op #%d", e.Op)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *OverlayEvaluationError) Unwrap() []error {
	return []error{ErrOverlayEvaluation, e.Cause}
}

// UnresolvedReferenceError lists every requested identifier that is missing
// from the final registry, in first-occurrence order.
type UnresolvedReferenceError struct {
	IDs []PackageID
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedReference.Error(), strings.Join(e.Identifiers(), ", "))
}

// Identifiers returns the missing identifiers as strings.
func (e *UnresolvedReferenceError) Identifiers() []string {
	return PackageIDStrings(e.IDs)
}

func (e *UnresolvedReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}

// DuplicateRegistryKeyError reports a package id defined twice while building a
// registry without an overlay superseding the first definition.
type DuplicateRegistryKeyError struct {
	ID PackageID
	// Source names where the second definition came from, if known.
	Source string
}

func (e *DuplicateRegistryKeyError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", ErrDuplicateRegistryKey.Error(), e.ID.String())
	}
	return fmt.Sprintf("%s: %s (from %s)", ErrDuplicateRegistryKey.Error(), e.ID.String(), e.Source)
}

func (e *DuplicateRegistryKeyError) Unwrap() error {
	return ErrDuplicateRegistryKey
}

// ConstraintViolation describes one package whose version is outside its constraint.
type ConstraintViolation struct {
	ID         PackageID
	Version    string
	Constraint string
	Reason     string
}

// ConstraintViolationError batches every constraint violation of one resolution.
type ConstraintViolationError struct {
	Violations []ConstraintViolation
}

func (e *ConstraintViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s %q does not satisfy %q", v.ID.String(), v.Version, v.Constraint)
		if v.Reason != "" {
			parts[i] += " (" + v.Reason + ")"
		}
	}
	return fmt.Sprintf("%s: %s", ErrConstraintViolation.Error(), strings.Join(parts, "; "))
}

func (e *ConstraintViolationError) Unwrap() error {
	return ErrConstraintViolation
}

// ShellExitError reports that the activated shell exited with a non-zero status.
// The CLI propagates Code as its own exit status.
type ShellExitError struct {
	Code int
}

func (e *ShellExitError) Error() string {
	return fmt.Sprintf("shell exited with status %d", e.Code)
}
