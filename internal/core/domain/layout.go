package domain

import "path/filepath"

const (
	// DevshellDirName is the name of the internal metadata directory.
	DevshellDirName = ".devshell"

	// StoreDirName is the name of the descriptor store directory.
	StoreDirName = "store"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// RegistryDirName is the name of the remote registry cache directory.
	RegistryDirName = "registry"

	// NixHubDirName is the name of the NixHub cache directory.
	NixHubDirName = "nixhub"

	// EnvDirName is the name of the environment cache directory.
	EnvDirName = "environments"

	// ManifestFileName is the name of the project manifest.
	ManifestFileName = "devshell.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultDevshellPath returns the default root directory for devshell metadata.
func DefaultDevshellPath() string {
	return DevshellDirName
}

// DefaultStorePath returns the default path for the descriptor store.
// It joins .devshell and store.
func DefaultStorePath() string {
	return filepath.Join(DevshellDirName, StoreDirName)
}

// DefaultCachePath returns the default path of the cache directory.
func DefaultCachePath() string {
	return filepath.Join(DevshellDirName, CacheDirName)
}

// DefaultRegistryCachePath returns the default path for cached remote registry indexes.
// It joins .devshell, cache, and registry.
func DefaultRegistryCachePath() string {
	return filepath.Join(DevshellDirName, CacheDirName, RegistryDirName)
}

// DefaultNixHubCachePath returns the default path for the NixHub cache.
// It joins .devshell, cache, and nixhub.
func DefaultNixHubCachePath() string {
	return filepath.Join(DevshellDirName, CacheDirName, NixHubDirName)
}

// DefaultEnvCachePath returns the default path for the environment cache.
// It joins .devshell, cache, and environments.
func DefaultEnvCachePath() string {
	return filepath.Join(DevshellDirName, CacheDirName, EnvDirName)
}
