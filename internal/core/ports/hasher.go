package ports

// Hasher fingerprints the local files an environment is composed from.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// HashFiles returns one digest over the paths and contents of files.
	// Missing files contribute their absence rather than failing.
	HashFiles(files []string) (string, error)
}
