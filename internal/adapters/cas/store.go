// Package cas implements the content-addressed activation descriptor store.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/devshell/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DescriptorStore = (*Store)(nil)

var (
	encMode, _ = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()

	decMode, _ = cbor.DecOptions{
		MaxArrayElements: 100000,
		MaxMapPairs:      100000,
		MaxNestedLevels:  16,
		IndefLength:      cbor.IndefLengthForbidden,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
)

// Store implements ports.DescriptorStore using a file-per-descriptor strategy.
// Files are canonical CBOR, so the same descriptor always encodes to the same bytes.
type Store struct{}

// NewStore creates a new DescriptorStore.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the descriptor stored for manifestDigest and platform.
func (s *Store) Get(root, manifestDigest string, platform domain.Platform) (*domain.ActivationDescriptor, error) {
	filename := s.getFilename(root, manifestDigest, platform)
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var rec record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreDecodeFailed.Error()), "path", filename)
	}

	desc := rec.descriptor()
	return &desc, nil
}

// Put stores desc under manifestDigest.
func (s *Store) Put(root, manifestDigest string, desc domain.ActivationDescriptor) error {
	data, err := encMode.Marshal(newRecord(desc))
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreEncodeFailed.Error())
	}

	filename := s.getFilename(root, manifestDigest, desc.Platform)
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	tmp, err := os.CreateTemp(dir, "descriptor-*.tmp")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	return nil
}

func (s *Store) getFilename(root, manifestDigest string, platform domain.Platform) string {
	hash := sha256.Sum256([]byte(manifestDigest + "@" + platform.String()))
	hexHash := hex.EncodeToString(hash[:])
	storeDir := filepath.Join(root, domain.DefaultStorePath())
	return filepath.Join(storeDir, hexHash+".cbor")
}
