package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const SchemaVersionV1 uint32 = 1

// Manifest mirrors the committed tip for operators. The meta namespace inside
// the kv store is authoritative; the manifest is rewritten after each commit.
type Manifest struct {
	SchemaVersion uint32 `json:"schema_version"`
	Network       string `json:"network"`
	Backend       string `json:"backend"`

	GenesisHashHex string `json:"genesis_hash"`
	TipHashHex     string `json:"tip_hash"`
	TipHeight      uint64 `json:"tip_height"`
}

func manifestPath(chainDir string) string {
	return filepath.Join(chainDir, "MANIFEST.json")
}

func readManifest(chainDir string) (*Manifest, error) {
	b, err := os.ReadFile(manifestPath(chainDir))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "manifest json")
	}
	return &m, nil
}

// writeManifestAtomic writes MANIFEST.json as a crash-safe commit point:
// write temp -> fsync temp -> rename -> fsync dir.
func writeManifestAtomic(chainDir string, m *Manifest) error {
	if m == nil {
		return errors.New("manifest: nil")
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "manifest json")
	}
	b = append(b, '\n')

	final := manifestPath(chainDir)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- tmp path is derived from operator-controlled datadir.
	if err != nil {
		return errors.Wrap(err, "manifest open tmp")
	}
	_, werr := f.Write(b)
	serr := f.Sync()
	cerr := f.Close()
	if werr != nil {
		return errors.Wrap(werr, "manifest write tmp")
	}
	if serr != nil {
		return errors.Wrap(serr, "manifest fsync tmp")
	}
	if cerr != nil {
		return errors.Wrap(cerr, "manifest close tmp")
	}
	if err := os.Rename(tmp, final); err != nil {
		return errors.Wrap(err, "manifest rename")
	}

	dir, err := os.Open(chainDir) // #nosec G304 -- chainDir is operator-controlled datadir.
	if err != nil {
		return errors.Wrap(err, "manifest open dir")
	}
	serr = dir.Sync()
	cerr = dir.Close()
	if serr != nil {
		return errors.Wrap(serr, "manifest fsync dir")
	}
	if cerr != nil {
		return errors.Wrap(cerr, "manifest close dir")
	}
	return nil
}
