package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ChainDir returns the on-disk directory for a network under datadir:
//
//	datadir/chains/<network>/
func ChainDir(datadir string, network string) string {
	return filepath.Join(datadir, "chains", network)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", path)
	}
	return nil
}
