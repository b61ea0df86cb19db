package node

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Operator-supplied files (genesis, blocks, keystores) are small; refuse
// anything larger.
const maxOperatorFileBytes = 64 << 20

// ReadFileByPath reads an operator-supplied file by plain name inside its
// directory, so the name itself cannot traverse.
func ReadFileByPath(path string) ([]byte, error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	return readFileFromDir(dir, name)
}

func readFileFromDir(dir, name string) ([]byte, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}
	f, err := os.DirFS(dir).Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxOperatorFileBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxOperatorFileBytes {
		return nil, fmt.Errorf("%s: larger than %d bytes", name, maxOperatorFileBytes)
	}
	return b, nil
}

// writeFileAtomic writes data with mode via temp file, fsync and rename.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode) // #nosec G304 -- operator-provided path.
	if err != nil {
		return err
	}
	_, werr := f.Write(data)
	serr := f.Sync()
	cerr := f.Close()
	for _, err := range []error{werr, serr, cerr} {
		if err != nil {
			_ = os.Remove(tmp)
			return err
		}
	}
	return os.Rename(tmp, path)
}
