package embedding

import (
	"path/filepath"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

// LoadWord2VecFile loads a model from a path on the host filesystem.
func LoadWord2VecFile(name string, osPath string) (*KeyedVectors, error) {
	abs, err := filepath.Abs(osPath)
	if err != nil {
		return nil, err
	}

	fsys := osfs.NewFS()
	fsPath, err := fsys.FromOSPath(abs)
	if err != nil {
		return nil, err
	}

	var root hackpadfs.FS = fsys
	return LoadWord2Vec(root, name, fsPath)
}
