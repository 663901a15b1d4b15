package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	devenv "lotcopy-backend/dev/env"
)

const dumpExt = ".http"

// FilesystemOutput writes one <id>.http file per gateway exchange. Numeric
// ids are zero padded so a directory listing follows request order.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates `dir` (which may start with <dev_state>) and
// removes the dumps of a previous run from it. Other files are left alone,
// dump_dir may point at a shared directory.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	previous, err := filepath.Glob(filepath.Join(dir, "*"+dumpExt))
	if err != nil {
		return FilesystemOutput{}, err
	}
	for _, path := range previous {
		err = os.Remove(path)
		if err != nil {
			return FilesystemOutput{}, fmt.Errorf("clear previous dumps: %w", err)
		}
	}
	return FilesystemOutput{directory: dir}, nil
}

func dumpName(id string) string {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return filepath.Base(id) + dumpExt
	}
	return fmt.Sprintf("%06d%s", n, dumpExt)
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, dumpName(id)), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write gateway dump", "id", id, "err", err)
	}
}
