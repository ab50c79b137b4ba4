package fsutil

import (
	"bufio"
	"incov-backend/lib/errs"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic writes path by streaming write into a temporary file in the
// same directory and renaming it into place once write and the flush both
// succeed. Missing parent directories are created. On any failure the
// temporary file is removed, the previous contents of path are untouched,
// and the error is a SerializationError.
func WriteAtomic(path string, write func(w io.Writer) error) (err error) {
	fail := func(cause error) error {
		return &errs.SerializationError{Path: path, Err: cause}
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fail(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buffered := bufio.NewWriter(tmp)
	err = write(buffered)
	if err != nil {
		return fail(err)
	}
	err = buffered.Flush()
	if err != nil {
		return fail(err)
	}
	err = tmp.Close()
	if err != nil {
		return fail(err)
	}
	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		return fail(err)
	}
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fail(err)
	}
	return nil
}
