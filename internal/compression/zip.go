package compression

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/jmylchreest/swatchpath/internal/security"
)

func walkZip(data []byte, limit int64, fn WalkFunc) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, f := range zr.File {
		if !f.Mode().IsRegular() {
			continue
		}

		name, err := security.ValidateArchivePath(f.Name)
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		err = fn(name, security.NewLimitedReader(rc, limit))
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
