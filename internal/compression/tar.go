package compression

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"

	"github.com/jmylchreest/swatchpath/internal/security"
)

func walkTar(r io.Reader, limit int64, fn WalkFunc) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		name, err := security.ValidateArchivePath(header.Name)
		if err != nil {
			return err
		}
		if err := fn(name, security.NewLimitedReader(tr, limit)); err != nil {
			return err
		}
	}
}
