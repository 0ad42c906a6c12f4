package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/onnwee/chatrec/format"
	"github.com/onnwee/chatrec/message"
)

// defaultOutputName builds the generated file name used when --output is
// not given: messages_<platform>_<format>_<YYYYMMDD_HHMMSS>.<ext> in the
// working directory.
func defaultOutputName(platformName string, w format.Writer) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("messages_%s_%s_%s.%s", platformName, w.Format(), stamp, w.Ext())
}

// writeAtomic renders into a temp file next to the destination and
// renames it into place, so a failed render never leaves a partial or
// truncated output behind.
func writeAtomic(path string, w format.Writer, msgs []message.Message) (err error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmp.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
				slog.Warn("failed to remove temp output", slog.String("path", tmp.Name()), slog.Any("err", rmErr))
			}
		}
	}()

	if err = w.Render(tmp, msgs); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}
