package replica

import (
	"io"
	"os"

	"github.com/pc-replicate/pc/pkg/logging"
	"github.com/pc-replicate/pc/pkg/rerr"
)

// ProgressFunc is invoked after every block written during a content copy,
// with the cumulative byte count, so a caller at VerbosityProgress can print
// a running total the way the original tool's "%lld bytes copied\r" line
// does.
type ProgressFunc func(totalBytes int64)

// Copy stream-copies the regular file at srcPath to dstPath, creating the
// destination with the given mode and O_TRUNC. Reads proceed in
// cfg.BufferSize chunks. When cfg.ZeroFill is active, any block read as
// entirely NUL bytes is elided from the destination with a seek instead of
// a write, punching a sparse hole; if the file's final block was itself
// elided, the destination's last byte is written explicitly so the
// destination reaches the correct length even on filesystems that do not
// lazily allocate a file's last block.
//
// A missing destination parent directory surfaces as KindNotFound; Copy
// never creates one (see DESIGN.md's open-question decisions).
func Copy(srcPath, dstPath string, mode uint32, cfg *Config, progress ProgressFunc) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return rerr.Wrap(kindForOpenErr(err), "open", srcPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(mode&0007777))
	if err != nil {
		return rerr.Wrap(kindForOpenErr(err), "open", dstPath, err)
	}
	defer dst.Close()

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	buf := make([]byte, bufferSize)

	var (
		total       int64
		holed       bool
		lastElided  bool
		lastBlockSz int
	)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			lastBlockSz = n
			if cfg.ZeroFill && isAllZero(buf[:n]) {
				holed = true
				lastElided = true
				if _, err := dst.Seek(int64(n), io.SeekCurrent); err != nil {
					return rerr.Wrap(rerr.KindIO, "lseek", dstPath, err)
				}
			} else {
				lastElided = false
				if _, err := dst.Write(buf[:n]); err != nil {
					return rerr.Wrap(rerr.KindIO, "write", dstPath, err)
				}
			}
			total += int64(n)
			if progress != nil {
				progress(total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return rerr.Wrap(rerr.KindIO, "read", srcPath, readErr)
		}
	}

	if lastElided && lastBlockSz > 0 {
		if _, err := dst.Seek(-1, io.SeekCurrent); err != nil {
			return rerr.Wrap(rerr.KindIO, "lseek", dstPath, err)
		}
		if _, err := dst.Write([]byte{0}); err != nil {
			return rerr.Wrap(rerr.KindIO, "write", dstPath, err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Tracef("file_copy: %s -> %s (%d bytes, holed=%v)", srcPath, dstPath, total, holed)
	}

	return nil
}

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func kindForOpenErr(err error) rerr.Kind {
	switch {
	case os.IsNotExist(err):
		return rerr.KindNotFound
	case os.IsPermission(err):
		return rerr.KindPermission
	case os.IsExist(err):
		return rerr.KindExists
	default:
		return rerr.KindIO
	}
}

// progressPrinter returns a ProgressFunc that writes a running byte count to
// logger at VerbosityProgress, or nil if verbosity is below that level.
func progressPrinter(logger *logging.Logger, verbose Verbosity, dstPath string) ProgressFunc {
	if verbose < VerbosityProgress || logger == nil {
		return nil
	}
	return func(total int64) {
		logger.Infof("  %s: %d bytes copied", dstPath, total)
	}
}
