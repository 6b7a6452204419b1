package digest

import (
	"crypto/md5"
	"io"
	"os"
)

// Compute derives the Signature of the filesystem entry at abs, using info
// (the result of an lstat — symlinks are not followed) to dispatch on type.
// buffer is a caller-owned scratch buffer of at least BlockSize bytes, reused
// across calls; Compute never retains it past return.
//
// Any I/O error, or an entry type this engine does not support (device,
// socket, fifo), yields the zero Signature (Absent) and ok=false. Compute
// never returns a partial error: callers that see ok=false treat the path as
// absent for this pass and retry on the next event.
func Compute(abs string, buffer []byte, info os.FileInfo) (Signature, bool) {
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(abs)
		if err != nil {
			return Signature{}, false
		}
		return Symlink(target), true

	case info.IsDir():
		return Dir(PermSet(info.Mode().Perm())), true

	case info.Mode().IsRegular():
		return computeFile(abs, buffer, PermSet(info.Mode().Perm()))

	default:
		// Device, socket, fifo, or anything else unsupported: treated as absent.
		return Signature{}, false
	}
}

func computeFile(abs string, buffer []byte, perms PermSet) (Signature, bool) {
	f, err := os.Open(abs)
	if err != nil {
		return Signature{}, false
	}
	defer f.Close()

	var (
		hashes []Bytes
		total  uint64
	)
	for {
		n, err := io.ReadFull(f, buffer)
		if n > 0 {
			hashes = append(hashes, Bytes(md5.Sum(buffer[:n])))
			total += uint64(n)
		}
		switch err {
		case nil:
			// Read exactly len(buffer) bytes; more may follow.
			continue
		case io.EOF, io.ErrUnexpectedEOF:
			// EOF: nothing left. ErrUnexpectedEOF: a final short block, already hashed above.
		default:
			return Signature{}, false
		}
		break
	}

	if hashes == nil {
		hashes = []Bytes{}
	}
	return File(perms, hashes, total), true
}
