//go:build linux || darwin

package engine

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// detectSegments maps the data and hole extents of f using
// SEEK_DATA/SEEK_HOLE. Filesystems without extent support report the
// whole file as one data segment.
func detectSegments(f *os.File, size int64) ([]segment, error) {
	if size == 0 {
		return nil, nil
	}

	fd := int(f.Fd()) //nolint:gosec // G115: file descriptors fit in int
	var segs []segment
	off := int64(0)

	for off < size {
		dataStart, err := unix.Seek(fd, off, unix.SEEK_DATA)
		if errors.Is(err, unix.ENXIO) {
			// No data past off; the file ends in a hole.
			segs = append(segs, segment{offset: off, length: size - off})
			break
		}
		if seekUnsupported(err) {
			return denseLayout(size), nil
		}
		if err != nil {
			return nil, err
		}

		if dataStart > off {
			segs = append(segs, segment{offset: off, length: dataStart - off})
		}

		holeStart, err := unix.Seek(fd, dataStart, unix.SEEK_HOLE)
		switch {
		case errors.Is(err, unix.ENXIO):
			holeStart = size
		case seekUnsupported(err):
			return denseLayout(size), nil
		case err != nil:
			return nil, err
		}
		holeStart = min(holeStart, size)

		segs = append(segs, segment{offset: dataStart, length: holeStart - dataStart, data: true})
		off = holeStart
	}

	if len(segs) == 0 {
		return denseLayout(size), nil
	}
	return segs, nil
}

func seekUnsupported(err error) bool {
	return errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTSUP)
}
