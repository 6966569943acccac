package device

import (
	"fmt"
	"os"
	"sync"

	goerrors "github.com/go-errors/errors"

	"vmmcore/mem"
)

// FileDevice backs a captured memory image file (a raw physical-memory
// dump) with pread/pwrite-style scatter access. Grounded on the splice-
// and-read-by-mapping shape of Go's own debug/core reader (see
// other_examples' core.Process.ReadAt), narrowed to flat-file physical
// addressing since a raw dump has no ELF segment table to splice.
type FileDevice struct {
	mu       sync.Mutex
	f        *os.File
	size     int64
	writable bool
}

// OpenFileDevice opens path as a physical memory image. writable controls
// whether ScatterWrite is permitted.
func OpenFileDevice(path string, writable bool) (*FileDevice, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, goerrors.Wrap(err, 0)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, goerrors.Wrap(err, 0)
	}
	return &FileDevice{f: f, size: st.Size(), writable: writable}, nil
}

func (d *FileDevice) ScatterRead(reqs []*Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range reqs {
		off := int64(r.Addr)
		if off < 0 || off+mem.PGSIZE > d.size {
			r.Buf = mem.Pg_t{}
			r.Succeeded = false
			continue
		}
		n, err := d.f.ReadAt(r.Buf[:], off)
		if err != nil || n != mem.PGSIZE {
			r.Buf = mem.Pg_t{}
			r.Succeeded = false
			continue
		}
		r.Succeeded = true
	}
	return nil
}

func (d *FileDevice) ScatterWrite(reqs []*Request) error {
	if !d.writable {
		for _, r := range reqs {
			r.Succeeded = false
		}
		return goerrors.New("device: read-only")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range reqs {
		off := int64(r.Addr)
		if off < 0 || off+mem.PGSIZE > d.size {
			r.Succeeded = false
			continue
		}
		n, err := d.f.WriteAt(r.Buf[:], off)
		r.Succeeded = err == nil && n == mem.PGSIZE
	}
	return nil
}

func (d *FileDevice) GetOption(key Option) (uint64, bool) {
	if key == OptAddrMax {
		return uint64(d.size), true
	}
	return 0, false
}

func (d *FileDevice) SetOption(key Option, val uint64) bool { return false }

func (d *FileDevice) Command(cmd string, payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("device: unsupported command %q", cmd)
}

func (d *FileDevice) Writable() bool { return d.writable }
func (d *FileDevice) Volatile() bool { return false }

func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}
