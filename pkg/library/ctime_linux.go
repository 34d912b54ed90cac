package library

import (
	"os"
	"syscall"
	"time"
)

// Linux exposes no birth time through Stat_t; the inode change time is
// what the library has always sorted by.
func createdAt(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	}
	return info.ModTime()
}
