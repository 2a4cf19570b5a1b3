//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
)

// *os.LinkError 实现了 Unwrap，errors.Is 能穿透到 syscall.Errno。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// syncDir 让 rename 本身落盘；失败不影响写入结果。
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
