//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
	"testing"
)

func TestWriteFile_CrossDevice(t *testing.T) {
	old := rename
	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { rename = old }()

	dir := t.TempDir()
	err := WriteFile(dir, "latest.json", []byte("{}"))
	var cd *CrossDeviceError
	if !errors.As(err, &cd) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
	if !errors.Is(err, syscall.EXDEV) {
		t.Fatalf("期望能 Unwrap 到 EXDEV")
	}
	noTempLeft(t, dir, "latest.json")
}
