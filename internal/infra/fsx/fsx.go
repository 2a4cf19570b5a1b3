// Package fsx 提供快照与报告文件的原子写入：同目录临时文件 + rename。
//
// 读者要么看到旧文件，要么看到完整的新文件，不会读到半个 XML/JSON。
package fsx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// 测试通过替换该函数模拟 EXDEV 等 rename 失败。
var rename = os.Rename

// PathTypeConflictError 表示目标路径已存在但不是普通文件（例如快照文件名被目录占用）。
type PathTypeConflictError struct {
	Path string
	Mode os.FileMode
}

func (e *PathTypeConflictError) Error() string {
	got := "dir"
	if !e.Mode.IsDir() {
		got = e.Mode.Type().String()
	}
	return fmt.Sprintf("目标路径类型冲突：%q（期望普通文件，实际 %s）", e.Path, got)
}

// CrossDeviceError 表示临时文件与目标不在同一文件系统（EXDEV），rename 无法原子完成。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘 rename 失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// WriteFile 原子写入 dir/name，目录不存在时创建；已存在的普通文件被覆盖。
func WriteFile(dir, name string, data []byte) error {
	dir = filepath.Clean(dir)
	dst := filepath.Join(dir, name)
	if fi, err := os.Lstat(dst); err == nil && !fi.Mode().IsRegular() {
		return &PathTypeConflictError{Path: dst, Mode: fi.Mode()}
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// rename 成功后 Remove 只会得到 ENOENT。
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := rename(tmpName, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: tmpName, Dst: dst, Err: err}
		}
		return err
	}
	syncDir(dir)
	return nil
}

// WriteJSON 把 v 编码为两空格缩进的 JSON（末尾换行）后原子写入。
func WriteJSON(dir, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFile(dir, name, append(b, '\n'))
}
