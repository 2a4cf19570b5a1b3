package cache

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestStore_RawAndJSONRoundTrip(t *testing.T) {
	s := New(t.TempDir(), false)

	if err := s.WriteRaw("district", "210A", []byte("<VYSLEDKY_OKRES/>")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, ok, err := s.ReadRaw("district", "210A")
	if err != nil || !ok {
		t.Fatalf("期望命中快照，ok=%v err=%v", ok, err)
	}
	if string(b) != "<VYSLEDKY_OKRES/>" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	if err := s.WriteJSON("district", "210A", map[string]int{"votes": 3}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	j, ok, err := s.ReadJSON("district", "210A")
	if err != nil || !ok {
		t.Fatalf("期望命中 JSON 快照，ok=%v err=%v", ok, err)
	}
	if !strings.Contains(string(j), `"votes": 3`) || !strings.HasSuffix(string(j), "\n") {
		t.Fatalf("JSON 快照格式不符：%q", string(j))
	}

	path, err := s.RawPath("district", "210A")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.HasSuffix(path, "snapshots/district/210A.xml") && !strings.HasSuffix(path, `snapshots\district\210A.xml`) {
		t.Fatalf("快照路径不符：%q", path)
	}
}

func TestStore_MissIsNotError(t *testing.T) {
	s := New(t.TempDir(), true)
	b, ok, err := s.ReadJSON("national", "latest")
	if err != nil || ok || b != nil {
		t.Fatalf("未命中应返回 (nil,false,nil)，实际 (%v,%v,%v)", b, ok, err)
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true)
	if err := s.WriteRaw("national", "latest", []byte("<x/>")); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}
	if err := s.WriteJSON("national", "latest", struct{}{}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}

	path, _ := s.RawPath("national", "latest")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("期望文件不存在，但 Stat err=%v", err)
	}
}

func TestStore_RejectsTraversal(t *testing.T) {
	s := New(t.TempDir(), false)
	for _, key := range []string{"", "../etc", "a/b", "a.b"} {
		if _, err := s.RawPath("batch", key); err == nil {
			t.Fatalf("key=%q 期望报错", key)
		}
	}
	if _, err := s.RawPath("../x", "k"); err == nil {
		t.Fatalf("非法 kind 期望报错")
	}
}
