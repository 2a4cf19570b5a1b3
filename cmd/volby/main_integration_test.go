package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/volby/internal/domain"
)

func TestCLI_Parse_StdoutOnlyJSON(t *testing.T) {
	// 锁定对外契约：stdout 只有结果 JSON，日志走 stderr。
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/volby", "parse", "district",
		filepath.Join("internal", "results", "testdata", "okres.xml"), "--code", "3201", "--log-level", "debug")
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	var res domain.DistrictResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("stdout 不是合法的 JSON：%v\nstdout=%q", err, stdout.String())
	}
	if res.Code != "3201" || res.Name != "Domažlice" {
		t.Fatalf("district 结果不符合预期：%+v", res)
	}
	// HLASY="abc" 会产生 debug 日志，必须出现在 stderr 而不是 stdout。
	if stderr.Len() == 0 {
		t.Fatalf("期望 debug 日志写到 stderr")
	}
}
