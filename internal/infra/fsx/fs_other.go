//go:build !unix

package fsx

func isEXDEV(error) bool { return false }

func syncDir(string) {}
