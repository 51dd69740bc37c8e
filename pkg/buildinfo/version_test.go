package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplateShortensCommit(t *testing.T) {
	orig := Commit
	defer func() { Commit = orig }()

	Commit = "0123456789abcdef"
	if got := Template(); !strings.Contains(got, "(0123456,") {
		t.Errorf("Template() = %q, want short commit", got)
	}
	Commit = "abc"
	if got := Template(); !strings.Contains(got, "(abc,") {
		t.Errorf("Template() = %q", got)
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.Commit != Commit || info.Date != Date {
		t.Errorf("Get() = %+v", info)
	}
}
