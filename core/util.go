package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kat-co/vala"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// IsSet is a vala.Checker for interface parameters. Unlike vala.IsNotNil it accepts
// implementations of any kind, value receivers included.
func IsSet(obtained interface{}, paramName string) vala.Checker {
	return func() (bool, string) {
		return obtained != nil, "Parameter was nil: " + paramName
	}
}

// Getwd returns the module root: the closest parent directory holding a go.mod file.
// go test runs from the package directory, so relative asset paths cannot be trusted.
// Falls back to the working directory when no go.mod is found (e.g. deployed binaries).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
