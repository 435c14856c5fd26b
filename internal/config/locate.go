package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the directory below the user configuration directory that holds
// named configuration files, e.g. ~/.config/ldap3-orm/default.
const DirName = "ldap3-orm"

// userConfigDir is replaced in tests.
var userConfigDir = os.UserConfigDir

// Locate resolves a configuration name or path to an existing file.
//
// An argument that names an existing file, or that contains a path
// separator, is used as a path. Anything else is a name looked up in
// $XDG_CONFIG_HOME/ldap3-orm/.
func Locate(nameOrPath string) (string, error) {
	nameOrPath = strings.TrimSpace(nameOrPath)
	if nameOrPath == "" {
		return "", newConfigError("", "locate", errors.New("config is required"))
	}

	if isRegularFile(nameOrPath) {
		return nameOrPath, nil
	}

	if strings.ContainsRune(nameOrPath, os.PathSeparator) || strings.ContainsRune(nameOrPath, '/') {
		return "", newConfigError(nameOrPath, "locate", fmt.Errorf("no such file"))
	}

	dir, err := userConfigDir()
	if err != nil {
		return "", newConfigError(nameOrPath, "locate", fmt.Errorf("cannot determine user config directory: %w", err))
	}

	path := filepath.Join(dir, DirName, nameOrPath)
	if !isRegularFile(path) {
		return "", newConfigError(path, "locate", fmt.Errorf("no configuration named %q", nameOrPath))
	}

	return path, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
