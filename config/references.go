// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

var (
	configDir  string // Directory for configuration files
	reportsDir string // Default output directory for generated reports
	runDir     string // Directory for runtime state (pidfile, session logs)
)

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}

	configDir = defaultConfigDir(runtime.GOOS, os.Geteuid(), os.Getenv, homeDir)
	reportsDir = filepath.Join(configDir, "reports")
	runDir = filepath.Join(configDir, "run")

	// Ensure the directories exist
	if err := EnsureDirectories(); err != nil {
		panic(fmt.Sprintf("failed to ensure configuration directories: %v", err))
	}
}

// defaultConfigDir picks the configuration directory per platform. Windows
// has no meaningful euid (os.Geteuid returns -1 there), so the machine-wide
// location is ProgramData; on unix it is /etc for root and the user config
// directory otherwise.
func defaultConfigDir(goos string, euid int, getenv func(string) string, homeDir string) string {
	if goos == "windows" {
		if programData := getenv("ProgramData"); programData != "" {
			return filepath.Join(programData, "bexec")
		}
		return filepath.Join(homeDir, ".bexec")
	}
	if euid == 0 {
		return "/etc/bexec"
	}
	return filepath.Join(homeDir, ".bexec")
}

// defaultLogPath returns the platform log file location used when
// logs.output is "file".
func defaultLogPath(goos, configDir string) string {
	if goos == "windows" {
		return filepath.Join(configDir, "logs", "bexec.log")
	}
	return "/var/log/bexec/bexec.log"
}

// GetConfigDir returns the appropriate configuration directory:
// the machine-wide location when the process can use one, the user
// config directory otherwise.
func GetConfigDir() string {
	return configDir
}

// GetReportsDir returns the default output directory for generated reports
func GetReportsDir() string {
	return reportsDir
}

// GetRunDir returns the directory for runtime state
func GetRunDir() string {
	return runDir
}

// EnsureDirectories creates necessary directories if they do not exist
func EnsureDirectories() error {
	dirs := []string{
		configDir,
		reportsDir,
		runDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
