// Package preflight checks that the platform toolchains simyard depends on
// are present and usable, and discovers installable artifacts nearby.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/icarus-itcs/simyard/internal/config"
)

// CheckResult represents the result of a single check
type CheckResult struct {
	Name    string
	Status  Status
	Message string
	Path    string
}

// Status represents the status of a check
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusError
)

// Discovery represents a discovered artifact or SDK location
type Discovery struct {
	Type    string // "apk", "app", "ipa", "avd-home", "sdk"
	Name    string
	Path    string
	Details string
}

// Results contains all preflight check results
type Results struct {
	Checks      []CheckResult
	Discoveries []Discovery
	HasErrors   bool
	HasWarnings bool
}

// RequiredTool defines a tool to check for
type RequiredTool struct {
	Name     string
	Command  string
	Args     []string // extra args to verify the tool actually works
	Required bool
	Platform string // "all", "darwin", "linux", "windows"
}

func requiredTools(cfg *config.Config) []RequiredTool {
	tools := []RequiredTool{
		{Name: "Android ADB", Command: cfg.Android.Adb, Required: cfg.Android.Enabled, Platform: "all"},
		{Name: "Android Emulator", Command: cfg.Android.Emulator, Required: cfg.Android.Enabled, Platform: "all"},
	}
	if runtime.GOOS == "darwin" {
		tools = append(tools,
			RequiredTool{Name: "Xcode CLI", Command: cfg.IOS.Xcrun, Required: cfg.IOS.Enabled, Platform: "darwin"},
			RequiredTool{Name: "iOS Simulator", Command: cfg.IOS.Xcrun, Args: []string{"simctl", "help"}, Required: cfg.IOS.Enabled, Platform: "darwin"},
		)
	} else if cfg.IOS.Enabled {
		tools = append(tools, RequiredTool{Name: "iOS Simulator", Command: cfg.IOS.Xcrun, Required: false, Platform: "all"})
	}
	return tools
}

// Run executes all preflight checks for the configured toolchains.
func Run(cfg *config.Config) *Results {
	return RunAt(cfg, "")
}

// RunAt executes all preflight checks, discovering artifacts under baseDir.
func RunAt(cfg *config.Config, baseDir string) *Results {
	results := &Results{
		Checks:      make([]CheckResult, 0),
		Discoveries: make([]Discovery, 0),
	}

	for _, tool := range requiredTools(cfg) {
		if tool.Platform != "all" && tool.Platform != runtime.GOOS {
			continue
		}

		result := checkTool(tool)
		results.Checks = append(results.Checks, result)

		switch result.Status {
		case StatusError:
			results.HasErrors = true
		case StatusWarning:
			results.HasWarnings = true
		}
	}

	results.Discoveries = append(results.Discoveries, discoverSDK(cfg)...)
	results.Discoveries = append(results.Discoveries, discoverArtifacts(baseDir)...)

	return results
}

func checkTool(tool RequiredTool) CheckResult {
	result := CheckResult{
		Name: tool.Name,
	}

	path, err := exec.LookPath(tool.Command)
	if err != nil {
		if tool.Required {
			result.Status = StatusError
			result.Message = "Not found - required"
		} else {
			result.Status = StatusWarning
			result.Message = "Not found - optional"
		}
		return result
	}

	result.Path = path

	// Some tools resolve but cannot actually run their subcommand (xcrun
	// without a simulator runtime installed, for instance).
	if len(tool.Args) > 0 {
		cmd := exec.Command(path, tool.Args...)
		if err := cmd.Run(); err != nil {
			result.Status = StatusWarning
			result.Message = fmt.Sprintf("Found but may not work: %v", err)
			return result
		}
	}

	version := getToolVersion(tool.Command)
	if version != "" {
		result.Message = version
	} else {
		result.Message = "OK"
	}
	result.Status = StatusOK

	return result
}

func getToolVersion(cmd string) string {
	var versionArgs []string

	switch filepath.Base(cmd) {
	case "adb":
		versionArgs = []string{"version"}
	case "emulator":
		versionArgs = []string{"-version"}
	case "xcrun":
		// xcrun --version doesn't give useful output, skip
		return ""
	default:
		versionArgs = []string{"--version"}
	}

	out, err := exec.Command(cmd, versionArgs...).Output()
	if err != nil {
		return ""
	}

	version := strings.TrimSpace(string(out))
	// First line only
	if idx := strings.Index(version, "\n"); idx != -1 {
		version = version[:idx]
	}
	version = strings.TrimPrefix(version, "v")
	version = strings.TrimPrefix(version, "Android Debug Bridge version ")

	if len(version) > 40 {
		version = version[:40] + "..."
	}

	return version
}

// Summary returns a short summary of the results
func (r *Results) Summary() string {
	ok := 0
	warn := 0
	fail := 0

	for _, c := range r.Checks {
		switch c.Status {
		case StatusOK:
			ok++
		case StatusWarning:
			warn++
		case StatusError:
			fail++
		}
	}

	if fail > 0 {
		return fmt.Sprintf("%d errors, %d warnings", fail, warn)
	}
	if warn > 0 {
		return fmt.Sprintf("%d warnings", warn)
	}
	return fmt.Sprintf("%d checks passed", ok)
}

// discoverSDK reports where the Android SDK and AVD definitions live.
func discoverSDK(cfg *config.Config) []Discovery {
	var discoveries []Discovery

	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			if _, err := os.Stat(root); err == nil {
				discoveries = append(discoveries, Discovery{
					Type:    "sdk",
					Name:    "Android SDK",
					Path:    root,
					Details: "$" + env,
				})
				break
			}
		}
	}

	avdHome := cfg.Android.AvdHome
	if avdHome == "" {
		if env := os.Getenv("ANDROID_AVD_HOME"); env != "" {
			avdHome = env
		} else if home, err := os.UserHomeDir(); err == nil {
			avdHome = filepath.Join(home, ".android", "avd")
		}
	}
	if avdHome != "" {
		if entries, err := os.ReadDir(avdHome); err == nil {
			avds := 0
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), ".ini") {
					avds++
				}
			}
			discoveries = append(discoveries, Discovery{
				Type:    "avd-home",
				Name:    "AVD home",
				Path:    avdHome,
				Details: fmt.Sprintf("%d AVDs", avds),
			})
		}
	}

	return discoveries
}

// discoverArtifacts finds installable artifacts (.apk, .app, .ipa) near
// baseDir, a few directory levels deep.
func discoverArtifacts(baseDir string) []Discovery {
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return nil
		}
	}
	return walkForArtifacts(baseDir, 0, 4)
}

func walkForArtifacts(dir string, depth, maxDepth int) []Discovery {
	discoveries := make([]Discovery, 0)

	if depth > maxDepth {
		return discoveries
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return discoveries
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		switch {
		case entry.IsDir() && strings.HasSuffix(name, ".app"):
			// A .app bundle is a directory; don't descend into it.
			discoveries = append(discoveries, Discovery{
				Type: "app", Name: name, Path: path, Details: "iOS app bundle",
			})
			continue
		case !entry.IsDir() && strings.HasSuffix(name, ".apk"):
			discoveries = append(discoveries, Discovery{
				Type: "apk", Name: name, Path: path, Details: "Android package",
			})
			continue
		case !entry.IsDir() && strings.HasSuffix(name, ".ipa"):
			discoveries = append(discoveries, Discovery{
				Type: "ipa", Name: name, Path: path, Details: "iOS app archive",
			})
			continue
		}

		if !entry.IsDir() {
			continue
		}
		// Skip common non-artifact directories
		if name == "node_modules" || name == ".git" || name == "Pods" ||
			strings.HasPrefix(name, ".") {
			continue
		}
		discoveries = append(discoveries, walkForArtifacts(path, depth+1, maxDepth)...)
	}

	return discoveries
}
