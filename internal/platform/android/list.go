package android

import (
	"context"
	"sort"
	"strings"

	"github.com/icarus-itcs/simyard/internal/device"
)

// adbEntry is one line of `adb devices -l` output.
type adbEntry struct {
	serial string
	status string
}

// List merges the AVD templates on disk with the emulators currently
// registered with adb. A running emulator wins over its template; templates
// without a live instance are reported shut down.
func (a *Adapter) List(ctx context.Context) ([]device.Device, error) {
	const op = "list devices"

	templates, err := a.listTemplates(ctx)
	if err != nil {
		return nil, err
	}

	out, err := a.run.Output(ctx, a.opts.Adb, "devices", "-l")
	if err != nil {
		return nil, a.mapError(op, device.Device{}, err)
	}

	running := map[string]device.Device{}
	for _, entry := range parseAdbDevices(out) {
		d := a.deviceFromEmulator(ctx, entry)
		running[strings.ToLower(d.Name)] = d
	}

	var devices []device.Device
	claimed := map[string]bool{}
	for _, name := range templates {
		key := strings.ToLower(name)
		if d, ok := running[key]; ok {
			devices = append(devices, d)
			claimed[key] = true
			continue
		}
		devices = append(devices, device.Device{
			ID:          device.DeriveID(name),
			Name:        name,
			Platform:    device.PlatformAndroid,
			State:       device.StateShutdown,
			IsAvailable: true,
		})
	}

	// Emulators with no matching template still exist and must be visible,
	// e.g. when the AVD was deleted while the emulator kept running.
	for key, d := range running {
		if !claimed[key] {
			devices = append(devices, d)
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].NativeID < devices[j].NativeID
	})
	return devices, nil
}

// listTemplates returns the AVD names the emulator launcher knows about.
func (a *Adapter) listTemplates(ctx context.Context) ([]string, error) {
	out, err := a.run.Output(ctx, a.opts.Emulator, "-list-avds")
	if err != nil {
		return nil, a.mapError("list devices", device.Device{}, err)
	}
	return parseAvdList(out), nil
}

// findRunning looks the AVD up among the emulators adb currently sees.
func (a *Adapter) findRunning(ctx context.Context, op, name string) (adbEntry, bool, error) {
	out, err := a.run.Output(ctx, a.opts.Adb, "devices", "-l")
	if err != nil {
		return adbEntry{}, false, a.mapError(op, device.Device{}, err)
	}
	for _, entry := range parseAdbDevices(out) {
		if strings.EqualFold(a.avdName(ctx, entry.serial), name) {
			return entry, true, nil
		}
	}
	return adbEntry{}, false, nil
}

// deviceFromEmulator builds a Device for a live emulator. The stable ID
// derives from the AVD name, never the serial; serials are reassigned on
// every launch.
func (a *Adapter) deviceFromEmulator(ctx context.Context, entry adbEntry) device.Device {
	name := a.avdName(ctx, entry.serial)
	if name == "" {
		// Without the AVD name the serial is all we have. The derived ID is
		// only as stable as the serial, which the log makes loud.
		a.log.WithField("serial", entry.serial).Warn("could not resolve AVD name; falling back to serial")
		name = entry.serial
	}

	d := device.Device{
		ID:          device.DeriveID(name),
		Name:        name,
		Platform:    device.PlatformAndroid,
		NativeID:    entry.serial,
		State:       stateFromAdb(entry.status),
		IsAvailable: true,
		Attributes:  map[string]string{"serial": entry.serial},
	}
	if d.State == device.StateBooted {
		a.enrich(ctx, &d)
	}
	return d
}

// avdName asks the emulator console for the AVD behind a serial. Returns ""
// when the console does not answer.
func (a *Adapter) avdName(ctx context.Context, serial string) string {
	out, err := a.run.Output(ctx, a.opts.Adb, "-s", serial, "emu", "avd", "name")
	if err != nil {
		return ""
	}
	// The console echoes the name on the first line and "OK" on the second.
	name, _, _ := strings.Cut(out, "\n")
	name = strings.TrimSpace(name)
	if name == "OK" {
		return ""
	}
	return name
}

// enrich fills best-effort metadata from system properties. Failures leave
// the fields empty; a device with no metadata is still a device.
func (a *Adapter) enrich(ctx context.Context, d *device.Device) {
	if release, err := a.getprop(ctx, d.NativeID, "ro.build.version.release"); err == nil && release != "" {
		d.OSVersion = "Android " + release
	}
	if sdk, err := a.getprop(ctx, d.NativeID, "ro.build.version.sdk"); err == nil && sdk != "" {
		d.Attributes["apiLevel"] = sdk
	}
	if model, err := a.getprop(ctx, d.NativeID, "ro.product.model"); err == nil && model != "" {
		d.Model = model
	}
}

func (a *Adapter) getprop(ctx context.Context, serial, prop string) (string, error) {
	return a.run.Output(ctx, a.opts.Adb, "-s", serial, "shell", "getprop", prop)
}

// parseAdbDevices extracts emulator entries from `adb devices -l` output.
// Physical devices, the header line and daemon chatter are skipped.
func parseAdbDevices(out string) []adbEntry {
	var entries []adbEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "emulator-") {
			continue
		}
		entries = append(entries, adbEntry{serial: fields[0], status: fields[1]})
	}
	return entries
}

// parseAvdList extracts AVD names from `emulator -list-avds` output. Newer
// emulator builds prepend INFO chatter to stdout.
func parseAvdList(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "INFO") {
			continue
		}
		names = append(names, line)
	}
	return names
}

func stateFromAdb(status string) device.State {
	switch status {
	case "device":
		return device.StateBooted
	case "offline":
		return device.StateBooting
	default:
		return device.StateUnknown
	}
}

func findByName(devices []device.Device, name string) (device.Device, bool) {
	for _, d := range devices {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return device.Device{}, false
}

func containsFold(names []string, want string) bool {
	for _, name := range names {
		if strings.EqualFold(name, want) {
			return true
		}
	}
	return false
}
