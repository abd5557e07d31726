package simyard

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/icarus-itcs/simyard/internal/device"
)

var (
	successColor = lipgloss.Color("#4ADE80")
	errorColor   = lipgloss.Color("#F87171")
	warnColor    = lipgloss.Color("#FBBF24")
	mutedColor   = lipgloss.Color("#64748B")

	iosColor     = lipgloss.Color("#0A84FF")
	androidColor = lipgloss.Color("#34D399")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)

	bootedStyle   = lipgloss.NewStyle().Foreground(successColor)
	pendingStyle  = lipgloss.NewStyle().Foreground(warnColor)
	shutdownStyle = lipgloss.NewStyle().Foreground(mutedColor)

	warnStyle  = lipgloss.NewStyle().Foreground(warnColor)
	errStyle   = lipgloss.NewStyle().Foreground(errorColor)
	okStyle    = lipgloss.NewStyle().Foreground(successColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	iosBadge     = lipgloss.NewStyle().Foreground(iosColor).Bold(true)
	androidBadge = lipgloss.NewStyle().Foreground(androidColor).Bold(true)
)

// styled reports whether output should carry colors. Piped output stays
// plain.
var styled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func render(style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

// platformBadge returns styled platform text
func platformBadge(p device.Platform) string {
	switch p {
	case device.PlatformIOS:
		return render(iosBadge, "iOS")
	case device.PlatformAndroid:
		return render(androidBadge, "Android")
	}
	return string(p)
}

// stateDot returns a colored dot for the device state
func stateDot(state device.State) string {
	switch state {
	case device.StateBooted:
		return render(bootedStyle, "●")
	case device.StateBooting, device.StateShuttingDown:
		return render(pendingStyle, "◐")
	default:
		return render(shutdownStyle, "○")
	}
}

func stateLabel(state device.State) string {
	switch state {
	case device.StateBooted:
		return render(bootedStyle, string(state))
	case device.StateBooting, device.StateShuttingDown:
		return render(pendingStyle, string(state))
	default:
		return render(shutdownStyle, string(state))
	}
}

func renderHint(hint string) string {
	return render(mutedStyle, "hint: "+hint)
}

// remedyHint suggests a next step for the failure kinds where one exists.
func remedyHint(err error) string {
	switch device.KindOf(err) {
	case device.KindConfiguration:
		return "run 'simyard doctor' to check your toolchains"
	case device.KindNotFound:
		return "run 'simyard list --refresh' to see the devices that exist"
	case device.KindUnavailable:
		return "check the device state with 'simyard status <device>'"
	case device.KindTimedOut:
		return "the device may still be transitioning; retry in a moment"
	default:
		return ""
	}
}
