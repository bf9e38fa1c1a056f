package mqtt

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/logger"
)

// Network brings the node onto the local network. Attach blocks until the
// link is usable or ctx ends.
type Network interface {
	Attach(ctx context.Context) error
	Name() string
}

// AttachNetwork attaches n and wraps any failure as *errors.NetworkError
func AttachNetwork(ctx context.Context, n Network, ssid string) error {
	logger.LogInfo("📶 Attaching network via %s...", n.Name())
	if err := n.Attach(ctx); err != nil {
		return perrors.NewNetworkError("attach", err, ssid)
	}
	logger.LogInfo("✅ Network attached via %s", n.Name())
	return nil
}

// netLink is the subset of interface state the attachers check
type netLink struct {
	name     string
	up       bool
	loopback bool
	addrs    int
}

func systemLinks() ([]netLink, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	links := make([]netLink, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		links = append(links, netLink{
			name:     iface.Name,
			up:       iface.Flags&net.FlagUp != 0,
			loopback: iface.Flags&net.FlagLoopback != 0,
			addrs:    len(addrs),
		})
	}
	return links, nil
}

// commandRunner runs an external command and returns its combined output
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const linkPollInterval = 500 * time.Millisecond

// HostNetwork waits for the host OS to bring up a usable interface. When
// SSID is set and nmcli is available the active SSID must match too.
type HostNetwork struct {
	Interface string
	SSID      string

	links func() ([]netLink, error)
	run   commandRunner
}

// NewHostNetwork creates a host-managed network attacher
func NewHostNetwork(iface, ssid string) *HostNetwork {
	return &HostNetwork{Interface: iface, SSID: ssid, links: systemLinks, run: execRunner}
}

func (h *HostNetwork) Name() string { return "host" }

func (h *HostNetwork) Attach(ctx context.Context) error {
	return waitForLink(ctx, h.links, h.Interface, func(ctx context.Context) (bool, error) {
		if h.SSID == "" {
			return true, nil
		}
		return activeSSID(ctx, h.run, h.SSID)
	})
}

// NMCLINetwork joins SSID through NetworkManager
type NMCLINetwork struct {
	Interface string
	SSID      string
	Password  string

	links func() ([]netLink, error)
	run   commandRunner
}

// NewNMCLINetwork creates an attacher that joins ssid with nmcli
func NewNMCLINetwork(iface, ssid, password string) *NMCLINetwork {
	return &NMCLINetwork{Interface: iface, SSID: ssid, Password: password, links: systemLinks, run: execRunner}
}

func (n *NMCLINetwork) Name() string { return "nmcli" }

func (n *NMCLINetwork) Attach(ctx context.Context) error {
	ok, err := activeSSID(ctx, n.run, n.SSID)
	if err != nil {
		return err
	}
	if !ok {
		args := []string{"device", "wifi", "connect", n.SSID}
		if n.Password != "" {
			args = append(args, "password", n.Password)
		}
		if n.Interface != "" {
			args = append(args, "ifname", n.Interface)
		}
		if out, err := n.run(ctx, "nmcli", args...); err != nil {
			return fmt.Errorf("nmcli connect %q: %w: %s", n.SSID, err, strings.TrimSpace(string(out)))
		}
	}
	return waitForLink(ctx, n.links, n.Interface, nil)
}

// NoNetwork is for hosts whose network is always present
type NoNetwork struct{}

func (NoNetwork) Name() string                   { return "none" }
func (NoNetwork) Attach(ctx context.Context) error { return ctx.Err() }

// activeSSID reports whether the wireless connection in use is ssid
func activeSSID(ctx context.Context, run commandRunner, ssid string) (bool, error) {
	out, err := run(ctx, "nmcli", "-t", "-f", "ACTIVE,SSID", "device", "wifi")
	if err != nil {
		return false, fmt.Errorf("nmcli query: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		active, name, found := strings.Cut(strings.TrimSpace(line), ":")
		if found && active == "yes" && name == ssid {
			return true, nil
		}
	}
	return false, nil
}

// waitForLink polls until an up, non-loopback interface with an address
// exists (the named one when iface is set) and extra, if given, agrees
func waitForLink(ctx context.Context, links func() ([]netLink, error), iface string, extra func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(linkPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		ready, err := linkReady(links, iface)
		if err == nil && ready && extra != nil {
			ready, err = extra(ctx)
		}
		if err == nil && ready {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return fmt.Errorf("no usable interface: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func linkReady(links func() ([]netLink, error), iface string) (bool, error) {
	list, err := links()
	if err != nil {
		return false, err
	}
	for _, l := range list {
		if iface != "" && l.name != iface {
			continue
		}
		if l.up && !l.loopback && l.addrs > 0 {
			return true, nil
		}
	}
	return false, nil
}
