// Package system holds collectors describing the machine itself: operating
// system, processes, network endpoints and security configuration.
package system

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/shirou/gopsutil/v3/host"
)

type OSInfo struct {
	Hostname        string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	Architecture    string
	BootTime        time.Time
	Uptime          time.Duration
	Virtualization  string
}

func (OSInfo) Shape() types.Shape { return "OSInfo" }

var hostInfo = host.InfoWithContext

func init() {
	registry.Register(types.Collector{
		Name:        "OSInfo",
		Description: "Basic operating system information (hostname, version, boot time)",
		Groups:      []types.Group{types.GroupSystem, types.GroupRemote},
		Remote:      types.RemoteFull,
		Invoke:      invokeOSInfo,
	})
}

func invokeOSInfo(ctx context.Context, _ []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return types.Results(func() ([]OSInfo, error) {
		var (
			info OSInfo
			err  error
		)
		if ec.IsRemote() {
			info, err = remoteOSInfo(ctx, ec.Shell)
		} else {
			info, err = localOSInfo(ctx)
		}
		if err != nil {
			return nil, err
		}
		return []OSInfo{info}, nil
	})
}

func localOSInfo(ctx context.Context) (OSInfo, error) {
	stat, err := hostInfo(ctx)
	if err != nil {
		return OSInfo{}, fmt.Errorf("reading host information: %w", err)
	}
	info := OSInfo{
		Hostname:        stat.Hostname,
		Platform:        stat.Platform,
		PlatformVersion: stat.PlatformVersion,
		KernelVersion:   stat.KernelVersion,
		Architecture:    stat.KernelArch,
		Uptime:          time.Duration(stat.Uptime) * time.Second,
		Virtualization:  stat.VirtualizationSystem,
	}
	if stat.BootTime > 0 {
		info.BootTime = time.Unix(int64(stat.BootTime), 0).UTC()
	}
	return info, nil
}

type win32OperatingSystem struct {
	CSName         string
	Caption        string
	Version        string
	BuildNumber    string
	OSArchitecture string
	LastBootUpTime string
}

func remoteOSInfo(ctx context.Context, sh types.Shell) (OSInfo, error) {
	rows, err := pwsh.QueryCIM[win32OperatingSystem](ctx, sh, "Win32_OperatingSystem",
		"CSName", "Caption", "Version", "BuildNumber", "OSArchitecture",
		"@{n='LastBootUpTime';e={$_.LastBootUpTime.ToUniversalTime().ToString('o')}}")
	if err != nil {
		return OSInfo{}, err
	}
	if len(rows) == 0 {
		return OSInfo{}, errors.New("Win32_OperatingSystem returned no instances")
	}

	row := rows[0]
	info := OSInfo{
		Hostname:        row.CSName,
		Platform:        row.Caption,
		PlatformVersion: row.Version,
		KernelVersion:   row.BuildNumber,
		Architecture:    row.OSArchitecture,
	}
	if boot, err := time.Parse(time.RFC3339Nano, row.LastBootUpTime); err == nil {
		info.BootTime = boot.UTC()
		info.Uptime = time.Since(boot).Truncate(time.Second)
	}
	return info, nil
}
