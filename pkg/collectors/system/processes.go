package system

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/shirou/gopsutil/v3/process"
)

type ProcessRecord struct {
	Name            string
	PID             int32
	ParentPID       int32
	User            string
	Path            string
	CommandLine     string
	SecurityProduct string
}

func (ProcessRecord) Shape() types.Shape { return "ProcessRecord" }

// ProcessSummary closes every Processes run.
type ProcessSummary struct {
	Total            int
	Shown            int
	SecurityProducts []string
}

func (ProcessSummary) Shape() types.Shape { return "ProcessSummary" }

// securityProducts maps lower-cased image names to the product they belong to.
var securityProducts = map[string]string{
	"msmpeng.exe":             "Microsoft Defender",
	"mssense.exe":             "Microsoft Defender for Endpoint",
	"sensecncproxy.exe":       "Microsoft Defender for Endpoint",
	"nissrv.exe":              "Microsoft Defender Network Inspection",
	"csfalconservice.exe":     "CrowdStrike Falcon",
	"csfalconcontainer.exe":   "CrowdStrike Falcon",
	"sentinelagent.exe":       "SentinelOne",
	"sentinelservicehost.exe": "SentinelOne",
	"cb.exe":                  "Carbon Black",
	"repmgr.exe":              "Carbon Black Cloud",
	"cylancesvc.exe":          "Cylance",
	"elastic-agent.exe":       "Elastic Agent",
	"elastic-endpoint.exe":    "Elastic Endpoint",
	"sysmon.exe":              "Sysmon",
	"sysmon64.exe":            "Sysmon",
	"xagt.exe":                "Trellix (FireEye) Endpoint",
	"ccsvchst.exe":            "Symantec Endpoint Protection",
	"sophosfilescanner.exe":   "Sophos",
	"savservice.exe":          "Sophos",
	"ekrn.exe":                "ESET",
	"avp.exe":                 "Kaspersky",
	"taniumclient.exe":        "Tanium",
	"cyserver.exe":            "Palo Alto Cortex XDR",
	"osqueryd.exe":            "osquery",
	"splunkd.exe":             "Splunk Forwarder",
}

// SecurityProduct names the product an image belongs to, or "".
func SecurityProduct(name string) string {
	return securityProducts[strings.ToLower(filepath.Base(name))]
}

var listProcesses = localProcesses

func init() {
	registry.Register(types.Collector{
		Name:        "Processes",
		Description: "Running processes; filtered to security products unless --full is given. Arguments match process names",
		Groups:      []types.Group{types.GroupSystem},
		Remote:      types.RemoteNone,
		Invoke:      invokeProcesses,
	})
	formatters.Register("ProcessRecord", formatters.For(formatProcess))
}

func invokeProcesses(ctx context.Context, args []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(yield func(types.Result, error) bool) {
		records, err := listProcesses(ctx)
		if err != nil {
			yield(nil, err)
			return
		}

		summary := ProcessSummary{Total: len(records)}
		for _, rec := range records {
			rec.SecurityProduct = SecurityProduct(rec.Name)
			if rec.SecurityProduct != "" && !slices.Contains(summary.SecurityProducts, rec.SecurityProduct) {
				summary.SecurityProducts = append(summary.SecurityProducts, rec.SecurityProduct)
			}
			if !keepProcess(rec, args, ec.FilterResults) {
				continue
			}
			summary.Shown++
			if !yield(rec, nil) {
				return
			}
		}
		slices.Sort(summary.SecurityProducts)
		yield(summary, nil)
	}
}

// keepProcess applies name arguments first; with no arguments and filtering
// on, only security products are kept.
func keepProcess(rec ProcessRecord, args []string, filter bool) bool {
	if len(args) > 0 {
		name := strings.ToLower(rec.Name)
		return slices.ContainsFunc(args, func(a string) bool {
			return strings.Contains(name, strings.ToLower(a))
		})
	}
	return !filter || rec.SecurityProduct != ""
}

func localProcesses(ctx context.Context) ([]ProcessRecord, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	records := make([]ProcessRecord, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Fields the caller may not read (protected processes) stay empty.
		name, _ := p.NameWithContext(ctx)
		ppid, _ := p.PpidWithContext(ctx)
		user, _ := p.UsernameWithContext(ctx)
		exe, _ := p.ExeWithContext(ctx)
		cmdline, _ := p.CmdlineWithContext(ctx)
		records = append(records, ProcessRecord{
			Name:        name,
			PID:         p.Pid,
			ParentPID:   ppid,
			User:        user,
			Path:        exe,
			CommandLine: cmdline,
		})
	}
	slices.SortFunc(records, func(a, b ProcessRecord) int { return cmp.Compare(a.PID, b.PID) })
	return records, nil
}

func formatProcess(sink types.TextSink, p ProcessRecord, _ bool) error {
	sink.WriteLinef("  %-30s : %d (parent %d)", p.Name, p.PID, p.ParentPID)
	if p.User != "" {
		sink.WriteLinef("    %-28s : %s", "User", p.User)
	}
	if p.Path != "" {
		sink.WriteLinef("    %-28s : %s", "Path", p.Path)
	}
	if p.CommandLine != "" {
		sink.WriteLinef("    %-28s : %s", "CommandLine", p.CommandLine)
	}
	if p.SecurityProduct != "" {
		sink.WriteLinef("    [*] %s", p.SecurityProduct)
	}
	sink.WriteLine("")
	return nil
}
