package system

import (
	"context"
	"fmt"
	"iter"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/internal/winreg"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
)

const policiesSystemKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System`

// UACSettings holds the raw policy values; nil means the value is not set.
type UACSettings struct {
	ConsentPromptBehaviorAdmin    *uint64
	EnableLUA                     *uint64
	LocalAccountTokenFilterPolicy *uint64
	FilterAdministratorToken      *uint64
}

func (UACSettings) Shape() types.Shape { return "UACSettings" }

var consentPromptBehaviors = map[uint64]string{
	0: "NoPrompting",
	1: "PromptOnSecureDesktop",
	2: "PromptPermitDenyOnSecureDesktop",
	3: "PromptForCredsNotOnSecureDesktop",
	4: "PromptForPermitDenyNotOnSecureDesktop",
	5: "PromptForNonWindowsBinaries",
}

func init() {
	registry.Register(types.Collector{
		Name:        "UAC",
		Description: "User Account Control policy and what it implies for lateral movement with local accounts",
		Groups:      []types.Group{types.GroupSystem, types.GroupRemote},
		Remote:      types.RemoteFull,
		Invoke:      invokeUAC,
	})
	formatters.Register("UACSettings", formatters.For(formatUAC))
}

func invokeUAC(ctx context.Context, _ []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return types.Results(func() ([]UACSettings, error) {
		values, err := readKey(ctx, ec, winreg.HKLM, policiesSystemKey)
		if err != nil {
			return nil, err
		}
		return []UACSettings{{
			ConsentPromptBehaviorAdmin:    optionalUint(values, "ConsentPromptBehaviorAdmin"),
			EnableLUA:                     optionalUint(values, "EnableLUA"),
			LocalAccountTokenFilterPolicy: optionalUint(values, "LocalAccountTokenFilterPolicy"),
			FilterAdministratorToken:      optionalUint(values, "FilterAdministratorToken"),
		}}, nil
	})
}

func readKey(ctx context.Context, ec types.ExecutionContext, hive, path string) (map[string]any, error) {
	if ec.Registry == nil {
		return nil, fmt.Errorf("no registry reader for %s", ec.ComputerName)
	}
	return ec.Registry.Values(ctx, hive, path)
}

func optionalUint(values map[string]any, name string) *uint64 {
	v, ok := winreg.Uint(values, name)
	if !ok {
		return nil
	}
	return &v
}

func isSet(v *uint64, want uint64) bool {
	return v != nil && *v == want
}

func show(v *uint64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

// UACNotes explains what the settings mean for remote use of local
// administrator accounts.
func UACNotes(s UACSettings) []string {
	// EnableLUA defaults to on when the value is missing.
	luaDisabled := isSet(s.EnableLUA, 0)
	switch {
	case luaDisabled:
		return []string{
			"[!] UAC is disabled.",
			"[!] Any administrative local account can be used for lateral movement.",
		}
	case isSet(s.LocalAccountTokenFilterPolicy, 1):
		return []string{
			"[!] LocalAccountTokenFilterPolicy set to 1.",
			"[!] Any administrative local account can be used for lateral movement.",
		}
	case isSet(s.FilterAdministratorToken, 1):
		return []string{
			"[*] LocalAccountTokenFilterPolicy set to 0 and FilterAdministratorToken == 1.",
			"[*] No local accounts can be used for lateral movement.",
		}
	default:
		return []string{
			"[*] Default Windows settings: LocalAccountTokenFilterPolicy set to 0 and FilterAdministratorToken != 1.",
			"[*] Only the RID-500 local admin account can be used for lateral movement.",
		}
	}
}

func formatUAC(sink types.TextSink, s UACSettings, _ bool) error {
	consent := show(s.ConsentPromptBehaviorAdmin)
	if s.ConsentPromptBehaviorAdmin != nil {
		if name, ok := consentPromptBehaviors[*s.ConsentPromptBehaviorAdmin]; ok {
			consent += " - " + name
		}
	}
	sink.WriteLinef("  %-30s : %s", "ConsentPromptBehaviorAdmin", consent)
	sink.WriteLinef("  %-30s : %s", "EnableLUA (Is UAC enabled?)", show(s.EnableLUA))
	sink.WriteLinef("  %-30s : %s", "LocalAccountTokenFilterPolicy", show(s.LocalAccountTokenFilterPolicy))
	sink.WriteLinef("  %-30s : %s", "FilterAdministratorToken", show(s.FilterAdministratorToken))
	for _, note := range UACNotes(s) {
		sink.WriteLinef("    %s", note)
	}
	sink.WriteLine("")
	return nil
}
