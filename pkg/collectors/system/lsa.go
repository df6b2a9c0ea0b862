package system

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/internal/winreg"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
)

const lsaKey = `SYSTEM\CurrentControlSet\Control\Lsa`

// LSASettings is every value under the Lsa key. The key has no fixed set
// of values, so the fields are supplied by Fields rather than the struct.
type LSASettings struct {
	Values map[string]any `json:"values"`
}

func (LSASettings) Shape() types.Shape { return "LSASettings" }

// Fields lists the values sorted by name.
func (s LSASettings) Fields() []types.Field {
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	fields := make([]types.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, types.Field{Name: name, Value: types.ValueOf(s.Values[name])})
	}
	return fields
}

func init() {
	registry.Register(types.Collector{
		Name:        "LSASettings",
		Description: "LSA configuration values (RunAsPPL, LmCompatibilityLevel, security packages)",
		Groups:      []types.Group{types.GroupSystem, types.GroupRemote},
		Remote:      types.RemoteFull,
		Invoke:      invokeLSA,
	})
	formatters.Register("LSASettings", formatters.For(formatLSA))
}

func invokeLSA(ctx context.Context, _ []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return types.Results(func() ([]LSASettings, error) {
		values, err := readKey(ctx, ec, winreg.HKLM, lsaKey)
		if err != nil {
			return nil, err
		}
		return []LSASettings{{Values: values}}, nil
	})
}

// LSANotes flags settings that weaken credential protection.
func LSANotes(s LSASettings) []string {
	var notes []string

	if level, ok := winreg.Uint(s.Values, "LmCompatibilityLevel"); ok && level < 3 {
		notes = append(notes, "[!] LmCompatibilityLevel < 3: NTLMv1 responses may be sent and can be cracked or relayed.")
	}
	if ppl, ok := winreg.Uint(s.Values, "RunAsPPL"); !ok || ppl == 0 {
		notes = append(notes, "[*] LSA protection (RunAsPPL) is not enabled.")
	}
	if anon, ok := winreg.Uint(s.Values, "RestrictAnonymous"); ok && anon == 0 {
		if sam, ok := winreg.Uint(s.Values, "RestrictAnonymousSAM"); ok && sam == 0 {
			notes = append(notes, "[!] RestrictAnonymous and RestrictAnonymousSAM are 0: anonymous enumeration of accounts and shares is allowed.")
		}
	}
	if admin, ok := winreg.Uint(s.Values, "DisableRestrictedAdmin"); ok && admin == 0 {
		notes = append(notes, "[*] RDP Restricted Admin mode is enabled; pass-the-hash over RDP may be possible.")
	}
	var extra []string
	for _, pkg := range winreg.Strings(s.Values, "Security Packages") {
		if pkg != "" && pkg != `""` {
			extra = append(extra, pkg)
		}
	}
	if len(extra) > 0 {
		notes = append(notes, "[!] Non-default security packages loaded: "+strings.Join(extra, ", "))
	}
	return notes
}

func formatLSA(sink types.TextSink, s LSASettings, filter bool) error {
	formatters.WriteFields(sink, s.Fields(), 1)
	for _, note := range LSANotes(s) {
		if filter && strings.HasPrefix(note, "[*]") {
			continue
		}
		sink.WriteLinef("    %s", note)
	}
	sink.WriteLine("")
	return nil
}
