package winreg

import (
	"context"
	"errors"
	"testing"

	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShell struct {
	script string
	out    string
	err    error
}

func (f *fakeShell) Run(_ context.Context, script string) (string, error) {
	f.script = script
	return f.out, f.err
}

var _ types.RegistryReader = ShellReader{}
var _ types.RegistryReader = LocalReader{}

func TestShellReaderValues(t *testing.T) {
	sh := &fakeShell{out: `{"EnableLUA":1,"ConsentPromptBehaviorAdmin":5,"LegalNoticeText":"","Authentication Packages":["msv1_0"],"Blob":[1,2,255]}`}

	values, err := ShellReader{Shell: sh}.Values(context.Background(), "hklm", `\SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System\`)
	require.NoError(t, err)

	assert.Contains(t, sh.script, `'Registry::HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System'`)

	lua, ok := Uint(values, "EnableLUA")
	require.True(t, ok)
	assert.Equal(t, uint64(1), lua)

	packages := Strings(values, "Authentication Packages")
	assert.Equal(t, []string{"msv1_0"}, packages)
	assert.Equal(t, []byte{1, 2, 255}, values["Blob"])

	text, ok := String(values, "LegalNoticeText")
	assert.True(t, ok)
	assert.Empty(t, text)

	_, ok = Uint(values, "Missing")
	assert.False(t, ok)
}

func TestShellReaderMissingKey(t *testing.T) {
	values, err := ShellReader{Shell: &fakeShell{}}.Values(context.Background(), HKLM, `SOFTWARE\Nope`)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestShellReaderErrors(t *testing.T) {
	_, err := ShellReader{Shell: &fakeShell{}}.Values(context.Background(), "HKCR", `x`)
	assert.ErrorIs(t, err, ErrUnknownHive)

	_, err = ShellReader{}.Values(context.Background(), HKLM, `x`)
	assert.ErrorIs(t, err, pwsh.ErrNoShell)

	boom := errors.New("connection reset")
	_, err = ShellReader{Shell: &fakeShell{err: boom}}.Values(context.Background(), HKLM, `x`)
	assert.ErrorIs(t, err, boom)

	_, err = ShellReader{Shell: &fakeShell{out: "{"}}.Values(context.Background(), HKLM, `x`)
	assert.ErrorContains(t, err, "failed to parse registry values")
}

func TestCanonicalHive(t *testing.T) {
	for _, in := range []string{"HKLM", "hklm", "HKEY_LOCAL_MACHINE"} {
		h, err := canonicalHive(in)
		require.NoError(t, err)
		assert.Equal(t, HKLM, h)
	}
}

func TestShellReaderDwordSignBit(t *testing.T) {
	sh := &fakeShell{out: `{"RestrictAnonymous":-1,"Flags":-2147483648,"Big":-4294967296}`}

	values, err := ShellReader{Shell: sh}.Values(context.Background(), HKLM, `SYSTEM\CurrentControlSet\Control\Lsa`)
	require.NoError(t, err)

	v, ok := Uint(values, "RestrictAnonymous")
	require.True(t, ok)
	assert.Equal(t, uint64(4294967295), v)

	v, ok = Uint(values, "Flags")
	require.True(t, ok)
	assert.Equal(t, uint64(0x80000000), v)

	assert.Equal(t, int64(-4294967296), values["Big"])
}
