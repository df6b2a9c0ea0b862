package pwsh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/masterzen/winrm"
	"github.com/praetorian-inc/vantage/pkg/types"
)

// Credentials configures a WinRM connection.
type Credentials struct {
	Username string
	Password string
	// Domain switches authentication from Basic to NTLM.
	Domain   string
	HTTPS    bool
	Insecure bool
	// Port defaults to 5985, or 5986 with HTTPS.
	Port    int
	Timeout time.Duration
}

func (c Credentials) port() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.HTTPS {
		return 5986
	}
	return 5985
}

// WinRMShell runs scripts on a remote host over WinRM.
type WinRMShell struct {
	client *winrm.Client
	target string
}

// NewWinRMShell only prepares the client; the first Run opens the connection.
func NewWinRMShell(target string, creds Credentials) (*WinRMShell, error) {
	if creds.Username == "" {
		return nil, fmt.Errorf("connecting to %s: a username is required for WinRM", target)
	}
	timeout := creds.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	endpoint := winrm.NewEndpoint(target, creds.port(), creds.HTTPS, creds.Insecure, nil, nil, nil, timeout)

	var (
		client *winrm.Client
		err    error
	)
	if creds.Domain != "" {
		params := *winrm.DefaultParameters
		params.TransportDecorator = func() winrm.Transporter {
			return &winrm.ClientNTLM{}
		}
		client, err = winrm.NewClientWithParameters(endpoint, fmt.Sprintf("%s\\%s", creds.Domain, creds.Username), creds.Password, &params)
	} else {
		client, err = winrm.NewClient(endpoint, creds.Username, creds.Password)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create WinRM client: %w", err)
	}

	return &WinRMShell{client: client, target: target}, nil
}

func (s *WinRMShell) Target() string { return s.target }

func (s *WinRMShell) Run(ctx context.Context, script string) (string, error) {
	stdout, stderr, code, err := s.client.RunWithContextWithString(ctx, winrm.Powershell(script), "")
	if err != nil {
		return "", fmt.Errorf("WinRM execution on %s failed: %w", s.target, err)
	}
	if code != 0 {
		return "", &ExitError{Code: code, Stderr: stderr}
	}
	return strings.TrimSpace(stdout), nil
}

var _ types.Shell = (*WinRMShell)(nil)
