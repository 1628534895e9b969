package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/util"
)

// SSHProvider connects to devices over SSH using the fleet credentials.
type SSHProvider struct {
	Username string
	Password string
	Port     int

	// DialTimeout bounds the TCP+SSH handshake; per-command deadlines come
	// from the caller's context.
	DialTimeout time.Duration
}

// NewSSHProvider builds a provider from fleet credentials.
func NewSSHProvider(auth intent.Auth) *SSHProvider {
	return &SSHProvider{
		Username:    auth.Username,
		Password:    auth.Password,
		Port:        22,
		DialTimeout: 15 * time.Second,
	}
}

// Connect dials the device's management address.
func (p *SSHProvider) Connect(ctx context.Context, dev *intent.Device) (Session, error) {
	config := &ssh.ClientConfig{
		User: p.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(p.Password),
		},
		// Lab environment. Production would verify host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", dev.MgmtIP, p.Port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, util.NewSessionError(dev.Name, "connect", err)
	}
	return &sshSession{device: dev.Name, client: client}, nil
}

// sshSession runs one command per SSH exec session (stateless), the way
// network devices expect CLI automation to behave.
type sshSession struct {
	device string
	client *ssh.Client
}

func (s *sshSession) Capture(ctx context.Context) (string, error) {
	out, err := s.exec(ctx, "show running-config")
	if err != nil {
		return "", util.NewSessionError(s.device, "capture", err)
	}
	return out, nil
}

// Apply feeds the configuration through a configure session. Comment and
// terminator lines are stripped first; any "%"-prefixed response line means
// the device rejected a statement.
func (s *sshSession) Apply(ctx context.Context, text string) error {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "!") || line == "end" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}

	script := "configure terminal\n" + strings.Join(lines, "\n") + "\nend\n"
	out, err := s.exec(ctx, script)
	if err != nil {
		return util.NewSessionError(s.device, "apply", err)
	}
	if detail := rejectionDetail(out); detail != "" {
		return &util.ApplyError{Device: s.device, Detail: detail}
	}
	return nil
}

func (s *sshSession) Persist(ctx context.Context) error {
	if _, err := s.exec(ctx, "write memory"); err != nil {
		return util.NewSessionError(s.device, "persist", err)
	}
	return nil
}

func (s *sshSession) Run(ctx context.Context, command string) (string, error) {
	out, err := s.exec(ctx, command)
	if err != nil {
		return "", util.NewSessionError(s.device, "exec", err)
	}
	return out, nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

// exec runs a command in a fresh SSH session, bounded by ctx. On timeout
// the underlying connection is torn down so the remote exec cannot linger.
func (s *sshSession) exec(ctx context.Context, command string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return string(r.out), fmt.Errorf("exec %q: %w", firstLine(command), r.err)
		}
		return string(r.out), nil
	case <-ctx.Done():
		s.client.Close()
		return "", ctx.Err()
	}
}

// rejectionDetail scans command output for device error responses.
func rejectionDetail(out string) string {
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "%") {
			return line
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
