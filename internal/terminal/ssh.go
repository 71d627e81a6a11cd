// Package terminal bridges one-shot commands to hosts over SSH.
//
// Credentials arrive with each request and live only for the duration of
// that request; nothing here persists them.
package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const defaultTimeout = 10 * time.Second

// Credentials authenticate a single SSH exchange. Either Password or
// PrivateKey must be set; PrivateKey wins when both are present.
type Credentials struct {
	User       string `json:"user"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

// CommandResult is the outcome of a remote command.
type CommandResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Elapsed  time.Duration `json:"-"`
}

// Bridge opens SSH sessions to board hosts.
type Bridge struct {
	logger  *logrus.Logger
	timeout time.Duration
}

// NewBridge creates a bridge with the default connect timeout.
func NewBridge(logger *logrus.Logger) *Bridge {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bridge{logger: logger, timeout: defaultTimeout}
}

// RunCommand connects to addr:port, runs one command, and tears the
// connection down.
func (b *Bridge) RunCommand(ctx context.Context, addr string, port int, creds Credentials, command string) (*CommandResult, error) {
	if command == "" {
		return nil, fmt.Errorf("command must not be empty")
	}

	client, err := b.connect(ctx, addr, port, creds)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	runErr := session.Run(command)
	elapsed := time.Since(start)

	result := &CommandResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: elapsed,
	}

	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			return nil, fmt.Errorf("command failed: %w", runErr)
		}
	}

	b.logger.WithFields(logrus.Fields{
		"addr":    addr,
		"exit":    result.ExitCode,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}).Debug("remote command finished")

	return result, nil
}

// connect dials and authenticates. The context bounds the TCP dial; the
// SSH handshake is bounded by the config timeout.
func (b *Bridge) connect(ctx context.Context, addr string, port int, creds Credentials) (*ssh.Client, error) {
	config, err := b.clientConfig(creds)
	if err != nil {
		return nil, err
	}

	if port <= 0 {
		port = 22
	}
	target := net.JoinHostPort(addr, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: b.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", target, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (b *Bridge) clientConfig(creds Credentials) (*ssh.ClientConfig, error) {
	if creds.User == "" {
		return nil, fmt.Errorf("user must not be empty")
	}

	var auth []ssh.AuthMethod
	switch {
	case creds.PrivateKey != "":
		var signer ssh.Signer
		var err error
		if creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(creds.PrivateKey), []byte(creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(creds.PrivateKey))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))

	case creds.Password != "":
		auth = append(auth, ssh.Password(creds.Password))

	default:
		return nil, fmt.Errorf("either password or private key is required")
	}

	return &ssh.ClientConfig{
		User:            creds.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         b.timeout,
	}, nil
}
