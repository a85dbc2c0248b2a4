package xmodem

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHSession runs an XMODEM peer (lrzsz's rx or sx) on a remote host and
// drives a local Session against its stdin/stdout.
type SSHSession struct {
	sshSession *ssh.Session
	transport  *StreamTransport
	stderr     io.Reader
	opts       []Option
}

// NewSSHTransport adapts an SSH session's stdin/stdout pipes to the
// Transport contract. It must be called before the session starts a command.
func NewSSHTransport(sshSession *ssh.Session) (*StreamTransport, error) {
	stdin, err := sshSession.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := sshSession.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	return NewStreamTransport(stdout, stdin), nil
}

// NewSSHSession prepares sshSession for an XMODEM transfer. opts configure
// the local Session.
func NewSSHSession(sshSession *ssh.Session, opts ...Option) (*SSHSession, error) {
	transport, err := NewSSHTransport(sshSession)
	if err != nil {
		return nil, err
	}

	stderr, err := sshSession.StderrPipe()
	if err != nil {
		transport.Close()
		return nil, err
	}

	return &SSHSession{
		sshSession: sshSession,
		transport:  transport,
		stderr:     stderr,
		opts:       opts,
	}, nil
}

// Transport returns the transport bound to the remote command.
func (s *SSHSession) Transport() *StreamTransport {
	return s.transport
}

// SendFile starts `rx remotePath` on the remote host and transmits data to it.
func (s *SSHSession) SendFile(ctx context.Context, data io.Reader, remotePath string) (int64, error) {
	return s.run(ctx, "rx "+shellQuote(remotePath), func(session *Session) (int64, error) {
		return session.Transmit(data)
	})
}

// ReceiveFile starts `sx remotePath` on the remote host and receives its
// output into w.
func (s *SSHSession) ReceiveFile(ctx context.Context, w io.Writer, remotePath string) (int64, error) {
	return s.run(ctx, "sx "+shellQuote(remotePath), func(session *Session) (int64, error) {
		return session.Receive(w)
	})
}

func (s *SSHSession) run(ctx context.Context, command string, transfer func(*Session) (int64, error)) (int64, error) {
	if err := s.sshSession.Start(command); err != nil {
		return 0, err
	}

	// lrzsz reports on stderr; keep it visible for diagnostics.
	go io.Copy(os.Stderr, s.stderr)

	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := transfer(NewSession(s.transport, s.opts...))
		done <- result{n, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		// Closing the transport is the only way to interrupt a blocked transfer.
		s.transport.Close()
		res = <-done
		if res.err == nil {
			res.err = ctx.Err()
		}
	}

	// Close stdin to signal completion
	s.transport.Close()

	if err := s.sshSession.Wait(); err != nil && res.err == nil {
		res.err = fmt.Errorf("remote %q: %w", command, err)
	}
	return res.n, res.err
}

// shellQuote quotes a path for the remote POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
