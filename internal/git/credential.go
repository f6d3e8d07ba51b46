package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

var errNoCredential = errors.New("credential helper returned no username")

// credentialFill asks the user's configured git credential helper for
// credentials for ep without ever prompting on the terminal.
func credentialFill(ctx context.Context, dir string, ep *transport.Endpoint) (*http.BasicAuth, error) {
	var in bytes.Buffer
	fmt.Fprintf(&in, "protocol=%s\nhost=%s\n", ep.Protocol, hostWithPort(ep))
	if path := strings.TrimPrefix(ep.Path, "/"); path != "" {
		fmt.Fprintf(&in, "path=%s\n", path)
	}
	in.WriteString("\n")

	cmd := exec.CommandContext(ctx, "git", "-C", dir, "credential", "fill")
	cmd.Stdin = &in
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GCM_INTERACTIVE=never")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("git credential fill: %v: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("git credential fill: %w", err)
	}
	return parseCredential(stdout.String())
}

func hostWithPort(ep *transport.Endpoint) string {
	if ep.Port == 0 {
		return ep.Host
	}
	if (ep.Protocol == "https" && ep.Port == 443) || (ep.Protocol == "http" && ep.Port == 80) {
		return ep.Host
	}
	return fmt.Sprintf("%s:%d", ep.Host, ep.Port)
}

func parseCredential(out string) (*http.BasicAuth, error) {
	auth := &http.BasicAuth{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "username":
			auth.Username = value
		case "password":
			auth.Password = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if auth.Username == "" {
		return nil, errNoCredential
	}
	return auth, nil
}
