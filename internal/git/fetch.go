package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Fetch updates every configured remote, following tags and pruning
// deleted remote branches. A remote that is already up to date is not a
// failure. Failing remotes are collected into a *FetchError.
func (s *Service) Fetch(ctx context.Context) error {
	remotes, err := s.repo.Remotes()
	if err != nil {
		return fmt.Errorf("list remotes: %w", err)
	}
	var failures []RemoteFailure
	for _, remote := range remotes {
		name := remote.Config().Name
		if err := ctx.Err(); err != nil {
			return err
		}
		var url string
		if urls := remote.Config().URLs; len(urls) > 0 {
			url = urls[0]
		}
		slog.Debug("fetch remote", slog.String("remote", name), slog.String("url", url))
		err := remote.FetchContext(ctx, &gitlib.FetchOptions{
			RemoteName: name,
			Tags:       gitlib.TagFollowing,
			Prune:      true,
			Auth:       s.authFor(ctx, url),
		})
		switch {
		case err == nil:
		case errors.Is(err, gitlib.NoErrAlreadyUpToDate):
			slog.Debug("remote already up to date", slog.String("remote", name))
		case errors.Is(err, transport.ErrEmptyRemoteRepository):
			slog.Debug("remote is empty", slog.String("remote", name))
		default:
			slog.Warn("fetch remote failed", slog.String("remote", name), slog.Any("error", err))
			failures = append(failures, RemoteFailure{Remote: name, Err: err})
		}
	}
	if len(failures) > 0 {
		return &FetchError{Failures: failures}
	}
	return nil
}

// authFor picks credentials for url: the platform credential helper for
// http(s), the SSH agent for ssh. A nil result means anonymous access.
func (s *Service) authFor(ctx context.Context, url string) transport.AuthMethod {
	if url == "" {
		return nil
	}
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil
	}
	switch ep.Protocol {
	case "http", "https":
		auth, err := credentialFill(ctx, s.path, ep)
		if err != nil {
			slog.Debug("credential helper unavailable", slog.String("host", ep.Host), slog.Any("error", err))
			return nil
		}
		return auth
	case "ssh":
		user := ep.User
		if user == "" {
			user = "git"
		}
		auth, err := ssh.NewSSHAgentAuth(user)
		if err != nil {
			slog.Debug("ssh agent unavailable", slog.String("host", ep.Host), slog.Any("error", err))
			return nil
		}
		return auth
	default:
		return nil
	}
}
