// Package gitlab exposes merge request creation as model-invocable tools.
// The model builds a merge request in three steps (start, add files, commit
// and push); the in-progress state lives in a per-session builder so
// concurrent sessions cannot see each other's half-built merge requests.
package gitlab

import (
	"context"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// GroupName is the router category under which these tools are unlocked.
const GroupName = "gitlab"

// Config connects the tools to one GitLab project.
type Config struct {
	// BaseURL is the GitLab instance address.
	BaseURL string

	// Token authenticates API calls.
	Token string

	// ProjectID identifies the project merge requests are opened against.
	ProjectID int

	// TargetBranch is the branch merge requests target.
	TargetBranch string
}

// API is the subset of GitLab operations the merge request builder needs.
// Split out so tests can run against a fake.
type API interface {
	// ListRepositoryPaths returns every file path in the repository at ref.
	ListRepositoryPaths(ctx context.Context, ref string) ([]string, error)

	// CreateCommit commits the given files onto branch, creating the
	// branch from startBranch when it does not exist yet. The actions
	// slice distinguishes creating new files from updating existing ones.
	CreateCommit(ctx context.Context, branch, startBranch, message string, actions []*gl.CommitActionOptions) error

	// CreateMergeRequest opens a merge request and returns its web URL.
	CreateMergeRequest(ctx context.Context, sourceBranch, targetBranch, title, description string) (string, error)
}

// Client implements [API] against a real GitLab instance.
type Client struct {
	client    *gl.Client
	projectID int
	cfg       Config
}

var _ API = (*Client)(nil)

// NewClient builds a Client from config.
func NewClient(cfg Config) (*Client, error) {
	client, err := gl.NewClient(cfg.Token, gl.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("gitlab: build client: %w", err)
	}
	return &Client{client: client, projectID: cfg.ProjectID, cfg: cfg}, nil
}

// Ping verifies API connectivity and project access. Used as a readiness
// check.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.client.Projects.GetProject(c.projectID, nil, gl.WithContext(ctx))
	return err
}

// ListRepositoryPaths implements [API].
func (c *Client) ListRepositoryPaths(ctx context.Context, ref string) ([]string, error) {
	var paths []string
	opt := &gl.ListTreeOptions{
		Ref:       gl.Ptr(ref),
		Recursive: gl.Ptr(true),
		ListOptions: gl.ListOptions{
			PerPage: 100,
		},
	}
	for {
		tree, resp, err := c.client.Repositories.ListTree(c.projectID, opt, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlab: list repository tree: %w", err)
		}
		for _, node := range tree {
			if node.Type == "blob" {
				paths = append(paths, node.Path)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return paths, nil
}

// CreateCommit implements [API].
func (c *Client) CreateCommit(ctx context.Context, branch, startBranch, message string, actions []*gl.CommitActionOptions) error {
	_, _, err := c.client.Commits.CreateCommit(c.projectID, &gl.CreateCommitOptions{
		Branch:        gl.Ptr(branch),
		StartBranch:   gl.Ptr(startBranch),
		CommitMessage: gl.Ptr(message),
		Actions:       actions,
	}, gl.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("gitlab: create commit: %w", err)
	}
	return nil
}

// CreateMergeRequest implements [API].
func (c *Client) CreateMergeRequest(ctx context.Context, sourceBranch, targetBranch, title, description string) (string, error) {
	mr, _, err := c.client.MergeRequests.CreateMergeRequest(c.projectID, &gl.CreateMergeRequestOptions{
		SourceBranch: gl.Ptr(sourceBranch),
		TargetBranch: gl.Ptr(targetBranch),
		Title:        gl.Ptr(title),
		Description:  gl.Ptr(description),
		Labels:       &gl.LabelOptions{"ai", "automerge"},
	}, gl.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("gitlab: create merge request: %w", err)
	}
	return mr.WebURL, nil
}
