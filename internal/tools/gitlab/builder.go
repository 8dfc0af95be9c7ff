package gitlab

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/sretools/remedian/internal/toolbox"
	"github.com/sretools/remedian/pkg/types"
)

const (
	msgStartFirst = "It's not possible to add files to merge request if it's not created yet! run `start_merge_request` tool with `title` and `description` parameters first!"
	msgPushEmpty  = "It's not possible to push empty merge request! run `start_merge_request` tool with `title` and `description` parameters first, then add file updates using `add_file_to_merge_request` tool!"
)

// Builder accumulates one merge request under construction. Every session
// gets its own Builder through [GroupFactory]; a session's tool calls run
// sequentially, so no locking is needed.
type Builder struct {
	api          API
	targetBranch string

	started      bool
	title        string
	description  string
	sourceBranch string
	files        map[string]string
	fileOrder    []string
}

// NewBuilder creates an empty Builder on top of an API.
func NewBuilder(api API, targetBranch string) *Builder {
	return &Builder{
		api:          api,
		targetBranch: targetBranch,
		files:        make(map[string]string),
	}
}

// GroupFactory returns a factory producing a fresh gitlab tool group, with
// its own [Builder], per session.
func GroupFactory(api API, targetBranch string) toolbox.GroupFactory {
	return func() toolbox.Group {
		return NewBuilder(api, targetBranch).Group()
	}
}

func (b *Builder) start(_ context.Context, args map[string]any) (any, error) {
	title, ok := args["title"].(string)
	if !ok || title == "" {
		return nil, &toolbox.ToolError{Tool: "start_merge_request", Message: "Missing required parameter \"title\"", Inputs: args}
	}
	description, _ := args["description"].(string)

	b.started = true
	b.title = title
	b.description = description
	b.sourceBranch = "remedian-" + uuid.NewString()[:8]
	b.files = make(map[string]string)
	b.fileOrder = nil
	return map[string]any{
		"source_branch": b.sourceBranch,
		"target_branch": b.targetBranch,
	}, nil
}

func (b *Builder) addFile(_ context.Context, args map[string]any) (any, error) {
	if !b.started {
		return nil, &toolbox.ToolError{Tool: "add_file_to_merge_request", Message: msgStartFirst, Inputs: args}
	}
	path, ok := args["file_path"].(string)
	if !ok || path == "" {
		return nil, &toolbox.ToolError{Tool: "add_file_to_merge_request", Message: "Missing required parameter \"file_path\"", Inputs: args}
	}
	contents, ok := args["file_contents"].(string)
	if !ok {
		return nil, &toolbox.ToolError{Tool: "add_file_to_merge_request", Message: "Missing required parameter \"file_contents\"", Inputs: args}
	}
	if _, exists := b.files[path]; !exists {
		b.fileOrder = append(b.fileOrder, path)
	}
	b.files[path] = contents
	return map[string]any{"staged_files": len(b.files)}, nil
}

func (b *Builder) commitAndPush(ctx context.Context, args map[string]any) (any, error) {
	if !b.started {
		return nil, &toolbox.ToolError{Tool: "commit_and_push_merge_request", Message: msgStartFirst, Inputs: args}
	}
	if len(b.files) == 0 {
		return nil, &toolbox.ToolError{Tool: "commit_and_push_merge_request", Message: msgPushEmpty, Inputs: args}
	}
	message, ok := args["commit_message"].(string)
	if !ok || message == "" {
		return nil, &toolbox.ToolError{Tool: "commit_and_push_merge_request", Message: "Missing required parameter \"commit_message\"", Inputs: args}
	}

	existing, err := b.api.ListRepositoryPaths(ctx, b.targetBranch)
	if err != nil {
		return nil, &toolbox.ToolError{Tool: "commit_and_push_merge_request", Message: fmt.Sprintf("Problem creating commit! %v", err), Inputs: args, Cause: err}
	}
	existingSet := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingSet[p] = true
	}

	actions := make([]*gl.CommitActionOptions, 0, len(b.fileOrder))
	for _, path := range b.fileOrder {
		action := gl.FileCreate
		if existingSet[path] {
			action = gl.FileUpdate
		}
		actions = append(actions, &gl.CommitActionOptions{
			Action:   gl.Ptr(action),
			FilePath: gl.Ptr(path),
			Content:  gl.Ptr(b.files[path]),
		})
	}

	if err := b.api.CreateCommit(ctx, b.sourceBranch, b.targetBranch, message, actions); err != nil {
		return nil, &toolbox.ToolError{Tool: "commit_and_push_merge_request", Message: fmt.Sprintf("Problem creating commit! %v", err), Inputs: args, Cause: err}
	}
	url, err := b.api.CreateMergeRequest(ctx, b.sourceBranch, b.targetBranch, b.title, b.description)
	if err != nil {
		return nil, &toolbox.ToolError{Tool: "commit_and_push_merge_request", Message: fmt.Sprintf("Problem creating merge request from commit! %v", err), Inputs: args, Cause: err}
	}

	// Staged files are consumed; further add/commit calls start a new
	// commit on the same merge request branch.
	b.files = make(map[string]string)
	b.fileOrder = nil
	return map[string]any{"merge_request_url": url}, nil
}

// Group assembles the gitlab tool group around this builder.
func (b *Builder) Group() toolbox.Group {
	return toolbox.Group{
		Name:        GroupName,
		Description: "Propose configuration fixes by building and pushing a GitLab merge request",
		Tools: []toolbox.Definition{
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "start_merge_request",
					Description: "Allows to create merge request. IMPORTANT: `start_merge_request` tool must be run before running `add_file_to_merge_request` and `commit_and_push_merge_request`",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"title":       {Type: "string", Description: "Title of the merge request"},
						"description": {Type: "string", Description: "Description of the merge request"},
					}, "title", "description"),
				},
				Handler: toolbox.HandlerFunc(b.start),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "add_file_to_merge_request",
					Description: "Allows to add file update to merge request. Can be run multiple times to add multiple files in one commit. IMPORTANT: `add_file_to_merge_request` requires `start_merge_request` to be run first",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"file_path":     {Type: "string", Description: "Path of the file, that gets updated"},
						"file_contents": {Type: "string", Description: "New contents of the file thats being updated"},
					}, "file_path", "file_contents"),
				},
				Handler: toolbox.HandlerFunc(b.addFile),
			},
			{
				ToolDefinition: types.ToolDefinition{
					Name:        "commit_and_push_merge_request",
					Description: "Allows to group file updates into commit, which then is pushed. IMPORTANT: `commit_and_push_merge_request` requires `start_merge_request` to be run once and `add_file_to_merge_request` to be run at least once!",
					Parameters: types.ObjectSchema(map[string]types.Property{
						"commit_message": {Type: "string", Description: "Message in a commit that's getting pushed to repository"},
					}, "commit_message"),
				},
				Handler: toolbox.HandlerFunc(b.commitAndPush),
			},
		},
	}
}
