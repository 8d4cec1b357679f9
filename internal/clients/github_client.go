package clients

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/pkg/errors"
)

// WorkflowDispatcher triggers a GitHub Actions workflow through the REST API.
type WorkflowDispatcher struct {
	client     *github.Client
	owner      string
	repo       string
	workflowID int64
	ref        string
}

// NewWorkflowDispatcher creates a dispatcher authenticated with a personal access token.
func NewWorkflowDispatcher(token, owner, repo string, workflowID int64, ref string) *WorkflowDispatcher {
	return &WorkflowDispatcher{
		client:     github.NewClient(nil).WithAuthToken(token),
		owner:      owner,
		repo:       repo,
		workflowID: workflowID,
		ref:        ref,
	}
}

// Dispatch fires a workflow_dispatch event for the configured ref.
func (d *WorkflowDispatcher) Dispatch(ctx context.Context) error {
	_, err := d.client.Actions.CreateWorkflowDispatchEventByID(ctx, d.owner, d.repo, d.workflowID,
		github.CreateWorkflowDispatchEventRequest{Ref: d.ref})
	if err != nil {
		return errors.Wrapf(err, "dispatch workflow %d on %s/%s", d.workflowID, d.owner, d.repo)
	}
	return nil
}

func (d *WorkflowDispatcher) setBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	d.client.BaseURL = u
	return nil
}
