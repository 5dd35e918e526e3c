package client

import (
	"context"
	"sort"

	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/types"
)

const deploymentFields = `
      id
      status
      upstreamType
      dockerfile
      buildArgs { key value }
      gitProvider
      gitEndpoint
      gitCredentialID
      repositoryUrl
      repositoryName
      repositoryOwner
      repositoryBranch
      codePath
      imageRegistryCredentialID
      dockerImage
      sourceCodeCompressedFileName
      commitHash
      createdAt`

const (
	queryApplicationDeployments = `query ApplicationDeployments($id: String!) {
  application(id: $id) {
    deployments {` + deploymentFields + `
    }
  }
}`

	queryDeployment = `query Deployment($id: String!) {
  deployment(id: $id) {` + deploymentFields + `
  }
}`
)

type deploymentsResponse struct {
	Application *struct {
		Deployments []types.Deployment `json:"deployments"`
	} `json:"application"`
}

func (r *deploymentsResponse) Validate() error {
	if r.Application == nil {
		return types.NewValidationError("application not found")
	}
	for i := range r.Application.Deployments {
		if err := r.Application.Deployments[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type deploymentResponse struct {
	Deployment *types.Deployment `json:"deployment"`
}

func (r *deploymentResponse) Validate() error {
	if r.Deployment == nil {
		return types.NewValidationError("deployment not found")
	}
	return r.Deployment.Validate()
}

// DeploymentClient provides methods for reading deployments.
type DeploymentClient struct {
	client *Client
	logger log.Logger
}

// NewDeploymentClient creates a new deployment client.
func NewDeploymentClient(client *Client) *DeploymentClient {
	return &DeploymentClient{
		client: client,
		logger: client.logger.WithComponent("deployment-client"),
	}
}

// ListDeployments returns the deployments of an application, newest first.
func (d *DeploymentClient) ListDeployments(ctx context.Context, applicationID string) ([]types.Deployment, error) {
	var resp deploymentsResponse
	vars := map[string]interface{}{"id": applicationID}
	if err := d.client.query(ctx, "list deployments", queryApplicationDeployments, vars, &resp); err != nil {
		return nil, err
	}

	deployments := resp.Application.Deployments
	sort.SliceStable(deployments, func(i, j int) bool {
		return deployments[i].CreatedAt.After(deployments[j].CreatedAt)
	})
	return deployments, nil
}

// GetDeployment fetches one deployment.
func (d *DeploymentClient) GetDeployment(ctx context.Context, id string) (*types.Deployment, error) {
	var resp deploymentResponse
	if err := d.client.query(ctx, "get deployment", queryDeployment, map[string]interface{}{"id": id}, &resp); err != nil {
		return nil, err
	}
	return resp.Deployment, nil
}
