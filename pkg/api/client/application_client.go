package client

import (
	"context"
	"fmt"

	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/types"
)

const applicationFields = `
    id
    name
    deploymentMode
    replicas
    command
    hostname
    resourceLimit { memoryMb }
    reservedResource { memoryMb }
    environmentVariables { key value }
    persistentVolumeBindings { id persistentVolumeID mountingPath }
    configMounts { content mountingPath uid gid }
    latestDeployment {
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
      createdAt
    }
    capabilities
    sysctls
    applicationGroupID
    customHealthCheck {
      enabled
      test_command
      interval_seconds
      timeout_seconds
      start_period_seconds
      start_interval_seconds
      retries
    }
    dockerProxyHost
    preferredServerHostnames
    dockerProxyConfig {
      enabled
      permission {
        ping version info events auth secrets build commit configs containers
        distribution exec grpc images networks nodes plugins services session
        swarm system tasks volumes
      }
    }
    isSleeping`

const (
	queryApplications = `query Applications {
  applications {
    id
    name
    deploymentMode
    replicas
    isDeleted
    isSleeping
    latestDeployment { status upstreamType dockerImage repositoryUrl }
    realtimeInfo { InfoFound DesiredReplicas RunningReplicas HealthStatus }
  }
}`

	queryApplication = `query Application($id: String!) {
  application(id: $id) {` + applicationFields + `
  }
}`

	mutationUpdateApplication = `mutation UpdateApplication($id: String!, $input: ApplicationInput!) {
  updateApplication(id: $id, input: $input) { id name }
}`

	queryIsExistApplicationName = `query IsExistApplicationName($name: String!) {
  isExistApplicationName(name: $name)
}`
)

// lifecycleMutations maps an action to its mutation field.
var lifecycleMutations = map[string]string{
	"rebuild": "rebuildApplication",
	"restart": "restartApplication",
	"sleep":   "sleepApplication",
	"wake":    "wakeApplication",
	"delete":  "deleteApplication",
}

type applicationsResponse struct {
	Applications []types.ApplicationSummary `json:"applications"`
}

func (r *applicationsResponse) Validate() error {
	for i := range r.Applications {
		if err := r.Applications[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type applicationResponse struct {
	Application *types.Application `json:"application"`
}

func (r *applicationResponse) Validate() error {
	if r.Application == nil {
		return types.NewValidationError("application not found")
	}
	return r.Application.Validate()
}

type updateApplicationResponse struct {
	UpdateApplication *types.ApplicationRef `json:"updateApplication"`
}

func (r *updateApplicationResponse) Validate() error {
	if r.UpdateApplication == nil {
		return types.NewValidationError("updateApplication returned nothing")
	}
	return r.UpdateApplication.Validate()
}

type nameExistsResponse struct {
	Exists *bool `json:"isExistApplicationName"`
}

func (r *nameExistsResponse) Validate() error {
	if r.Exists == nil {
		return types.NewValidationError("isExistApplicationName returned nothing")
	}
	return nil
}

// ApplicationClient provides methods for interacting with applications.
type ApplicationClient struct {
	client *Client
	logger log.Logger
}

// NewApplicationClient creates a new application client.
func NewApplicationClient(client *Client) *ApplicationClient {
	return &ApplicationClient{
		client: client,
		logger: client.logger.WithComponent("application-client"),
	}
}

// ListApplications returns every application.
func (a *ApplicationClient) ListApplications(ctx context.Context) ([]types.ApplicationSummary, error) {
	var resp applicationsResponse
	if err := a.client.query(ctx, "list applications", queryApplications, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Applications, nil
}

// GetApplication fetches the full configuration of one application.
func (a *ApplicationClient) GetApplication(ctx context.Context, id string, opts ...graphql.RequestOption) (*types.Application, error) {
	var resp applicationResponse
	vars := map[string]interface{}{"id": id}
	if err := a.client.query(ctx, "get application", queryApplication, vars, &resp, opts...); err != nil {
		return nil, err
	}
	return resp.Application, nil
}

// UpdateApplication submits a new configuration. The server redeploys the
// application asynchronously.
func (a *ApplicationClient) UpdateApplication(ctx context.Context, id string, input *types.ApplicationInput) (*types.ApplicationRef, error) {
	a.logger.Debug("Updating application", log.AppID(id))

	var resp updateApplicationResponse
	vars := map[string]interface{}{"id": id, "input": input}
	if err := a.client.mutate(ctx, "update application", mutationUpdateApplication, vars, &resp); err != nil {
		return nil, err
	}
	return resp.UpdateApplication, nil
}

// IsNameAvailable reports whether no application uses name.
func (a *ApplicationClient) IsNameAvailable(ctx context.Context, name string) (bool, error) {
	var resp nameExistsResponse
	vars := map[string]interface{}{"name": name}
	if err := a.client.query(ctx, "check application name", queryIsExistApplicationName, vars, &resp); err != nil {
		return false, err
	}
	return !*resp.Exists, nil
}

// RebuildApplication triggers a new build of the latest source.
func (a *ApplicationClient) RebuildApplication(ctx context.Context, id string) error {
	return a.lifecycle(ctx, "rebuild", id)
}

// RestartApplication restarts all replicas.
func (a *ApplicationClient) RestartApplication(ctx context.Context, id string) error {
	return a.lifecycle(ctx, "restart", id)
}

// SleepApplication scales the application to zero.
func (a *ApplicationClient) SleepApplication(ctx context.Context, id string) error {
	return a.lifecycle(ctx, "sleep", id)
}

// WakeApplication brings a sleeping application back.
func (a *ApplicationClient) WakeApplication(ctx context.Context, id string) error {
	return a.lifecycle(ctx, "wake", id)
}

// DeleteApplication deletes the application and its deployments.
func (a *ApplicationClient) DeleteApplication(ctx context.Context, id string) error {
	return a.lifecycle(ctx, "delete", id)
}

func (a *ApplicationClient) lifecycle(ctx context.Context, action, id string) error {
	field := lifecycleMutations[action]
	document := fmt.Sprintf("mutation ($id: String!) {\n  %s(id: $id)\n}", field)

	var resp map[string]*bool
	if err := a.client.mutate(ctx, action+" application", document, map[string]interface{}{"id": id}, &resp); err != nil {
		return err
	}
	if ok := resp[field]; ok == nil || !*ok {
		return fmt.Errorf("failed to %s application %s: server reported no change", action, id)
	}
	a.logger.Info("Application "+action+" requested", log.AppID(id))
	return nil
}
