package client

import (
	"context"

	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/types"
)

const (
	queryServers = `query Servers {
  servers {
    id ip hostname user ssh_port status swarmMode swarmNodeStatus
    scheduleDeployments maintenanceMode proxyEnabled proxyType dockerUnixSocketPath
  }
}`

	queryDomains = `query Domains {
  domains { id name sslStatus sslIssuer sslAutoRenew sslIssuedAt sslExpiredAt }
}`

	queryGitCredentials = `query GitCredentials {
  gitCredentials { id name type username }
}`

	queryImageRegistryCredentials = `query ImageRegistryCredentials {
  imageRegistryCredentials { id url username }
}`

	queryPersistentVolumes = `query PersistentVolumes {
  persistentVolumes { id name type persistentVolumeBindings { applicationID mountingPath } }
}`
)

type serversResponse struct {
	Servers []types.Server `json:"servers"`
}

func (r *serversResponse) Validate() error {
	for i := range r.Servers {
		if err := r.Servers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type domainsResponse struct {
	Domains []types.Domain `json:"domains"`
}

func (r *domainsResponse) Validate() error {
	for i := range r.Domains {
		if err := r.Domains[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type gitCredentialsResponse struct {
	GitCredentials []types.GitCredential `json:"gitCredentials"`
}

func (r *gitCredentialsResponse) Validate() error {
	for i := range r.GitCredentials {
		if err := r.GitCredentials[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type imageRegistryCredentialsResponse struct {
	ImageRegistryCredentials []types.ImageRegistryCredential `json:"imageRegistryCredentials"`
}

func (r *imageRegistryCredentialsResponse) Validate() error {
	for i := range r.ImageRegistryCredentials {
		if err := r.ImageRegistryCredentials[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type persistentVolumesResponse struct {
	PersistentVolumes []types.PersistentVolume `json:"persistentVolumes"`
}

func (r *persistentVolumesResponse) Validate() error {
	for i := range r.PersistentVolumes {
		if err := r.PersistentVolumes[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InfraClient lists cluster-level resources: servers, domains, credentials
// and persistent volumes.
type InfraClient struct {
	client *Client
	logger log.Logger
}

// NewInfraClient creates a new infrastructure client.
func NewInfraClient(client *Client) *InfraClient {
	return &InfraClient{
		client: client,
		logger: client.logger.WithComponent("infra-client"),
	}
}

// ListServers returns the servers of the cluster.
func (c *InfraClient) ListServers(ctx context.Context) ([]types.Server, error) {
	var resp serversResponse
	if err := c.client.query(ctx, "list servers", queryServers, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Servers, nil
}

// ListDomains returns the configured domains.
func (c *InfraClient) ListDomains(ctx context.Context) ([]types.Domain, error) {
	var resp domainsResponse
	if err := c.client.query(ctx, "list domains", queryDomains, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Domains, nil
}

// ListGitCredentials returns the git credentials. Secrets are never
// returned by the server.
func (c *InfraClient) ListGitCredentials(ctx context.Context) ([]types.GitCredential, error) {
	var resp gitCredentialsResponse
	if err := c.client.query(ctx, "list git credentials", queryGitCredentials, nil, &resp); err != nil {
		return nil, err
	}
	return resp.GitCredentials, nil
}

// ListImageRegistryCredentials returns the image registry credentials.
func (c *InfraClient) ListImageRegistryCredentials(ctx context.Context) ([]types.ImageRegistryCredential, error) {
	var resp imageRegistryCredentialsResponse
	if err := c.client.query(ctx, "list image registry credentials", queryImageRegistryCredentials, nil, &resp); err != nil {
		return nil, err
	}
	return resp.ImageRegistryCredentials, nil
}

// ListPersistentVolumes returns the persistent volumes and their bindings.
func (c *InfraClient) ListPersistentVolumes(ctx context.Context) ([]types.PersistentVolume, error) {
	var resp persistentVolumesResponse
	if err := c.client.query(ctx, "list persistent volumes", queryPersistentVolumes, nil, &resp); err != nil {
		return nil, err
	}
	return resp.PersistentVolumes, nil
}
