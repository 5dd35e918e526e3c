package types

import (
	"time"
)

// DeploymentStatus is the lifecycle state of one deployment.
type DeploymentStatus string

const (
	DeploymentStatusPending       DeploymentStatus = "pending"
	DeploymentStatusDeployPending DeploymentStatus = "deployPending"
	DeploymentStatusDeploying     DeploymentStatus = "deploying"
	DeploymentStatusDeployed      DeploymentStatus = "deployed"
	DeploymentStatusStopped       DeploymentStatus = "stopped"
	DeploymentStatusFailed        DeploymentStatus = "failed"
	DeploymentStatusStalled       DeploymentStatus = "stalled"
)

// Terminal reports whether no further log lines are expected.
func (s DeploymentStatus) Terminal() bool {
	switch s {
	case DeploymentStatusDeployed, DeploymentStatusStopped, DeploymentStatusFailed, DeploymentStatusStalled:
		return true
	}
	return false
}

// Deployment is one build/deploy of an application.
type Deployment struct {
	ID                           string           `json:"id,omitempty"`
	Status                       DeploymentStatus `json:"status,omitempty"`
	UpstreamType                 UpstreamType     `json:"upstreamType"`
	Dockerfile                   string           `json:"dockerfile"`
	BuildArgs                    []BuildArg       `json:"buildArgs"`
	GitProvider                  string           `json:"gitProvider"`
	GitEndpoint                  string           `json:"gitEndpoint"`
	GitCredentialID              *uint            `json:"gitCredentialID"`
	RepositoryURL                string           `json:"repositoryUrl"`
	RepositoryName               string           `json:"repositoryName"`
	RepositoryOwner              string           `json:"repositoryOwner"`
	RepositoryBranch             string           `json:"repositoryBranch"`
	CodePath                     string           `json:"codePath"`
	ImageRegistryCredentialID    *uint            `json:"imageRegistryCredentialID"`
	DockerImage                  string           `json:"dockerImage"`
	SourceCodeCompressedFileName string           `json:"sourceCodeCompressedFileName"`
	CommitHash                   string           `json:"commitHash,omitempty"`
	CreatedAt                    time.Time        `json:"createdAt"`
}

// Validate checks a deployment listed on its own. Deployments embedded in an
// application snapshot carry no id and are not validated this way.
func (d *Deployment) Validate() error {
	if d.ID == "" {
		return NewFieldValidationError("deployment.id", "missing")
	}
	if d.Status == "" {
		return NewFieldValidationError("deployment.status", "missing")
	}
	return nil
}

// DeploymentLog is one chunk of build or deploy output.
type DeploymentLog struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
