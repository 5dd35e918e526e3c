package types

import (
	"fmt"
	"strings"
)

// DeploymentMode is how an application is scheduled across the cluster.
type DeploymentMode string

const (
	DeploymentModeReplicated DeploymentMode = "replicated"
	DeploymentModeGlobal     DeploymentMode = "global"
)

// UpstreamType is where an application's code or image comes from.
type UpstreamType string

const (
	UpstreamTypeGit        UpstreamType = "git"
	UpstreamTypeImage      UpstreamType = "image"
	UpstreamTypeSourceCode UpstreamType = "sourceCode"
)

// DockerProxyPermissionType is the access level granted on one docker API
// area through the application's docker proxy.
type DockerProxyPermissionType string

const (
	DockerProxyPermissionNone      DockerProxyPermissionType = "none"
	DockerProxyPermissionRead      DockerProxyPermissionType = "read"
	DockerProxyPermissionReadWrite DockerProxyPermissionType = "read_write"
)

// Valid reports whether p is a known permission level.
func (p DockerProxyPermissionType) Valid() bool {
	switch p {
	case DockerProxyPermissionNone, DockerProxyPermissionRead, DockerProxyPermissionReadWrite:
		return true
	}
	return false
}

// Application is the server-side application entity as fetched for editing.
type Application struct {
	ID                       string                    `json:"id"`
	Name                     string                    `json:"name"`
	DeploymentMode           DeploymentMode            `json:"deploymentMode"`
	Replicas                 uint                      `json:"replicas"`
	Command                  string                    `json:"command"`
	Hostname                 string                    `json:"hostname"`
	ResourceLimit            ResourceLimit             `json:"resourceLimit"`
	ReservedResource         ReservedResource          `json:"reservedResource"`
	EnvironmentVariables     []EnvironmentVariable     `json:"environmentVariables"`
	PersistentVolumeBindings []PersistentVolumeBinding `json:"persistentVolumeBindings"`
	ConfigMounts             []ConfigMount             `json:"configMounts"`
	LatestDeployment         Deployment                `json:"latestDeployment"`
	Capabilities             []string                  `json:"capabilities"`
	Sysctls                  []string                  `json:"sysctls"`
	ApplicationGroupID       *string                   `json:"applicationGroupID"`
	CustomHealthCheck        HealthCheck               `json:"customHealthCheck"`
	DockerProxyHost          string                    `json:"dockerProxyHost"`
	PreferredServerHostnames []string                  `json:"preferredServerHostnames"`
	DockerProxyConfig        DockerProxyConfig         `json:"dockerProxyConfig"`
	IsSleeping               bool                      `json:"isSleeping"`
	WebhookToken             string                    `json:"webhookToken,omitempty"`
}

// Validate checks the fields every consumer relies on and fills defaults the
// server may omit.
func (a *Application) Validate() error {
	if a.ID == "" {
		return NewFieldValidationError("application.id", "missing")
	}
	if a.Name == "" {
		return NewFieldValidationError("application.name", "missing")
	}
	switch a.DeploymentMode {
	case DeploymentModeReplicated, DeploymentModeGlobal:
	default:
		return NewFieldValidationError("application.deploymentMode", "unknown mode %q", a.DeploymentMode)
	}
	a.DockerProxyConfig.Permission = a.DockerProxyConfig.Permission.WithDefaults()
	return a.DockerProxyConfig.Permission.Validate()
}

// ApplicationSummary is the list view of an application.
type ApplicationSummary struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	DeploymentMode   DeploymentMode  `json:"deploymentMode"`
	Replicas         uint            `json:"replicas"`
	IsDeleted        bool            `json:"isDeleted"`
	IsSleeping       bool            `json:"isSleeping"`
	LatestDeployment DeploymentBrief `json:"latestDeployment"`
	RealtimeInfo     RealtimeInfo    `json:"realtimeInfo"`
}

// DeploymentBrief is the part of the latest deployment shown in lists.
type DeploymentBrief struct {
	Status        DeploymentStatus `json:"status"`
	UpstreamType  UpstreamType     `json:"upstreamType"`
	DockerImage   string           `json:"dockerImage"`
	RepositoryURL string           `json:"repositoryUrl"`
}

// RealtimeInfo is the live replica status reported by the cluster.
type RealtimeInfo struct {
	InfoFound       bool   `json:"InfoFound"`
	DesiredReplicas int    `json:"DesiredReplicas"`
	RunningReplicas int    `json:"RunningReplicas"`
	HealthStatus    string `json:"HealthStatus"`
}

// Validate checks an ApplicationSummary.
func (s *ApplicationSummary) Validate() error {
	if s.ID == "" || s.Name == "" {
		return NewFieldValidationError("application", "summary without id or name")
	}
	return nil
}

// ApplicationRef identifies an application returned from a mutation.
type ApplicationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks an ApplicationRef.
func (r *ApplicationRef) Validate() error {
	if r.ID == "" {
		return NewFieldValidationError("application.id", "missing")
	}
	return nil
}

// ResourceLimit caps the memory an application may use.
type ResourceLimit struct {
	MemoryMB uint64 `json:"memoryMb"`
}

// ReservedResource is memory set aside for an application.
type ReservedResource struct {
	MemoryMB uint64 `json:"memoryMb"`
}

// EnvironmentVariable is one key/value pair.
type EnvironmentVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BuildArg is one docker build argument.
type BuildArg struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PersistentVolumeBinding mounts a persistent volume into an application.
type PersistentVolumeBinding struct {
	ID                 uint   `json:"id,omitempty"`
	PersistentVolumeID uint   `json:"persistentVolumeID"`
	MountingPath       string `json:"mountingPath"`
}

// ConfigMount writes content to a file inside the application's containers.
type ConfigMount struct {
	Content      string `json:"content"`
	MountingPath string `json:"mountingPath"`
	UID          uint   `json:"uid"`
	GID          uint   `json:"gid"`
}

// HealthCheck is the custom container health check. Field names follow the
// server schema, which uses snake case here.
type HealthCheck struct {
	Enabled              bool   `json:"enabled"`
	TestCommand          string `json:"test_command"`
	IntervalSeconds      uint64 `json:"interval_seconds"`
	TimeoutSeconds       uint64 `json:"timeout_seconds"`
	StartPeriodSeconds   uint64 `json:"start_period_seconds"`
	StartIntervalSeconds uint64 `json:"start_interval_seconds"`
	Retries              uint64 `json:"retries"`
}

// DockerProxyConfig enables the per-application docker socket proxy.
type DockerProxyConfig struct {
	Enabled    bool                  `json:"enabled"`
	Permission DockerProxyPermission `json:"permission"`
}

// DockerProxyPermission is the permission matrix of the docker proxy.
type DockerProxyPermission struct {
	Ping         DockerProxyPermissionType `json:"ping"`
	Version      DockerProxyPermissionType `json:"version"`
	Info         DockerProxyPermissionType `json:"info"`
	Events       DockerProxyPermissionType `json:"events"`
	Auth         DockerProxyPermissionType `json:"auth"`
	Secrets      DockerProxyPermissionType `json:"secrets"`
	Build        DockerProxyPermissionType `json:"build"`
	Commit       DockerProxyPermissionType `json:"commit"`
	Configs      DockerProxyPermissionType `json:"configs"`
	Containers   DockerProxyPermissionType `json:"containers"`
	Distribution DockerProxyPermissionType `json:"distribution"`
	Exec         DockerProxyPermissionType `json:"exec"`
	Grpc         DockerProxyPermissionType `json:"grpc"`
	Images       DockerProxyPermissionType `json:"images"`
	Networks     DockerProxyPermissionType `json:"networks"`
	Nodes        DockerProxyPermissionType `json:"nodes"`
	Plugins      DockerProxyPermissionType `json:"plugins"`
	Services     DockerProxyPermissionType `json:"services"`
	Session      DockerProxyPermissionType `json:"session"`
	Swarm        DockerProxyPermissionType `json:"swarm"`
	System       DockerProxyPermissionType `json:"system"`
	Tasks        DockerProxyPermissionType `json:"tasks"`
	Volumes      DockerProxyPermissionType `json:"volumes"`
}

// DockerProxyPermissionAreas lists the matrix keys in schema order.
var DockerProxyPermissionAreas = []string{
	"ping", "version", "info", "events", "auth", "secrets", "build", "commit",
	"configs", "containers", "distribution", "exec", "grpc", "images",
	"networks", "nodes", "plugins", "services", "session", "swarm", "system",
	"tasks", "volumes",
}

func (p *DockerProxyPermission) slots() map[string]*DockerProxyPermissionType {
	return map[string]*DockerProxyPermissionType{
		"ping": &p.Ping, "version": &p.Version, "info": &p.Info, "events": &p.Events,
		"auth": &p.Auth, "secrets": &p.Secrets, "build": &p.Build, "commit": &p.Commit,
		"configs": &p.Configs, "containers": &p.Containers, "distribution": &p.Distribution,
		"exec": &p.Exec, "grpc": &p.Grpc, "images": &p.Images, "networks": &p.Networks,
		"nodes": &p.Nodes, "plugins": &p.Plugins, "services": &p.Services,
		"session": &p.Session, "swarm": &p.Swarm, "system": &p.System,
		"tasks": &p.Tasks, "volumes": &p.Volumes,
	}
}

// WithDefaults returns a copy where every unset area is "none".
func (p DockerProxyPermission) WithDefaults() DockerProxyPermission {
	for _, slot := range p.slots() {
		if *slot == "" {
			*slot = DockerProxyPermissionNone
		}
	}
	return p
}

// Get returns the permission for area.
func (p DockerProxyPermission) Get(area string) (DockerProxyPermissionType, error) {
	slot, ok := p.slots()[strings.ToLower(area)]
	if !ok {
		return "", NewFieldValidationError("dockerProxyConfig.permission", "unknown area %q", area)
	}
	return *slot, nil
}

// Set changes the permission for area.
func (p *DockerProxyPermission) Set(area string, value DockerProxyPermissionType) error {
	slot, ok := p.slots()[strings.ToLower(area)]
	if !ok {
		return NewFieldValidationError("dockerProxyConfig.permission", "unknown area %q", area)
	}
	if !value.Valid() {
		return NewFieldValidationError("dockerProxyConfig.permission."+area, "unknown permission %q", value)
	}
	*slot = value
	return nil
}

// Validate checks that every area holds a known value.
func (p DockerProxyPermission) Validate() error {
	for _, area := range DockerProxyPermissionAreas {
		v := *p.slots()[area]
		if !v.Valid() {
			return NewFieldValidationError("dockerProxyConfig.permission."+area, "unknown permission %q", v)
		}
	}
	return nil
}

// ApplicationInput is the payload of createApplication and updateApplication.
type ApplicationInput struct {
	Name                         string                         `json:"name"`
	UpstreamType                 UpstreamType                   `json:"upstreamType"`
	Command                      string                         `json:"command"`
	DeploymentMode               DeploymentMode                 `json:"deploymentMode"`
	Replicas                     uint                           `json:"replicas"`
	Hostname                     string                         `json:"hostname"`
	ResourceLimit                ResourceLimit                  `json:"resourceLimit"`
	ReservedResource             ReservedResource               `json:"reservedResource"`
	BuildArgs                    []BuildArg                     `json:"buildArgs"`
	EnvironmentVariables         []EnvironmentVariable          `json:"environmentVariables"`
	ConfigMounts                 []ConfigMount                  `json:"configMounts"`
	PersistentVolumeBindings     []PersistentVolumeBindingInput `json:"persistentVolumeBindings"`
	GitCredentialID              *uint                          `json:"gitCredentialID"`
	RepositoryURL                string                         `json:"repositoryUrl"`
	RepositoryBranch             string                         `json:"repositoryBranch"`
	CodePath                     string                         `json:"codePath"`
	ImageRegistryCredentialID    *uint                          `json:"imageRegistryCredentialID"`
	DockerImage                  string                         `json:"dockerImage"`
	SourceCodeCompressedFileName string                         `json:"sourceCodeCompressedFileName"`
	Dockerfile                   string                         `json:"dockerfile"`
	Capabilities                 []string                       `json:"capabilities"`
	Sysctls                      []string                       `json:"sysctls"`
	ApplicationGroupID           *string                        `json:"applicationGroupID"`
	CustomHealthCheck            HealthCheck                    `json:"customHealthCheck"`
	PreferredServerHostnames     []string                       `json:"preferredServerHostnames"`
	DockerProxyConfig            DockerProxyConfig              `json:"dockerProxyConfig"`
}

// PersistentVolumeBindingInput binds a volume by id in ApplicationInput.
type PersistentVolumeBindingInput struct {
	PersistentVolumeID uint   `json:"persistentVolumeID"`
	MountingPath       string `json:"mountingPath"`
}

// InputFromApplication builds the update payload that leaves a exactly as it
// is on the server.
func InputFromApplication(a *Application) *ApplicationInput {
	d := a.LatestDeployment

	in := &ApplicationInput{
		Name:                         a.Name,
		UpstreamType:                 d.UpstreamType,
		Command:                      a.Command,
		DeploymentMode:               a.DeploymentMode,
		Replicas:                     a.Replicas,
		Hostname:                     a.Hostname,
		ResourceLimit:                a.ResourceLimit,
		ReservedResource:             a.ReservedResource,
		BuildArgs:                    append([]BuildArg(nil), d.BuildArgs...),
		EnvironmentVariables:         append([]EnvironmentVariable(nil), a.EnvironmentVariables...),
		ConfigMounts:                 append([]ConfigMount(nil), a.ConfigMounts...),
		GitCredentialID:              normalizeID(d.GitCredentialID),
		RepositoryURL:                d.RepositoryURL,
		RepositoryBranch:             d.RepositoryBranch,
		CodePath:                     d.CodePath,
		ImageRegistryCredentialID:    normalizeID(d.ImageRegistryCredentialID),
		DockerImage:                  d.DockerImage,
		SourceCodeCompressedFileName: d.SourceCodeCompressedFileName,
		Dockerfile:                   d.Dockerfile,
		Capabilities:                 a.Capabilities,
		Sysctls:                      a.Sysctls,
		ApplicationGroupID:           a.ApplicationGroupID,
		CustomHealthCheck:            a.CustomHealthCheck,
		PreferredServerHostnames:     append([]string(nil), a.PreferredServerHostnames...),
		DockerProxyConfig:            a.DockerProxyConfig,
	}
	for _, b := range a.PersistentVolumeBindings {
		in.PersistentVolumeBindings = append(in.PersistentVolumeBindings, PersistentVolumeBindingInput{
			PersistentVolumeID: b.PersistentVolumeID,
			MountingPath:       b.MountingPath,
		})
	}
	return in
}

// normalizeID maps the "no selection" id 0 to nil.
func normalizeID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

// String renders the permission matrix compactly, skipping "none".
func (p DockerProxyPermission) String() string {
	var parts []string
	for _, area := range DockerProxyPermissionAreas {
		v := *p.slots()[area]
		if v != "" && v != DockerProxyPermissionNone {
			parts = append(parts, fmt.Sprintf("%s=%s", area, v))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
