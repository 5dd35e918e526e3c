package draft

import (
	"sort"
	"strconv"
	"strings"

	"github.com/swiftwave-org/swctl/pkg/diff"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// UnselectedVolume is the volume id of a binding added but not yet pointed
// at a volume.
const UnselectedVolume int64 = -1

// EnvironmentVariable is an editable environment variable.
type EnvironmentVariable struct {
	Name  string
	Value string
}

// PersistentVolumeBinding is an editable volume binding. PersistentVolumeID
// is UnselectedVolume until a volume is chosen.
type PersistentVolumeBinding struct {
	PersistentVolumeID int64
	MountingPath       string
}

// Deployment holds the deployment settings of the draft.
type Deployment struct {
	DeploymentMode           types.DeploymentMode
	Replicas                 uint
	Hostname                 string
	MemoryLimitMB            uint64
	MemoryReservedMB         uint64
	HealthCheck              types.HealthCheck
	PreferredServerHostnames []string
	DockerProxy              types.DockerProxyConfig
}

// Source holds where the application is built or pulled from. Credential
// ids are kept as entered; "" and "0" mean none.
type Source struct {
	Command                      string
	GitCredentialID              string
	RepositoryURL                string
	RepositoryBranch             string
	CodePath                     string
	ImageRegistryCredentialID    string
	DockerImage                  string
	SourceCodeCompressedFileName string
	Dockerfile                   string
	BuildArgs                    map[string]string
}

// Draft is the editable mirror of an application.
type Draft struct {
	Env        *KeyedList[EnvironmentVariable]
	Volumes    *KeyedList[PersistentVolumeBinding]
	Mounts     *KeyedList[types.ConfigMount]
	Deployment Deployment
	Source     Source
}

func emptyDraft() *Draft {
	return &Draft{
		Env:     NewKeyedList[EnvironmentVariable](),
		Volumes: NewKeyedList[PersistentVolumeBinding](),
		Mounts:  NewKeyedList[types.ConfigMount](),
		Source:  Source{BuildArgs: map[string]string{}},
	}
}

// fromApplication builds a draft equal to the snapshot.
func fromApplication(a *types.Application) *Draft {
	d := emptyDraft()

	for _, ev := range a.EnvironmentVariables {
		d.Env.Add(EnvironmentVariable{Name: ev.Key, Value: ev.Value})
	}
	for _, b := range a.PersistentVolumeBindings {
		d.Volumes.Add(PersistentVolumeBinding{PersistentVolumeID: int64(b.PersistentVolumeID), MountingPath: b.MountingPath})
	}
	for _, m := range a.ConfigMounts {
		d.Mounts.Add(m)
	}

	d.Deployment = Deployment{
		DeploymentMode:           a.DeploymentMode,
		Replicas:                 a.Replicas,
		Hostname:                 a.Hostname,
		MemoryLimitMB:            a.ResourceLimit.MemoryMB,
		MemoryReservedMB:         a.ReservedResource.MemoryMB,
		HealthCheck:              a.CustomHealthCheck,
		PreferredServerHostnames: append([]string(nil), a.PreferredServerHostnames...),
		DockerProxy:              a.DockerProxyConfig,
	}
	d.Deployment.DockerProxy.Permission = d.Deployment.DockerProxy.Permission.WithDefaults()

	dep := a.LatestDeployment
	d.Source = Source{
		Command:                      a.Command,
		GitCredentialID:              formatID(dep.GitCredentialID),
		RepositoryURL:                dep.RepositoryURL,
		RepositoryBranch:             dep.RepositoryBranch,
		CodePath:                     dep.CodePath,
		ImageRegistryCredentialID:    formatID(dep.ImageRegistryCredentialID),
		DockerImage:                  dep.DockerImage,
		SourceCodeCompressedFileName: dep.SourceCodeCompressedFileName,
		Dockerfile:                   dep.Dockerfile,
		BuildArgs:                    make(map[string]string, len(dep.BuildArgs)),
	}
	for _, arg := range dep.BuildArgs {
		d.Source.BuildArgs[arg.Key] = arg.Value
	}
	return d
}

func formatID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

// parseID coerces a credential id: "" and "0" are none, anything else must
// be a non-negative integer.
func parseID(field, s string) (*uint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return nil, types.NewFieldValidationError(field, "%q is not a valid id", s)
	}
	if n == 0 {
		return nil, nil
	}
	v := uint(n)
	return &v, nil
}

// idKey is the comparison form of a credential id. Ids that do not parse
// never compare equal to one that does.
func idKey(s string) string {
	id, err := parseID("", s)
	switch {
	case err != nil:
		return "invalid:" + s
	case id == nil:
		return ""
	default:
		return strconv.FormatUint(uint64(*id), 10)
	}
}

// schema lists every field whose change marks the draft as modified.
var schema = diff.Schema[*Draft]{
	diff.Scalar("deploymentMode", func(d *Draft) types.DeploymentMode { return d.Deployment.DeploymentMode }),
	diff.Scalar("replicas", func(d *Draft) uint { return d.Deployment.Replicas }),
	diff.Scalar("hostname", func(d *Draft) string { return d.Deployment.Hostname }),
	diff.Scalar("resourceLimit", func(d *Draft) uint64 { return d.Deployment.MemoryLimitMB }),
	diff.Scalar("reservedResource", func(d *Draft) uint64 { return d.Deployment.MemoryReservedMB }),
	diff.Scalar("customHealthCheck", func(d *Draft) types.HealthCheck { return d.Deployment.HealthCheck }),
	diff.Set("preferredServerHostnames", func(d *Draft) []string { return d.Deployment.PreferredServerHostnames }),
	diff.Scalar("dockerProxyConfig", func(d *Draft) types.DockerProxyConfig { return d.Deployment.DockerProxy }),
	diff.Keyed("environmentVariables",
		func(d *Draft) []EnvironmentVariable { return d.Env.Values() },
		func(e EnvironmentVariable) string { return e.Name }),
	diff.Keyed("configMounts",
		func(d *Draft) []types.ConfigMount { return d.Mounts.Values() },
		func(m types.ConfigMount) string { return m.MountingPath }),
	diff.Keyed("persistentVolumeBindings",
		func(d *Draft) []PersistentVolumeBinding { return d.Volumes.Values() },
		func(b PersistentVolumeBinding) int64 { return b.PersistentVolumeID }),
	diff.Scalar("command", func(d *Draft) string { return d.Source.Command }),
	diff.Scalar("gitCredentialID", func(d *Draft) string { return idKey(d.Source.GitCredentialID) }),
	diff.Scalar("repositoryUrl", func(d *Draft) string { return d.Source.RepositoryURL }),
	diff.Scalar("repositoryBranch", func(d *Draft) string { return d.Source.RepositoryBranch }),
	diff.Scalar("codePath", func(d *Draft) string { return d.Source.CodePath }),
	diff.Scalar("imageRegistryCredentialID", func(d *Draft) string { return idKey(d.Source.ImageRegistryCredentialID) }),
	diff.Scalar("dockerImage", func(d *Draft) string { return d.Source.DockerImage }),
	diff.Scalar("sourceCodeCompressedFileName", func(d *Draft) string { return d.Source.SourceCodeCompressedFileName }),
	diff.Scalar("dockerfile", func(d *Draft) string { return d.Source.Dockerfile }),
	diff.Map("buildArgs", func(d *Draft) map[string]string { return d.Source.BuildArgs }),
}

// validate checks what the server would reject or misread.
func (d *Draft) validate() error {
	seen := make(map[string]bool, d.Env.Len())
	for _, ev := range d.Env.Values() {
		if ev.Name == "" {
			return types.NewFieldValidationError("environmentVariables", "variable without a name")
		}
		if seen[ev.Name] {
			return types.NewFieldValidationError("environmentVariables", "duplicate variable %q", ev.Name)
		}
		seen[ev.Name] = true
	}

	for _, b := range d.Volumes.Values() {
		if b.PersistentVolumeID <= 0 {
			return types.NewFieldValidationError("persistentVolumeBindings", "no persistent volume selected for %q", b.MountingPath)
		}
		if b.MountingPath == "" {
			return types.NewFieldValidationError("persistentVolumeBindings", "mounting path is required")
		}
	}
	return nil
}

// toInput builds the update payload. Fields the draft does not edit are
// taken from the snapshot.
func (d *Draft) toInput(snapshot *types.Application) (*types.ApplicationInput, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	gitCred, err := parseID("gitCredentialID", d.Source.GitCredentialID)
	if err != nil {
		return nil, err
	}
	registryCred, err := parseID("imageRegistryCredentialID", d.Source.ImageRegistryCredentialID)
	if err != nil {
		return nil, err
	}

	in := &types.ApplicationInput{
		Name:                         snapshot.Name,
		UpstreamType:                 snapshot.LatestDeployment.UpstreamType,
		Command:                      d.Source.Command,
		DeploymentMode:               d.Deployment.DeploymentMode,
		Replicas:                     d.Deployment.Replicas,
		Hostname:                     d.Deployment.Hostname,
		ResourceLimit:                types.ResourceLimit{MemoryMB: d.Deployment.MemoryLimitMB},
		ReservedResource:             types.ReservedResource{MemoryMB: d.Deployment.MemoryReservedMB},
		EnvironmentVariables:         []types.EnvironmentVariable{},
		ConfigMounts:                 d.Mounts.Values(),
		PersistentVolumeBindings:     []types.PersistentVolumeBindingInput{},
		BuildArgs:                    []types.BuildArg{},
		GitCredentialID:              gitCred,
		RepositoryURL:                d.Source.RepositoryURL,
		RepositoryBranch:             d.Source.RepositoryBranch,
		CodePath:                     d.Source.CodePath,
		ImageRegistryCredentialID:    registryCred,
		DockerImage:                  d.Source.DockerImage,
		SourceCodeCompressedFileName: d.Source.SourceCodeCompressedFileName,
		Dockerfile:                   d.Source.Dockerfile,
		Capabilities:                 snapshot.Capabilities,
		Sysctls:                      snapshot.Sysctls,
		ApplicationGroupID:           snapshot.ApplicationGroupID,
		CustomHealthCheck:            d.Deployment.HealthCheck,
		PreferredServerHostnames:     append([]string{}, d.Deployment.PreferredServerHostnames...),
		DockerProxyConfig:            d.Deployment.DockerProxy,
	}

	for _, ev := range d.Env.Values() {
		in.EnvironmentVariables = append(in.EnvironmentVariables, types.EnvironmentVariable{Key: ev.Name, Value: ev.Value})
	}
	for _, b := range d.Volumes.Values() {
		in.PersistentVolumeBindings = append(in.PersistentVolumeBindings, types.PersistentVolumeBindingInput{
			PersistentVolumeID: uint(b.PersistentVolumeID),
			MountingPath:       b.MountingPath,
		})
	}

	keys := make([]string, 0, len(d.Source.BuildArgs))
	for k := range d.Source.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		in.BuildArgs = append(in.BuildArgs, types.BuildArg{Key: k, Value: d.Source.BuildArgs[k]})
	}
	return in, nil
}
