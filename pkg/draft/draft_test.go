package draft

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/internal/testbackend"
	"github.com/swiftwave-org/swctl/pkg/api/client"
	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// fakeAPI serves the sample application with every accepted input applied.
type fakeAPI struct {
	mu        sync.Mutex
	inputs    []*types.ApplicationInput
	gets      int
	updateErr error
	getErr    error
}

func (f *fakeAPI) GetApplication(_ context.Context, id string, _ ...graphql.RequestOption) (*types.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	app := testbackend.SampleApplication(id, "web")
	for _, in := range f.inputs {
		testbackend.ApplyInput(app, in)
	}
	return app, nil
}

func (f *fakeAPI) UpdateApplication(_ context.Context, id string, in *types.ApplicationInput) (*types.ApplicationRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.inputs = append(f.inputs, in)
	return &types.ApplicationRef{ID: id}, nil
}

func (f *fakeAPI) updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func newLoadedEditor(t *testing.T, opts Options) (*Editor, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	if opts.Logger == nil {
		opts.Logger = log.NewTestLogger()
	}
	ed := NewEditor("app-1", api, opts)
	require.NoError(t, ed.Load(context.Background()))
	return ed, api
}

func TestUneditedDraftIsUnchanged(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	assert.False(t, ed.IsChanged())
	assert.Empty(t, ed.Changes())
	assert.Len(t, ed.EnvironmentVariables(), 2)
	assert.Len(t, ed.PersistentVolumeBindings(), 1)
	assert.Len(t, ed.ConfigMounts(), 1)
	assert.Equal(t, uint(2), ed.Deployment().Replicas)
	assert.Equal(t, "1.23", ed.Source().BuildArgs["GO_VERSION"])
}

func TestEnvironmentVariableEdits(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})
	port := ed.EnvironmentVariables()[0]
	require.Equal(t, "PORT", port.Value.Name)

	require.NoError(t, ed.SetEnvironmentVariable(port.Key, "PORT", "9090"))
	assert.True(t, ed.IsChanged())
	assert.Equal(t, []string{"environmentVariables"}, ed.Changes())

	require.NoError(t, ed.SetEnvironmentVariable(port.Key, "PORT", "8080"))
	assert.False(t, ed.IsChanged(), "restoring the value clears the change")

	key := ed.AddEnvironmentVariable("DEBUG", "1")
	assert.True(t, ed.IsChanged())
	require.NoError(t, ed.DeleteEnvironmentVariable(key))
	assert.False(t, ed.IsChanged())

	assert.ErrorIs(t, ed.DeleteEnvironmentVariable(key), ErrUnknownKey)
}

func TestEnvironmentVariableOrderIsIgnored(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})
	vars := ed.EnvironmentVariables()

	require.NoError(t, ed.DeleteEnvironmentVariable(vars[0].Key))
	ed.AddEnvironmentVariable(vars[0].Value.Name, vars[0].Value.Value)

	assert.Equal(t, "LOG_LEVEL", ed.EnvironmentVariables()[0].Value.Name)
	assert.False(t, ed.IsChanged())
}

func TestPreferredHostnames(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	ed.SetPreferredServerHostnames([]string{"node-b", "node-a"})
	assert.False(t, ed.IsChanged(), "order does not matter")

	ed.SetPreferredServerHostnames([]string{"node-b"})
	assert.Equal(t, []string{"preferredServerHostnames"}, ed.Changes())
}

func TestSetHostnameRejectsInvalid(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	err := ed.SetHostname("Web_1")
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "hostname", verr.Field)
	assert.False(t, ed.IsChanged())
}

func TestDeploymentSettings(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	ed.SetReplicas(3)
	require.NoError(t, ed.SetHostname("web-2"))
	ed.SetMemoryLimit(1024)
	ed.SetMemoryReserved(256)
	ed.SetHealthCheck(types.HealthCheck{Enabled: true, TestCommand: "curl -f localhost", Retries: 3})
	ed.SetDockerProxy(true)
	require.NoError(t, ed.SetDockerProxyPermission("images", types.DockerProxyPermissionRead))

	assert.Equal(t, []string{
		"replicas", "hostname", "resourceLimit", "reservedResource",
		"customHealthCheck", "dockerProxyConfig",
	}, ed.Changes())

	assert.Error(t, ed.SetDockerProxyPermission("kernel", types.DockerProxyPermissionRead))
	assert.Error(t, ed.SetDockerProxyPermission("images", "admin"))

	in, err := ed.Input()
	require.NoError(t, err)
	assert.Equal(t, uint(3), in.Replicas)
	assert.Equal(t, uint64(1024), in.ResourceLimit.MemoryMB)
	assert.Equal(t, types.DockerProxyPermissionRead, in.DockerProxyConfig.Permission.Images)
	assert.Equal(t, types.DockerProxyPermissionNone, in.DockerProxyConfig.Permission.Exec)
}

func TestChangeDeploymentStrategy(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	err := ed.ChangeDeploymentStrategy(types.DeploymentModeGlobal)
	assert.ErrorIs(t, err, ErrDeploymentModeImmutable)
	assert.Equal(t, MessageModeReadOnly, err.Error())
	assert.Equal(t, types.DeploymentModeReplicated, ed.Deployment().DeploymentMode)
	assert.False(t, ed.IsChanged())
}

func TestConfigMounts(t *testing.T) {
	ed, api := newLoadedEditor(t, Options{})

	_, err := ed.AddConfigMount(types.ConfigMount{MountingPath: "/etc/app.conf", Content: "other"})
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
	assert.Equal(t, MessageMountInUse, err.Error())
	assert.False(t, ed.IsChanged())
	assert.Equal(t, 0, api.updates())

	key, err := ed.AddConfigMount(types.ConfigMount{MountingPath: "/etc/extra.conf", Content: "x=1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"configMounts"}, ed.Changes())

	require.NoError(t, ed.SetConfigMountContent(key, "x=2"))
	m := ed.ConfigMounts()[1]
	assert.Equal(t, "x=2", m.Value.Content)

	require.NoError(t, ed.DeleteConfigMount(key))
	assert.False(t, ed.IsChanged())
}

func TestSourceCredentialIDs(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		changed bool
		want    *uint
		invalid bool
	}{
		{name: "zero means none", id: "0", changed: false},
		{name: "empty means none", id: "", changed: false},
		{name: "numeric", id: "5", changed: true, want: uintPtr(5)},
		{name: "padded", id: " 5 ", changed: true, want: uintPtr(5)},
		{name: "not a number", id: "abc", changed: true, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed, api := newLoadedEditor(t, Options{})
			src := ed.Source()
			src.GitCredentialID = tt.id
			ed.UpdateApplicationSource(src)

			assert.Equal(t, tt.changed, ed.IsChanged())

			in, err := ed.Input()
			if tt.invalid {
				assert.True(t, types.IsValidationError(err))
				_, err = ed.Apply(context.Background())
				assert.True(t, types.IsValidationError(err))
				assert.Equal(t, 0, api.updates())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, in.GitCredentialID)
			assert.Nil(t, in.ImageRegistryCredentialID)
		})
	}
}

func TestBuildArgs(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	ed.SetBuildArg("GO_VERSION", "1.23")
	assert.False(t, ed.IsChanged())

	ed.SetBuildArg("CGO_ENABLED", "0")
	assert.Equal(t, []string{"buildArgs"}, ed.Changes())

	in, err := ed.Input()
	require.NoError(t, err)
	assert.Equal(t, []types.BuildArg{
		{Key: "CGO_ENABLED", Value: "0"},
		{Key: "GO_VERSION", Value: "1.23"},
	}, in.BuildArgs)

	ed.DeleteBuildArg("CGO_ENABLED")
	assert.False(t, ed.IsChanged())

	src := ed.Source()
	src.BuildArgs["MUTATED"] = "1"
	assert.False(t, ed.IsChanged(), "Source returns a copy")
}

func TestPersistentVolumeBindingValidation(t *testing.T) {
	ed, api := newLoadedEditor(t, Options{})

	key := ed.AddPersistentVolumeBinding()
	assert.True(t, ed.IsChanged())

	_, err := ed.Apply(context.Background())
	assert.True(t, types.IsValidationError(err))
	assert.Equal(t, 0, api.updates())

	require.NoError(t, ed.SetPersistentVolumeBinding(key, 9, ""))
	_, err = ed.Apply(context.Background())
	assert.True(t, types.IsValidationError(err))

	require.NoError(t, ed.SetPersistentVolumeBinding(key, 9, "/cache"))
	_, err = ed.Apply(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, api.updates())
	assert.Len(t, ed.PersistentVolumeBindings(), 2)
}

func TestDuplicateEnvironmentVariableRejected(t *testing.T) {
	ed, api := newLoadedEditor(t, Options{})
	ed.AddEnvironmentVariable("PORT", "1")

	_, err := ed.Apply(context.Background())
	assert.True(t, types.IsValidationError(err))
	assert.Equal(t, 0, api.updates())

	ed.AddEnvironmentVariable("", "x")
	_, err = ed.Input()
	assert.True(t, types.IsValidationError(err))
}

func TestApply(t *testing.T) {
	var applied []string
	ed, api := newLoadedEditor(t, Options{OnApplied: func(id string) { applied = append(applied, id) }})

	ed.SetReplicas(4)
	ed.AddEnvironmentVariable("DEBUG", "1")
	require.True(t, ed.IsChanged())

	msg, err := ed.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MessageApplied, msg)
	assert.Equal(t, []string{"app-1"}, applied)

	require.Equal(t, 1, api.updates())
	in := api.inputs[0]
	assert.Equal(t, "web", in.Name)
	assert.Equal(t, types.UpstreamTypeGit, in.UpstreamType)
	assert.Equal(t, uint(4), in.Replicas)
	assert.Len(t, in.EnvironmentVariables, 3)
	assert.Nil(t, in.GitCredentialID, "credential id 0 is sent as none")
	assert.Equal(t, []types.PersistentVolumeBindingInput{{PersistentVolumeID: 7, MountingPath: "/data"}}, in.PersistentVolumeBindings)

	assert.False(t, ed.IsChanged(), "draft is reset from the reloaded application")
	assert.Equal(t, uint(4), ed.Snapshot().Replicas)
	assert.Equal(t, 2, api.gets)
}

func TestApplyRejected(t *testing.T) {
	var applied bool
	ed, api := newLoadedEditor(t, Options{OnApplied: func(string) { applied = true }})
	api.updateErr = graphql.Errors{{Message: "hostname already in use"}}

	ed.SetHostname("taken")
	msg, err := ed.Apply(context.Background())
	require.Error(t, err)
	assert.Empty(t, msg)
	assert.False(t, applied)

	var uerr *UpdateError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "hostname already in use", uerr.Message)
	assert.Equal(t, "Failed to update application\nhostname already in use", err.Error())

	assert.True(t, ed.IsChanged(), "draft is kept")
	assert.Equal(t, "taken", ed.Deployment().Hostname)
	assert.Equal(t, "web", ed.Snapshot().Hostname)
}

func TestApplyReloadFails(t *testing.T) {
	ed, api := newLoadedEditor(t, Options{})
	ed.SetReplicas(5)
	api.getErr = errors.New("connection reset")

	msg, err := ed.Apply(context.Background())
	assert.Equal(t, MessageApplied, msg)
	assert.Error(t, err)
	assert.Equal(t, 1, api.updates())
}

func TestApplyBeforeLoad(t *testing.T) {
	ed := NewEditor("app-1", &fakeAPI{}, Options{Logger: log.NewTestLogger()})

	_, err := ed.Apply(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = ed.Input()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.False(t, ed.IsChanged())
	assert.Nil(t, ed.Changes())
}

func TestCancel(t *testing.T) {
	ed, _ := newLoadedEditor(t, Options{})

	ed.SetReplicas(9)
	ed.AddEnvironmentVariable("X", "y")
	require.True(t, ed.IsChanged())

	ed.Cancel()
	assert.False(t, ed.IsChanged())
	assert.Equal(t, uint(2), ed.Deployment().Replicas)
	assert.Len(t, ed.EnvironmentVariables(), 2)
}

func TestEditorAgainstServer(t *testing.T) {
	backend := testbackend.New(t)
	bearer := func() string { return "Bearer " + backend.Token }
	link := graphql.AuthLink(bearer, graphql.NewHTTPLink(backend.URL, &http.Client{Timeout: 5 * time.Second}))

	gql, err := graphql.NewClient(graphql.ClientOptions{
		Link:     link,
		Defaults: graphql.DefaultOptions{Query: graphql.CacheFirst, Mutate: graphql.NoCache, WatchQuery: graphql.NoCache},
		CacheTTL: time.Minute,
		Logger:   log.NewTestLogger(),
	})
	require.NoError(t, err)
	c, err := client.NewClient(&client.ClientOptions{GraphQL: gql, CallTimeout: 5 * time.Second})
	require.NoError(t, err)

	ed := NewEditor("app-1", client.NewApplicationClient(c), Options{Logger: log.NewTestLogger()})
	require.NoError(t, ed.Load(context.Background()))
	assert.False(t, ed.IsChanged())

	ed.SetReplicas(3)
	_, err = ed.Apply(context.Background())
	require.NoError(t, err)
	assert.False(t, ed.IsChanged())
	assert.Equal(t, uint(3), ed.Snapshot().Replicas, "reload bypasses the cache")

	inputs := backend.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, uint(3), inputs[0].Replicas)

	backend.Lock()
	backend.UpdateError = "replicas exceed the server limit"
	backend.Unlock()

	ed.SetReplicas(100)
	_, err = ed.Apply(context.Background())
	var uerr *UpdateError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "replicas exceed the server limit", uerr.Message)
	assert.True(t, ed.IsChanged())
}

func uintPtr(v uint) *uint { return &v }
