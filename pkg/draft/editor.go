// Package draft keeps an editable copy of an application's configuration,
// tracks whether it differs from the server and submits it as one update.
package draft

import (
	"context"
	"fmt"
	"sync"

	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/log"
	"github.com/swiftwave-org/swctl/pkg/types"
	"github.com/swiftwave-org/swctl/pkg/utils"
)

// ApplicationAPI reads and updates one application.
type ApplicationAPI interface {
	GetApplication(ctx context.Context, id string, opts ...graphql.RequestOption) (*types.Application, error)
	UpdateApplication(ctx context.Context, id string, input *types.ApplicationInput) (*types.ApplicationRef, error)
}

// Options configures an Editor.
type Options struct {
	// OnApplied is called with the application id after a successful Apply.
	OnApplied func(applicationID string)

	Logger log.Logger
}

// Editor owns the draft of one application.
type Editor struct {
	appID  string
	api    ApplicationAPI
	opts   Options
	logger log.Logger

	mu       sync.Mutex
	snapshot *types.Application
	draft    *Draft
	changed  bool
}

// NewEditor creates an editor for the application. Call Load before
// editing.
func NewEditor(appID string, api ApplicationAPI, opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Editor{
		appID:  appID,
		api:    api,
		opts:   opts,
		logger: logger.WithComponent("draft").With(log.AppID(appID)),
		draft:  emptyDraft(),
	}
}

// ApplicationID returns the id of the edited application.
func (e *Editor) ApplicationID() string {
	return e.appID
}

// Load fetches the application and resets the draft to it.
func (e *Editor) Load(ctx context.Context) error {
	app, err := e.api.GetApplication(ctx, e.appID, graphql.WithFreshResult())
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset(app)
	return nil
}

func (e *Editor) reset(app *types.Application) {
	e.snapshot = app
	e.draft = fromApplication(app)
	e.changed = false
}

// edit runs fn on the draft and recomputes the change flag.
func (e *Editor) edit(fn func(d *Draft) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.draft); err != nil {
		return err
	}
	e.recompute()
	return nil
}

func (e *Editor) recompute() {
	if e.snapshot == nil {
		e.changed = false
		return
	}
	e.changed = schema.Changed(fromApplication(e.snapshot), e.draft)
}

// Snapshot returns the application as last loaded, or nil.
func (e *Editor) Snapshot() *types.Application {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// IsChanged reports whether the draft differs from the snapshot.
func (e *Editor) IsChanged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed
}

// Changes names the fields that differ from the snapshot.
func (e *Editor) Changes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return nil
	}
	return schema.Diff(fromApplication(e.snapshot), e.draft)
}

// Input returns the payload Apply would send.
func (e *Editor) Input() (*types.ApplicationInput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return nil, ErrNotLoaded
	}
	return e.draft.toInput(e.snapshot)
}

// EnvironmentVariables returns the draft variables with their keys.
func (e *Editor) EnvironmentVariables() []Entry[EnvironmentVariable] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Env.Entries()
}

// PersistentVolumeBindings returns the draft bindings with their keys.
func (e *Editor) PersistentVolumeBindings() []Entry[PersistentVolumeBinding] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Volumes.Entries()
}

// ConfigMounts returns the draft config mounts with their keys.
func (e *Editor) ConfigMounts() []Entry[types.ConfigMount] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Mounts.Entries()
}

// Deployment returns a copy of the draft deployment settings.
func (e *Editor) Deployment() Deployment {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.draft.Deployment
	d.PreferredServerHostnames = append([]string(nil), d.PreferredServerHostnames...)
	return d
}

// Source returns a copy of the draft source settings.
func (e *Editor) Source() Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySource(e.draft.Source)
}

func copySource(s Source) Source {
	args := make(map[string]string, len(s.BuildArgs))
	for k, v := range s.BuildArgs {
		args[k] = v
	}
	s.BuildArgs = args
	return s
}

// AddEnvironmentVariable appends a variable and returns its key.
func (e *Editor) AddEnvironmentVariable(name, value string) string {
	var key string
	_ = e.edit(func(d *Draft) error {
		key = d.Env.Add(EnvironmentVariable{Name: name, Value: value})
		return nil
	})
	return key
}

// SetEnvironmentVariable renames and revalues the variable under key.
func (e *Editor) SetEnvironmentVariable(key, name, value string) error {
	return e.edit(func(d *Draft) error {
		return d.Env.Update(key, func(ev *EnvironmentVariable) {
			ev.Name = name
			ev.Value = value
		})
	})
}

// DeleteEnvironmentVariable removes the variable under key.
func (e *Editor) DeleteEnvironmentVariable(key string) error {
	return e.edit(func(d *Draft) error {
		return d.Env.Remove(key)
	})
}

// AddPersistentVolumeBinding appends a binding with no volume selected and
// returns its key.
func (e *Editor) AddPersistentVolumeBinding() string {
	var key string
	_ = e.edit(func(d *Draft) error {
		key = d.Volumes.Add(PersistentVolumeBinding{PersistentVolumeID: UnselectedVolume})
		return nil
	})
	return key
}

// SetPersistentVolumeBinding points the binding under key at a volume and
// mounting path.
func (e *Editor) SetPersistentVolumeBinding(key string, volumeID int64, mountingPath string) error {
	return e.edit(func(d *Draft) error {
		return d.Volumes.Update(key, func(b *PersistentVolumeBinding) {
			b.PersistentVolumeID = volumeID
			b.MountingPath = mountingPath
		})
	})
}

// DeletePersistentVolumeBinding removes the binding under key.
func (e *Editor) DeletePersistentVolumeBinding(key string) error {
	return e.edit(func(d *Draft) error {
		return d.Volumes.Remove(key)
	})
}

// AddConfigMount appends a config mount and returns its key. A mounting
// path already in the draft is rejected.
func (e *Editor) AddConfigMount(mount types.ConfigMount) (string, error) {
	var key string
	err := e.edit(func(d *Draft) error {
		if _, dup := d.Mounts.Find(func(m types.ConfigMount) bool { return m.MountingPath == mount.MountingPath }); dup {
			return types.NewValidationError(MessageMountInUse)
		}
		key = d.Mounts.Add(mount)
		return nil
	})
	return key, err
}

// SetConfigMountContent replaces the content of the mount under key.
func (e *Editor) SetConfigMountContent(key, content string) error {
	return e.edit(func(d *Draft) error {
		return d.Mounts.Update(key, func(m *types.ConfigMount) {
			m.Content = content
		})
	})
}

// DeleteConfigMount removes the mount under key.
func (e *Editor) DeleteConfigMount(key string) error {
	return e.edit(func(d *Draft) error {
		return d.Mounts.Remove(key)
	})
}

// SetReplicas sets the replica count.
func (e *Editor) SetReplicas(n uint) {
	_ = e.edit(func(d *Draft) error {
		d.Deployment.Replicas = n
		return nil
	})
}

// SetHostname sets the container hostname. An invalid hostname leaves the
// draft unchanged.
func (e *Editor) SetHostname(hostname string) error {
	if err := utils.ValidateHostname(hostname); err != nil {
		return err
	}
	return e.edit(func(d *Draft) error {
		d.Deployment.Hostname = hostname
		return nil
	})
}

// SetMemoryLimit sets the memory limit in MB.
func (e *Editor) SetMemoryLimit(mb uint64) {
	_ = e.edit(func(d *Draft) error {
		d.Deployment.MemoryLimitMB = mb
		return nil
	})
}

// SetMemoryReserved sets the reserved memory in MB.
func (e *Editor) SetMemoryReserved(mb uint64) {
	_ = e.edit(func(d *Draft) error {
		d.Deployment.MemoryReservedMB = mb
		return nil
	})
}

// SetHealthCheck replaces the custom health check.
func (e *Editor) SetHealthCheck(hc types.HealthCheck) {
	_ = e.edit(func(d *Draft) error {
		d.Deployment.HealthCheck = hc
		return nil
	})
}

// SetPreferredServerHostnames replaces the preferred servers.
func (e *Editor) SetPreferredServerHostnames(hostnames []string) {
	_ = e.edit(func(d *Draft) error {
		d.Deployment.PreferredServerHostnames = append([]string(nil), hostnames...)
		return nil
	})
}

// SetDockerProxy enables or disables the docker proxy.
func (e *Editor) SetDockerProxy(enabled bool) {
	_ = e.edit(func(d *Draft) error {
		d.Deployment.DockerProxy.Enabled = enabled
		return nil
	})
}

// SetDockerProxyPermission sets the permission of one docker API area.
func (e *Editor) SetDockerProxyPermission(area string, permission types.DockerProxyPermissionType) error {
	return e.edit(func(d *Draft) error {
		return d.Deployment.DockerProxy.Permission.Set(area, permission)
	})
}

// UpdateApplicationSource replaces the source settings, build args
// included.
func (e *Editor) UpdateApplicationSource(src Source) {
	_ = e.edit(func(d *Draft) error {
		d.Source = copySource(src)
		return nil
	})
}

// SetBuildArg sets one build argument.
func (e *Editor) SetBuildArg(key, value string) {
	_ = e.edit(func(d *Draft) error {
		d.Source.BuildArgs[key] = value
		return nil
	})
}

// DeleteBuildArg removes one build argument.
func (e *Editor) DeleteBuildArg(key string) {
	_ = e.edit(func(d *Draft) error {
		delete(d.Source.BuildArgs, key)
		return nil
	})
}

// ChangeDeploymentStrategy always fails: the deployment mode of an
// existing application cannot change.
func (e *Editor) ChangeDeploymentStrategy(types.DeploymentMode) error {
	return ErrDeploymentModeImmutable
}

// Cancel discards every edit.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot != nil {
		e.reset(e.snapshot)
	}
}

// Apply validates the draft and submits it as one update. On success the
// application is re-fetched, the draft reset and MessageApplied returned.
// A rejected update returns an *UpdateError and leaves the draft as it was.
func (e *Editor) Apply(ctx context.Context) (string, error) {
	msg, err := e.apply(ctx)
	if err == nil && e.opts.OnApplied != nil {
		e.opts.OnApplied(e.appID)
	}
	return msg, err
}

func (e *Editor) apply(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return "", ErrNotLoaded
	}
	input, err := e.draft.toInput(e.snapshot)
	if err != nil {
		return "", err
	}

	e.logger.Debug("Submitting application update", log.Strs("changes", schema.Diff(fromApplication(e.snapshot), e.draft)))

	if _, err := e.api.UpdateApplication(ctx, e.appID, input); err != nil {
		e.logger.Warn("Application update rejected", log.Err(err))
		return "", &UpdateError{Message: graphql.ErrorMessage(err), Err: err}
	}
	e.logger.Info("Application updated")

	app, err := e.api.GetApplication(ctx, e.appID, graphql.WithFreshResult())
	if err != nil {
		return MessageApplied, fmt.Errorf("failed to reload application after update: %w", err)
	}
	e.reset(app)
	return MessageApplied, nil
}
