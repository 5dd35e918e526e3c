package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/swiftwave-org/swctl/pkg/cli/format"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// ResourceTable renders lists of dashboard resources with pterm.
type ResourceTable struct {
	Headers  []string
	MaxWidth int

	out           io.Writer
	tableRenderer *pterm.TablePrinter
}

// NewResourceTable creates a table that writes to out
func NewResourceTable(out io.Writer) *ResourceTable {
	table := pterm.DefaultTable.WithHasHeader(true)

	headerStyle := pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	table = table.WithHeaderStyle(headerStyle)

	return &ResourceTable{
		out:           out,
		tableRenderer: table,
		MaxWidth:      60,
	}
}

// render writes the header and rows. empty is printed instead when there
// are no rows.
func (t *ResourceTable) render(rows [][]string, empty string) error {
	if len(rows) == 0 {
		fmt.Fprintln(t.out, empty)
		return nil
	}
	data := append([][]string{t.Headers}, rows...)
	s, err := t.tableRenderer.WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(t.out, s)
	return nil
}

// RenderApplications renders a table of applications
func (t *ResourceTable) RenderApplications(apps []types.ApplicationSummary) error {
	t.Headers = []string{"ID", "NAME", "MODE", "REPLICAS", "STATUS", "SOURCE", "STATE"}

	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		replicas := strconv.FormatUint(uint64(a.Replicas), 10)
		if a.RealtimeInfo.InfoFound {
			replicas = fmt.Sprintf("%d/%d", a.RealtimeInfo.RunningReplicas, a.RealtimeInfo.DesiredReplicas)
		}
		state := format.PTermStatusLabel("running")
		if a.IsSleeping {
			state = format.PTermStatusLabel("sleeping")
		}
		rows = append(rows, []string{
			a.ID,
			a.Name,
			string(a.DeploymentMode),
			replicas,
			format.PTermStatusLabel(string(a.LatestDeployment.Status)),
			truncate(summarySource(a.LatestDeployment), t.MaxWidth),
			state,
		})
	}
	return t.render(rows, "No applications found")
}

func summarySource(d types.DeploymentBrief) string {
	switch d.UpstreamType {
	case types.UpstreamTypeImage:
		return d.DockerImage
	case types.UpstreamTypeGit:
		return types.CleanGitRepoURL(d.RepositoryURL)
	default:
		return format.CamelCaseToLabel(string(d.UpstreamType))
	}
}

// RenderDeployments renders a table of deployments
func (t *ResourceTable) RenderDeployments(deployments []types.Deployment) error {
	t.Headers = []string{"ID", "STATUS", "SOURCE", "COMMIT", "CREATED"}

	rows := make([][]string, 0, len(deployments))
	for _, d := range deployments {
		commit := d.CommitHash
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if commit == "" {
			commit = "-"
		}
		rows = append(rows, []string{
			d.ID,
			format.PTermStatusLabel(string(d.Status)),
			truncate(deploymentSource(d), t.MaxWidth),
			commit,
			format.Age(d.CreatedAt),
		})
	}
	return t.render(rows, "No deployments found")
}

func deploymentSource(d types.Deployment) string {
	switch d.UpstreamType {
	case types.UpstreamTypeImage:
		return d.DockerImage
	case types.UpstreamTypeGit:
		src := types.CleanGitRepoURL(d.RepositoryURL)
		if d.RepositoryBranch != "" {
			src += "@" + d.RepositoryBranch
		}
		return src
	default:
		if d.SourceCodeCompressedFileName != "" {
			return d.SourceCodeCompressedFileName
		}
		return format.CamelCaseToLabel(string(d.UpstreamType))
	}
}

// RenderServers renders a table of servers
func (t *ResourceTable) RenderServers(servers []types.Server) error {
	t.Headers = []string{"ID", "HOSTNAME", "IP", "STATUS", "SWARM", "DEPLOYMENTS", "PROXY"}

	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		swarm := s.SwarmMode
		if s.SwarmNodeStatus != "" {
			swarm = fmt.Sprintf("%s (%s)", s.SwarmMode, s.SwarmNodeStatus)
		}
		deployments := "enabled"
		if !s.ScheduleDeployments {
			deployments = "disabled"
		}
		if s.MaintenanceMode {
			deployments = "maintenance"
		}
		proxy := "-"
		if s.ProxyEnabled {
			proxy = s.ProxyType
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.Hostname,
			s.IP,
			format.PTermStatusLabel(string(s.Status)),
			swarm,
			deployments,
			proxy,
		})
	}
	return t.render(rows, "No servers found")
}

// RenderDomains renders a table of domains
func (t *ResourceTable) RenderDomains(domains []types.Domain) error {
	t.Headers = []string{"ID", "NAME", "SSL", "ISSUER", "EXPIRES"}

	rows := make([][]string, 0, len(domains))
	for _, d := range domains {
		expires := "-"
		if d.SSLStatus == types.SSLStatusIssued {
			expires = format.Timestamp(d.SSLExpiredAt)
		}
		issuer := d.SSLIssuer
		if issuer == "" {
			issuer = "-"
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(d.ID), 10),
			d.Name,
			format.PTermStatusLabel(string(d.SSLStatus)),
			issuer,
			expires,
		})
	}
	return t.render(rows, "No domains found")
}

// RenderVolumes renders a table of persistent volumes
func (t *ResourceTable) RenderVolumes(volumes []types.PersistentVolume) error {
	t.Headers = []string{"ID", "NAME", "TYPE", "BINDINGS"}

	rows := make([][]string, 0, len(volumes))
	for _, v := range volumes {
		paths := make([]string, 0, len(v.Bindings))
		for _, b := range v.Bindings {
			paths = append(paths, b.MountingPath)
		}
		bindings := "-"
		if len(paths) > 0 {
			bindings = truncate(strings.Join(paths, ", "), t.MaxWidth)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(v.ID), 10),
			v.Name,
			string(v.Type),
			bindings,
		})
	}
	return t.render(rows, "No persistent volumes found")
}

// RenderGitCredentials renders a table of git credentials
func (t *ResourceTable) RenderGitCredentials(creds []types.GitCredential) error {
	t.Headers = []string{"ID", "NAME", "TYPE", "USERNAME"}

	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		rows = append(rows, []string{strconv.FormatUint(uint64(c.ID), 10), c.Name, c.Type, c.Username})
	}
	return t.render(rows, "No git credentials found")
}

// RenderRegistryCredentials renders a table of image registry credentials
func (t *ResourceTable) RenderRegistryCredentials(creds []types.ImageRegistryCredential) error {
	t.Headers = []string{"ID", "URL", "USERNAME"}

	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		rows = append(rows, []string{strconv.FormatUint(uint64(c.ID), 10), c.URL, c.Username})
	}
	return t.render(rows, "No image registry credentials found")
}
