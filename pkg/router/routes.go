package router

// Route names the guard and callers refer to.
const (
	NameSetup              = "Setup"
	NameMaintenance        = "Maintenance"
	NameLogin              = "Login"
	NameApplications       = "Applications"
	NameApplicationDetails = "Application Details"

	NameApplicationDeployments = "Application Details Deployments"
)

// Route is one entry of the route table. Paths use gorilla/mux templates;
// child paths are relative to their parent.
type Route struct {
	Name     string
	Path     string
	Redirect string
	Children []Route
}

// Routes is the dashboard route table.
var Routes = []Route{
	{Name: NameSetup, Path: "/setup"},
	{Name: NameMaintenance, Path: "/maintenance"},
	{Name: NameLogin, Path: "/login"},
	{Path: "/", Redirect: "/applications"},
	{
		Path: "/deploy",
		Children: []Route{
			{Name: "Deploy Application", Path: "application"},
			{Name: "Deploy Stack", Path: "stack"},
			{Name: "App Store", Path: "app-store"},
			{Name: "Install from App Store", Path: "app-store/install"},
		},
	},
	{Name: NameApplications, Path: "/applications"},
	{
		Name: NameApplicationDetails,
		Path: "/application/{id}",
		Children: []Route{
			{Name: NameApplicationDeployments, Path: "deployments"},
			{Name: "Application Deployment Details", Path: "deployment/{deployment_id}"},
			{Name: "Application Details Runtime Logs", Path: "runtime_logs"},
			{Name: "Application Details Ingress Rules", Path: "ingress_rules"},
			{Name: "Application Details Update Source", Path: "update_source"},
			{Name: "Application Details Environment Variables", Path: "environment_variables"},
			{Name: "Application Details Persistent Volumes", Path: "persistent_volumes"},
			{Name: "Application Details Config Mounts", Path: "config_mounts"},
			{Name: "Application Details Deployment Config", Path: "deployment_config"},
			{Name: "Application Details Danger Zone", Path: "danger_zone"},
			{Name: "Application Details Manage", Path: "manage"},
			{Name: "Application Details Webhook CI", Path: "webhook_ci"},
			{Name: "Application Details Resource Stats", Path: "resource_stats"},
		},
	},
	{Name: "Application Group Details", Path: "/application_group/{id}"},
	{
		Path: "/app_auth",
		Children: []Route{
			{Name: "Application Auth Basic ACL", Path: "basic_authentication"},
		},
	},
	{Name: "Persistent Volumes", Path: "/persistent-volumes"},
	{Name: "Users", Path: "/users"},
	{Name: "Git Credentials", Path: "/git-credentials"},
	{Name: "Image Registry Credentials", Path: "/image-registry-credentials"},
	{Name: "Domains", Path: "/domains"},
	{Name: "Redirect Rules", Path: "/redirect-rules"},
	{Name: "Ingress Rules", Path: "/ingress-rules"},
	{Name: "Download Persistent Volume Backup", Path: "/pv-backup-download/{backup_id}"},
	{Name: "Servers", Path: "/servers"},
	{Name: "Server Logs", Path: "/server/logs"},
	{Name: "Server Analytics", Path: "/server/analytics"},
	{Name: "System Logs", Path: "/logs"},
}

// FlatRoute is a route with its full path.
type FlatRoute struct {
	Name     string
	Path     string
	Redirect string
}

// Flatten expands children into full paths, parents first. Grouping entries
// without a name or redirect are skipped.
func Flatten(routes []Route) []FlatRoute {
	var out []FlatRoute
	var walk func(prefix string, rs []Route)
	walk = func(prefix string, rs []Route) {
		for _, r := range rs {
			full := joinPath(prefix, r.Path)
			if r.Name != "" || r.Redirect != "" {
				out = append(out, FlatRoute{Name: r.Name, Path: full, Redirect: r.Redirect})
			}
			walk(full, r.Children)
		}
	}
	walk("", routes)
	return out
}

func joinPath(prefix, p string) string {
	if prefix == "" {
		return p
	}
	if p == "" {
		return prefix
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix + p
	}
	return prefix + "/" + p
}
