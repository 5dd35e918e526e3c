package types

// ServerStatus is the provisioning state of a server.
type ServerStatus string

const (
	ServerStatusNeedsSetup ServerStatus = "needs_setup"
	ServerStatusPreparing  ServerStatus = "preparing"
	ServerStatusOnline     ServerStatus = "online"
	ServerStatusOffline    ServerStatus = "offline"
)

// Server is a node of the deployment cluster.
type Server struct {
	ID                   uint         `json:"id"`
	IP                   string       `json:"ip"`
	Hostname             string       `json:"hostname"`
	User                 string       `json:"user"`
	SSHPort              int          `json:"ssh_port"`
	Status               ServerStatus `json:"status"`
	SwarmMode            string       `json:"swarmMode"`
	SwarmNodeStatus      string       `json:"swarmNodeStatus"`
	ScheduleDeployments  bool         `json:"scheduleDeployments"`
	MaintenanceMode      bool         `json:"maintenanceMode"`
	ProxyEnabled         bool         `json:"proxyEnabled"`
	ProxyType            string       `json:"proxyType"`
	DockerUnixSocketPath string       `json:"dockerUnixSocketPath"`
}

// Validate checks a Server.
func (s *Server) Validate() error {
	if s.ID == 0 {
		return NewFieldValidationError("server.id", "missing")
	}
	if s.Hostname == "" && s.IP == "" {
		return NewFieldValidationError("server", "neither hostname nor ip present")
	}
	return nil
}
