package domain

import "fmt"

// ContainerInstance is a container launched for a project
type ContainerInstance struct {
	ID           string
	Name         string
	Image        string
	HostPort     int
	InternalPort int
}

// Address returns the URL the instance is reachable at on the given host
func (c *ContainerInstance) Address(host string) string {
	return fmt.Sprintf("http://%s:%d", host, c.HostPort)
}

// ContainerInfo describes an existing container as reported by the engine
type ContainerInfo struct {
	ID       string
	Name     string
	Image    string
	State    string // running, exited, etc.
	Running  bool
	HostPort int
}
