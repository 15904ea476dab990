package device

import (
	"net"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

type Interface struct {
	Name    string `json:"name"`
	IP      string `json:"ip"`
	Netmask string `json:"netmask"`
}

// Identity describes the host and process for the checkin message.
type Identity struct {
	UUID       string      `json:"uuid"`
	Hostname   string      `json:"host"`
	FQDN       string      `json:"domain"`
	Username   string      `json:"user"`
	OS         string      `json:"os"`
	OSRelease  string      `json:"os_release,omitempty"`
	Arch       string      `json:"architecture"`
	PID        int         `json:"pid"`
	PPID       int         `json:"ppid"`
	Executable string      `json:"process_name"`
	Interfaces []Interface `json:"interfaces"`
}

// Collect gathers the identity of the running process. Lookup failures
// degrade to "unknown" rather than failing startup.
func Collect() Identity {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	exe, _ := os.Executable()
	return Identity{
		UUID:       uuid.NewString(),
		Hostname:   host,
		FQDN:       fqdn(host),
		Username:   username(),
		OS:         runtime.GOOS,
		OSRelease:  osRelease(),
		Arch:       runtime.GOARCH,
		PID:        os.Getpid(),
		PPID:       os.Getppid(),
		Executable: exe,
		Interfaces: interfaces(),
	}
}

// LocalIP returns the first non-loopback IPv4 address, or "unknown".
func (id Identity) LocalIP() string {
	for _, ifc := range id.Interfaces {
		if ifc.IP != "" && !strings.HasPrefix(ifc.IP, "127.") {
			return ifc.IP
		}
	}
	return "unknown"
}

func username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, k := range []string{"USERNAME", "USER"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "unknown"
}

func fqdn(host string) string {
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return host
	}
	names, err := net.LookupAddr(addrs[0])
	if err != nil || len(names) == 0 {
		return host
	}
	return strings.TrimSuffix(names[0], ".")
}

func interfaces() []Interface {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var out []Interface
	for _, ifc := range ifs {
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipn.IP.To4()
			if ip4 == nil {
				continue
			}
			out = append(out, Interface{
				Name:    ifc.Name,
				IP:      ip4.String(),
				Netmask: net.IP(ipn.Mask).String(),
			})
		}
	}
	return out
}
