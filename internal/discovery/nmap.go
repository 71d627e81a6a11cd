package discovery

import (
	"context"
	"fmt"

	nmap "github.com/Ullaakut/nmap/v3"
)

// nmapEnrich runs a service-detection scan against the live addresses and
// folds the results into them. Requires the nmap binary on PATH.
func (s *Sweeper) nmapEnrich(ctx context.Context, live []Found) error {
	targets := make([]string, len(live))
	byAddr := make(map[string]*Found, len(live))
	for i := range live {
		targets[i] = live[i].Address
		byAddr[live[i].Address] = &live[i]
	}

	portRange := s.cfg.NmapPortRange
	if portRange == "" {
		portRange = "22,25,53,80,443,445,3389,5432,5900,8080,8443"
	}

	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets(targets...),
		nmap.WithPorts(portRange),
		nmap.WithServiceInfo(),
		nmap.WithSkipHostDiscovery(),
	)
	if err != nil {
		return fmt.Errorf("create nmap scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return fmt.Errorf("nmap scan: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		s.logger.WithField("warnings", *warnings).Debug("nmap warnings")
	}

	for _, host := range result.Hosts {
		if host.Status.State != "up" || len(host.Addresses) == 0 {
			continue
		}

		var addr string
		for _, a := range host.Addresses {
			if a.AddrType == "ipv4" {
				addr = a.Addr
				break
			}
		}
		if addr == "" {
			addr = host.Addresses[0].Addr
		}

		f, ok := byAddr[addr]
		if !ok {
			continue
		}

		for _, port := range host.Ports {
			if port.State.State != "open" {
				continue
			}
			f.Services = append(f.Services, ServiceInfo{
				Port:    int(port.ID),
				Name:    port.Service.Name,
				Product: port.Service.Product,
				Version: port.Service.Version,
			})
		}

		if f.Hostname == "" && len(host.Hostnames) > 0 {
			f.Hostname = host.Hostnames[0].Name
		}
	}

	return nil
}
