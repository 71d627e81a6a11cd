package discovery

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxSweepAddrs caps the number of addresses a single sweep will touch.
const maxSweepAddrs = 1024

// Config holds sweep settings.
type Config struct {
	// Ports are probed to decide whether an address is live.
	Ports []int
	// Timeout applies to each individual connection attempt.
	Timeout time.Duration
	// MaxConcurrent limits parallel probes.
	MaxConcurrent int
	// RatePerSec caps probe attempts per second across all workers.
	RatePerSec int
	// DNSServer, when set, is used for PTR lookups (host:port or host).
	DNSServer string
	// Nmap enables the deep service scan pass on live hosts.
	Nmap bool
	// NmapPortRange is the port expression for the nmap pass.
	NmapPortRange string
}

// Found is a live address discovered by a sweep.
type Found struct {
	Address  string        `json:"address"`
	Hostname string        `json:"hostname,omitempty"`
	MAC      string        `json:"mac,omitempty"`
	Ports    []int         `json:"ports,omitempty"`
	Services []ServiceInfo `json:"services,omitempty"`
	RTT      time.Duration `json:"-"`
}

// ServiceInfo describes a service identified on an open port.
type ServiceInfo struct {
	Port    int    `json:"port"`
	Name    string `json:"name,omitempty"`
	Product string `json:"product,omitempty"`
	Version string `json:"version,omitempty"`
}

// Sweeper runs network sweeps. One sweep may run at a time.
type Sweeper struct {
	cfg    Config
	logger *logrus.Logger
	rdns   *Resolver

	mu       sync.Mutex
	sweeping bool
}

// NewSweeper creates a sweeper with the given settings.
func NewSweeper(cfg Config, logger *logrus.Logger) *Sweeper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if len(cfg.Ports) == 0 {
		cfg.Ports = []int{22, 80, 443, 445, 3389, 5900, 8080}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 64
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 200
	}
	return &Sweeper{
		cfg:    cfg,
		logger: logger,
		rdns:   NewResolver(cfg.DNSServer),
	}
}

// Sweep probes every address in the CIDR range and returns the live ones,
// sorted by address. A second sweep started while one is in flight fails
// immediately.
func (s *Sweeper) Sweep(ctx context.Context, cidr string) ([]Found, error) {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		return nil, fmt.Errorf("sweep already in progress")
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
	}()

	addrs, err := ExpandCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", cidr, err)
	}

	s.logger.WithFields(logrus.Fields{
		"target": cidr,
		"addrs":  len(addrs),
		"ports":  s.cfg.Ports,
	}).Info("starting sweep")

	live := s.probeAddrs(ctx, addrs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.annotate(ctx, live)

	if s.cfg.Nmap && len(live) > 0 {
		if err := s.nmapEnrich(ctx, live); err != nil {
			// The sweep result stands on its own; nmap detail is extra.
			s.logger.WithError(err).Warn("nmap enrichment failed")
		}
	}

	sort.Slice(live, func(i, j int) bool { return ipLess(live[i].Address, live[j].Address) })

	s.logger.WithFields(logrus.Fields{
		"target": cidr,
		"live":   len(live),
	}).Info("sweep complete")

	return live, nil
}

// probeAddrs fans probe jobs out over a worker pool behind a rate limiter.
func (s *Sweeper) probeAddrs(ctx context.Context, addrs []string) []Found {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), s.cfg.RatePerSec)

	type job struct {
		addr string
		port int
	}
	jobs := make(chan job)

	found := make(map[string]*Found)
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.MaxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dialer := net.Dialer{Timeout: s.cfg.Timeout}
			for j := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				start := time.Now()
				conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(j.addr, strconv.Itoa(j.port)))
				if err != nil {
					continue
				}
				conn.Close()
				rtt := time.Since(start)

				mu.Lock()
				f, ok := found[j.addr]
				if !ok {
					f = &Found{Address: j.addr, RTT: rtt}
					found[j.addr] = f
				}
				f.Ports = append(f.Ports, j.port)
				mu.Unlock()
			}
		}()
	}

	for _, addr := range addrs {
		for _, port := range s.cfg.Ports {
			select {
			case jobs <- job{addr: addr, port: port}:
			case <-ctx.Done():
				close(jobs)
				wg.Wait()
				return nil
			}
		}
	}
	close(jobs)
	wg.Wait()

	live := make([]Found, 0, len(found))
	for _, f := range found {
		sort.Ints(f.Ports)
		live = append(live, *f)
	}
	return live
}

// annotate fills in hostname and MAC for each live address.
func (s *Sweeper) annotate(ctx context.Context, live []Found) {
	arp := readARPCache()

	for i := range live {
		if name, err := s.rdns.Reverse(ctx, live[i].Address); err == nil {
			live[i].Hostname = name
		}
		if mac, ok := arp[live[i].Address]; ok {
			live[i].MAC = mac
		}
	}
}

// ExpandCIDR converts CIDR notation to the list of host addresses in the
// range. A bare IP expands to itself. Network and broadcast addresses are
// skipped for /24 and wider IPv4 ranges.
func ExpandCIDR(cidr string) ([]string, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		if ip := net.ParseIP(strings.TrimSpace(cidr)); ip != nil {
			return []string{ip.String()}, nil
		}
		return nil, err
	}

	ip := ipNet.IP.To4()
	if ip == nil {
		return nil, fmt.Errorf("only IPv4 ranges are supported")
	}

	networkInt := binary.BigEndian.Uint32(ip)
	maskInt := binary.BigEndian.Uint32(ipNet.Mask)

	first := networkInt & maskInt
	last := first | ^maskInt

	ones, bits := ipNet.Mask.Size()
	if ones <= 24 && bits == 32 {
		first++
		last--
	}

	if last < first {
		return nil, fmt.Errorf("empty range")
	}
	if last-first+1 > maxSweepAddrs {
		return nil, fmt.Errorf("range too large (max %d addresses)", maxSweepAddrs)
	}

	addrs := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, i)
		addrs = append(addrs, net.IP(b).String())
	}
	return addrs, nil
}

func ipLess(a, b string) bool {
	ipA := net.ParseIP(a).To4()
	ipB := net.ParseIP(b).To4()
	if ipA == nil || ipB == nil {
		return a < b
	}
	return binary.BigEndian.Uint32(ipA) < binary.BigEndian.Uint32(ipB)
}
