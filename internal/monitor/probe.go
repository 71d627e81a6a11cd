package monitor

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"netboard/internal/domain"
)

// Result is the outcome of a single reachability check.
type Result struct {
	Reachable bool
	Elapsed   time.Duration
}

// ProbeFunc performs one reachability check for a host. Implementations must
// never block past the timeout and must translate every failure into
// Reachable=false.
type ProbeFunc func(ctx context.Context, host domain.Host, timeout time.Duration) Result

// Probe is the default ProbeFunc. A host with a port is checked with a TCP
// connect, a host without one with an ICMP echo via the system ping binary.
// A host with an empty address is reported down without any I/O.
func Probe(ctx context.Context, host domain.Host, timeout time.Duration) Result {
	if host.Address == "" {
		return Result{}
	}
	if host.Port > 0 {
		return tcpProbe(ctx, host.Address, host.Port, timeout)
	}
	return icmpProbe(ctx, host.Address, timeout)
}

// tcpProbe attempts to open a TCP connection within the timeout. The
// connection is closed immediately regardless of outcome.
func tcpProbe(ctx context.Context, address string, port int, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	elapsed := time.Since(start)
	if err != nil {
		return Result{Elapsed: elapsed}
	}
	conn.Close()
	return Result{Reachable: true, Elapsed: elapsed}
}

var pingRTTRegex = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// icmpProbe sends one ICMP echo request via the system ping command.
// When the reply carries a parseable round-trip time that value is reported,
// otherwise the wall-clock elapsed time is used.
func icmpProbe(ctx context.Context, address string, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := pingCommand(ctx, address, timeout).CombinedOutput()
	elapsed := time.Since(start)

	if err != nil || ctx.Err() != nil {
		return Result{Elapsed: elapsed}
	}

	if rtt := parseRTT(string(out)); rtt > 0 {
		elapsed = rtt
	}
	return Result{Reachable: true, Elapsed: elapsed}
}

// parseRTT extracts the round-trip time from ping output ("time=14.1 ms").
func parseRTT(output string) time.Duration {
	match := pingRTTRegex.FindStringSubmatch(output)
	if len(match) < 2 {
		return 0
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(match[1]), 64)
	if err != nil {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// pingCommand builds the platform-specific ping invocation for one echo
// request with the given timeout.
func pingCommand(ctx context.Context, target string, timeout time.Duration) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		ms := fmt.Sprintf("%d", timeout.Milliseconds())
		return exec.CommandContext(ctx, "ping", "-n", "1", "-w", ms, target)
	case "darwin", "freebsd", "openbsd", "netbsd":
		ms := fmt.Sprintf("%d", timeout.Milliseconds())
		return exec.CommandContext(ctx, "ping", "-c", "1", "-W", ms, target)
	default:
		// Linux ping takes -W in whole seconds.
		sec := int(timeout.Seconds())
		if sec < 1 {
			sec = 1
		}
		return exec.CommandContext(ctx, "ping", "-c", "1", "-W", strconv.Itoa(sec), target)
	}
}
