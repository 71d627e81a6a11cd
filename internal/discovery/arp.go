package discovery

import (
	"bufio"
	"os"
	"strings"
)

const arpCachePath = "/proc/net/arp"

// readARPCache returns IP → MAC from the kernel ARP table. Best effort:
// the table only holds neighbours we have exchanged traffic with, and the
// file does not exist outside Linux.
func readARPCache() map[string]string {
	f, err := os.Open(arpCachePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	macs := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Scan() // header row

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		ip, mac := fields[0], fields[3]
		if mac == "00:00:00:00:00:00" {
			continue
		}
		macs[ip] = mac
	}

	return macs
}
