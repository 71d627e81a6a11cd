// Package discovery finds candidate hosts on the local network.
//
// A sweep expands a CIDR range, probes a small set of well-known TCP ports
// under a rate limit, and annotates live addresses with reverse-DNS names
// and ARP-cache MAC addresses. An optional nmap pass adds service detail
// when the binary is installed. Results are suggestions for the board; the
// operator decides what to keep.
package discovery
