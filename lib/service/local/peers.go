package local

import (
	"net"
	"sort"
	"strconv"
)

// Peer describes a remote node connected through the RPC server
type Peer struct {
	RemoteID        string
	RemoteIP        string
	RemotePort      uint32
	LastUpdate      uint64
	ProtocolVersion uint32
}

// splitAddr splits "host:port". Addresses without a usable port get port 0.
func splitAddr(addr string) (string, uint32) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return host, 0
	}
	return host, uint32(port)
}

// RegisterPeer records (or replaces) a remote peer. key identifies the
// transport connection, addr is its "host:port" address.
// A protocol version of 0 is replaced by ProtocolVersion.
func (s *Service) RegisterPeer(key, addr, identity string, protocolVersion uint32) {
	if protocolVersion == 0 {
		protocolVersion = ProtocolVersion
	}
	ip, port := splitAddr(addr)
	s.peers.Store(key, &Peer{
		RemoteID:        identity,
		RemoteIP:        ip,
		RemotePort:      port,
		LastUpdate:      s.index.Load(),
		ProtocolVersion: protocolVersion,
	})
	Logger.Infof("peer %q connected from %s", identity, addr)
}

// TouchPeer updates the last update stamp of a known peer and renames it if
// identity is not empty. Unknown peers are registered.
func (s *Service) TouchPeer(key, addr, identity string) {
	now := s.index.Load()
	s.peers.Compute(key, func(p *Peer, loaded bool) (*Peer, bool) {
		if !loaded {
			ip, port := splitAddr(addr)
			return &Peer{RemoteID: identity, RemoteIP: ip, RemotePort: port, LastUpdate: now, ProtocolVersion: ProtocolVersion}, false
		}
		updated := *p
		updated.LastUpdate = now
		if identity != "" {
			updated.RemoteID = identity
		}
		return &updated, false
	})
}

// RemovePeer forgets a peer.
func (s *Service) RemovePeer(key string) {
	if p, ok := s.peers.LoadAndDelete(key); ok {
		Logger.Infof("peer %q disconnected", p.RemoteID)
	}
}

// Peers returns a copy of all known peers ordered by key.
func (s *Service) Peers() []Peer {
	type keyed struct {
		key string
		p   Peer
	}
	var all []keyed
	s.peers.Range(func(key string, p *Peer) bool {
		all = append(all, keyed{key, *p})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })

	result := make([]Peer, len(all))
	for i, k := range all {
		result[i] = k.p
	}
	return result
}
