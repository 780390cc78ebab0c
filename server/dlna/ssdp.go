package dlna

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/udlna/udlna/log"
)

var (
	ssdpAddrV4 = &net.UDPAddr{IP: net.IPv4(239, 255, 255, 250), Port: 1900}
	ssdpAddrV6 = &net.UDPAddr{IP: net.ParseIP("ff02::c"), Port: 1900}
)

const (
	ssdpReadvertInterval = 900 * time.Second
	ssdpBurstCount       = 3
	ssdpBurstGap         = 150 * time.Millisecond
)

type ssdpConfig struct {
	deviceUUID string
	httpPort   int
	serverName string
}

// ifaceV4 is one usable advertisement interface: its IPv4 address, netmask,
// and the OS interface for multicast joins.
type ifaceV4 struct {
	addr  net.IP
	mask  net.IPMask
	iface net.Interface
}

// ssdpEngine owns the discovery sockets and background loops. A nil engine
// means SSDP is disabled (no usable interfaces) while HTTP keeps serving.
type ssdpEngine struct {
	cfg     ssdpConfig
	ifaces  []ifaceV4
	adverts []advertisement

	recv4 net.PacketConn
	recv6 net.PacketConn
	send  *net.UDPConn

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// startSSDP discovers interfaces, binds the discovery sockets, sends the
// initial alive burst, and starts the advertisement and M-SEARCH loops.
// Port 1900 being in use is fatal; a host with no non-loopback IPv4
// interfaces disables SSDP with a warning and returns (nil, nil).
func startSSDP(ctx context.Context, cfg ssdpConfig) (*ssdpEngine, error) {
	ifaces := listNonLoopbackV4()
	if len(ifaces) == 0 {
		log.Warn("No non-loopback IPv4 interfaces found - SSDP disabled, HTTP still works")
		return nil, nil
	}

	recv4, err := bindRecvV4(ctx, ifaces)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("SSDP port 1900 is already in use - another UPnP daemon may be running. Stop it and retry")
		}
		return nil, fmt.Errorf("failed to create SSDP receive socket: %w", err)
	}

	send, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		_ = recv4.Close()
		return nil, fmt.Errorf("failed to create SSDP send socket: %w", err)
	}

	// IPv6 listening is best-effort; many hosts have no usable link-local
	// multicast setup and IPv4 discovery alone is fully functional.
	recv6, err := bindRecvV6(ctx)
	if err != nil {
		log.Debug("IPv6 SSDP socket unavailable - IPv4 only", "reason", err)
		recv6 = nil
	}

	e := &ssdpEngine{
		cfg:     cfg,
		ifaces:  ifaces,
		adverts: usnSet(cfg.deviceUUID),
		recv4:   recv4,
		recv6:   recv6,
		send:    send,
		stopped: make(chan struct{}),
	}

	for _, ifc := range ifaces {
		log.Info("SSDP advertising", "name", cfg.serverName, "address", fmt.Sprintf("%s:1900", ifc.addr))
	}

	e.sendAliveBurst()

	e.wg.Add(2)
	go e.advertiseLoop()
	go e.recvLoop(e.recv4)
	if e.recv6 != nil {
		e.wg.Add(1)
		go e.recvLoop(e.recv6)
	}

	// A canceled startup context tears the engine down the same way an
	// explicit stop does.
	go func() {
		select {
		case <-ctx.Done():
			e.stop()
		case <-e.stopped:
		}
	}()

	return e, nil
}

// stop sends the byebye set, closes the sockets, and waits for the loops.
// Idempotent and bounded to roughly one second.
func (e *ssdpEngine) stop() {
	e.stopOnce.Do(func() {
		_ = e.send.SetWriteDeadline(time.Now().Add(time.Second))
		e.sendByeBye()
		log.Info("SSDP byebye sent")

		close(e.stopped)
		_ = e.recv4.Close()
		if e.recv6 != nil {
			_ = e.recv6.Close()
		}
		e.wg.Wait()
		_ = e.send.Close()
	})
}

// advertiseLoop re-sends the alive burst every 900 seconds. The startup burst
// was already sent, so the first tick is a full interval away.
func (e *ssdpEngine) advertiseLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(ssdpReadvertInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			log.Debug("SSDP re-advertising")
			e.sendAliveBurst()
		case <-e.stopped:
			return
		}
	}
}

// sendAliveBurst sends the NOTIFY alive set three times with a short gap, for
// every interface and every advertisement pair.
func (e *ssdpEngine) sendAliveBurst() {
	for i := 0; i < ssdpBurstCount; i++ {
		if i > 0 {
			time.Sleep(ssdpBurstGap)
		}
		for _, ifc := range e.ifaces {
			location := e.locationURL(ifc.addr)
			for _, ad := range e.adverts {
				msg := notifyAlive(location, ad.nt, ad.usn)
				if _, err := e.send.WriteToUDP([]byte(msg), ssdpAddrV4); err != nil {
					log.Debug("SSDP alive send failed", "reason", err)
				}
			}
		}
	}
}

func (e *ssdpEngine) sendByeBye() {
	for range e.ifaces {
		for _, ad := range e.adverts {
			msg := notifyByeBye(ad.nt, ad.usn)
			if _, err := e.send.WriteToUDP([]byte(msg), ssdpAddrV4); err != nil {
				log.Debug("SSDP byebye send failed", "reason", err)
			}
		}
	}
}

// recvLoop reads datagrams until the socket closes. M-SEARCH packets are
// always well under 1KB; anything else on the wire is ignored.
func (e *ssdpEngine) recvLoop(conn net.PacketConn) {
	defer e.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, sender, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-e.stopped:
				return
			default:
			}
			log.Debug("SSDP receive error", "reason", err)
			continue
		}
		e.handleMSearch(string(buf[:n]), sender)
	}
}

// handleMSearch validates an M-SEARCH packet and answers with unicast 200 OK
// responses for the matching search targets. Invalid packets are dropped
// silently.
func (e *ssdpEngine) handleMSearch(packet string, sender net.Addr) {
	if !strings.HasPrefix(packet, "M-SEARCH * HTTP/1.1") {
		return
	}
	if !msearchHasDiscover(packet) {
		return
	}
	st, ok := msearchTarget(packet)
	if !ok {
		return
	}

	udpSender, ok := sender.(*net.UDPAddr)
	if !ok {
		return
	}

	locationIP := e.ifaceForSender(udpSender.IP)
	location := e.locationURL(locationIP)

	log.Debug("M-SEARCH received", "from", sender, "st", st)

	if st == "ssdp:all" {
		for _, ad := range e.adverts {
			e.sendUnicast(msearchResponse(location, ad.nt, ad.usn), udpSender)
		}
		return
	}
	for _, ad := range e.adverts {
		if ad.nt == st {
			e.sendUnicast(msearchResponse(location, ad.nt, ad.usn), udpSender)
			return
		}
	}
}

func (e *ssdpEngine) sendUnicast(msg string, to *net.UDPAddr) {
	if _, err := e.send.WriteToUDP([]byte(msg), to); err != nil {
		log.Debug("M-SEARCH response send failed", "to", to, "reason", err)
	}
}

func (e *ssdpEngine) locationURL(ip net.IP) string {
	return fmt.Sprintf("http://%s:%d/device.xml", ip, e.cfg.httpPort)
}

// ifaceForSender picks the interface whose subnet contains the sender, the
// minidlna approach. IPv6 senders and off-subnet senders fall back to the
// first interface.
func (e *ssdpEngine) ifaceForSender(sender net.IP) net.IP {
	if v4 := sender.To4(); v4 != nil {
		for _, ifc := range e.ifaces {
			if ifc.addr.Mask(ifc.mask).Equal(v4.Mask(ifc.mask)) {
				return ifc.addr
			}
		}
	}
	return e.ifaces[0].addr
}

// msearchHasDiscover scans headers case-insensitively for MAN: "ssdp:discover".
func msearchHasDiscover(packet string) bool {
	for _, line := range strings.Split(packet, "\r\n") {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "man:") && strings.Contains(lower, "ssdp:discover") {
			return true
		}
	}
	return false
}

// msearchTarget extracts the ST header value.
func msearchTarget(packet string) (string, bool) {
	for _, line := range strings.Split(packet, "\r\n") {
		if strings.HasPrefix(strings.ToLower(line), "st:") {
			return strings.TrimSpace(line[3:]), true
		}
	}
	return "", false
}

// bindRecvV4 binds the multicast receive socket to 239.255.255.250:1900 with
// address reuse and joins the group on every interface. Binding the group
// address itself gives kernel-level multicast filtering on Unix.
func bindRecvV4(ctx context.Context, ifaces []ifaceV4) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseControl}
	conn, err := lc.ListenPacket(ctx, "udp4", "239.255.255.250:1900")
	if err != nil {
		return nil, err
	}
	p := ipv4.NewPacketConn(conn)
	joined := 0
	for i := range ifaces {
		if err := p.JoinGroup(&ifaces[i].iface, ssdpAddrV4); err != nil {
			log.Warn("Could not join SSDP multicast group", err, "interface", ifaces[i].iface.Name)
			continue
		}
		joined++
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("no interface joined the SSDP multicast group")
	}
	return conn, nil
}

// bindRecvV6 binds a v6-only socket on [::]:1900 and joins ff02::c on the
// default interface.
func bindRecvV6(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseControlV6Only}
	conn, err := lc.ListenPacket(ctx, "udp6", "[::]:1900")
	if err != nil {
		return nil, err
	}
	p := ipv6.NewPacketConn(conn)
	if err := p.JoinGroup(nil, ssdpAddrV6); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// listNonLoopbackV4 enumerates every IPv4 address on non-loopback interfaces.
// Enumeration failure returns an empty list; the caller treats that as "SSDP
// disabled", not as fatal.
func listNonLoopbackV4() []ifaceV4 {
	var out []ifaceV4
	interfaces, err := net.Interfaces()
	if err != nil {
		log.Warn("Interface enumeration failed", err)
		return nil
	}
	for _, ifc := range interfaces {
		if ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil {
				continue
			}
			mask := ipNet.Mask
			if len(mask) != net.IPv4len {
				mask = net.CIDRMask(24, 32)
			}
			out = append(out, ifaceV4{addr: v4, mask: mask, iface: ifc})
		}
	}
	return out
}
