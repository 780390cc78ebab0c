package dlna

import (
	"net"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SSDP messages", func() {
	const deviceUUID = "5f8a1f6e-1c3b-5a5e-9c4f-2f1a2b3c4d5e"

	Describe("usnSet", func() {
		It("returns the five MediaServer advertisement pairs", func() {
			set := usnSet(deviceUUID)
			Expect(set).To(HaveLen(5))

			Expect(set[0].nt).To(Equal("uuid:" + deviceUUID))
			Expect(set[0].usn).To(Equal("uuid:" + deviceUUID))

			Expect(set[1].nt).To(Equal("upnp:rootdevice"))
			Expect(set[1].usn).To(Equal("uuid:" + deviceUUID + "::upnp:rootdevice"))

			Expect(set[2].nt).To(Equal("urn:schemas-upnp-org:device:MediaServer:1"))
			Expect(set[3].nt).To(Equal("urn:schemas-upnp-org:service:ContentDirectory:1"))
			Expect(set[4].nt).To(Equal("urn:schemas-upnp-org:service:ConnectionManager:1"))
			for _, ad := range set[2:] {
				Expect(ad.usn).To(Equal("uuid:" + deviceUUID + "::" + ad.nt))
			}
		})
	})

	Describe("notifyAlive", func() {
		msg := notifyAlive("http://192.168.1.5:8200/device.xml", "upnp:rootdevice", "uuid:x::upnp:rootdevice")

		It("uses CRLF line endings throughout", func() {
			Expect(msg).To(HaveSuffix("\r\n\r\n"))
			Expect(strings.ReplaceAll(msg, "\r\n", "")).ToNot(ContainSubstring("\n"))
		})

		It("carries the full alive header set", func() {
			Expect(msg).To(HavePrefix("NOTIFY * HTTP/1.1\r\n"))
			Expect(msg).To(ContainSubstring("HOST: 239.255.255.250:1900\r\n"))
			Expect(msg).To(ContainSubstring("CACHE-CONTROL: max-age=900\r\n"))
			Expect(msg).To(ContainSubstring("LOCATION: http://192.168.1.5:8200/device.xml\r\n"))
			Expect(msg).To(ContainSubstring("NT: upnp:rootdevice\r\n"))
			Expect(msg).To(ContainSubstring("NTS: ssdp:alive\r\n"))
			Expect(msg).To(ContainSubstring("SERVER: "))
			Expect(msg).To(ContainSubstring("USN: uuid:x::upnp:rootdevice\r\n"))
		})
	})

	Describe("notifyByeBye", func() {
		msg := notifyByeBye("upnp:rootdevice", "uuid:x::upnp:rootdevice")

		It("omits CACHE-CONTROL, LOCATION, and SERVER", func() {
			Expect(msg).ToNot(ContainSubstring("CACHE-CONTROL"))
			Expect(msg).ToNot(ContainSubstring("LOCATION"))
			Expect(msg).ToNot(ContainSubstring("SERVER"))
		})

		It("carries NT, NTS, and USN", func() {
			Expect(msg).To(ContainSubstring("NT: upnp:rootdevice\r\n"))
			Expect(msg).To(ContainSubstring("NTS: ssdp:byebye\r\n"))
			Expect(msg).To(ContainSubstring("USN: uuid:x::upnp:rootdevice\r\n"))
		})
	})

	Describe("msearchResponse", func() {
		msg := msearchResponse("http://10.0.0.2:8200/device.xml", "ssdp:all", "uuid:y")

		It("is a 200 OK with EXT and echoed ST", func() {
			Expect(msg).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
			Expect(msg).To(ContainSubstring("EXT:\r\n"))
			Expect(msg).To(ContainSubstring("ST: ssdp:all\r\n"))
			Expect(msg).To(ContainSubstring("USN: uuid:y\r\n"))
			Expect(msg).To(ContainSubstring("Content-Length: 0\r\n"))
		})
	})
})

var _ = Describe("M-SEARCH parsing", func() {
	valid := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
		"\r\n"

	It("accepts a well-formed discover packet", func() {
		Expect(msearchHasDiscover(valid)).To(BeTrue())
		st, ok := msearchTarget(valid)
		Expect(ok).To(BeTrue())
		Expect(st).To(Equal("urn:schemas-upnp-org:device:MediaServer:1"))
	})

	It("is case-insensitive on header names", func() {
		packet := strings.ReplaceAll(valid, "MAN:", "man:")
		packet = strings.ReplaceAll(packet, "ST:", "st:")
		Expect(msearchHasDiscover(packet)).To(BeTrue())
		_, ok := msearchTarget(packet)
		Expect(ok).To(BeTrue())
	})

	It("rejects packets without ssdp:discover", func() {
		packet := strings.ReplaceAll(valid, "ssdp:discover", "ssdp:other")
		Expect(msearchHasDiscover(packet)).To(BeFalse())
	})

	It("reports a missing ST header", func() {
		packet := strings.ReplaceAll(valid, "ST:", "XT:")
		_, ok := msearchTarget(packet)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("ifaceForSender", func() {
	engine := &ssdpEngine{
		ifaces: []ifaceV4{
			{addr: net.IPv4(192, 168, 1, 5).To4(), mask: net.CIDRMask(24, 32)},
			{addr: net.IPv4(10, 0, 0, 2).To4(), mask: net.CIDRMask(8, 32)},
		},
	}

	It("picks the interface whose subnet contains the sender", func() {
		Expect(engine.ifaceForSender(net.IPv4(192, 168, 1, 77))).
			To(Equal(net.IPv4(192, 168, 1, 5).To4()))
		Expect(engine.ifaceForSender(net.IPv4(10, 20, 30, 40))).
			To(Equal(net.IPv4(10, 0, 0, 2).To4()))
	})

	It("falls back to the first interface for off-subnet senders", func() {
		Expect(engine.ifaceForSender(net.IPv4(172, 16, 0, 1))).
			To(Equal(net.IPv4(192, 168, 1, 5).To4()))
	})

	It("falls back to the first interface for IPv6 senders", func() {
		Expect(engine.ifaceForSender(net.ParseIP("fe80::1"))).
			To(Equal(net.IPv4(192, 168, 1, 5).To4()))
	})
})
