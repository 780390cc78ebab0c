package dlna

import (
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/udlna/udlna/model"
)

var _ = Describe("Device description", func() {
	var handler http.Handler
	var serverUUID string

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		return w
	}

	BeforeEach(func() {
		serverUUID = uuid.New().String()
		handler = New(model.NewLibrary(nil), "Living Room & More", serverUUID, 8200).Routes()
	})

	Describe("/device.xml", func() {
		It("serves the MediaServer:1 root device document", func() {
			w := get("/device.xml")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal(`text/xml; charset="utf-8"`))
			body := w.Body.String()
			Expect(body).To(ContainSubstring("<deviceType>urn:schemas-upnp-org:device:MediaServer:1</deviceType>"))
			Expect(body).To(ContainSubstring("<UDN>uuid:" + serverUUID + "</UDN>"))
			Expect(body).To(ContainSubstring("<dlna:X_DLNADOC>DMS-1.50</dlna:X_DLNADOC>"))
			Expect(body).To(ContainSubstring("<dlna:X_DLNADOC>M-DMS-1.50</dlna:X_DLNADOC>"))
		})

		It("escapes the friendly name", func() {
			Expect(get("/device.xml").Body.String()).
				To(ContainSubstring("<friendlyName>Living Room &amp; More</friendlyName>"))
		})

		It("lists both services with their control and SCPD URLs", func() {
			body := get("/device.xml").Body.String()
			Expect(body).To(ContainSubstring("<SCPDURL>/cds/scpd.xml</SCPDURL>"))
			Expect(body).To(ContainSubstring("<controlURL>/cds/control</controlURL>"))
			Expect(body).To(ContainSubstring("<SCPDURL>/cms/scpd.xml</SCPDURL>"))
			Expect(body).To(ContainSubstring("<controlURL>/cms/control</controlURL>"))
		})
	})

	Describe("service descriptions", func() {
		It("serves the ContentDirectory SCPD", func() {
			w := get("/cds/scpd.xml")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal(`text/xml; charset="utf-8"`))
			Expect(w.Body.String()).To(ContainSubstring("<name>Browse</name>"))
			Expect(w.Body.String()).To(ContainSubstring("<name>GetSystemUpdateID</name>"))
		})

		It("serves the ConnectionManager SCPD", func() {
			w := get("/cms/scpd.xml")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("<name>GetProtocolInfo</name>"))
			Expect(w.Body.String()).To(ContainSubstring("<name>GetCurrentConnectionInfo</name>"))
		})
	})
})
