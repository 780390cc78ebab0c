package scanner

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/udlna/udlna/model"
)

var _ = Describe("FormatDuration", func() {
	It("renders zero-padded HH:MM:SS.mmm", func() {
		Expect(FormatDuration(0, 0)).To(Equal("00:00:00.000"))
		Expect(FormatDuration(59, 0.5)).To(Equal("00:00:59.500"))
		Expect(FormatDuration(61, 0)).To(Equal("00:01:01.000"))
		Expect(FormatDuration(3661, 0.25)).To(Equal("01:01:01.250"))
	})

	It("grows the hour field past two digits", func() {
		Expect(FormatDuration(360000, 0)).To(Equal("100:00:00.000"))
	})

	It("clamps rounding so milliseconds never reach 1000", func() {
		Expect(FormatDuration(1, 0.9999)).To(Equal("00:00:01.999"))
	})
})

var _ = Describe("DLNAProfileFor", func() {
	It("maps the four profiled MIME types", func() {
		Expect(DLNAProfileFor("audio/mpeg")).To(Equal("MP3"))
		Expect(DLNAProfileFor("audio/mp4")).To(Equal("AAC_ISO_320"))
		Expect(DLNAProfileFor("image/jpeg")).To(Equal("JPEG_LRG"))
		Expect(DLNAProfileFor("image/png")).To(Equal("PNG_LRG"))
	})

	It("returns empty for everything else", func() {
		Expect(DLNAProfileFor("video/x-matroska")).To(BeEmpty())
		Expect(DLNAProfileFor("video/mp4")).To(BeEmpty())
	})
})

var _ = Describe("ExtractMeta", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "meta")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })
	})

	It("reads image dimensions from the header", func() {
		path := filepath.Join(dir, "pic.png")
		var buf bytes.Buffer
		img := image.NewRGBA(image.Rect(0, 0, 12, 8))
		Expect(png.Encode(&buf, img)).To(Succeed())
		Expect(os.WriteFile(path, buf.Bytes(), 0600)).To(Succeed())

		meta, err := ExtractMeta(path, model.KindImage, "image/png")
		Expect(err).ToNot(HaveOccurred())
		Expect(meta.Resolution).To(Equal("12x8"))
		Expect(meta.DLNAProfile).To(Equal("PNG_LRG"))
	})

	It("fails on an unreadable image", func() {
		path := filepath.Join(dir, "broken.png")
		Expect(os.WriteFile(path, []byte("not a png"), 0600)).To(Succeed())
		_, err := ExtractMeta(path, model.KindImage, "image/png")
		Expect(err).To(HaveOccurred())
	})

	It("keeps untagged but readable audio", func() {
		path := filepath.Join(dir, "plain.wav")
		Expect(os.WriteFile(path, []byte("RIFFxxxxWAVE"), 0600)).To(Succeed())
		meta, err := ExtractMeta(path, model.KindAudio, "audio/wav")
		Expect(err).ToNot(HaveOccurred())
		Expect(meta.Duration).To(BeEmpty())
	})

	It("passes opaque video containers through with empty meta", func() {
		path := filepath.Join(dir, "clip.mkv")
		Expect(os.WriteFile(path, []byte{0x1a, 0x45, 0xdf, 0xa3}, 0600)).To(Succeed())
		meta, err := ExtractMeta(path, model.KindVideo, "video/x-matroska")
		Expect(err).ToNot(HaveOccurred())
		Expect(meta.Duration).To(BeEmpty())
		Expect(meta.Resolution).To(BeEmpty())
		Expect(meta.DLNAProfile).To(BeEmpty())
	})

	It("fails when the file cannot be opened", func() {
		_, err := ExtractMeta(filepath.Join(dir, "missing.mp3"), model.KindAudio, "audio/mpeg")
		Expect(err).To(HaveOccurred())
	})
})
