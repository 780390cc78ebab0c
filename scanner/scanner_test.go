package scanner

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/udlna/udlna/model"
	"github.com/udlna/udlna/model/id"
)

var _ = Describe("Scan", func() {
	var root string

	writeFile := func(rel string, content []byte) string {
		path := filepath.Join(root, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0700)).To(Succeed())
		Expect(os.WriteFile(path, content, 0600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "scan")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(root) })
	})

	It("indexes recognized media files recursively", func() {
		writeFile("music/track.mp3", []byte("mp3data"))
		writeFile("movies/deep/clip.mkv", []byte("mkvdata"))
		writeFile("notes.txt", []byte("ignored"))

		lib := Scan([]string{root})
		Expect(lib.Len()).To(Equal(2))

		var kinds []model.MediaKind
		for _, item := range lib.Items() {
			kinds = append(kinds, item.Kind)
		}
		Expect(kinds).To(ConsistOf(model.KindAudio, model.KindVideo))
	})

	It("excludes subtitles from the library", func() {
		writeFile("movies/clip.mkv", []byte("mkvdata"))
		writeFile("movies/clip.srt", []byte("1\n00:00:01,000 --> 00:00:02,000\nhi\n"))

		lib := Scan([]string{root})
		Expect(lib.Len()).To(Equal(1))
		Expect(lib.Items()[0].Path).To(HaveSuffix("clip.mkv"))
	})

	It("derives item IDs from the canonical path", func() {
		path := writeFile("music/track.mp3", []byte("mp3data"))
		canonical, err := filepath.EvalSymlinks(path)
		Expect(err).ToNot(HaveOccurred())

		lib := Scan([]string{root})
		Expect(lib.Len()).To(Equal(1))
		Expect(lib.Items()[0].ID).To(Equal(id.ForPath(canonical)))
	})

	It("records the file size", func() {
		writeFile("music/track.mp3", make([]byte, 123))
		lib := Scan([]string{root})
		Expect(lib.Items()[0].FileSize).To(Equal(int64(123)))
	})

	It("skips nonexistent roots without failing", func() {
		writeFile("music/track.mp3", []byte("mp3data"))
		lib := Scan([]string{filepath.Join(root, "nope"), root})
		Expect(lib.Len()).To(Equal(1))
	})

	It("returns an empty library for media-free directories", func() {
		writeFile("docs/readme.md", []byte("x"))
		lib := Scan([]string{root})
		Expect(lib.Len()).To(BeZero())
	})

	It("does not index the same directory twice", func() {
		writeFile("music/track.mp3", []byte("mp3data"))
		lib := Scan([]string{root, root})
		Expect(lib.Len()).To(Equal(1))
	})

	It("follows directory symlinks without looping", func() {
		writeFile("music/track.mp3", []byte("mp3data"))
		link := filepath.Join(root, "alias")
		if err := os.Symlink(filepath.Join(root, "music"), link); err != nil {
			Skip("symlinks not supported here")
		}
		// Loop back up to the root as well.
		Expect(os.Symlink(root, filepath.Join(root, "music", "up"))).To(Succeed())

		lib := Scan([]string{root})
		Expect(lib.Len()).To(Equal(1))
	})
})
