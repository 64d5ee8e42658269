package ingest

import (
	"testing"

	"fileslink/internal/queue"
	"fileslink/internal/telegram"
)

func TestMediaDefaults(t *testing.T) {
	const id = "Xy12Ab34"
	cases := []struct {
		name     string
		src      queue.MediaSource
		override string
		wantName string
		wantMIME string
	}{
		{
			name:     "document keeps its name",
			src:      queue.MediaSource{Kind: telegram.MediaDocument, FileName: "notes.pdf"},
			wantName: "notes.pdf",
			wantMIME: "application/pdf",
		},
		{
			name:     "document without name",
			src:      queue.MediaSource{Kind: telegram.MediaDocument},
			wantName: "file_" + id,
		},
		{
			name:     "photo",
			src:      queue.MediaSource{Kind: telegram.MediaPhoto},
			wantName: "photo_" + id + ".jpg",
			wantMIME: "image/jpeg",
		},
		{
			name:     "video defaults to mp4",
			src:      queue.MediaSource{Kind: telegram.MediaVideo},
			wantName: "video_" + id + ".mp4",
			wantMIME: "video/mp4",
		},
		{
			name:     "video keeps reported mime",
			src:      queue.MediaSource{Kind: telegram.MediaVideo, MimeType: "video/quicktime"},
			wantName: "video_" + id + ".mp4",
			wantMIME: "video/quicktime",
		},
		{
			name:     "gif animation",
			src:      queue.MediaSource{Kind: telegram.MediaAnimation, MimeType: "image/gif"},
			wantName: "animation_" + id + ".gif",
			wantMIME: "image/gif",
		},
		{
			name:     "mp4 animation",
			src:      queue.MediaSource{Kind: telegram.MediaAnimation},
			wantName: "animation_" + id + ".mp4",
			wantMIME: "video/mp4",
		},
		{
			name:     "caption override",
			src:      queue.MediaSource{Kind: telegram.MediaPhoto},
			override: "holiday.jpg",
			wantName: "holiday.jpg",
			wantMIME: "image/jpeg",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name, mimeType := mediaDefaults(tc.src, tc.override, id)
			if name != tc.wantName {
				t.Fatalf("name = %q, want %q", name, tc.wantName)
			}
			if mimeType != tc.wantMIME {
				t.Fatalf("mime = %q, want %q", mimeType, tc.wantMIME)
			}
		})
	}
}

func TestRemoteFileName(t *testing.T) {
	cases := []struct {
		disposition string
		url         string
		want        string
	}{
		{url: "https://example.com/dir/report.pdf", want: "report.pdf"},
		{url: "https://example.com/dir/report.pdf?x=1#frag", want: "report.pdf"},
		{url: "https://example.com/a%20b.txt", want: "a b.txt"},
		{url: "https://example.com/", want: ""},
		{url: "https://example.com", want: ""},
		{disposition: `attachment; filename="named.zip"`, url: "https://example.com/x", want: "named.zip"},
		{disposition: `attachment; filename=plain.txt`, url: "https://example.com/x", want: "plain.txt"},
		{disposition: `attachment; filename*=UTF-8''na%C3%AFve.txt`, url: "https://example.com/x", want: "naïve.txt"},
		{disposition: `attachment; filename="../../etc/passwd"`, url: "https://example.com/x", want: "passwd"},
		{disposition: `inline`, url: "https://example.com/fallback.bin", want: "fallback.bin"},
	}
	for _, tc := range cases {
		if got := remoteFileName(tc.disposition, tc.url); got != tc.want {
			t.Errorf("remoteFileName(%q, %q) = %q, want %q", tc.disposition, tc.url, got, tc.want)
		}
	}
}

func TestRemoteMIMESniffsUnknownExtensions(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := remoteMIME("image.unknownext", png); got != "image/png" {
		t.Fatalf("sniffed mime = %q, want image/png", got)
	}
	if got := remoteMIME("page.html", []byte("plain words")); got != "text/html" {
		t.Fatalf("extension mime = %q, want text/html", got)
	}
}
