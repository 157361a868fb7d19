package convert

import (
	"strings"
	"testing"
)

func TestRewriteImageLinks(t *testing.T) {
	t.Run("exact link target", func(t *testing.T) {
		md := "![fig](page1.png)\n\ntext"
		got := RewriteImageLinks(md, map[string]string{"page1.png": "https://cdn/x.png"})
		if got != "![fig](https://cdn/x.png)\n\ntext" {
			t.Errorf("unexpected rewrite: %q", got)
		}
	})

	t.Run("path prefixed link target", func(t *testing.T) {
		md := "![fig](output_images/page1.png)"
		got := RewriteImageLinks(md, map[string]string{"page1.png": "https://cdn/x.png"})
		if got != "![fig](https://cdn/x.png)" {
			t.Errorf("unexpected rewrite: %q", got)
		}
	})

	t.Run("bare filename fallback", func(t *testing.T) {
		md := "See image page1.png for details."
		got := RewriteImageLinks(md, map[string]string{"page1.png": "https://cdn/x.png"})
		if got != "See image https://cdn/x.png for details." {
			t.Errorf("unexpected rewrite: %q", got)
		}
	})

	t.Run("all reference forms rewritten in one document", func(t *testing.T) {
		md := "![a](fig.png)\n\n![b](images/fig.png)\n\nSee fig.png for details."
		got := RewriteImageLinks(md, map[string]string{"fig.png": "https://cdn/x.png"})
		want := "![a](https://cdn/x.png)\n\n![b](https://cdn/x.png)\n\nSee https://cdn/x.png for details."
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("unknown images left alone", func(t *testing.T) {
		md := "![fig](other.png)"
		got := RewriteImageLinks(md, map[string]string{"page1.png": "https://cdn/x.png"})
		if got != md {
			t.Errorf("unexpected rewrite: %q", got)
		}
	})
}

func TestImageKey(t *testing.T) {
	key := ImageKey("page1.PNG")
	if !strings.HasPrefix(key, "images/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("unexpected key: %q", key)
	}
	if key == ImageKey("page1.PNG") {
		t.Error("keys should be unique per call")
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.png":  "image/png",
		"b.JPG":  "image/jpeg",
		"c.jpeg": "image/jpeg",
		"d.webp": "image/webp",
		"e.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentType(name); got != want {
			t.Errorf("%s: expected %s, got %s", name, want, got)
		}
	}
}
