package fetch

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	base, _ := url.Parse("https://example.com/docs/index.html")
	doc := `<html><body>
<a href="/about">About</a>
<a href="guide.html#intro">Guide</a>
<a href="https://other.org/x">Other</a>
<a href="mailto:me@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="#top">Top</a>
<a name="anchor">no href</a>
<A HREF="/about">About again</A>
<link href="/style.css">
</body></html>`

	got, err := ExtractLinks(base, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ExtractLinks() error: %v", err)
	}
	want := []string{
		"https://example.com/about",
		"https://example.com/docs/guide.html",
		"https://other.org/x",
		"https://example.com/about",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractLinks() = %v, want %v", got, want)
	}
}

func TestExtractLinksBaseTag(t *testing.T) {
	base, _ := url.Parse("http://a.com/x/")
	doc := `<head><base href="http://cdn.b.com/root/"></head><a href="page">p</a>`

	got, err := ExtractLinks(base, strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"http://cdn.b.com/root/page"}) {
		t.Errorf("got %v", got)
	}
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("http://example.com/a/b")
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"c", "http://example.com/a/c", true},
		{"../d?q=1#frag", "http://example.com/d?q=1", true},
		{"//cdn.example.com/x", "http://cdn.example.com/x", true},
		{"  https://x.org  ", "https://x.org", true},
		{"", "", false},
		{"#section", "", false},
		{"ftp://files.example.com", "", false},
		{"http://%zz", "", false},
	}
	for _, tt := range tests {
		got, ok := Resolve(base, tt.href)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.href, got, ok, tt.want, tt.ok)
		}
	}
}
