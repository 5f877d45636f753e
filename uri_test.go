package gcurl_test

import (
	"errors"
	"testing"

	"github.com/adamwoolhether/gcurl"
)

func TestNewURI(t *testing.T) {
	testCases := map[string]struct {
		address string
		exp     string
		expErr  bool
	}{
		"plain":         {address: "http://example.com/a/b?x=1", exp: "http://example.com/a/b?x=1"},
		"defaultScheme": {address: "example.com/path", exp: "http://example.com/path"},
		"emptyPath":     {address: "https://example.com", exp: "https://example.com/"},
		"caseFolded":    {address: "HTTPS://Example.COM/Path", exp: "https://example.com/Path"},
		"fragmentDrop":  {address: "http://example.com/doc#top", exp: "http://example.com/doc"},
		"port":          {address: " http://localhost:8080/x ", exp: "http://localhost:8080/x"},
		"empty":         {address: "   ", expErr: true},
		"ftp":           {address: "ftp://example.com/file", expErr: true},
		"missingHost":   {address: "http:///path", expErr: true},
		"badEscape":     {address: "http://example.com/%zz", expErr: true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			uri, err := gcurl.NewURI(tc.address)
			if tc.expErr {
				if !errors.Is(err, gcurl.ErrInvalidURI) {
					t.Fatalf("exp ErrInvalidURI; got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsing %q: %v", tc.address, err)
			}
			if uri.String() != tc.exp {
				t.Errorf("exp %q; got %q", tc.exp, uri.String())
			}
		})
	}
}

func TestURI_Redirect(t *testing.T) {
	testCases := map[string]struct {
		location string
		exp      string
		expErr   bool
	}{
		"relative":     {location: "next", exp: "http://example.com/a/next"},
		"rootRelative": {location: "/login?r=1", exp: "http://example.com/login?r=1"},
		"absolute":     {location: "https://other.org/x", exp: "https://other.org/x"},
		"schemeless":   {location: "//cdn.example.com/y", exp: "http://cdn.example.com/y"},
		"empty":        {location: "", expErr: true},
		"blank":        {location: "  \t ", expErr: true},
		"mailto":       {location: "mailto:someone@example.com", expErr: true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			uri, err := gcurl.NewURI("http://example.com/a/b")
			if err != nil {
				t.Fatal(err)
			}

			err = uri.Redirect(tc.location)
			if tc.expErr {
				if err == nil {
					t.Fatal("exp error")
				}
				if uri.String() != "http://example.com/a/b" || uri.Redirects() != 0 {
					t.Errorf("exp uri untouched on failure; got %q after %d redirects", uri.String(), uri.Redirects())
				}
				return
			}
			if err != nil {
				t.Fatalf("redirect: %v", err)
			}
			if uri.String() != tc.exp {
				t.Errorf("exp %q; got %q", tc.exp, uri.String())
			}
			if uri.Redirects() != 1 {
				t.Errorf("exp 1 redirect; got %d", uri.Redirects())
			}
		})
	}
}

func TestURI_WithQuery(t *testing.T) {
	uri, err := gcurl.NewURI("http://example.com/search?lang=en")
	if err != nil {
		t.Fatal(err)
	}

	got := uri.WithQuery(gcurl.Params{{Key: "q", Value: "go http"}})
	if exp := "http://example.com/search?lang=en&q=go+http"; got != exp {
		t.Errorf("exp %q; got %q", exp, got)
	}
	if uri.String() != "http://example.com/search?lang=en" {
		t.Errorf("exp uri unchanged; got %q", uri.String())
	}
	if got := uri.WithQuery(nil); got != uri.String() {
		t.Errorf("exp plain address without params; got %q", got)
	}

	cp := uri.URL()
	cp.Host = "mutated.example"
	if uri.URL().Host != "example.com" {
		t.Error("exp URL to return a copy")
	}
}
