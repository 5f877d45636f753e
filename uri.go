package gcurl

import (
	"fmt"
	"net/url"
	"strings"
)

// URI is the target address of a [Single]. Redirects replace it in place,
// so every holder of the pointer sees the new address.
type URI struct {
	u         *url.URL
	redirects int
}

// NewURI parses and normalises address. A missing scheme defaults to http.
func NewURI(address string) (*URI, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidURI)
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}

	u, err = normalize(u)
	if err != nil {
		return nil, err
	}

	return &URI{u: u}, nil
}

// Redirect replaces the address. A relative reference resolves against
// the current address. Any response obtained for the old address is stale.
func (u *URI) Redirect(newAddress string) error {
	newAddress = strings.TrimSpace(newAddress)
	if newAddress == "" {
		return fmt.Errorf("%w: empty redirect address", ErrInvalidURI)
	}

	ref, err := url.Parse(newAddress)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}

	next, err := normalize(u.u.ResolveReference(ref))
	if err != nil {
		return err
	}

	u.u = next
	u.redirects++

	return nil
}

func (u *URI) String() string {
	return u.u.String()
}

// URL returns a copy of the parsed address.
func (u *URI) URL() *url.URL {
	cp := *u.u
	return &cp
}

// Redirects reports how many times the address was replaced.
func (u *URI) Redirects() int {
	return u.redirects
}

// WithQuery renders the address with params appended to any existing query.
func (u *URI) WithQuery(params Params) string {
	if len(params) == 0 {
		return u.String()
	}

	cp := u.URL()
	if cp.RawQuery != "" {
		cp.RawQuery += "&" + params.Encode()
	} else {
		cp.RawQuery = params.Encode()
	}

	return cp.String()
}

func normalize(u *url.URL) (*url.URL, error) {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURI, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURI)
	}
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	if err := validateVar(u.String(), "url"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}

	return u, nil
}
