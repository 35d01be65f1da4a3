package auth

import (
	"io"

	"github.com/pkg/browser"
)

// BrowserOpener opens a URL for the user.
type BrowserOpener interface {
	OpenURL(url string) error
}

// SystemBrowser opens URLs with the platform's default browser.
type SystemBrowser struct{}

// NewSystemBrowser returns a SystemBrowser whose launcher output goes to w,
// keeping stdout free.
func NewSystemBrowser(w io.Writer) SystemBrowser {
	if w != nil {
		browser.Stdout = w
		browser.Stderr = w
	}
	return SystemBrowser{}
}

// OpenURL implements BrowserOpener.
func (SystemBrowser) OpenURL(url string) error {
	return browser.OpenURL(url)
}
