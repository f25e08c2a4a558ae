// internal/builder/models.go
package builder

import "html/template"

// SiteData is passed to the site template.
type SiteData struct {
	Title  string
	Navbar []NavLink
	Blocks []Block
	Blog   []PostData
	Pages  []PageData
	Info   template.HTML
}

type NavLink struct {
	Name string
	Href string
}

// PageData is one named page, rendered as a hidden div the page script
// reveals.
type PageData struct {
	Name   string
	Title  string
	Blocks []Block
	Blog   []PostData
	Links  []LinkData
}

type PostData struct {
	Title  string
	Millis int64
	ISO    string
	Blocks []Block
}

type LinkData struct {
	Label string
	URL   string
}

// Block is one order-preserved element of a page or post. Exactly one of
// HTML, Code and Src is set.
type Block struct {
	HTML template.HTML
	Code string
	Src  template.URL
}
