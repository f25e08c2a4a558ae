// internal/content/elements.go
package content

import (
	"time"
)

// Kind identifies the variant of an Element.
type Kind int

const (
	KindTitle Kind = iota
	KindParagraph
	KindLinks
	KindNavbar
	KindInfo
	KindImage
	KindName
	KindDate
	KindBlog
	KindCode
)

var kindNames = map[Kind]string{
	KindTitle:     "Title",
	KindParagraph: "Paragraph",
	KindLinks:     "Links",
	KindNavbar:    "Navbar",
	KindInfo:      "Info",
	KindImage:     "Image",
	KindName:      "Name",
	KindDate:      "Date",
	KindBlog:      "Blog",
	KindCode:      "Code",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Element is one typed unit of content produced from a single tag.
// The set of variants is closed: only types in this package implement it.
type Element interface {
	Kind() Kind
	element()
}

type Title struct {
	Text string
}

type Paragraph struct {
	Text string
}

// Links maps each link kind to its value, for example a Github user name.
type Links struct {
	Links map[LinkKind]string
}

// Navbar lists page names in display order.
type Navbar struct {
	Pages []string
}

// Info is the fixed attribution line. Text is trusted HTML.
type Info struct {
	Text string
}

// Image references a picture either inline (URL holds a data URL and
// CopyAsset is false) or by relative path, in which case the renderer must
// place a copy of the asset in the output tree.
type Image struct {
	URL       string
	CopyAsset bool
	Size      *int
}

// Name labels the page that contains it.
type Name struct {
	Text string
}

// Date is always stored in UTC.
type Date struct {
	Time time.Time
}

type Blog struct {
	Posts []BlogPost
}

type Code struct {
	Text string
}

func (Title) Kind() Kind     { return KindTitle }
func (Paragraph) Kind() Kind { return KindParagraph }
func (Links) Kind() Kind     { return KindLinks }
func (Navbar) Kind() Kind    { return KindNavbar }
func (Info) Kind() Kind      { return KindInfo }
func (Image) Kind() Kind     { return KindImage }
func (Name) Kind() Kind      { return KindName }
func (Date) Kind() Kind      { return KindDate }
func (Blog) Kind() Kind      { return KindBlog }
func (Code) Kind() Kind      { return KindCode }

func (Title) element()     {}
func (Paragraph) element() {}
func (Links) element()     {}
func (Navbar) element()    {}
func (Info) element()      {}
func (Image) element()     {}
func (Name) element()      {}
func (Date) element()      {}
func (Blog) element()      {}
func (Code) element()      {}

// LinkKind is a recognized link target.
type LinkKind int

const (
	Github LinkKind = iota
)

func (k LinkKind) String() string {
	switch k {
	case Github:
		return "Github"
	}
	return "Unknown"
}

// ParseLinkKind maps the markup spelling of a link kind to its value.
func ParseLinkKind(s string) (LinkKind, bool) {
	switch s {
	case "Github":
		return Github, true
	}
	return 0, false
}
