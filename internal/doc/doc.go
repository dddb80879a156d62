// Package doc defines the tagged-document collaborator consumed by the
// description pipeline. Implementations own every byte-level document format
// concern; the pipeline only holds node handles, which stay valid until the
// owning Document closes at the end of one run.
package doc

import "context"

// Attribute keys understood by Attribute and SetAttribute.
const (
	AttrAlt     = "Alt"
	AttrSummary = "Summary"
)

// Region is a bounding box on a page in document user space (points, origin
// at the lower-left corner of the page).
type Region struct {
	Page int // 0-based page index
	Llx  float64
	Lly  float64
	Urx  float64
	Ury  float64
}

// Width returns the horizontal extent of the region.
func (r Region) Width() float64 { return r.Urx - r.Llx }

// Height returns the vertical extent of the region.
func (r Region) Height() float64 { return r.Ury - r.Lly }

// Empty reports whether the region has zero area.
func (r Region) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Node is a handle to one element of a document's logical structure tree.
type Node interface {
	// ID is unique and stable within the document for one run.
	ID() string

	// Tag is the raw structure type name.
	Tag() string

	// RoleTag is the role-mapped type name, or the raw name when no role
	// mapping applies.
	RoleTag() string
}

// Engine opens tagged documents.
type Engine interface {
	Open(path string) (Document, error)
}

// Document is one open tagged document. Implementations are not safe for
// concurrent use; the pipeline owns the handle exclusively for a run.
type Document interface {
	// Traverse returns every structure element in reading order
	// (depth-first, top to bottom).
	Traverse() ([]Node, error)

	// Attribute returns the current value for key on n.
	Attribute(n Node, key string) (string, bool)

	// SetAttribute sets key on n to value.
	SetAttribute(n Node, key, value string) error

	// BoundingRegion returns the region covered by n's content, if one can
	// be determined.
	BoundingRegion(n Node) (Region, bool)

	// Rasterize renders the region to a JPEG image at the given DPI.
	Rasterize(ctx context.Context, r Region, dpi float64) ([]byte, error)

	// AttachFile attaches an associated file to n, replacing any existing
	// associated file with the same role.
	AttachFile(n Node, role string, data []byte, mimeType string) error

	// Text returns up to max characters of n's textual content, or "" when
	// none can be recovered.
	Text(n Node, max int) string

	// Children returns n's element children in order.
	Children(n Node) []Node

	// Siblings returns the ordered children of n's parent along with n's
	// index among them. ok is false for the root element.
	Siblings(n Node) (nodes []Node, index int, ok bool)

	// Save writes the document, including any attribute and associated-file
	// edits, to path.
	Save(path string) error

	// Close releases the document and invalidates all node handles.
	Close() error
}
