package doc

import (
	"context"
	"fmt"
)

// MockNode is a Node for testing.
type MockNode struct {
	NodeID   string
	Type     string
	Role     string
	Bounds   *Region
	Attrs    map[string]string
	Contents string
	Kids     []*MockNode

	parent *MockNode
}

// ID returns the node identifier.
func (n *MockNode) ID() string { return n.NodeID }

// Tag returns the raw structure type name.
func (n *MockNode) Tag() string { return n.Type }

// RoleTag returns the role-mapped type name.
func (n *MockNode) RoleTag() string {
	if n.Role != "" {
		return n.Role
	}
	return n.Type
}

// AttachedFile records one AttachFile call on a MockDocument.
type AttachedFile struct {
	NodeID   string
	Role     string
	Data     []byte
	MIMEType string
}

// MockDocument is a Document for testing. Construct with NewMockDocument;
// the root node itself is included in traversal, so give it a type that the
// pattern under test does not match.
type MockDocument struct {
	Root *MockNode

	// Configurable behavior
	RasterData []byte
	RasterErr  error
	SetAttrErr error
	AttachErr  error
	SaveErr    error

	// Recorded state
	SavedTo  []string
	Attached []AttachedFile
	Closed   bool
}

// NewMockDocument builds a mock document around a node tree.
func NewMockDocument(root *MockNode) *MockDocument {
	link(root)
	return &MockDocument{
		Root:       root,
		RasterData: []byte("\xff\xd8mock-jpeg"),
	}
}

func link(n *MockNode) {
	for _, k := range n.Kids {
		k.parent = n
		link(k)
	}
}

// Traverse returns the node tree flattened depth-first.
func (d *MockDocument) Traverse() ([]Node, error) {
	var out []Node
	var walk func(n *MockNode)
	walk = func(n *MockNode) {
		out = append(out, n)
		for _, k := range n.Kids {
			walk(k)
		}
	}
	walk(d.Root)
	return out, nil
}

// Attribute returns the current value for key on n.
func (d *MockDocument) Attribute(n Node, key string) (string, bool) {
	mn := n.(*MockNode)
	v, ok := mn.Attrs[key]
	return v, ok
}

// SetAttribute sets key on n to value.
func (d *MockDocument) SetAttribute(n Node, key, value string) error {
	if d.SetAttrErr != nil {
		return d.SetAttrErr
	}
	mn := n.(*MockNode)
	if mn.Attrs == nil {
		mn.Attrs = make(map[string]string)
	}
	mn.Attrs[key] = value
	return nil
}

// BoundingRegion returns the region configured on n.
func (d *MockDocument) BoundingRegion(n Node) (Region, bool) {
	mn := n.(*MockNode)
	if mn.Bounds == nil {
		return Region{}, false
	}
	return *mn.Bounds, true
}

// Rasterize returns the configured image bytes or error.
func (d *MockDocument) Rasterize(ctx context.Context, r Region, dpi float64) ([]byte, error) {
	if d.RasterErr != nil {
		return nil, d.RasterErr
	}
	return d.RasterData, nil
}

// AttachFile records the attachment, replacing a same-role entry.
func (d *MockDocument) AttachFile(n Node, role string, data []byte, mimeType string) error {
	if d.AttachErr != nil {
		return d.AttachErr
	}
	af := AttachedFile{NodeID: n.ID(), Role: role, Data: data, MIMEType: mimeType}
	for i, prev := range d.Attached {
		if prev.NodeID == af.NodeID && prev.Role == role {
			d.Attached[i] = af
			return nil
		}
	}
	d.Attached = append(d.Attached, af)
	return nil
}

// Text returns up to max characters of the node's configured contents.
func (d *MockDocument) Text(n Node, max int) string {
	mn := n.(*MockNode)
	if max >= 0 && len(mn.Contents) > max {
		return mn.Contents[:max]
	}
	return mn.Contents
}

// Children returns the node's element children.
func (d *MockDocument) Children(n Node) []Node {
	mn := n.(*MockNode)
	out := make([]Node, len(mn.Kids))
	for i, k := range mn.Kids {
		out[i] = k
	}
	return out
}

// Siblings returns the ordered children of n's parent and n's index.
func (d *MockDocument) Siblings(n Node) ([]Node, int, bool) {
	mn := n.(*MockNode)
	if mn.parent == nil {
		return nil, 0, false
	}
	sibs := make([]Node, len(mn.parent.Kids))
	idx := -1
	for i, k := range mn.parent.Kids {
		sibs[i] = k
		if k == mn {
			idx = i
		}
	}
	if idx < 0 {
		return nil, 0, false
	}
	return sibs, idx, true
}

// Save records the destination path.
func (d *MockDocument) Save(path string) error {
	if d.SaveErr != nil {
		return d.SaveErr
	}
	d.SavedTo = append(d.SavedTo, path)
	return nil
}

// Close marks the document closed.
func (d *MockDocument) Close() error {
	d.Closed = true
	return nil
}

// MockEngine opens a fixed MockDocument regardless of path.
type MockEngine struct {
	Doc     *MockDocument
	OpenErr error
}

// Open returns the configured document.
func (e *MockEngine) Open(path string) (Document, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	if e.Doc == nil {
		return nil, fmt.Errorf("mock engine has no document")
	}
	return e.Doc, nil
}

// Verify interfaces
var (
	_ Node     = (*MockNode)(nil)
	_ Document = (*MockDocument)(nil)
	_ Engine   = (*MockEngine)(nil)
)
