// Package pdftree implements the tagged-document collaborator for PDF files.
// pdfcpu provides the object model (structure tree, attributes, associated
// files, save), go-fitz renders pages for region rasterization.
package pdftree

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jackzampolin/doctag/internal/doc"
)

// ErrNoStructTree is returned when the PDF carries no logical structure.
var ErrNoStructTree = errors.New("document has no structure tree")

// Config configures an Engine.
type Config struct {
	// JPEGQuality for rasterized regions (1-100).
	JPEGQuality int

	Logger *slog.Logger
}

// Engine opens tagged PDF documents.
type Engine struct {
	quality int
	logger  *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = 85
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{quality: cfg.JPEGQuality, logger: logger.With("component", "pdftree")}
}

// node is one structure element. It satisfies doc.Node; all mutation goes
// through the owning document.
type node struct {
	id     string
	tag    string
	role   string
	page   int // 0-based, -1 unknown
	dict   types.Dict
	parent *node
	kids   []*node
}

func (n *node) ID() string  { return n.id }
func (n *node) Tag() string { return n.tag }
func (n *node) RoleTag() string {
	if n.role != "" {
		return n.role
	}
	return n.tag
}

// document is one open tagged PDF.
type document struct {
	path    string
	ctx     *model.Context
	fz      *fitz.Document
	quality int
	logger  *slog.Logger

	pageIndex   map[int]int // page dict object number -> 0-based page index
	pageHeights []float64   // page index -> MediaBox height in points
	roleMap     map[string]string

	root  *node
	order []*node // depth-first traversal order, root excluded
}

// Open reads the PDF and builds the structure tree. It fails when the
// document has no structure tree.
func (e *Engine) Open(path string) (doc.Document, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fz, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for rendering: %w", path, err)
	}

	d := &document{
		path:    path,
		ctx:     ctx,
		fz:      fz,
		quality: e.quality,
		logger:  e.logger,
	}

	if err := d.buildPageIndex(); err != nil {
		fz.Close()
		return nil, err
	}
	if err := d.buildTree(); err != nil {
		fz.Close()
		return nil, err
	}

	e.logger.Debug("document opened", "path", path, "pages", len(d.pageHeights), "elements", len(d.order))
	return d, nil
}

// Traverse returns every structure element in reading order.
func (d *document) Traverse() ([]doc.Node, error) {
	out := make([]doc.Node, len(d.order))
	for i, n := range d.order {
		out[i] = n
	}
	return out, nil
}

// Children returns n's element children in order.
func (d *document) Children(n doc.Node) []doc.Node {
	pn := n.(*node)
	out := make([]doc.Node, len(pn.kids))
	for i, k := range pn.kids {
		out[i] = k
	}
	return out
}

// Siblings returns the children of n's parent and n's index among them.
func (d *document) Siblings(n doc.Node) ([]doc.Node, int, bool) {
	pn := n.(*node)
	if pn.parent == nil {
		return nil, 0, false
	}
	sibs := make([]doc.Node, len(pn.parent.kids))
	idx := -1
	for i, k := range pn.parent.kids {
		sibs[i] = k
		if k == pn {
			idx = i
		}
	}
	if idx < 0 {
		return nil, 0, false
	}
	return sibs, idx, true
}

// Save writes the edited document to path.
func (d *document) Save(path string) error {
	if err := api.WriteContextFile(d.ctx, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Close releases the document. Node handles become invalid.
func (d *document) Close() error {
	d.ctx = nil
	d.root = nil
	d.order = nil
	if d.fz != nil {
		err := d.fz.Close()
		d.fz = nil
		return err
	}
	return nil
}

// buildPageIndex walks the page tree recording object numbers and MediaBox
// heights. MediaBox is inheritable from Pages nodes.
func (d *document) buildPageIndex() error {
	d.pageIndex = make(map[int]int)

	catalog, err := d.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	pagesObj, found := catalog.Find("Pages")
	if !found {
		return fmt.Errorf("catalog has no page tree")
	}
	return d.walkPages(pagesObj, nil)
}

func (d *document) walkPages(o types.Object, inheritedBox types.Array) error {
	objNr := -1
	if ir, ok := o.(types.IndirectRef); ok {
		objNr = ir.ObjectNumber.Value()
	}
	dict, ok := d.derefDict(o)
	if !ok {
		return fmt.Errorf("malformed page tree node")
	}

	box := inheritedBox
	if mb, found := dict.Find("MediaBox"); found {
		if arr, ok := d.derefArray(mb); ok {
			box = arr
		}
	}

	if name, _ := dict.Find("Type"); name != nil {
		if tn, ok := name.(types.Name); ok && tn.Value() == "Page" {
			idx := len(d.pageHeights)
			if objNr >= 0 {
				d.pageIndex[objNr] = idx
			}
			d.pageHeights = append(d.pageHeights, boxHeight(box))
			return nil
		}
	}

	kidsObj, found := dict.Find("Kids")
	if !found {
		return nil
	}
	kids, ok := d.derefArray(kidsObj)
	if !ok {
		return fmt.Errorf("malformed Kids array in page tree")
	}
	for _, kid := range kids {
		if err := d.walkPages(kid, box); err != nil {
			return err
		}
	}
	return nil
}

func boxHeight(box types.Array) float64 {
	if len(box) != 4 {
		return 0
	}
	lly, ok1 := numValue(box[1])
	ury, ok2 := numValue(box[3])
	if !ok1 || !ok2 {
		return 0
	}
	return ury - lly
}

// buildTree materializes the structure tree under StructTreeRoot.
func (d *document) buildTree() error {
	catalog, err := d.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	strObj, found := catalog.Find("StructTreeRoot")
	if !found {
		return ErrNoStructTree
	}
	strDict, ok := d.derefDict(strObj)
	if !ok {
		return ErrNoStructTree
	}

	d.roleMap = make(map[string]string)
	if rmObj, found := strDict.Find("RoleMap"); found {
		if rm, ok := d.derefDict(rmObj); ok {
			for k, v := range rm {
				if name, ok := v.(types.Name); ok {
					d.roleMap[k] = name.Value()
				}
			}
		}
	}

	d.root = &node{id: "root", tag: "StructTreeRoot", page: -1, dict: strDict}
	seq := 0
	if kObj, found := strDict.Find("K"); found {
		d.buildKids(d.root, kObj, &seq)
	}
	if len(d.root.kids) == 0 {
		return ErrNoStructTree
	}

	d.resolvePages(d.root)

	var flatten func(n *node)
	flatten = func(n *node) {
		for _, k := range n.kids {
			d.order = append(d.order, k)
			flatten(k)
		}
	}
	flatten(d.root)
	return nil
}

// buildKids descends a K entry, which may be a single element, an array of
// children, or marked-content references we do not materialize.
func (d *document) buildKids(parent *node, o types.Object, seq *int) {
	resolved, err := d.ctx.Dereference(o)
	if err != nil || resolved == nil {
		return
	}
	switch v := resolved.(type) {
	case types.Array:
		for _, item := range v {
			d.buildKids(parent, item, seq)
		}
	case types.Dict:
		sObj, found := v.Find("S")
		if !found {
			return // MCR/OBJR without a structure type
		}
		sName, ok := sObj.(types.Name)
		if !ok {
			return
		}
		tag := sName.Value()
		// Marked-content and object references are content, not elements.
		if tObj, found := v.Find("Type"); found {
			if tn, ok := tObj.(types.Name); ok && (tn.Value() == "MCR" || tn.Value() == "OBJR") {
				return
			}
		}

		*seq++
		n := &node{
			id:     fmt.Sprintf("%s#%03d", tag, *seq),
			tag:    tag,
			role:   d.roleMap[tag],
			page:   d.pageFor(v),
			dict:   v,
			parent: parent,
		}
		parent.kids = append(parent.kids, n)
		if kObj, found := v.Find("K"); found {
			d.buildKids(n, kObj, seq)
		}
	}
}

// pageFor resolves the element's own Pg reference, if any.
func (d *document) pageFor(dict types.Dict) int {
	pgObj, found := dict.Find("Pg")
	if !found {
		return -1
	}
	ir, ok := pgObj.(types.IndirectRef)
	if !ok {
		return -1
	}
	if idx, ok := d.pageIndex[ir.ObjectNumber.Value()]; ok {
		return idx
	}
	return -1
}

// resolvePages fills unknown page numbers from the first descendant that
// knows its page, the same way readers infer an element's location.
func (d *document) resolvePages(n *node) {
	for _, k := range n.kids {
		d.resolvePages(k)
	}
	if n.page < 0 {
		for _, k := range n.kids {
			if k.page >= 0 {
				n.page = k.page
				break
			}
		}
	}
}

// derefDict resolves o to a dictionary.
func (d *document) derefDict(o types.Object) (types.Dict, bool) {
	resolved, err := d.ctx.Dereference(o)
	if err != nil {
		return nil, false
	}
	dict, ok := resolved.(types.Dict)
	return dict, ok
}

// derefArray resolves o to an array.
func (d *document) derefArray(o types.Object) (types.Array, bool) {
	resolved, err := d.ctx.Dereference(o)
	if err != nil {
		return nil, false
	}
	arr, ok := resolved.(types.Array)
	return arr, ok
}

func numValue(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Integer:
		return float64(v.Value()), true
	case types.Float:
		return v.Value(), true
	}
	return 0, false
}

// Verify interfaces
var (
	_ doc.Engine   = (*Engine)(nil)
	_ doc.Document = (*document)(nil)
	_ doc.Node     = (*node)(nil)
)
