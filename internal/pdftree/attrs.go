package pdftree

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jackzampolin/doctag/internal/doc"
)

// Attribute returns the current value for key on n. Alt lives directly on
// the element dictionary; Summary lives inside an attribute object with
// O=Table, per the tagged-PDF convention.
func (d *document) Attribute(n doc.Node, key string) (string, bool) {
	pn := n.(*node)
	switch key {
	case doc.AttrAlt:
		if o, found := pn.dict.Find("Alt"); found {
			return d.decodeString(o)
		}
		return "", false
	case doc.AttrSummary:
		if attr, ok := d.tableAttrDict(pn); ok {
			if o, found := attr.Find("Summary"); found {
				return d.decodeString(o)
			}
		}
		return "", false
	}
	return "", false
}

// SetAttribute sets key on n to value.
func (d *document) SetAttribute(n doc.Node, key, value string) error {
	pn := n.(*node)
	switch key {
	case doc.AttrAlt:
		pn.dict["Alt"] = encodeString(value)
		return nil
	case doc.AttrSummary:
		attr, ok := d.tableAttrDict(pn)
		if !ok {
			attr = types.Dict{"O": types.Name("Table")}
			d.appendAttrDict(pn, attr)
		}
		attr["Summary"] = encodeString(value)
		return nil
	}
	return fmt.Errorf("unknown attribute %q", key)
}

// tableAttrDict finds the element's attribute object with O=Table, scanning
// last to first so the most recently attached one wins.
func (d *document) tableAttrDict(pn *node) (types.Dict, bool) {
	dicts := d.attrDicts(pn)
	for i := len(dicts) - 1; i >= 0; i-- {
		if o, found := dicts[i].Find("O"); found {
			if name, ok := o.(types.Name); ok && name.Value() == "Table" {
				return dicts[i], true
			}
		}
	}
	return nil, false
}

// attrDicts collects the element's attribute objects from its A entry,
// which holds a single dict or an array of them.
func (d *document) attrDicts(pn *node) []types.Dict {
	aObj, found := pn.dict.Find("A")
	if !found {
		return nil
	}
	resolved, err := d.ctx.Dereference(aObj)
	if err != nil {
		return nil
	}
	switch v := resolved.(type) {
	case types.Dict:
		return []types.Dict{v}
	case types.Array:
		var out []types.Dict
		for _, item := range v {
			if dict, ok := d.derefDict(item); ok {
				out = append(out, dict)
			}
		}
		return out
	}
	return nil
}

// appendAttrDict attaches a new attribute object to the element, converting
// a lone A dict into an array when needed.
func (d *document) appendAttrDict(pn *node, attr types.Dict) {
	aObj, found := pn.dict.Find("A")
	if !found {
		pn.dict["A"] = attr
		return
	}
	resolved, err := d.ctx.Dereference(aObj)
	if err != nil {
		pn.dict["A"] = attr
		return
	}
	switch v := resolved.(type) {
	case types.Array:
		pn.dict["A"] = append(v, attr)
	default:
		pn.dict["A"] = types.Array{resolved, attr}
	}
}

// BoundingRegion returns the element's bounding box from its layout
// attributes, when one is recorded.
func (d *document) BoundingRegion(n doc.Node) (doc.Region, bool) {
	pn := n.(*node)
	if pn.page < 0 {
		return doc.Region{}, false
	}
	for _, attr := range d.attrDicts(pn) {
		bboxObj, found := attr.Find("BBox")
		if !found {
			continue
		}
		arr, ok := d.derefArray(bboxObj)
		if !ok || len(arr) != 4 {
			continue
		}
		var vals [4]float64
		valid := true
		for i, o := range arr {
			v, ok := numValue(o)
			if !ok {
				valid = false
				break
			}
			vals[i] = v
		}
		if !valid {
			continue
		}
		return doc.Region{
			Page: pn.page,
			Llx:  vals[0],
			Lly:  vals[1],
			Urx:  vals[2],
			Ury:  vals[3],
		}, true
	}
	return doc.Region{}, false
}

// AttachFile attaches data as an associated file on n. An existing
// associated file with the same role is replaced, not duplicated.
func (d *document) AttachFile(n doc.Node, role string, data []byte, mimeType string) error {
	pn := n.(*node)

	length := int64(len(data))
	sd := types.StreamDict{
		Dict: types.Dict{
			"Length":  types.Integer(len(data)),
			"Subtype": types.Name(strings.ReplaceAll(mimeType, "/", "#2F")),
		},
		Content:      data,
		Raw:          data,
		StreamLength: &length,
	}
	streamRef, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return fmt.Errorf("failed to embed file stream: %w", err)
	}

	fs := types.Dict{
		"Type":           types.Name("Filespec"),
		"AFRelationship": types.Name("Supplement"),
		"F":              encodeString(role),
		"UF":             encodeString(role),
		"Desc":           encodeString(role),
		"EF":             types.Dict{"F": *streamRef, "UF": *streamRef},
	}
	fsRef, err := d.ctx.IndRefForNewObject(fs)
	if err != nil {
		return fmt.Errorf("failed to create filespec: %w", err)
	}

	// Normalize AF to an array, then replace a same-role entry or append.
	var af types.Array
	if afObj, found := pn.dict.Find("AF"); found {
		resolved, err := d.ctx.Dereference(afObj)
		if err == nil {
			switch v := resolved.(type) {
			case types.Array:
				af = v
			case types.Dict:
				af = types.Array{afObj}
			}
		}
	}
	for i, entry := range af {
		dict, ok := d.derefDict(entry)
		if !ok {
			continue
		}
		if descObj, found := dict.Find("Desc"); found {
			if desc, ok := d.decodeString(descObj); ok && desc == role {
				af[i] = *fsRef
				pn.dict["AF"] = af
				return nil
			}
		}
	}
	pn.dict["AF"] = append(af, *fsRef)
	return nil
}

// Text recovers up to max characters of the element's reading: ActualText
// first, then Alt, then the concatenation of its children's readings.
func (d *document) Text(n doc.Node, max int) string {
	pn := n.(*node)
	return clipText(d.textOf(pn, max), max)
}

func (d *document) textOf(pn *node, max int) string {
	if o, found := pn.dict.Find("ActualText"); found {
		if s, ok := d.decodeString(o); ok && s != "" {
			return s
		}
	}
	if o, found := pn.dict.Find("Alt"); found {
		if s, ok := d.decodeString(o); ok && s != "" {
			return s
		}
	}
	var parts []string
	total := 0
	for _, k := range pn.kids {
		s := d.textOf(k, max-total)
		if s == "" {
			continue
		}
		parts = append(parts, s)
		total += len(s)
		if max >= 0 && total >= max {
			break
		}
	}
	return strings.Join(parts, " ")
}

func clipText(s string, max int) string {
	if max >= 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// decodeString reads a PDF string object (literal or hex/UTF-16).
func (d *document) decodeString(o types.Object) (string, bool) {
	resolved, err := d.ctx.Dereference(o)
	if err != nil {
		return "", false
	}
	switch v := resolved.(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return "", false
		}
		return s, true
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		if err != nil {
			return "", false
		}
		return s, true
	}
	return "", false
}

// encodeString writes a text string as a UTF-16BE hex literal with BOM,
// which round-trips the full Unicode range.
func encodeString(s string) types.Object {
	codes := utf16.Encode([]rune(s))
	buf := make([]byte, 2+2*len(codes))
	buf[0], buf[1] = 0xFE, 0xFF
	for i, c := range codes {
		buf[2+2*i] = byte(c >> 8)
		buf[3+2*i] = byte(c)
	}
	return types.HexLiteral(hex.EncodeToString(buf))
}
