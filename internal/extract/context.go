package extract

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/doctag/internal/doc"
)

// Prompt context stays under a character budget: half of it is reserved for
// the instruction itself, the rest is split across the harvested entries.
const maxContextChars = 4000

// surroundings renders the tags around n as a JSON array of one-entry
// objects, in reading order, with n's own position marked. Returns "" when
// no usable context exists.
func surroundings(d doc.Document, n doc.Node, radius int) string {
	sibs, idx, ok := d.Siblings(n)
	if !ok || len(sibs) == 0 {
		return ""
	}

	lo := idx - radius
	if lo < 0 {
		lo = 0
	}
	hi := idx + radius
	if hi > len(sibs)-1 {
		hi = len(sibs) - 1
	}
	window := sibs[lo : hi+1]

	perEntry := maxContextChars / 2 / len(window)
	entries := make([]map[string]string, 0, len(window))
	for i, sib := range window {
		tag := sib.Tag()
		var text string
		if lo+i == idx {
			text = fmt.Sprintf("This is the position of the %s you are generating text for.", tag)
		} else {
			text = nodeText(d, sib, perEntry)
		}
		entries = append(entries, map[string]string{tag: text})
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(b)
}

// nodeText extracts prompt-worthy text for one surrounding tag. Structured
// containers are flattened; tags with no useful reading yield "".
func nodeText(d doc.Document, n doc.Node, max int) string {
	switch n.Tag() {
	case "Caption", "P", "H", "H1", "H2", "H3", "H4", "H5", "H6", "H7", "H8":
		return d.Text(n, max)
	case "Figure":
		alt, _ := d.Attribute(n, doc.AttrAlt)
		return clip(alt, max)
	case "Table":
		return tableGrid(d, n, max)
	case "L":
		return listItems(d, n, max)
	}
	return ""
}

// tableGrid flattens a Table into a JSON grid of row cell texts, descending
// through THead/TBody into TR rows and TH/TD cells.
func tableGrid(d doc.Document, n doc.Node, max int) string {
	var rows []doc.Node
	for _, child := range d.Children(n) {
		switch child.Tag() {
		case "TR":
			rows = append(rows, child)
		case "THead", "TBody", "TFoot":
			for _, grand := range d.Children(child) {
				if grand.Tag() == "TR" {
					rows = append(rows, grand)
				}
			}
		}
	}
	if len(rows) == 0 {
		return ""
	}

	perCell := max / len(rows)
	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		var cells []string
		for _, cell := range d.Children(row) {
			if cell.Tag() != "TH" && cell.Tag() != "TD" {
				continue
			}
			text := d.Text(cell, perCell)
			if text == "" {
				// Complex cell: fall back to the first child with a reading.
				for _, inner := range d.Children(cell) {
					if t := nodeText(d, inner, perCell); t != "" {
						text = t
						break
					}
				}
			}
			if text != "" {
				cells = append(cells, text)
			}
		}
		grid = append(grid, cells)
	}

	b, err := json.Marshal(grid)
	if err != nil {
		return ""
	}
	return clip(string(b), max)
}

// listItems flattens an L into a JSON array of LBody item texts.
func listItems(d doc.Document, n doc.Node, max int) string {
	var bodies []doc.Node
	for _, child := range d.Children(n) {
		if child.Tag() != "LI" {
			continue
		}
		for _, grand := range d.Children(child) {
			if grand.Tag() == "LBody" {
				bodies = append(bodies, grand)
			}
		}
	}
	if len(bodies) == 0 {
		return ""
	}

	perItem := max / len(bodies)
	items := make([]string, 0, len(bodies))
	for _, body := range bodies {
		text := d.Text(body, perItem)
		if text == "" {
			for _, inner := range d.Children(body) {
				if t := nodeText(d, inner, perItem); t != "" {
					text = t
					break
				}
			}
		}
		if text != "" {
			items = append(items, text)
		}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return clip(string(b), max)
}

func clip(s string, max int) string {
	if max >= 0 && len(s) > max {
		return s[:max]
	}
	return s
}
