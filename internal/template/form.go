package template

import (
	"fmt"
	"io"
	"strings"

	"lotcopy-backend/lib/htmlutil"
	"lotcopy-backend/lib/ordered"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// input types that are never submitted as fields
var ignoredInputTypes = map[string]bool{
	"submit": true,
	"button": true,
	"image":  true,
	"file":   true,
	"reset":  true,
}

func inHiddenGroup(sel *goquery.Selection) bool {
	group := sel.Closest(".form-group")
	return group.Length() > 0 && group.HasClass("hidden")
}

func hasAttr(node *html.Node, key string) bool {
	_, ok := htmlutil.Attr(node, key)
	return ok
}

// ParseForm extracts the submittable fields of the markup in document order.
//
//   - input[name] contributes its value attribute, "" when missing
//   - checkboxes contribute "on" only when checked, enabled and not inside a
//     hidden .form-group, radios contribute their value only when checked
//   - textarea[name] contributes its trimmed text
//   - select[name] outside a hidden .form-group contributes the value of its
//     selected option (its text when it has no value), nothing when no
//     option is selected
//
// A name seen twice keeps its first position and its last value.
func ParseForm(r io.Reader) (ordered.Map, error) {
	var fields ordered.Map

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fields, fmt.Errorf("parse form: %w", err)
	}

	doc.Find("input[name], textarea[name], select[name]").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		name, _ := htmlutil.Attr(node, "name")
		if name == "" {
			return
		}

		switch node.Data {
		case "input":
			inputType, _ := htmlutil.Attr(node, "type")
			inputType = strings.ToLower(strings.TrimSpace(inputType))
			if ignoredInputTypes[inputType] {
				return
			}
			switch inputType {
			case "checkbox":
				if !hasAttr(node, "checked") || hasAttr(node, "disabled") || inHiddenGroup(sel) {
					return
				}
				fields.Set(name, "on")
			case "radio":
				if !hasAttr(node, "checked") {
					return
				}
				value, _ := htmlutil.Attr(node, "value")
				fields.Set(name, value)
			default:
				value, _ := htmlutil.Attr(node, "value")
				fields.Set(name, value)
			}
		case "textarea":
			fields.Set(name, strings.TrimSpace(htmlutil.GetText(node)))
		case "select":
			if inHiddenGroup(sel) {
				return
			}
			option := sel.Find("option[selected]").First()
			if option.Length() == 0 {
				return
			}
			value, ok := htmlutil.Attr(option.Get(0), "value")
			if !ok {
				value = htmlutil.CleanText(option.Get(0))
			}
			fields.Set(name, value)
		}
	})

	return fields, nil
}
