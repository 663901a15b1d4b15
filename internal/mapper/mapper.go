// Package mapper fills a submission template with a source listing's data.
package mapper

import (
	"fmt"
	"strconv"

	"lotcopy-backend/internal/lots"
	"lotcopy-backend/internal/template"
	"lotcopy-backend/lib/ordered"
)

// Payload is a filled template ready to be submitted.
type Payload struct {
	Fields      ordered.Map
	Kind        template.Kind
	Subcategory lots.SubcategoryID
	// SourceID is the listing the payload was derived from.
	SourceID int64
}

// MappingError means the listing cannot be expressed in the template, the
// listing is skipped.
type MappingError struct {
	ListingID int64
	Reason    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map listing %d: %s", e.ListingID, e.Reason)
}

func setField(fields *ordered.Map, name, value string) {
	if name == "" {
		return
	}
	fields.Set(name, value)
}

// Apply copies the template's fields and overwrites the ones derived from
// the listing. Fields the listing says nothing about keep the template's
// defaults. The template is not modified.
func Apply(tpl template.Template, listing lots.Listing, cred lots.Credential, sub lots.SubcategoryID) (Payload, error) {
	switch {
	case listing.ID == 0:
		return Payload{}, &MappingError{Reason: "listing has no id"}
	case listing.Price.Negative():
		return Payload{}, &MappingError{ListingID: listing.ID, Reason: fmt.Sprintf("negative price %s", listing.Price.Format())}
	case tpl.Subcategory != sub:
		return Payload{}, &MappingError{
			ListingID: listing.ID,
			Reason:    fmt.Sprintf("template is for subcategory %s, not %s", tpl.Subcategory, sub),
		}
	case cred.CSRFToken == "":
		return Payload{}, &MappingError{ListingID: listing.ID, Reason: "credential has no csrf token"}
	}

	layout := tpl.Layout
	fields := tpl.Fields.Clone()

	setField(&fields, layout.CSRFToken, cred.CSRFToken)
	setField(&fields, layout.OfferID, "0")
	setField(&fields, layout.NodeID, sub.String())
	setField(&fields, layout.Price, listing.Price.Format())

	setField(&fields, layout.SummaryPrimary, listing.Description)
	setField(&fields, layout.SummarySecondary, listing.Description)
	setField(&fields, layout.DescriptionPrimary, listing.DetailedDescription)
	setField(&fields, layout.DescriptionSecondary, listing.DetailedDescription)

	setField(&fields, layout.Server, listing.Server)
	quantity := ""
	if listing.Amount != nil {
		quantity = strconv.FormatInt(*listing.Amount, 10)
	}
	setField(&fields, layout.Quantity, quantity)

	if layout.AutoDelivery != "" {
		if listing.AutoDelivery {
			fields.Set(layout.AutoDelivery, "on")
		} else {
			fields.Delete(layout.AutoDelivery)
		}
	}

	if listing.Attributes.Len() > 0 {
		setField(&fields, layout.Attributes, listing.Attributes.Join(":", ","))
	}

	return Payload{
		Fields:      fields,
		Kind:        tpl.Kind,
		Subcategory: sub,
		SourceID:    listing.ID,
	}, nil
}
