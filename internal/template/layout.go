package template

// Layout names the fields the mapper writes for one template version. Field
// names that differ between gateway versions are only spelled out here.
// Empty names are skipped by the mapper.
type Layout struct {
	Name                 string
	CSRFToken            string
	OfferID              string
	NodeID               string
	Price                string
	SummaryPrimary       string
	SummarySecondary     string
	DescriptionPrimary   string
	DescriptionSecondary string
	Server               string
	Quantity             string
	AutoDelivery         string
	Attributes           string
}

// FormLayout matches the marketplace's own offer edit form.
var FormLayout = Layout{
	Name:                 "form",
	CSRFToken:            "csrf_token",
	OfferID:              "offer_id",
	NodeID:               "node_id",
	Price:                "price",
	SummaryPrimary:       "fields[summary][ru]",
	SummarySecondary:     "fields[summary][en]",
	DescriptionPrimary:   "fields[desc][ru]",
	DescriptionSecondary: "fields[desc][en]",
	Server:               "param_0",
	Quantity:             "amount",
	AutoDelivery:         "auto_delivery",
	Attributes:           "fields[attributes]",
}

// StructuredLayout matches the gateway's JSON lot-fields route.
var StructuredLayout = Layout{
	Name:               "structured",
	CSRFToken:          "csrf_token",
	OfferID:            "offer_id",
	NodeID:             "node_id",
	Price:              "price",
	SummaryPrimary:     "short_description",
	DescriptionPrimary: "description",
	Server:             "param_0",
	Quantity:           "quantity",
	AutoDelivery:       "auto_delivery",
	Attributes:         "fields[attributes]",
}
