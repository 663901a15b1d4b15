package gateway

import (
	"net/url"
	"strings"
)

// Routes are the gateway paths used by the pipeline. Placeholders in braces
// are filled in with Expand.
type Routes struct {
	Auth                string `json:"auth"`
	UserSubcategories   string `json:"user_subcategories"`
	LotsByUser          string `json:"lots_by_user"`
	Lots                string `json:"lots"`
	LotDetails          string `json:"lot_details"`
	LotFields           string `json:"lot_fields"`
	OfferEdit           string `json:"offer_edit"`
	CreateLot           string `json:"create_lot"`
	CreateLotFromFields string `json:"create_lot_from_fields"`
}

func DefaultRoutes() Routes {
	return Routes{
		Auth:                "/auth",
		UserSubcategories:   "/user-subcategories/{userId}",
		LotsByUser:          "/lots-by-user/{subcategoryId}/{userId}",
		Lots:                "/lots/{subcategoryId}",
		LotDetails:          "/lot-details/{lotId}",
		LotFields:           "/lot-fields/new/{subcategoryId}",
		OfferEdit:           "/lots/offerEdit",
		CreateLot:           "/create-lot",
		CreateLotFromFields: "/create-lot-from-fields",
	}
}

// WithDefaults fills every empty route with its default.
func (r Routes) WithDefaults() Routes {
	def := DefaultRoutes()
	fill := func(target *string, fallback string) {
		if *target == "" {
			*target = fallback
		}
	}
	fill(&r.Auth, def.Auth)
	fill(&r.UserSubcategories, def.UserSubcategories)
	fill(&r.LotsByUser, def.LotsByUser)
	fill(&r.Lots, def.Lots)
	fill(&r.LotDetails, def.LotDetails)
	fill(&r.LotFields, def.LotFields)
	fill(&r.OfferEdit, def.OfferEdit)
	fill(&r.CreateLot, def.CreateLot)
	fill(&r.CreateLotFromFields, def.CreateLotFromFields)
	return r
}

// Expand replaces every {name} in route with the path escaped value of
// params[name].
func Expand(route string, params map[string]string) string {
	for name, value := range params {
		route = strings.ReplaceAll(route, "{"+name+"}", url.PathEscape(value))
	}
	return route
}
