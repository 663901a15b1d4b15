// Package lots holds the marketplace read models shared by every stage of
// the replication pipeline.
package lots

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lotcopy-backend/lib/ordered"

	"github.com/shopspring/decimal"
)

// SubcategoryID identifies a marketplace subcategory (the upstream calls it
// a "node"). Any non-positive value means "no explicit subcategory".
type SubcategoryID int64

const AllSubcategories SubcategoryID = -1

// Explicit reports whether the id names a concrete subcategory.
func (s SubcategoryID) Explicit() bool {
	return s > 0
}

func (s SubcategoryID) String() string {
	if !s.Explicit() {
		return "all"
	}
	return strconv.FormatInt(int64(s), 10)
}

// ParseSubcategory accepts a subcategory id, or one of "", "all", "null",
// "-1" for every subcategory of the user.
func ParseSubcategory(text string) (SubcategoryID, error) {
	text = strings.TrimSpace(strings.ToLower(text))
	switch text {
	case "", "all", "null":
		return AllSubcategories, nil
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subcategory %q: %w", text, err)
	}
	if id <= 0 {
		return AllSubcategories, nil
	}
	return SubcategoryID(id), nil
}

// UnmarshalJSON accepts numbers, numeric strings, "all" and null.
func (s *SubcategoryID) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*s = AllSubcategories
		return nil
	}
	if !strings.HasPrefix(text, `"`) {
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid subcategory %s: %w", text, err)
		}
		*s = SubcategoryID(id)
		return nil
	}
	var unquoted string
	err := json.Unmarshal(data, &unquoted)
	if err != nil {
		return err
	}
	id, err := ParseSubcategory(unquoted)
	if err != nil {
		return err
	}
	*s = id
	return nil
}

type Price struct {
	Amount   decimal.Decimal
	Currency string
}

func NewPrice(amount string, currency string) (Price, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Price{}, err
	}
	return Price{Amount: parsed, Currency: currency}, nil
}

func (p Price) Negative() bool {
	return p.Amount.IsNegative()
}

// Format renders the amount with '.' as the decimal separator regardless of
// locale.
func (p Price) Format() string {
	return p.Amount.String()
}

func (p Price) String() string {
	if p.Currency == "" {
		return p.Format()
	}
	return p.Format() + " " + p.Currency
}

// Listing is a marketplace lot as the gateway reports it.
type Listing struct {
	ID                  int64
	Title               string
	Price               Price
	Description         string
	DetailedDescription string
	Server              string
	Amount              *int64
	AutoDelivery        bool
	IsPromo             bool
	Attributes          ordered.Map
	SubcategoryID       SubcategoryID
	CategoryName        string
	Html                string
	PublicLink          string
	SellerID            int64
	SellerUsername      string
}

// listingJSON is the gateway wire shape, price and currency are flat keys.
type listingJSON struct {
	ID                  int64           `json:"Id"`
	Title               string          `json:"Title"`
	Price               decimal.Decimal `json:"Price"`
	Currency            string          `json:"Currency"`
	Description         string          `json:"Description"`
	DetailedDescription string          `json:"DetailedDescription,omitempty"`
	Server              string          `json:"Server"`
	Amount              *int64          `json:"Amount"`
	AutoDelivery        bool            `json:"AutoDelivery"`
	IsPromo             bool            `json:"IsPromo"`
	Attributes          ordered.Map     `json:"Attributes"`
	SubcategoryID       SubcategoryID   `json:"SubcategoryId"`
	CategoryName        string          `json:"CategoryName"`
	Html                string          `json:"Html"`
	PublicLink          string          `json:"PublicLink"`
	SellerID            int64           `json:"SellerId"`
	SellerUsername      string          `json:"SellerUsername"`
}

func (l Listing) MarshalJSON() ([]byte, error) {
	return json.Marshal(listingJSON{
		ID:                  l.ID,
		Title:               l.Title,
		Price:               l.Price.Amount,
		Currency:            l.Price.Currency,
		Description:         l.Description,
		DetailedDescription: l.DetailedDescription,
		Server:              l.Server,
		Amount:              l.Amount,
		AutoDelivery:        l.AutoDelivery,
		IsPromo:             l.IsPromo,
		Attributes:          l.Attributes,
		SubcategoryID:       l.SubcategoryID,
		CategoryName:        l.CategoryName,
		Html:                l.Html,
		PublicLink:          l.PublicLink,
		SellerID:            l.SellerID,
		SellerUsername:      l.SellerUsername,
	})
}

func (l *Listing) UnmarshalJSON(data []byte) error {
	var wire listingJSON
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}
	*l = Listing{
		ID:                  wire.ID,
		Title:               wire.Title,
		Price:               Price{Amount: wire.Price, Currency: wire.Currency},
		Description:         wire.Description,
		DetailedDescription: wire.DetailedDescription,
		Server:              wire.Server,
		Amount:              wire.Amount,
		AutoDelivery:        wire.AutoDelivery,
		IsPromo:             wire.IsPromo,
		Attributes:          wire.Attributes,
		SubcategoryID:       wire.SubcategoryID,
		CategoryName:        wire.CategoryName,
		Html:                wire.Html,
		PublicLink:          wire.PublicLink,
		SellerID:            wire.SellerID,
		SellerUsername:      wire.SellerUsername,
	}
	return nil
}

// Credential is the session-scoped proof of login required by mutating
// upstream calls. It is acquired once per batch and only read afterwards.
type Credential struct {
	Username  string
	UserID    int64
	CSRFToken string
	Session   string
}
