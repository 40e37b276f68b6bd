package catalog

import (
	"encoding/json"
	"time"
)

// EventItem is one search hit, flattened from the upstream catalog's
// embedded venue/country structure into the shape clients consume.
type EventItem struct {
	ID             json.Number     `json:"id"`
	EventName      string          `json:"event_name"`
	Venue          string          `json:"venue"`
	City           *string         `json:"city"`
	State          *string         `json:"state"`
	PostalCode     *string         `json:"postal_code"`
	Country        *string         `json:"country"`
	CountryCode    *string         `json:"country_code"`
	Latitude       *float64        `json:"latitude"`
	Longitude      *float64        `json:"longitude"`
	StartTimestamp *string         `json:"start_timestamp"`
	OnSaleDate     *string         `json:"on_sale_date"`
	Status         *string         `json:"status"`
	MinTicketPrice json.RawMessage `json:"min_ticket_price"`
	Webpage        *string         `json:"webpage"`

	startTS *time.Time // parsed StartTimestamp, sort key only
}

// SearchResult is the payload returned for a search query. Links is
// passed through verbatim so clients can page the upstream catalog.
type SearchResult struct {
	Query      string          `json:"query"`
	TotalItems int             `json:"total_items"`
	Items      []EventItem     `json:"items"`
	Links      json.RawMessage `json:"_links"`
}

// upstreamEnvelope mirrors the relevant parts of the catalog API's
// HAL-style response.
type upstreamEnvelope struct {
	TotalItems int `json:"total_items"`
	Embedded   struct {
		Items []upstreamItem `json:"items"`
	} `json:"_embedded"`
	Links json.RawMessage `json:"_links"`
}

type upstreamItem struct {
	ID             json.Number     `json:"id"`
	Name           *string         `json:"name"`
	StartDate      *string         `json:"start_date"`
	OnSaleDate     *string         `json:"on_sale_date"`
	Status         *string         `json:"status"`
	MinTicketPrice json.RawMessage `json:"min_ticket_price"`
	Embedded       struct {
		Venue struct {
			Name          *string  `json:"name"`
			City          *string  `json:"city"`
			StateProvince *string  `json:"state_province"`
			PostalCode    *string  `json:"postal_code"`
			Latitude      *float64 `json:"latitude"`
			Longitude     *float64 `json:"longitude"`
			Embedded      struct {
				Country struct {
					Name *string `json:"name"`
					Code *string `json:"code"`
				} `json:"country"`
			} `json:"_embedded"`
		} `json:"venue"`
	} `json:"_embedded"`
	Links struct {
		Webpage struct {
			Href *string `json:"href"`
		} `json:"event:webpage"`
	} `json:"_links"`
}
