/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes exchanged with API clients. Kept separate from domain
  types so the wire format can evolve without touching the catalog.

CONVENTIONS:
  - Prices are decimal strings ("15.99"), never floats.
  - Optional fields use pointers or omitempty.

SEE ALSO:
  - handlers.go: Where these are populated
*/
package api

// ImportSummaryDTO is the response body of POST /api/imports.
type ImportSummaryDTO struct {
	RowsProcessed    int           `json:"rows_processed"`
	Succeeded        int           `json:"succeeded"`
	Created          CreatedDTO    `json:"created"`
	UpdatedPositions int           `json:"updated_positions"`
	Errors           []RowErrorDTO `json:"errors"`
}

// CreatedDTO counts entities created by one import call.
type CreatedDTO struct {
	Stores    int `json:"stores"`
	Authors   int `json:"authors"`
	Books     int `json:"books"`
	Positions int `json:"positions"`
}

// RowErrorDTO reports one rejected row.
type RowErrorDTO struct {
	Ordinal int    `json:"ordinal"`
	Raw     string `json:"raw"`
	Reason  string `json:"reason"`
}

// StoreDTO is one element of GET /api/stores.
type StoreDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// PricedBookDTO is one row of the priciest-books report.
type PricedBookDTO struct {
	Book   string `json:"book"`
	Author string `json:"author"`
	Pages  *int   `json:"pages,omitempty"`
	Price  string `json:"price"`
	Copies int    `json:"copies"`
}

// AuthorRankDTO is one row of the prolific-authors report.
type AuthorRankDTO struct {
	Author string `json:"author"`
	Books  int    `json:"books"`
	Copies int    `json:"copies"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
