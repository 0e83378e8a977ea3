package model

type Pager struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type Order struct {
	OrderBy  string `json:"order_by"`
	OrderAsc bool   `json:"order_asc"`
}
