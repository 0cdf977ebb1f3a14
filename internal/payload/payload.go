package payload

// Order is the sort direction accepted by list endpoints.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

type ListResp[T any] struct {
	Items []T   `json:"items"`
	Count int64 `json:"count"`
}

// UserSummary is the sanitized user shape embedded in list responses.
type UserSummary struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Nickname *string `json:"nickname,omitempty"`
}
