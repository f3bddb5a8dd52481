package pagination

const (
	DefaultPageLen = 20
	MaxPageLen     = 100
)

// Params holds the start/page_len window of a listing request.
type Params struct {
	Start   int
	PageLen int
}

// New clamps start and pageLen into a valid window.
func New(start, pageLen int) Params {
	if pageLen <= 0 {
		pageLen = DefaultPageLen
	}
	if pageLen > MaxPageLen {
		pageLen = MaxPageLen
	}
	if start < 0 {
		start = 0
	}
	return Params{Start: start, PageLen: pageLen}
}

// Response is the listing envelope consumed by the dashboard tables.
// NextStart is set only when HasNext is true.
type Response struct {
	Data       interface{} `json:"data"`
	TotalCount int         `json:"total_count"`
	HasNext    bool        `json:"has_next"`
	NextStart  int         `json:"next_start,omitempty"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	resp := &Response{Data: data, TotalCount: total, HasNext: p.HasNext(total)}
	if resp.HasNext {
		resp.NextStart = p.NextStart()
	}
	return resp
}

// HasNext returns true if there are more rows after the current window.
func (p Params) HasNext(total int) bool {
	return p.Start+p.PageLen < total
}

// NextStart returns the start offset of the following page.
func (p Params) NextStart() int {
	return p.Start + p.PageLen
}
