package entity

// Processing outcome statuses
const (
	StatusSuccess = "success"
	StatusInfo    = "info"
	StatusWarning = "warning"
	StatusError   = "error"
)

// ProcessData carries the offers touched while processing one email.
type ProcessData struct {
	ParsedOffers []*Offer `json:"parsed_offers"`
	NewOffers    []*Offer `json:"new_offers"`
	FailedKeys   []string `json:"failed_keys,omitempty"`
}

// ProcessResult is the structured outcome of processing one email body.
// It is always returned in place of an error so partial failures stay
// visible to the caller instead of aborting the batch.
type ProcessResult struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    ProcessData `json:"data"`
}
