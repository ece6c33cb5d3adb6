package registry

import "fmt"

// Fetch statuses surfaced on records and the run log.
const (
	StatusOK           = "OK"
	StatusOKCached     = "OK_CACHED"
	StatusNotFound     = "OPS_404"
	StatusUnauthorized = "OPS_401"
	StatusForbidden    = "OPS_403"
	StatusNonXML       = "OPS_NON_XML"
	StatusNonJSON      = "OPS_NON_JSON"
	StatusRequestError = "OPS_ERROR_REQUEST"
	StatusAuthError    = "OPS_ERROR_AUTH"
)

// StatusOther formats the permanent-failure status for an unclassified
// 4xx (or retry-exhausted 5xx) response code.
func StatusOther(code int) string {
	return fmt.Sprintf("OPS_OTHER_%d", code)
}

// Outcome classifies a single transport exchange. Retry/abort/refresh
// policy is implemented purely over this enum, decoupled from transport
// details.
type Outcome int

const (
	// OutcomeSuccess is a 2xx response with the expected content type.
	OutcomeSuccess Outcome = iota
	// OutcomeTransient covers 429/5xx and network errors; retried with
	// capped exponential backoff up to the attempt ceiling.
	OutcomeTransient
	// OutcomePermanent covers 404, content-type mismatches and other
	// 4xx codes; never retried.
	OutcomePermanent
	// OutcomeAuth covers authorization failures; triggers one forced
	// credential refresh and retry outside the backoff budget.
	OutcomeAuth
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	case OutcomeAuth:
		return "auth"
	default:
		return "unknown"
	}
}
